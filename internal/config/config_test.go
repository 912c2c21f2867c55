package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsAndFile(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
jwt:
  secret: file-secret
db:
  path: /tmp/trips.db
midtrans:
  server_key: sk-test
  order_prefix: TRIP
`)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.JWT.Secret != "file-secret" {
		t.Errorf("JWT.Secret = %q, want file-secret", cfg.JWT.Secret)
	}
	if cfg.DB.Path != "/tmp/trips.db" {
		t.Errorf("DB.Path = %q", cfg.DB.Path)
	}
	if cfg.Midtrans.OrderPrefix != "TRIP" {
		t.Errorf("OrderPrefix = %q, want TRIP", cfg.Midtrans.OrderPrefix)
	}

	// Defaults fill what the file omits.
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("HTTP.Addr = %q, want :8080", cfg.HTTP.Addr)
	}
	if cfg.JWT.TTLHours != 24 {
		t.Errorf("JWT.TTLHours = %d, want 24", cfg.JWT.TTLHours)
	}
	if cfg.Midtrans.ExpiryMinutes != 1440 {
		t.Errorf("ExpiryMinutes = %d, want 1440", cfg.Midtrans.ExpiryMinutes)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TRIPDANA_JWT_SECRET", "env-secret")
	t.Setenv("TRIPDANA_HTTP_ADDR", ":9090")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.JWT.Secret != "env-secret" {
		t.Errorf("JWT.Secret = %q, want env-secret", cfg.JWT.Secret)
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Errorf("HTTP.Addr = %q, want :9090", cfg.HTTP.Addr)
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("Load without jwt.secret succeeded, want error")
	}
}
