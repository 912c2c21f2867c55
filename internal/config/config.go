// Package config loads application configuration from a yaml file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration for the server.
type Config struct {
	HTTP struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"http"`
	DB struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"db"`
	JWT struct {
		Secret   string `mapstructure:"secret"`
		TTLHours int    `mapstructure:"ttl_hours"`
	} `mapstructure:"jwt"`
	Midtrans struct {
		ServerKey     string `mapstructure:"server_key"`
		ClientKey     string `mapstructure:"client_key"`
		Production    bool   `mapstructure:"production"`
		ExpiryMinutes int    `mapstructure:"expiry_minutes"`
		OrderPrefix   string `mapstructure:"order_prefix"`
	} `mapstructure:"midtrans"`
	RateLimit struct {
		RPS   float64 `mapstructure:"rps"`
		Burst int     `mapstructure:"burst"`
	} `mapstructure:"rate_limit"`
}

// Load reads configuration from the given directory (config.yaml) and the
// environment. Environment variables use the TRIPDANA_ prefix with underscores,
// e.g. TRIPDANA_JWT_SECRET overrides jwt.secret.
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("TRIPDANA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// A missing file is fine as long as the environment provides the rest.
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.JWT.Secret == "" {
		return nil, errors.New("jwt.secret is required")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("db.path", "./data/tripdana.db")
	// Unmarshal only sees environment values for keys viper knows about, so
	// secret-bearing keys get explicit empty defaults.
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.ttl_hours", 24)
	v.SetDefault("midtrans.server_key", "")
	v.SetDefault("midtrans.client_key", "")
	v.SetDefault("midtrans.production", false)
	v.SetDefault("midtrans.expiry_minutes", 1440)
	v.SetDefault("midtrans.order_prefix", "TRP")
	v.SetDefault("rate_limit.rps", 5)
	v.SetDefault("rate_limit.burst", 10)
}
