package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adnfaris/tripdana/internal/models"
)

// memoryUserStorage is an in-memory UserStorage for authenticator tests.
type memoryUserStorage struct {
	byEmail map[string]*models.User
	byID    map[string]*models.User
}

func newMemoryUserStorage() *memoryUserStorage {
	return &memoryUserStorage{
		byEmail: make(map[string]*models.User),
		byID:    make(map[string]*models.User),
	}
}

func (m *memoryUserStorage) CreateUser(_ context.Context, u *models.User) error {
	m.byEmail[u.Email] = u
	m.byID[u.ID] = u
	return nil
}

func (m *memoryUserStorage) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return nil, errors.New("not found")
	}
	return u, nil
}

func (m *memoryUserStorage) GetUserByID(_ context.Context, id string) (*models.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return u, nil
}

func TestRegisterAndAuthenticate(t *testing.T) {
	a := NewPasswordAuthenticator(newMemoryUserStorage())
	ctx := context.Background()

	user, err := a.Register(ctx, "alice@example.com", "Alice", "correct-horse")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.PasswordHash == "correct-horse" {
		t.Error("password stored in cleartext")
	}

	got, err := a.Authenticate(ctx, "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("got user %s, want %s", got.ID, user.ID)
	}

	if _, err := a.Authenticate(ctx, "alice@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password = %v, want ErrInvalidCredentials", err)
	}
	if _, err := a.Authenticate(ctx, "nobody@example.com", "correct-horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email = %v, want ErrInvalidCredentials", err)
	}

	if _, err := a.Register(ctx, "alice@example.com", "Alice Again", "another-pass"); !errors.Is(err, ErrEmailExists) {
		t.Errorf("duplicate register = %v, want ErrEmailExists", err)
	}
	if _, err := a.Register(ctx, "bob@example.com", "Bob", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("weak password = %v, want ErrWeakPassword", err)
	}
}

func TestJWTGenerateValidate(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	user := &models.User{ID: "user-1", Email: "alice@example.com"}

	token, err := m.Generate(user)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.UserID != "user-1" || claims.Email != "alice@example.com" {
		t.Errorf("claims = %s/%s, want user-1/alice@example.com", claims.UserID, claims.Email)
	}

	if _, err := m.Validate(token + "x"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("tampered token = %v, want ErrInvalidToken", err)
	}

	other := NewJWTManager("other-secret", time.Hour)
	if _, err := other.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong key = %v, want ErrInvalidToken", err)
	}

	expired := NewJWTManager("test-secret", -time.Minute)
	tok, err := expired.Generate(user)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if _, err := m.Validate(tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token = %v, want ErrInvalidToken", err)
	}
}
