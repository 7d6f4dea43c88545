package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"gymdash/internal/core"
)

type memAdmins struct {
	mu     sync.Mutex
	admins map[string]core.Admin
}

func newMemAdmins() *memAdmins {
	return &memAdmins{admins: make(map[string]core.Admin)}
}

func (m *memAdmins) GetAdminByEmail(_ context.Context, email string) (core.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.admins[email]
	if !ok {
		return core.Admin{}, core.ErrAdminNotFound
	}
	return a, nil
}

func (m *memAdmins) CreateAdmin(_ context.Context, a core.Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.admins[a.Email]; ok {
		return core.ErrEmailTaken
	}
	m.admins[a.Email] = a
	return nil
}

func (m *memAdmins) CountAdmins(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.admins), nil
}

func newTestService(store AdminStore, now func() time.Time) *Service {
	return NewService(store, Options{BcryptCost: 4, MaxAttempts: 3, Lockout: time.Minute, Now: now})
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	store := newMemAdmins()
	svc := newTestService(store, nil)

	admin, err := svc.Register(ctx, " Admin@Gym.cr ", "Admin", "secreto1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if admin.Email != "admin@gym.cr" || admin.ID == "" {
		t.Fatalf("admin = %+v", admin)
	}
	if strings.Contains(admin.PasswordHash, "secreto1") {
		t.Fatalf("password stored in clear")
	}
	if ok, _ := svc.HasAdmins(ctx); !ok {
		t.Fatalf("HasAdmins should be true")
	}

	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"duplicate", "admin@gym.cr", "secreto1", ErrEmailInUse},
		{"bad email", "admin", "secreto1", ErrInvalidEmail},
		{"short password", "other@gym.cr", "12345", ErrWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.email, "", tt.password)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	store := newMemAdmins()
	svc := newTestService(store, nil)
	if _, err := svc.Register(ctx, "admin@gym.cr", "Admin", "secreto1"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	store.admins["off@gym.cr"] = core.Admin{ID: "x", Email: "off@gym.cr", Disabled: true}

	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"ok", "ADMIN@gym.cr", "secreto1", nil},
		{"wrong password", "admin@gym.cr", "nope", ErrWrongPassword},
		{"unknown", "ghost@gym.cr", "secreto1", ErrUserNotFound},
		{"invalid email", "ghost", "secreto1", ErrInvalidEmail},
		{"disabled", "off@gym.cr", "whatever", ErrUserDisabled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(ctx, tt.email, tt.password)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoginLockout(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)
	svc := newTestService(newMemAdmins(), func() time.Time { return now })
	if _, err := svc.Register(ctx, "admin@gym.cr", "", "secreto1"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := svc.Login(ctx, "admin@gym.cr", "bad"); !errors.Is(err, ErrWrongPassword) {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	if _, err := svc.Login(ctx, "admin@gym.cr", "secreto1"); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected lockout, got %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := svc.Login(ctx, "admin@gym.cr", "secreto1"); err != nil {
		t.Fatalf("login after lockout: %v", err)
	}
}

func TestMessage(t *testing.T) {
	tests := map[error]string{
		ErrUserNotFound:    "No existe una cuenta con este email",
		ErrWrongPassword:   "Contraseña incorrecta",
		ErrInvalidEmail:    "Email inválido",
		ErrUserDisabled:    "Esta cuenta ha sido deshabilitada",
		ErrTooManyAttempts: "Demasiados intentos fallidos. Intenta más tarde",
		ErrEmailInUse:      "Ya existe una cuenta con este email",
		ErrWeakPassword:    "La contraseña debe tener al menos 6 caracteres",
		errors.New("x"):    "Error de inicio de sesión",
	}
	for err, want := range tests {
		if got := Message(err); got != want {
			t.Errorf("Message(%v) = %q, want %q", err, got, want)
		}
	}
}
