// Package auth handles dashboard administrator accounts and their cookie
// sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"gymdash/internal/core"
	applog "gymdash/internal/log"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// AdminStore persists administrator accounts.
type AdminStore interface {
	GetAdminByEmail(ctx context.Context, email string) (core.Admin, error)
	CreateAdmin(ctx context.Context, a core.Admin) error
	CountAdmins(ctx context.Context) (int, error)
}

// Options tune the lockout policy.
type Options struct {
	MaxAttempts int
	Lockout     time.Duration
	BcryptCost  int
	Now         func() time.Time
	Logger      *applog.Logger
}

type attempts struct {
	failures    int
	lockedUntil time.Time
}

// Service registers and authenticates administrators.
type Service struct {
	store  AdminStore
	opts   Options
	logger *applog.Logger

	mu     sync.Mutex
	failed map[string]*attempts
}

// NewService creates an auth service.
func NewService(store AdminStore, opts Options) *Service {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.Lockout <= 0 {
		opts.Lockout = 15 * time.Minute
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = 12
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = applog.Discard()
	}
	return &Service{
		store:  store,
		opts:   opts,
		logger: opts.Logger.WithComponent(applog.ComponentAuth),
		failed: make(map[string]*attempts),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HasAdmins reports whether any account exists yet.
func (s *Service) HasAdmins(ctx context.Context) (bool, error) {
	n, err := s.store.CountAdmins(ctx)
	if err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	return n > 0, nil
}

// Register creates a new administrator.
func (s *Service) Register(ctx context.Context, email, name, password string) (core.Admin, error) {
	email = normalizeEmail(email)
	if !emailPattern.MatchString(email) {
		return core.Admin{}, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return core.Admin{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return core.Admin{}, fmt.Errorf("hash password: %w", err)
	}

	admin := core.Admin{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
		CreatedAt:    s.opts.Now().UTC(),
	}
	if err := s.store.CreateAdmin(ctx, admin); err != nil {
		if errors.Is(err, core.ErrEmailTaken) {
			return core.Admin{}, ErrEmailInUse
		}
		return core.Admin{}, fmt.Errorf("create admin: %w", err)
	}

	s.logger.InfoContext(ctx, "Admin registered", applog.FieldAdminEmail, email)
	return admin, nil
}

// Login checks the credentials. Repeated failures lock the email out for a while.
func (s *Service) Login(ctx context.Context, email, password string) (core.Admin, error) {
	email = normalizeEmail(email)
	if !emailPattern.MatchString(email) {
		return core.Admin{}, ErrInvalidEmail
	}
	if s.locked(email) {
		return core.Admin{}, ErrTooManyAttempts
	}

	admin, err := s.store.GetAdminByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrAdminNotFound) {
			return core.Admin{}, ErrUserNotFound
		}
		return core.Admin{}, fmt.Errorf("load admin: %w", err)
	}
	if admin.Disabled {
		return core.Admin{}, ErrUserDisabled
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		s.recordFailure(email)
		s.logger.WarnContext(ctx, "Admin login failed", applog.FieldAdminEmail, email)
		return core.Admin{}, ErrWrongPassword
	}

	s.clearFailures(email)
	s.logger.InfoContext(ctx, "Admin signed in", applog.FieldAdminEmail, email)
	return admin, nil
}

func (s *Service) locked(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.failed[email]
	if !ok {
		return false
	}
	if a.lockedUntil.IsZero() {
		return false
	}
	if s.opts.Now().Before(a.lockedUntil) {
		return true
	}
	delete(s.failed, email)
	return false
}

func (s *Service) recordFailure(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.failed[email]
	if !ok {
		a = &attempts{}
		s.failed[email] = a
	}
	a.failures++
	if a.failures >= s.opts.MaxAttempts {
		a.lockedUntil = s.opts.Now().Add(s.opts.Lockout)
	}
}

func (s *Service) clearFailures(email string) {
	s.mu.Lock()
	delete(s.failed, email)
	s.mu.Unlock()
}
