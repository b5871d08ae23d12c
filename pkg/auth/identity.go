package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/otp"
	"github.com/dmitrymomot/storefront/pkg/sanitizer"
	"github.com/dmitrymomot/storefront/pkg/validator"
)

// IdentityService implements otp.IdentityProvider on top of Storage.
type IdentityService struct {
	storage    Storage
	bcryptCost int
	logger     *slog.Logger
	now        func() time.Time
}

var _ otp.IdentityProvider = (*IdentityService)(nil)

type IdentityOption func(*IdentityService)

// WithIdentityLogger sets a custom logger for the service.
func WithIdentityLogger(log *slog.Logger) IdentityOption {
	return func(s *IdentityService) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithBcryptCost sets the bcrypt cost for password hashing.
func WithBcryptCost(cost int) IdentityOption {
	return func(s *IdentityService) {
		s.bcryptCost = cost
	}
}

// WithIdentityClock overrides time.Now.
func WithIdentityClock(now func() time.Time) IdentityOption {
	return func(s *IdentityService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewIdentityService creates an identity service.
func NewIdentityService(storage Storage, opts ...IdentityOption) *IdentityService {
	s := &IdentityService{
		storage:    storage,
		bcryptCost: bcrypt.DefaultCost,
		logger:     logger.Discard(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account with an optional password.
func (s *IdentityService) Register(ctx context.Context, email, name, password string) (*User, error) {
	email = sanitizer.NormalizeEmail(email)
	if err := validator.Apply(
		validator.Required("email", email),
		validator.ValidEmail("email", email),
		validator.MaxLen("name", name, 100),
	); err != nil {
		return nil, err
	}

	_, err := s.storage.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, ErrEmailAlreadyExists
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	now := s.now()
	user := &User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      sanitizer.SingleLine(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if password != "" {
		if user.PasswordHash, err = bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost); err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
	}

	if err := s.storage.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// FindSubject implements otp.IdentityProvider.
func (s *IdentityService) FindSubject(ctx context.Context, email string) (string, error) {
	user, err := s.storage.GetUserByEmail(ctx, sanitizer.NormalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		return "", otp.ErrSubjectNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get user: %w", err)
	}
	return user.ID, nil
}

// SetCredential implements otp.IdentityProvider.
func (s *IdentityService) SetCredential(ctx context.Context, subjectID, password string) error {
	if subjectID == "" {
		return ErrSubjectRequired
	}
	if password == "" {
		return ErrPasswordRequired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.storage.UpdatePasswordHash(ctx, subjectID, hash, s.now()); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return otp.ErrSubjectNotFound
		}
		return fmt.Errorf("failed to save password: %w", err)
	}

	s.logger.InfoContext(ctx, "password credential updated",
		logger.Component("identity"),
		logger.SubjectID(subjectID),
	)
	return nil
}
