package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/socialink/internal/models"
	"github.com/charlesng35/socialink/pkg/crypto"
	apperrors "github.com/charlesng35/socialink/pkg/errors"
)

// UserServiceOption customises a UserService.
type UserServiceOption func(*UserService)

// WithBcryptCost overrides the password hashing cost. Non-positive values
// keep the default.
func WithBcryptCost(cost int) UserServiceOption {
	return func(s *UserService) {
		if cost > 0 {
			s.bcryptCost = cost
		}
	}
}

// UserService registers users and serves credential lookups for the auth gateway.
type UserService struct {
	db         *gorm.DB
	bcryptCost int
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB, opts ...UserServiceOption) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	svc := &UserService{db: db}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc, nil
}

// Register creates an unconfirmed user with a hashed password.
func (s *UserService) Register(ctx context.Context, email, password string) (*models.User, error) {
	ctx = ensureContext(ctx)

	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}
	if strings.TrimSpace(password) == "" {
		return nil, apperrors.NewBadRequest("password is required")
	}

	existing, err := s.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	hashed, err := crypto.HashPasswordWithCost(password, s.bcryptCost)
	if errors.Is(err, crypto.ErrPasswordTooLong) {
		return nil, apperrors.NewBadRequest("password must be at most 72 bytes")
	}
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{Email: email, Password: hashed}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}
	return user, nil
}

// FindByEmail returns the user with the given email, or nil when none exists.
func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", models.NormalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("user service: find by email: %w", err)
	}
	return &user, nil
}

// MarkConfirmed flips the confirmed flag for email and returns the updated
// user, or nil when no such user exists.
func (s *UserService) MarkConfirmed(ctx context.Context, email string) (*models.User, error) {
	ctx = ensureContext(ctx)

	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", models.NormalizeEmail(email)).
		Update("confirmed", true).Error
	if err != nil {
		return nil, fmt.Errorf("user service: mark confirmed: %w", err)
	}
	return s.FindByEmail(ctx, email)
}
