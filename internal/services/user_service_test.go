package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/charlesng35/socialink/internal/database/testutil"
	"github.com/charlesng35/socialink/pkg/crypto"
	apperrors "github.com/charlesng35/socialink/pkg/errors"
)

func newUserService(t *testing.T) *UserService {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewUserService(db, WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)
	return svc
}

func TestNewUserServiceRequiresDB(t *testing.T) {
	_, err := NewUserService(nil)
	require.Error(t, err)
}

func TestUserServiceRegister(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, " Alice@Example.com ", "password123")
	require.NoError(t, err)
	require.NotZero(t, user.ID)
	require.Equal(t, "alice@example.com", user.Email)
	require.False(t, user.Confirmed)
	require.NotEqual(t, "password123", user.Password)
	require.True(t, crypto.VerifyPassword(user.Password, "password123"))
}

func TestUserServiceRegisterDuplicateEmail(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "password123")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "ALICE@example.com", "another")
	require.ErrorIs(t, err, ErrUserExists)
	require.Equal(t, 400, apperrors.FromError(err).StatusCode)
	require.Equal(t, "A user with that email already exists", apperrors.FromError(err).Message)
}

func TestUserServiceRegisterValidation(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "", "password123")
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = svc.Register(ctx, "alice@example.com", "  ")
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = svc.Register(ctx, "alice@example.com", strings.Repeat("x", 73))
	require.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestUserServiceFindByEmail(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	missing, err := svc.FindByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	require.Nil(t, missing)

	created, err := svc.Register(ctx, "alice@example.com", "password123")
	require.NoError(t, err)

	found, err := svc.FindByEmail(ctx, "Alice@Example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, created.ID, found.ID)
}

func TestUserServiceMarkConfirmed(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "password123")
	require.NoError(t, err)

	user, err := svc.MarkConfirmed(ctx, "alice@example.com")
	require.NoError(t, err)
	require.True(t, user.Confirmed)

	reloaded, err := svc.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.True(t, reloaded.Confirmed)

	ghost, err := svc.MarkConfirmed(ctx, "ghost@example.com")
	require.NoError(t, err)
	require.Nil(t, ghost)
}
