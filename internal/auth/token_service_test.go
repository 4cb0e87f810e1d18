package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	apperrors "github.com/charlesng35/socialink/pkg/errors"
)

const testSecret = "test-secret-0123456789"

type fakeClock struct {
	current time.Time
}

func (c *fakeClock) Now() time.Time { return c.current }

func (c *fakeClock) Advance(d time.Duration) { c.current = c.current.Add(d) }

func newTestTokenService(t *testing.T) (*TokenService, *fakeClock) {
	t.Helper()

	clock := &fakeClock{current: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	svc, err := NewTokenService(TokenConfig{
		Secret: testSecret,
		Issuer: "socialink",
		Clock:  clock.Now,
	})
	require.NoError(t, err)
	return svc, clock
}

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	_, err := NewTokenService(TokenConfig{})
	require.EqualError(t, err, "token: secret must be provided")

	_, err = NewTokenService(TokenConfig{Secret: "   "})
	require.Error(t, err)
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	svc, _ := newTestTokenService(t)

	for _, tokenType := range []TokenType{TokenTypeAccess, TokenTypeConfirmation} {
		for _, ttl := range []time.Duration{time.Minute, 30 * time.Minute, 24 * time.Hour} {
			token, err := svc.Issue("alice@example.com", tokenType, ttl)
			require.NoError(t, err)
			require.Len(t, strings.Split(token, "."), 3)

			subject, err := svc.Verify(token, tokenType)
			require.NoError(t, err)
			require.Equal(t, "alice@example.com", subject)
		}
	}
}

func TestIssueUsesPolicyTTLs(t *testing.T) {
	svc, clock := newTestTokenService(t)

	access, err := svc.IssueAccess("alice@example.com")
	require.NoError(t, err)
	confirmation, err := svc.IssueConfirmation("alice@example.com")
	require.NoError(t, err)

	clock.Advance(29 * time.Minute)
	_, err = svc.Verify(access, TokenTypeAccess)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	_, err = svc.Verify(access, TokenTypeAccess)
	require.ErrorIs(t, err, ErrTokenExpired)

	_, err = svc.Verify(confirmation, TokenTypeConfirmation)
	require.NoError(t, err)

	clock.Advance(24*time.Hour - 30*time.Minute)
	_, err = svc.Verify(confirmation, TokenTypeConfirmation)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyRejectsNonPositiveTTL(t *testing.T) {
	svc, _ := newTestTokenService(t)

	for _, ttl := range []time.Duration{0, -time.Minute} {
		token, err := svc.Issue("alice@example.com", TokenTypeAccess, ttl)
		require.NoError(t, err)

		_, err = svc.Verify(token, TokenTypeAccess)
		require.ErrorIs(t, err, ErrTokenExpired)

		var appErr *apperrors.AppError
		require.True(t, errors.As(err, &appErr))
		require.Equal(t, "Token has expired", appErr.Message)
		require.Equal(t, 401, appErr.StatusCode)
	}
}

func TestVerifyRejectsWrongType(t *testing.T) {
	svc, _ := newTestTokenService(t)

	confirmation, err := svc.IssueConfirmation("alice@example.com")
	require.NoError(t, err)
	_, err = svc.Verify(confirmation, TokenTypeAccess)
	require.ErrorIs(t, err, ErrTokenTypeMismatch)
	require.Equal(t, "Token has incorrect type, expected 'access'", apperrors.FromError(err).Message)

	access, err := svc.IssueAccess("alice@example.com")
	require.NoError(t, err)
	_, err = svc.Verify(access, TokenTypeConfirmation)
	require.ErrorIs(t, err, ErrTokenTypeMismatch)
	require.Equal(t, "Token has incorrect type, expected 'confirmation'", apperrors.FromError(err).Message)
}

func TestVerifyRejectsMalformedInput(t *testing.T) {
	svc, _ := newTestTokenService(t)

	for _, input := range []string{"", "   ", "not-a-token", "a.b.c", "eyJhbGciOiJIUzI1NiJ9..."} {
		require.NotPanics(t, func() {
			_, err := svc.Verify(input, TokenTypeAccess)
			require.ErrorIs(t, err, ErrTokenMalformed, "input %q", input)
		})
	}
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	svc, clock := newTestTokenService(t)

	other, err := NewTokenService(TokenConfig{Secret: "another-secret-value", Issuer: "socialink", Clock: clock.Now})
	require.NoError(t, err)

	token, err := other.IssueAccess("alice@example.com")
	require.NoError(t, err)

	_, err = svc.Verify(token, TokenTypeAccess)
	require.ErrorIs(t, err, ErrTokenMalformed)
	require.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	svc, _ := newTestTokenService(t)

	token, err := svc.IssueConfirmation("alice@example.com")
	require.NoError(t, err)

	forged, err := svc.Issue("mallory@example.com", TokenTypeConfirmation, time.Hour)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	forgedParts := strings.Split(forged, ".")
	spliced := strings.Join([]string{parts[0], forgedParts[1], parts[2]}, ".")

	_, err = svc.Verify(spliced, TokenTypeConfirmation)
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	svc, clock := newTestTokenService(t)

	claims := &Claims{
		Type: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice@example.com",
			Issuer:    "socialink",
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = svc.Verify(token, TokenTypeAccess)
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func TestVerifyRejectsMissingSubject(t *testing.T) {
	svc, clock := newTestTokenService(t)

	claims := &Claims{
		Type: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "socialink",
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = svc.Verify(token, TokenTypeAccess)
	require.ErrorIs(t, err, ErrTokenMissingSubject)
	require.Equal(t, "Token is missing 'sub' field", apperrors.FromError(err).Message)
}

func TestVerifyRejectsMissingExpiry(t *testing.T) {
	svc, _ := newTestTokenService(t)

	claims := &Claims{
		Type:             TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "alice@example.com", Issuer: "socialink"},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = svc.Verify(token, TokenTypeAccess)
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func TestVerifyRejectsForeignIssuer(t *testing.T) {
	svc, clock := newTestTokenService(t)

	other, err := NewTokenService(TokenConfig{Secret: testSecret, Issuer: "someone-else", Clock: clock.Now})
	require.NoError(t, err)

	token, err := other.IssueAccess("alice@example.com")
	require.NoError(t, err)

	_, err = svc.Verify(token, TokenTypeAccess)
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func TestVerifyReportsExpiryBeforeTypeMismatch(t *testing.T) {
	svc, clock := newTestTokenService(t)

	token, err := svc.IssueConfirmation("alice@example.com")
	require.NoError(t, err)

	clock.Advance(48 * time.Hour)
	_, err = svc.Verify(token, TokenTypeAccess)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyIsIdempotent(t *testing.T) {
	svc, _ := newTestTokenService(t)

	token, err := svc.IssueAccess("alice@example.com")
	require.NoError(t, err)

	first, err := svc.Verify(token, TokenTypeAccess)
	require.NoError(t, err)
	second, err := svc.Verify(token, TokenTypeAccess)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestIssueValidatesInput(t *testing.T) {
	svc, _ := newTestTokenService(t)

	_, err := svc.Issue("", TokenTypeAccess, time.Minute)
	require.Error(t, err)

	_, err = svc.Issue("alice@example.com", TokenType("refresh"), time.Minute)
	require.Error(t, err)
}

func TestTokenErrorsAreDistinct(t *testing.T) {
	all := []*apperrors.AppError{ErrTokenMalformed, ErrTokenExpired, ErrTokenMissingSubject, ErrTokenTypeMismatch}
	for i, a := range all {
		require.Equal(t, 401, a.StatusCode)
		for j, b := range all {
			if i != j {
				require.False(t, errors.Is(a, b), "%s must not match %s", a.Code, b.Code)
			}
		}
	}
}
