package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/charlesng35/socialink/pkg/errors"
	"github.com/charlesng35/socialink/pkg/metrics"
)

const (
	// DefaultAccessTokenTTL defines the fallback validity period for access tokens.
	DefaultAccessTokenTTL = 30 * time.Minute
	// DefaultConfirmationTokenTTL defines the fallback validity period for email confirmation links.
	DefaultConfirmationTokenTTL = 24 * time.Hour
)

// TokenType tags a token with the context it may be presented in.
type TokenType string

const (
	TokenTypeAccess       TokenType = "access"
	TokenTypeConfirmation TokenType = "confirmation"
)

func (t TokenType) valid() bool {
	return t == TokenTypeAccess || t == TokenTypeConfirmation
}

// TokenConfig bundles the configuration required to build a TokenService.
type TokenConfig struct {
	Secret               string
	Issuer               string
	AccessTokenTTL       time.Duration
	ConfirmationTokenTTL time.Duration
	Clock                func() time.Time
}

// Claims represents the claims embedded in issued tokens. The subject is the
// user's email address.
type Claims struct {
	Type TokenType `json:"type"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies signed, typed, expiring tokens.
type TokenService struct {
	secret          []byte
	issuer          string
	accessTTL       time.Duration
	confirmationTTL time.Duration
	now             func() time.Time
}

// NewTokenService constructs a TokenService. The secret is mandatory.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("token: secret must be provided")
	}

	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	confirmationTTL := cfg.ConfirmationTokenTTL
	if confirmationTTL <= 0 {
		confirmationTTL = DefaultConfirmationTokenTTL
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &TokenService{
		secret:          []byte(cfg.Secret),
		issuer:          cfg.Issuer,
		accessTTL:       accessTTL,
		confirmationTTL: confirmationTTL,
		now:             now,
	}, nil
}

// IssueAccess issues an access token using the configured access TTL.
func (s *TokenService) IssueAccess(subject string) (string, error) {
	return s.Issue(subject, TokenTypeAccess, s.accessTTL)
}

// IssueConfirmation issues an email confirmation token using the configured TTL.
func (s *TokenService) IssueConfirmation(subject string) (string, error) {
	return s.Issue(subject, TokenTypeConfirmation, s.confirmationTTL)
}

// Issue signs a token for subject that expires ttl from now. A non-positive
// ttl yields a token that is already expired.
func (s *TokenService) Issue(subject string, tokenType TokenType, ttl time.Duration) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", errors.New("token: subject is required")
	}
	if !tokenType.valid() {
		return "", fmt.Errorf("token: unknown type %q", tokenType)
	}

	now := s.now()
	claims := &Claims{
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Verify checks the token's signature, expiry, subject and type, in that
// order, and returns the subject. It has no side effects.
func (s *TokenService) Verify(token string, expected TokenType) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", s.reject(ErrTokenMalformed)
	}

	// Expiry is checked below so that it is reported after signature problems
	// and before the subject and type checks.
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	var claims Claims
	if _, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}); err != nil {
		return "", s.reject(ErrTokenMalformed.WithInternal(err))
	}

	if s.issuer != "" && claims.Issuer != s.issuer {
		return "", s.reject(ErrTokenMalformed.WithInternal(errors.New("token: issuer mismatch")))
	}
	if claims.ExpiresAt == nil {
		return "", s.reject(ErrTokenMalformed.WithInternal(errors.New("token: missing exp claim")))
	}
	if !s.now().Before(claims.ExpiresAt.Time) {
		return "", s.reject(ErrTokenExpired)
	}
	if claims.Subject == "" {
		return "", s.reject(ErrTokenMissingSubject)
	}
	if claims.Type != expected {
		return "", s.reject(ErrTokenTypeMismatch.WithMessage(
			fmt.Sprintf("Token has incorrect type, expected '%s'", expected),
		))
	}

	return claims.Subject, nil
}

func (s *TokenService) reject(err *apperrors.AppError) error {
	metrics.TokenRejections.WithLabelValues(err.Code).Inc()
	return err
}
