package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/charlesng35/socialink/internal/models"
	"github.com/charlesng35/socialink/pkg/crypto"
	"github.com/charlesng35/socialink/pkg/logger"
	"github.com/charlesng35/socialink/pkg/metrics"
)

// CredentialStore is the user lookup the gateway depends on.
// FindByEmail returns (nil, nil) when no user has that email.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	MarkConfirmed(ctx context.Context, email string) (*models.User, error)
}

// Gateway authenticates logins, resolves bearer tokens to users and consumes
// email confirmation tokens.
type Gateway struct {
	tokens *TokenService
	store  CredentialStore
	verify func(hash, password string) bool
}

// NewGateway wires the gateway to its token service and credential store.
func NewGateway(tokens *TokenService, store CredentialStore) (*Gateway, error) {
	if tokens == nil {
		return nil, errors.New("auth gateway: token service is required")
	}
	if store == nil {
		return nil, errors.New("auth gateway: credential store is required")
	}
	return &Gateway{
		tokens: tokens,
		store:  store,
		verify: crypto.VerifyPassword,
	}, nil
}

// Tokens exposes the underlying token service.
func (g *Gateway) Tokens() *TokenService {
	return g.tokens
}

// Authenticate checks an email/password pair. Unknown emails and wrong
// passwords produce the same error.
func (g *Gateway) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := g.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("auth gateway: find user: %w", err)
	}

	if user == nil || !g.verify(user.Password, password) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		logger.WithModule("auth").Debug("login rejected", zap.String("email", logger.MaskEmail(email)))
		return nil, ErrInvalidCredentials
	}

	if !user.Confirmed {
		metrics.AuthAttempts.WithLabelValues("unconfirmed").Inc()
		return nil, ErrEmailNotConfirmed
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	return user, nil
}

// Login authenticates and returns a fresh access token.
func (g *Gateway) Login(ctx context.Context, email, password string) (string, error) {
	user, err := g.Authenticate(ctx, email, password)
	if err != nil {
		return "", err
	}
	return g.tokens.IssueAccess(user.Email)
}

// CurrentUser resolves a bearer access token to its user.
func (g *Gateway) CurrentUser(ctx context.Context, bearerToken string) (*models.User, error) {
	email, err := g.tokens.Verify(bearerToken, TokenTypeAccess)
	if err != nil {
		return nil, err
	}

	user, err := g.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("auth gateway: find user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// ConfirmEmail consumes a confirmation token and marks its user confirmed.
// Confirming an already confirmed user succeeds without changes.
func (g *Gateway) ConfirmEmail(ctx context.Context, confirmationToken string) (*models.User, error) {
	email, err := g.tokens.Verify(confirmationToken, TokenTypeConfirmation)
	if err != nil {
		return nil, err
	}

	user, err := g.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("auth gateway: find user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.Confirmed {
		return user, nil
	}

	user, err = g.store.MarkConfirmed(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("auth gateway: confirm user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	logger.WithModule("auth").Info("email confirmed", zap.Uint("user_id", user.ID))
	return user, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
