package handlers_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/socialink/internal/app"
	iauth "github.com/charlesng35/socialink/internal/auth"
	"github.com/charlesng35/socialink/internal/handlers/testutil"
)

func TestAuthHandler_RegisterConfirmLogin(t *testing.T) {
	env := testutil.NewEnv(t)

	link := env.Register("alice@example.com", "Passw0rd!")
	require.True(t, strings.HasPrefix(link, testutil.PublicURL+"/confirm/"))

	msg, ok := env.Mailer.Last()
	require.True(t, ok)
	require.Equal(t, []string{"alice@example.com"}, msg.To)
	require.Equal(t, "Successfully signed Up", msg.Subject)
	require.Equal(t, []string{"registration_email"}, env.Scheduler.Names())

	unconfirmed := env.Request(http.MethodPost, "/token", map[string]string{"email": "alice@example.com", "password": "Passw0rd!"}, "")
	require.Equal(t, http.StatusUnauthorized, unconfirmed.Code)
	require.Equal(t, "User has not confirmed email", testutil.DecodeError(t, unconfirmed).Detail)

	confirm := env.Request(http.MethodGet, strings.TrimPrefix(link, testutil.PublicURL), nil, "")
	require.Equal(t, http.StatusOK, confirm.Code)
	var detail map[string]string
	testutil.DecodeInto(t, confirm, &detail)
	require.Equal(t, "User confirmed", detail["detail"])

	again := env.Request(http.MethodGet, strings.TrimPrefix(link, testutil.PublicURL), nil, "")
	require.Equal(t, http.StatusOK, again.Code)

	token := env.Login("alice@example.com", "Passw0rd!")
	require.NotEmpty(t, token)
}

func TestAuthHandler_RegisterResponse(t *testing.T) {
	env := testutil.NewEnv(t)

	payload := map[string]string{"email": "bob@example.com", "password": "secret"}
	w := env.Request(http.MethodPost, "/register", payload, "")
	require.Equal(t, http.StatusCreated, w.Code)

	var body map[string]string
	testutil.DecodeInto(t, w, &body)
	require.Equal(t, "User created. Please confirm your email", body["detail"])

	dup := env.Request(http.MethodPost, "/register", payload, "")
	require.Equal(t, http.StatusBadRequest, dup.Code)
	require.Equal(t, "A user with that email already exists", testutil.DecodeError(t, dup).Detail)
}

func TestAuthHandler_RegisterValidation(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodPost, "/register", map[string]string{"email": "not-an-email", "password": " "}, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := testutil.DecodeError(t, w)
	require.Equal(t, "BAD_REQUEST", body.Code)
	require.Contains(t, body.Detail, "email must be a valid email address")
	require.Contains(t, body.Detail, "password is required")
	require.Empty(t, env.Mailer.Messages())
}

func TestAuthHandler_RegistrationSucceedsWhenEmailFails(t *testing.T) {
	env := testutil.NewEnv(t)
	env.Mailer.Err = errors.New("smtp down")

	w := env.Request(http.MethodPost, "/register", map[string]string{"email": "carol@example.com", "password": "secret"}, "")
	require.Equal(t, http.StatusCreated, w.Code)

	errs := env.Scheduler.Errors()
	require.Len(t, errs, 1)
	require.Error(t, errs[0])
}

func TestAuthHandler_TokenRejectsUnknownUser(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodPost, "/token", map[string]string{"email": "tinubu@gmail.com", "password": "whatever"}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
	require.Equal(t, "Invalid email or password", testutil.DecodeError(t, w).Detail)
}

func TestAuthHandler_TokenRejectsWrongPassword(t *testing.T) {
	env := testutil.NewEnv(t)
	env.CreateConfirmedUser("dave@example.com", "right-password")

	w := env.Request(http.MethodPost, "/token", map[string]string{"email": "dave@example.com", "password": "wrong-password"}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Invalid email or password", testutil.DecodeError(t, w).Detail)
}

func TestAuthHandler_ConfirmRejectsBadTokens(t *testing.T) {
	env := testutil.NewEnv(t)
	env.Register("erin@example.com", "secret")

	expired, err := env.Tokens.Issue("erin@example.com", iauth.TokenTypeConfirmation, -time.Minute)
	require.NoError(t, err)
	access, err := env.Tokens.IssueAccess("erin@example.com")
	require.NoError(t, err)
	ghost, err := env.Tokens.IssueConfirmation("ghost@example.com")
	require.NoError(t, err)

	cases := []struct {
		token  string
		detail string
	}{
		{expired, "Token has expired"},
		{"not-a-jwt", "Invalid token"},
		{access, "Token has incorrect type, expected 'confirmation'"},
		{ghost, "Could not find user for this token"},
	}
	for _, tc := range cases {
		w := env.Request(http.MethodGet, "/confirm/"+tc.token, nil, "")
		require.Equal(t, http.StatusUnauthorized, w.Code, tc.detail)
		require.Equal(t, tc.detail, testutil.DecodeError(t, w).Detail)
	}

	user, err := env.Users.FindByEmail(t.Context(), "erin@example.com")
	require.NoError(t, err)
	require.False(t, user.Confirmed)
}

func TestAuthHandler_ProtectedRoutesRequireToken(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodPost, "/post", map[string]string{"body": "hello"}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Not authenticated", testutil.DecodeError(t, w).Detail)

	confirmation, err := env.Tokens.IssueConfirmation("someone@example.com")
	require.NoError(t, err)
	w = env.Request(http.MethodPost, "/post", map[string]string{"body": "hello"}, confirmation)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Token has incorrect type, expected 'access'", testutil.DecodeError(t, w).Detail)
}

func TestAuthHandler_RateLimited(t *testing.T) {
	env := testutil.NewEnv(t, testutil.WithConfig(func(cfg *app.Config) {
		cfg.Server.AuthRateLimit = 2
		cfg.Server.AuthRateWindow = time.Hour
	}))

	payload := map[string]string{"email": "nobody@example.com", "password": "x"}
	for i := 0; i < 2; i++ {
		w := env.Request(http.MethodPost, "/token", payload, "")
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w := env.Request(http.MethodPost, "/token", payload, "")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.NotEmpty(t, w.Header().Get("Retry-After"))
}
