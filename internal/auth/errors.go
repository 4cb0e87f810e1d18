package auth

import (
	"net/http"

	apperrors "github.com/charlesng35/socialink/pkg/errors"
)

// Token verification failures. Each carries its own code so callers can tell
// them apart, and all of them render as 401.
var (
	ErrTokenMalformed      = apperrors.New("TOKEN_INVALID", "Invalid token", http.StatusUnauthorized)
	ErrTokenExpired        = apperrors.New("TOKEN_EXPIRED", "Token has expired", http.StatusUnauthorized)
	ErrTokenMissingSubject = apperrors.New("TOKEN_MISSING_SUBJECT", "Token is missing 'sub' field", http.StatusUnauthorized)
	ErrTokenTypeMismatch   = apperrors.New("TOKEN_TYPE_MISMATCH", "Token has incorrect type", http.StatusUnauthorized)
)

// Gateway failures.
var (
	ErrInvalidCredentials = apperrors.New("INVALID_CREDENTIALS", "Invalid email or password", http.StatusUnauthorized)
	ErrEmailNotConfirmed  = apperrors.New("EMAIL_NOT_CONFIRMED", "User has not confirmed email", http.StatusUnauthorized)
	ErrUserNotFound       = apperrors.New("USER_NOT_FOUND", "Could not find user for this token", http.StatusUnauthorized)
)
