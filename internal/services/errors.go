package services

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/charlesng35/socialink/pkg/errors"
)

var (
	// ErrUserExists is returned when registering an email that is already taken.
	ErrUserExists = apperrors.New("USER_EXISTS", "A user with that email already exists", http.StatusBadRequest)
	// ErrPostNotFound indicates the referenced post does not exist.
	ErrPostNotFound = apperrors.New("POST_NOT_FOUND", "Post not found", http.StatusNotFound)
	// ErrInvalidSorting rejects unknown post orderings.
	ErrInvalidSorting = apperrors.New("INVALID_SORTING", "Sorting must be one of: new, old, most_likes", http.StatusBadRequest)
	// ErrImageAlreadySet guards the single write of a post's image URL.
	ErrImageAlreadySet = apperrors.New("POST_IMAGE_SET", "Post already has an image", http.StatusConflict)
)

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique") || strings.Contains(lower, "duplicate")
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
