package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/socialink/internal/middleware"
	"github.com/charlesng35/socialink/internal/models"
	apperrors "github.com/charlesng35/socialink/pkg/errors"
	"github.com/charlesng35/socialink/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// requireUser returns the authenticated user or writes a 401.
func requireUser(c *gin.Context) (*models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, apperrors.ErrUnauthorized)
		return nil, false
	}
	return user, true
}

// externalURL joins path onto the configured public base URL, or onto the
// scheme and host of the current request when none is configured.
func externalURL(c *gin.Context, publicURL, path string) string {
	base := strings.TrimRight(strings.TrimSpace(publicURL), "/")
	if base == "" {
		scheme := "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
		if forwarded := c.GetHeader("X-Forwarded-Proto"); forwarded != "" {
			scheme = strings.TrimSpace(strings.Split(forwarded, ",")[0])
		}
		base = scheme + "://" + c.Request.Host
	}
	return base + "/" + strings.TrimLeft(path, "/")
}
