package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	iauth "github.com/charlesng35/socialink/internal/auth"
	"github.com/charlesng35/socialink/internal/models"
	"github.com/charlesng35/socialink/pkg/errors"
	"github.com/charlesng35/socialink/pkg/logger"
	"github.com/charlesng35/socialink/pkg/response"
)

const (
	CtxUserKey   = "currentUser"
	CtxUserIDKey = "userID"
)

// Auth resolves the bearer token to the current user and stores it on the
// context. Requests without a usable token are rejected with 401.
func Auth(gateway *iauth.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := iauth.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		user, err := gateway.CurrentUser(c.Request.Context(), token)
		if err != nil {
			logger.WithModule("http").Debug("bearer token rejected",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(CtxUserKey, user)
		c.Set(CtxUserIDKey, user.ID)
		c.Next()
	}
}

// CurrentUser returns the user stored by Auth.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	value, ok := c.Get(CtxUserKey)
	if !ok {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok && user != nil
}
