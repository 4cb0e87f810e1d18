package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/charlesng35/socialink/pkg/errors"
)

// ErrorBody is the payload written for every failed request. Detail carries
// the human readable reason, Code a stable machine readable identifier.
type ErrorBody struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

// Detail is the payload used by endpoints that only acknowledge an action.
type Detail struct {
	Detail string `json:"detail"`
}

// Success writes data as the JSON response body.
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// Message writes a {"detail": message} acknowledgement.
func Message(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Detail{Detail: message})
}

// Error writes a JSON error response derived from an AppError.
func Error(c *gin.Context, err error) {
	if err == nil {
		err = appErrors.ErrInternalServer
	}

	appErr := appErrors.FromError(err)
	status := appErrors.StatusCode(appErr)

	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}

	c.JSON(status, ErrorBody{
		Detail: appErr.Message,
		Code:   appErr.Code,
	})
}
