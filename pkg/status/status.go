// Package status contains shared types for the admin status API.
package status

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Handler registers status routes for a component, such as the node runtime,
// under the admin server '/status' path.
type Handler interface {
	Register(group *gin.RouterGroup)
}

// ErrorInfo is the JSON body of a failed status request. The message is
// shown to the user so must not contain internal details.
type ErrorInfo struct {
	// StatusCode contains the HTTP status code. It is not encoded since it
	// is already the response status.
	StatusCode int `json:"-"`

	Message string `json:"error"`
}

func (e *ErrorInfo) Error() string {
	return fmt.Sprintf(
		"%s (%d): %s",
		strings.ToLower(http.StatusText(e.StatusCode)),
		e.StatusCode,
		e.Message,
	)
}

// Abort aborts the request with a JSON encoded ErrorInfo body.
func Abort(c *gin.Context, statusCode int, message string) {
	c.AbortWithStatusJSON(statusCode, &ErrorInfo{
		StatusCode: statusCode,
		Message:    message,
	})
}
