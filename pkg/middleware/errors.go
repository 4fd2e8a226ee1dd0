package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response bodies of the fallback chain
const (
	BodyNotFound      = "code 404"
	BodyInternalError = "code 500"
	BodyNoEndpoint    = "api endpoint does not exist..."
)

// PanicError carries a recovered panic and its stack through c.Errors
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// IsNotFound reports whether an error should be answered as 404.
// Classification is by message substring so that errors from any layer,
// wrapped or not, are treated alike.
func IsNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "not found")
}

// ErrorHandler translates errors recorded with c.Error into JSON responses.
// It must be the first middleware in the chain. An error whose message
// contains "not found" becomes a 404; anything else is logged and answered
// with a 500. When verbose reports true the 500 body carries the error
// message and, for panics, the stack.
func ErrorHandler(logger *zap.Logger, verbose func() bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		if IsNotFound(err) {
			NotFound(c)
			return
		}

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		}
		var pe *PanicError
		if errors.As(err, &pe) {
			fields = append(fields, zap.ByteString("stack", pe.Stack))
		}
		logger.Error("Request failed", fields...)

		body := gin.H{"error": BodyInternalError}
		if verbose != nil && verbose() {
			body["message"] = err.Error()
			if pe != nil {
				body["stack"] = strings.Split(strings.TrimSpace(string(pe.Stack)), "\n")
			}
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, body)
	}
}

// Recovery converts panics into errors so ErrorHandler answers them
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		_ = c.Error(&PanicError{Value: recovered, Stack: debug.Stack()})
		c.Abort()
	})
}

// NotFound answers with the final 404 body
func NotFound(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": BodyNotFound})
}

// FinalRoute is the catch-all for requests that matched no route: GET
// requests get a 500 naming the missing endpoint, everything else a 404.
func FinalRoute(c *gin.Context) {
	if c.Request.Method == http.MethodGet {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": BodyNoEndpoint})
		return
	}
	NotFound(c)
}
