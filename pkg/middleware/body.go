package middleware

import (
	"errors"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
)

// BodyParser caps JSON and urlencoded request bodies at limit bytes and
// eagerly parses urlencoded forms so handlers can read c.PostForm. Bodies
// over the limit are answered with 413.
func BodyParser(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.ContentLength == 0 {
			c.Next()
			return
		}

		mediaType, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
		switch mediaType {
		case gin.MIMEJSON, gin.MIMEPOSTForm:
		default:
			c.Next()
			return
		}

		if c.Request.ContentLength > limit {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request entity too large"})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

		if mediaType == gin.MIMEPOSTForm {
			if err := c.Request.ParseForm(); err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request entity too large"})
					return
				}
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form body"})
				return
			}
		}

		c.Next()
	}
}
