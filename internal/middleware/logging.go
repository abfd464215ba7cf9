package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// RequestLogger logs one line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := log.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}
		if fields["path"] == "" {
			fields["path"] = c.Request.URL.Path
		}
		if uid := CurrentUserID(c); uid != "" {
			fields["user"] = uid
		}
		entry := log.WithFields(fields)
		switch {
		case len(c.Errors) > 0:
			entry.Warn(c.Errors.String())
		case c.Writer.Status() >= 500:
			entry.Warn("request failed")
		default:
			entry.Info("request")
		}
	}
}

// Timeout puts a deadline on the request context. The websocket endpoint
// must not be wrapped.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
