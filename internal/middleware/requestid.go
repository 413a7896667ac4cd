package middleware

import (
	"github.com/gin-gonic/gin" // Gin web framework
	"github.com/google/uuid"   // Request ID generation
	"github.com/sirupsen/logrus"
)

// RequestIDMiddleware tags every request with a UUID, echoes it in the
// X-Request-ID header, and stores a pre-bound logrus entry in the context so
// handlers log with the same ID.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-ID", id)
		c.Set("requestID", id)
		c.Set("logger", logrus.WithField("request_id", id))
		c.Next()
	}
}

// Logger returns the request-scoped logrus entry, falling back to the global
// logger when the middleware did not run.
func Logger(c *gin.Context) *logrus.Entry {
	if v, ok := c.Get("logger"); ok {
		if entry, ok := v.(*logrus.Entry); ok {
			return entry
		}
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
