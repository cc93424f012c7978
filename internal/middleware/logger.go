package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// SafeLoggerMiddleware logs requests without bodies or credentials; only the
// numeric user id identifies the caller.
func SafeLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		if ident := Identity(c); ident != nil {
			log.Printf("[%s] %s %s | %d | %v | user_id=%d",
				method, path, c.ClientIP(), statusCode, latency, ident.ID)
		} else {
			log.Printf("[%s] %s %s | %d | %v",
				method, path, c.ClientIP(), statusCode, latency)
		}
	}
}
