package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kiosk404/echobot/pkg/logger"
)

// AccessLog logs each request at debug level.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("[HTTP] %s %s %d (%s) from %s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Microsecond), c.ClientIP())
	}
}
