package middleware

import (
	"fmt"
	"time"

	"github.com/ariebrainware/patient-portal/util"
	"github.com/gin-gonic/gin"
)

// EndpointCallLogger records each HTTP request as an ENDPOINT_CALL security
// event. Events are persisted when util.SetSecurityLoggerDB was called at startup.
func EndpointCallLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()

		email, _ := GetEmail(c)
		details := map[string]interface{}{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"raw_path":    c.Request.URL.Path,
			"status":      status,
			"duration_ms": duration.Milliseconds(),
			"query":       c.Request.URL.RawQuery,
		}

		util.LogSecurityEvent(util.SecurityEvent{
			EventType: util.EventEndpointCall,
			RequestID: GetRequestID(c),
			Email:     email,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Message:   fmt.Sprintf("%s %s -> %d", c.Request.Method, c.Request.URL.Path, status),
			Details:   details,
		})
	}
}
