package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler reports the Redis health.
func Handler(status *Status) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := status.State()
		body := gin.H{"status": state.String()}
		if msg := status.LastError(); msg != "" {
			body["error"] = msg
		}
		if state != StateHealthy {
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		c.JSON(http.StatusOK, body)
	}
}

// RequireRedis answers 503 while Redis is unavailable or being rebuilt.
func RequireRedis(status *Status) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !status.Healthy() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "service temporarily unavailable, please retry"})
			return
		}
		c.Next()
	}
}
