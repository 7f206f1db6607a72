package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/managenow/api/utils"
)

// RequestLogger logs every request once it has been served. The user id is
// only known for routes behind AuthMiddleware.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		utils.SafeDebug("📨 %s %s from %s", c.Request.Method, c.Request.URL.Path, c.ClientIP())

		c.Next()

		duration := time.Since(start).Round(time.Microsecond)
		utils.LogAPIRequest(c.Request.Method, c.Request.URL.Path, GetUserID(c), c.Writer.Status(), duration.String())
	}
}
