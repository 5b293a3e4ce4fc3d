package middleware

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"safecircle/utils"
)

// DashboardKey guards the dashboard feed. The key comes from the
// X-Dashboard-Key header or the key query parameter, since browsers cannot
// set headers on a websocket upgrade. An empty hash disables the check.
func DashboardKey(hash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hash == "" {
			c.Next()
			return
		}

		key := c.GetHeader("X-Dashboard-Key")
		if key == "" {
			key = c.Query("key")
		}
		if key == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) != nil {
			utils.Unauthorized(c, "invalid dashboard key")
			c.Abort()
			return
		}

		c.Next()
	}
}
