package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const defaultCORSOrigins = "http://localhost:5173,http://localhost:3000"

// parseOrigins turns the CORS_ALLOWED_ORIGINS list into a lookup set. Blank entries
// are dropped; a "*" entry anywhere allows every origin.
func parseOrigins(list string) (origins map[string]bool, all bool) {
	origins = make(map[string]bool)
	for _, o := range strings.Split(list, ",") {
		switch o = strings.TrimSpace(o); o {
		case "":
		case "*":
			all = true
		default:
			origins[o] = true
		}
	}
	return origins, all
}

// CORSMiddleware lets the responder console and the victim app call the API
// from their own origins. Preflight requests stop here.
func CORSMiddleware(allowedOrigins string) gin.HandlerFunc {
	if strings.TrimSpace(allowedOrigins) == "" {
		allowedOrigins = defaultCORSOrigins
	}
	origins, anyOrigin := parseOrigins(allowedOrigins)

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (anyOrigin || origins[origin]) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Dashboard-Key")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
