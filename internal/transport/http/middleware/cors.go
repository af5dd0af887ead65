package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// The dashboard API serves only these methods; PUT and HEAD are not
// part of its surface, so preflights do not advertise them.
const (
	corsMethods = "GET,POST,PATCH,DELETE,OPTIONS"
	corsHeaders = "Origin,Content-Type,Accept,Authorization,X-Request-ID,X-Trace-ID"
)

// CORS adds Cross-Origin Resource Sharing headers for the dashboard
// frontend. Credentials are only allowed for explicitly listed origins;
// a wildcard grants access without cookies or auth headers being
// shareable, per the fetch spec.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	originsMap := make(map[string]bool)
	allowAll := false

	for _, origin := range allowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			allowAll = true
			break
		}
		if origin != "" {
			originsMap[origin] = true
		}
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		c.Header("Vary", "Origin")

		switch {
		case allowAll:
			c.Header("Access-Control-Allow-Origin", "*")
		case originsMap[origin]:
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", corsMethods)
			c.Header("Access-Control-Allow-Headers", corsHeaders)
			c.Header("Access-Control-Max-Age", "86400")

			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
