// Package middleware provides the Gin middleware in front of the booking API.
//
// Ordering is fixed in api/router.go:
//
//	Recovery → RequestID → Metrics → Logger → Security → TenantAuth → RateLimit → Handler
//
// Security headers run before auth so they appear on 401 responses too.
// Rate limiting runs after auth so buckets are keyed by organization rather
// than by the address of a shared proxy.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/divestreams/booking-core/internal/auth"
)

// Context keys set by TenantAuthMiddleware.
const (
	OrganizationIDKey = "organization_id"
	UserIDKey         = "user_id"
)

// TenantAuthMiddleware requires a bearer JWT and stores its organization and
// user in the gin context. The organization ID is taken from the verified
// token only; nothing in the request path, query or body can override it.
func TenantAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Missing authorization header",
			})
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header must start with 'Bearer '",
			})
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization token is empty",
			})
			return
		}

		claims, err := auth.ValidateJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			return
		}

		c.Set(OrganizationIDKey, claims.OrgID)
		c.Set(UserIDKey, claims.UserID)
		c.Next()
	}
}

// OrganizationID returns the authenticated organization, or "" outside TenantAuthMiddleware.
func OrganizationID(c *gin.Context) string {
	return c.GetString(OrganizationIDKey)
}

// UserID returns the authenticated user, or "".
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
