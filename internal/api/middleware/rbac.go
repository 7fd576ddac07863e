package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/legacy-compass/farm-ingest/internal/api/response"
)

// RequireRole rejects callers whose role is not one of allowedRoles.
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		roleValue, exists := c.Get(RoleKey)
		if !exists {
			response.Forbidden(c, "role not found in context")
			c.Abort()
			return
		}

		role, ok := roleValue.(string)
		if !ok {
			response.Forbidden(c, "invalid role format")
			c.Abort()
			return
		}

		if _, ok := allowed[role]; !ok {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}

		c.Next()
	}
}
