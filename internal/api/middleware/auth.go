package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/legacy-compass/farm-ingest/internal/api/response"
	"github.com/legacy-compass/farm-ingest/internal/config"
	"github.com/legacy-compass/farm-ingest/pkg/auth"
)

// Context keys set by AuthMiddleware.
const (
	TenantIDKey = "tenant_id"
	AgentIDKey  = "agent_id"
	RoleKey     = "role"
)

// AuthMiddleware validates bearer tokens and stores the caller's tenant,
// agent and role on the context.
func AuthMiddleware(cfg *config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			response.Unauthorized(c, "invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := auth.ValidateToken(strings.TrimPrefix(authHeader, bearerPrefix), cfg.Secret, cfg.Issuer)
		if err != nil {
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}

		c.Set(TenantIDKey, claims.TenantID)
		c.Set(AgentIDKey, claims.AgentID)
		c.Set(RoleKey, claims.Role)

		c.Next()
	}
}

// TenantID returns the authenticated tenant, or uuid.Nil outside AuthMiddleware.
func TenantID(c *gin.Context) uuid.UUID {
	v, _ := c.Get(TenantIDKey)
	id, _ := v.(uuid.UUID)
	return id
}

// AgentID returns the authenticated agent, or uuid.Nil outside AuthMiddleware.
func AgentID(c *gin.Context) uuid.UUID {
	v, _ := c.Get(AgentIDKey)
	id, _ := v.(uuid.UUID)
	return id
}
