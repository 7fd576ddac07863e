package middleware

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/legacy-compass/farm-ingest/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	brokerageA = uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")
	brokerageB = uuid.MustParse("660e8400-e29b-41d4-a716-446655440000")
)

// Handlers scope every query by the tenant on the context, so two tokens
// must never resolve to the same tenant.
func TestTenantIsolation_ContextCarriesTenantFromJWT(t *testing.T) {
	cfg := testJWTConfig()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/echo-tenant", AuthMiddleware(cfg), func(c *gin.Context) {
		c.JSON(200, gin.H{"tenant_id": TenantID(c).String()})
	})

	for _, tenant := range []uuid.UUID{brokerageA, brokerageB} {
		w := serve(r, "GET", "/echo-tenant", generateTestToken(t, tenant, uuid.New(), auth.RoleAgent))
		require.Equal(t, 200, w.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, tenant.String(), body["tenant_id"])
	}
}

func TestTenantIsolation_ForgedTokenNeverReachesHandler(t *testing.T) {
	cfg := testJWTConfig()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlerCalled := false
	r.GET("/protected", AuthMiddleware(cfg), func(c *gin.Context) {
		handlerCalled = true
		c.JSON(200, gin.H{"ok": true})
	})

	forged, err := auth.GenerateToken("attacker-secret", testIssuer, brokerageA, uuid.New(), auth.RoleAdmin, 24)
	require.NoError(t, err)
	expired, err := auth.GenerateToken(testSecret, testIssuer, brokerageA, uuid.New(), auth.RoleAdmin, -1)
	require.NoError(t, err)

	for _, token := range []string{forged, expired} {
		w := serve(r, "GET", "/protected", token)
		assert.Equal(t, 401, w.Code)
	}
	assert.False(t, handlerCalled)
}

// Mirrors the repository pattern: lookups filter on tenant_id, so another
// tenant's batch looks like a missing one.
func TestTenantIsolation_OtherTenantsBatchIsNotFound(t *testing.T) {
	cfg := testJWTConfig()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/imports/:batch_id", AuthMiddleware(cfg), func(c *gin.Context) {
		batchOwner := brokerageB
		if TenantID(c) != batchOwner {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(200, gin.H{"data": "batch"})
	})

	w := serve(r, "GET", "/imports/some-id", generateTestToken(t, brokerageA, uuid.New(), auth.RoleAdmin))
	assert.Equal(t, 404, w.Code)

	w = serve(r, "GET", "/imports/some-id", generateTestToken(t, brokerageB, uuid.New(), auth.RoleViewer))
	assert.Equal(t, 200, w.Code)
}

func TestTenantIsolation_ViewerCannotImport(t *testing.T) {
	cfg := testJWTConfig()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/imports", AuthMiddleware(cfg), RequireRole(auth.RoleAdmin, auth.RoleAgent), func(c *gin.Context) {
		c.JSON(202, gin.H{"ok": true})
	})

	w := serve(r, "POST", "/imports", generateTestToken(t, brokerageA, uuid.New(), auth.RoleViewer))

	assert.Equal(t, 403, w.Code)
}
