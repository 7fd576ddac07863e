package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/legacy-compass/farm-ingest/internal/api/handlers"
	"github.com/legacy-compass/farm-ingest/internal/api/middleware"
	"github.com/legacy-compass/farm-ingest/internal/api/response"
	"github.com/legacy-compass/farm-ingest/internal/config"
	"github.com/legacy-compass/farm-ingest/internal/importer"
	"github.com/legacy-compass/farm-ingest/internal/ingest"
	"github.com/legacy-compass/farm-ingest/internal/repository"
	"github.com/legacy-compass/farm-ingest/internal/schema"
	"github.com/legacy-compass/farm-ingest/pkg/auth"
)

// Dependencies are the collaborators the routes are built from.
type Dependencies struct {
	Batches     handlers.BatchStore
	Properties  handlers.PropertyReader
	Idempotency handlers.IdempotencyStore
	Pipeline    *importer.Pipeline
	Engine      *ingest.Engine
}

// NewDependencies wires the Postgres repositories into an import pipeline.
func NewDependencies(pool *pgxpool.Pool, cfg *config.Config) Dependencies {
	batchRepo := repository.NewImportBatchRepository(pool)
	propertyRepo := repository.NewPropertyRepository(pool)
	roleConfigRepo := repository.NewRoleConfigRepository(pool)
	engine := ingest.NewEngine(nil, cfg.Ingest.ProgressEvery)

	pipeline := importer.NewPipeline(
		batchRepo,
		propertyRepo,
		roleConfigRepo,
		schema.NewResolver(),
		engine,
		importer.Options{
			InsertSize:    cfg.Upload.BatchInsertSize,
			MaxRetries:    cfg.Import.MaxRetries,
			RetryBaseWait: cfg.Import.RetryBaseWait,
		},
	)

	return Dependencies{
		Batches:     batchRepo,
		Properties:  propertyRepo,
		Idempotency: repository.NewIdempotencyRepository(pool),
		Pipeline:    pipeline,
		Engine:      engine,
	}
}

// NewRouter creates the gin engine with all routes and middleware.
func NewRouter(deps Dependencies, cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins...))
	r.Use(middleware.CorrelationMiddleware())
	r.Use(middleware.StructuredLogging())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": middleware.ServiceName,
		})
	})

	importHandler := handlers.NewImportHandler(deps.Batches, deps.Idempotency, deps.Pipeline, cfg)
	propertyHandler := handlers.NewPropertyHandler(deps.Batches, deps.Properties)
	previewHandler := handlers.NewPreviewHandler(deps.Pipeline, deps.Engine, cfg)

	writers := middleware.RequireRole(auth.RoleAdmin, auth.RoleAgent)
	readers := middleware.RequireRole(auth.RoleAdmin, auth.RoleAgent, auth.RoleViewer)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(&cfg.JWT))
	{
		v1.POST("/imports", writers, importHandler.HandleCreateImport)
		v1.GET("/imports/:batch_id", readers, importHandler.HandleGetImport)
		v1.GET("/imports/:batch_id/properties", readers, propertyHandler.HandleListProperties)
		v1.GET("/imports/:batch_id/opportunities", readers, propertyHandler.HandleOpportunities)
		v1.GET("/imports/:batch_id/export", readers, propertyHandler.HandleExport)

		v1.POST("/ingest/preview", writers, previewHandler.HandlePreview)
	}

	if cfg.Server.DevTokens {
		r.POST("/dev/token", devTokenHandler(cfg))
	}

	return r
}

// devTokenHandler issues tokens for local development.
func devTokenHandler(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			TenantID string `json:"tenant_id"`
			AgentID  string `json:"agent_id"`
			Role     string `json:"role"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request", nil)
			return
		}

		tenantID, err := uuid.Parse(req.TenantID)
		if err != nil {
			response.BadRequest(c, "invalid tenant_id", nil)
			return
		}
		agentID, err := uuid.Parse(req.AgentID)
		if err != nil {
			response.BadRequest(c, "invalid agent_id", nil)
			return
		}
		if req.Role == "" {
			req.Role = auth.RoleAgent
		}

		token, err := auth.GenerateToken(cfg.JWT.Secret, cfg.JWT.Issuer, tenantID, agentID, req.Role, cfg.JWT.ExpiryHours)
		if err != nil {
			response.BadRequest(c, err.Error(), nil)
			return
		}

		response.Success(c, http.StatusOK, gin.H{"token": token})
	}
}
