package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/legacy-compass/farm-ingest/internal/api/middleware"
	"github.com/legacy-compass/farm-ingest/internal/api/response"
	"github.com/legacy-compass/farm-ingest/internal/config"
	"github.com/legacy-compass/farm-ingest/internal/ingest"
)

const previewSourceFile = "preview"

// PreviewHandler parses a posted CSV body without storing anything, so an
// agent can check column detection before importing.
type PreviewHandler struct {
	patterns PatternResolver
	engine   *ingest.Engine
	cfg      *config.Config
}

// NewPreviewHandler creates a new preview handler.
func NewPreviewHandler(patterns PatternResolver, engine *ingest.Engine, cfg *config.Config) *PreviewHandler {
	if engine == nil {
		engine = ingest.NewEngine(nil, cfg.Ingest.ProgressEvery)
	}
	return &PreviewHandler{patterns: patterns, engine: engine, cfg: cfg}
}

// HandlePreview handles POST /api/v1/ingest/preview.
func (h *PreviewHandler) HandlePreview(c *gin.Context) {
	limit, err := nonNegativeParam(c, "limit", h.cfg.Ingest.PreviewLimit)
	if err != nil {
		response.BadRequest(c, err.Error(), nil)
		return
	}
	if limit == 0 {
		limit = h.cfg.Ingest.PreviewLimit
	}
	offset, err := nonNegativeParam(c, "offset", 0)
	if err != nil {
		response.BadRequest(c, err.Error(), nil)
		return
	}

	maxSize := h.cfg.Upload.MaxFileSize
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.PayloadTooLarge(c, fmt.Sprintf("body exceeds max size of %d bytes", maxSize))
			return
		}
		response.BadRequest(c, "failed to read request body", nil)
		return
	}
	if strings.TrimSpace(string(body)) == "" {
		response.BadRequest(c, "request body must contain CSV text", nil)
		return
	}

	tenantID := middleware.TenantID(c)
	patterns, err := h.patterns.ResolvePatterns(c.Request.Context(), tenantID)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to resolve column patterns: %v", err))
		return
	}

	sourceFile := c.Query("source_file")
	if sourceFile == "" {
		sourceFile = previewSourceFile
	}

	result, err := h.engine.WithPatterns(patterns).ParseBatch(string(body), nil, ingest.Options{
		Limit:      limit,
		Offset:     offset,
		SourceFile: sourceFile,
		Tenant:     tenantID.String(),
	})
	if err != nil {
		if ingest.IsEngineError(err) {
			response.Unprocessable(c, err.Error(), nil)
			return
		}
		response.InternalError(c, fmt.Sprintf("failed to parse csv: %v", err))
		return
	}

	response.Success(c, http.StatusOK, result)
}
