package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/legacy-compass/farm-ingest/internal/api/middleware"
	"github.com/legacy-compass/farm-ingest/internal/api/response"
	"github.com/legacy-compass/farm-ingest/internal/config"
	"github.com/legacy-compass/farm-ingest/internal/models"
	"github.com/legacy-compass/farm-ingest/internal/repository"
)

// multipartOverhead is the allowance for form boundaries and headers on
// top of the file size limit.
const multipartOverhead = 1 << 20

// ImportHandler accepts CSV uploads and reports on import batches.
type ImportHandler struct {
	batches     BatchStore
	idempotency IdempotencyStore
	runner      ImportRunner
	cfg         *config.Config
	// launch runs the pipeline for a created batch. Tests replace it to run inline.
	launch func(func())
}

// NewImportHandler creates a new import handler.
func NewImportHandler(batches BatchStore, idempotency IdempotencyStore, runner ImportRunner, cfg *config.Config) *ImportHandler {
	return &ImportHandler{
		batches:     batches,
		idempotency: idempotency,
		runner:      runner,
		cfg:         cfg,
		launch:      func(fn func()) { go fn() },
	}
}

// HandleCreateImport handles POST /api/v1/imports.
func (h *ImportHandler) HandleCreateImport(c *gin.Context) {
	ctx := c.Request.Context()
	tenantID := middleware.TenantID(c)
	maxSize := h.cfg.Upload.MaxFileSize

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize+multipartOverhead)

	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.PayloadTooLarge(c, fmt.Sprintf("file exceeds max size of %d bytes", maxSize))
			return
		}
		response.BadRequest(c, "file field is required", nil)
		return
	}
	if file.Size > maxSize {
		response.PayloadTooLarge(c, fmt.Sprintf("file exceeds max size of %d bytes", maxSize))
		return
	}
	if !h.allowedFile(file.Filename, file.Header.Get("Content-Type")) {
		response.BadRequest(c, "file must be a CSV", nil)
		return
	}

	limit, err := nonNegativeParam(c, "limit", h.cfg.Ingest.DefaultLimit)
	if err != nil {
		response.BadRequest(c, err.Error(), nil)
		return
	}
	offset, err := nonNegativeParam(c, "offset", 0)
	if err != nil {
		response.BadRequest(c, err.Error(), nil)
		return
	}

	src, err := file.Open()
	if err != nil {
		response.InternalError(c, "failed to open uploaded file")
		return
	}
	defer src.Close()

	content, err := io.ReadAll(io.LimitReader(src, maxSize+1))
	if err != nil {
		response.InternalError(c, "failed to read uploaded file")
		return
	}
	if int64(len(content)) > maxSize {
		response.PayloadTooLarge(c, fmt.Sprintf("file exceeds max size of %d bytes", maxSize))
		return
	}
	sum := sha256.Sum256(content)
	contentHash := hex.EncodeToString(sum[:])

	batchID := uuid.New()
	idempotencyKey := c.GetHeader("Idempotency-Key")
	if idempotencyKey != "" {
		claim, err := h.idempotency.Claim(ctx, tenantID, idempotencyKey, repository.ResourceImport, batchID, h.cfg.Upload.IdempotencyTTL)
		if err != nil {
			response.InternalError(c, fmt.Sprintf("idempotency check failed: %v", err))
			return
		}
		if claim.AlreadyExists {
			existing, err := h.batches.GetByID(ctx, tenantID, claim.ResourceID)
			if err != nil {
				slog.Warn("failed to load batch for idempotency replay",
					slog.String("key", idempotencyKey),
					slog.String("batch_id", claim.ResourceID.String()),
					slog.String("error", err.Error()))
			}
			response.Conflict(c, "duplicate import (idempotency key match)", existing)
			return
		}
	}

	// The same file over the same row window is served from the earlier batch.
	existing, err := h.batches.GetByContentHash(ctx, tenantID, contentHash)
	if err == nil && existing != nil && existing.RowLimit == limit && existing.RowOffset == offset {
		h.releaseClaim(ctx, tenantID, idempotencyKey)
		response.Success(c, http.StatusOK, gin.H{
			"batch":     existing,
			"duplicate": true,
			"message":   "File already imported; returning the existing batch.",
		})
		return
	}

	now := time.Now()
	batch := &models.ImportBatch{
		ID:          batchID,
		TenantID:    tenantID,
		SourceFile:  file.Filename,
		FileSize:    file.Size,
		Status:      models.BatchPending,
		RowLimit:    limit,
		RowOffset:   offset,
		Stats:       json.RawMessage("{}"),
		Warnings:    json.RawMessage("[]"),
		ContentHash: &contentHash,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if idempotencyKey != "" {
		batch.IdempotencyKey = &idempotencyKey
	}

	if err := h.batches.Create(ctx, batch); err != nil {
		h.releaseClaim(ctx, tenantID, idempotencyKey)
		response.InternalError(c, fmt.Sprintf("failed to create import batch: %v", err))
		return
	}

	csvText := string(content)
	timeout := h.cfg.Import.Timeout
	h.launch(func() {
		runCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if _, err := h.runner.ExecuteWithRetry(runCtx, batch, csvText); err != nil {
			slog.Error("import batch failed",
				slog.String("batch_id", batch.ID.String()),
				slog.String("tenant_id", batch.TenantID.String()),
				slog.String("error", err.Error()))
		}
	})

	response.Accepted(c, batch)
}

// HandleGetImport handles GET /api/v1/imports/:batch_id.
func (h *ImportHandler) HandleGetImport(c *gin.Context) {
	batchID, err := batchIDParam(c)
	if err != nil {
		response.BadRequest(c, err.Error(), nil)
		return
	}

	batch, err := h.batches.GetByID(c.Request.Context(), middleware.TenantID(c), batchID)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to retrieve import batch: %v", err))
		return
	}
	if batch == nil {
		response.NotFound(c, "import batch not found")
		return
	}

	response.Success(c, http.StatusOK, batch)
}

func (h *ImportHandler) allowedFile(filename, contentType string) bool {
	if strings.EqualFold(filepath.Ext(filename), ".csv") {
		return true
	}
	mediaType := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	for _, t := range h.cfg.Upload.AllowedTypes {
		if strings.EqualFold(mediaType, t) {
			return true
		}
	}
	return false
}

func (h *ImportHandler) releaseClaim(ctx context.Context, tenantID uuid.UUID, key string) {
	if key == "" {
		return
	}
	if err := h.idempotency.Release(ctx, tenantID, key, repository.ResourceImport); err != nil {
		slog.Warn("failed to release idempotency claim", slog.String("key", key), slog.String("error", err.Error()))
	}
}
