package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/legacy-compass/farm-ingest/internal/api/middleware"
	"github.com/legacy-compass/farm-ingest/internal/api/response"
	"github.com/legacy-compass/farm-ingest/internal/export"
	"github.com/legacy-compass/farm-ingest/internal/models"
	"github.com/legacy-compass/farm-ingest/internal/opportunity"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PropertyHandler serves the stored records of an import batch.
type PropertyHandler struct {
	batches    BatchStore
	properties PropertyReader
}

// NewPropertyHandler creates a new property handler.
func NewPropertyHandler(batches BatchStore, properties PropertyReader) *PropertyHandler {
	return &PropertyHandler{batches: batches, properties: properties}
}

// HandleListProperties handles GET /api/v1/imports/:batch_id/properties.
func (h *PropertyHandler) HandleListProperties(c *gin.Context) {
	page, err := nonNegativeParam(c, "page", 1)
	if err != nil || page == 0 {
		response.BadRequest(c, "page must be a positive integer", nil)
		return
	}
	pageSize, err := nonNegativeParam(c, "page_size", defaultPageSize)
	if err != nil || pageSize == 0 || pageSize > maxPageSize {
		response.BadRequest(c, fmt.Sprintf("page_size must be between 1 and %d", maxPageSize), nil)
		return
	}
	status := c.Query("status")
	switch status {
	case "", models.StatusHot, models.StatusWarm, models.StatusCold:
	default:
		response.BadRequest(c, "status must be one of hot, warm, cold", nil)
		return
	}

	batch, ok := h.loadBatch(c)
	if !ok {
		return
	}

	records, total, err := h.properties.ListByBatch(c.Request.Context(), batch.TenantID, batch.ID, status, pageSize, (page-1)*pageSize)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to retrieve properties: %v", err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"batch_id":   batch.ID,
		"properties": canonical(records),
		"pagination": models.Pagination{
			Page:         page,
			PageSize:     pageSize,
			TotalResults: total,
			TotalPages:   (total + pageSize - 1) / pageSize,
		},
	})
}

// HandleOpportunities handles GET /api/v1/imports/:batch_id/opportunities.
func (h *PropertyHandler) HandleOpportunities(c *gin.Context) {
	batch, ok := h.loadBatch(c)
	if !ok {
		return
	}

	records, err := h.properties.ListAllByBatch(c.Request.Context(), batch.TenantID, batch.ID)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to retrieve properties: %v", err))
		return
	}

	hot := opportunity.HotOpportunities(canonical(records))
	response.Success(c, http.StatusOK, gin.H{
		"batch_id":      batch.ID,
		"opportunities": hot,
		"count":         len(hot),
	})
}

// HandleExport handles GET /api/v1/imports/:batch_id/export.
func (h *PropertyHandler) HandleExport(c *gin.Context) {
	batch, ok := h.loadBatch(c)
	if !ok {
		return
	}

	records, err := h.properties.ListAllByBatch(c.Request.Context(), batch.TenantID, batch.ID)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to retrieve properties: %v", err))
		return
	}

	// Buffered so an encoding failure can still be reported as JSON.
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, canonical(records)); err != nil {
		response.InternalError(c, fmt.Sprintf("failed to export properties: %v", err))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="farm-%s.csv"`, batch.ID))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *PropertyHandler) loadBatch(c *gin.Context) (*models.ImportBatch, bool) {
	batchID, err := batchIDParam(c)
	if err != nil {
		response.BadRequest(c, err.Error(), nil)
		return nil, false
	}

	tenantID := middleware.TenantID(c)
	batch, err := h.batches.GetByID(c.Request.Context(), tenantID, batchID)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to retrieve import batch: %v", err))
		return nil, false
	}
	if batch == nil || batch.TenantID != tenantID {
		response.NotFound(c, "import batch not found")
		return nil, false
	}
	return batch, true
}

func canonical(records []models.PropertyRecord) []models.CanonicalProperty {
	out := make([]models.CanonicalProperty, len(records))
	for i, r := range records {
		out[i] = r.Property
	}
	return out
}

