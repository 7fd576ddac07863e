package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/legacy-compass/farm-ingest/internal/ingest"
	"github.com/legacy-compass/farm-ingest/internal/models"
	"github.com/legacy-compass/farm-ingest/internal/repository"
	"github.com/legacy-compass/farm-ingest/internal/schema"
)

// BatchStore is the slice of the import batch repository the handlers use.
type BatchStore interface {
	Create(ctx context.Context, b *models.ImportBatch) error
	GetByID(ctx context.Context, tenantID, batchID uuid.UUID) (*models.ImportBatch, error)
	GetByContentHash(ctx context.Context, tenantID uuid.UUID, hash string) (*models.ImportBatch, error)
}

// PropertyReader reads stored records of a batch.
type PropertyReader interface {
	ListByBatch(ctx context.Context, tenantID, batchID uuid.UUID, status string, limit, offset int) ([]models.PropertyRecord, int, error)
	ListAllByBatch(ctx context.Context, tenantID, batchID uuid.UUID) ([]models.PropertyRecord, error)
}

// IdempotencyStore claims Idempotency-Key headers.
type IdempotencyStore interface {
	Claim(ctx context.Context, tenantID uuid.UUID, key, resourceType string, resourceID uuid.UUID, ttl time.Duration) (*repository.IdempotencyResult, error)
	Release(ctx context.Context, tenantID uuid.UUID, key, resourceType string) error
}

// ImportRunner runs a created batch to completion.
type ImportRunner interface {
	ExecuteWithRetry(ctx context.Context, batch *models.ImportBatch, csvText string) (*ingest.Result, error)
}

// PatternResolver returns the column-role patterns in effect for a tenant.
type PatternResolver interface {
	ResolvePatterns(ctx context.Context, tenantID uuid.UUID) (*schema.ResolvedPatterns, error)
}
