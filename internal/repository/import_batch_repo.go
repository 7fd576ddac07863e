package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/legacy-compass/farm-ingest/internal/models"
)

// ErrBatchNotFound is returned by updates addressing a missing batch.
var ErrBatchNotFound = errors.New("import batch not found")

// ImportBatchRepository handles data access for import batches
type ImportBatchRepository struct {
	pool *pgxpool.Pool
}

// NewImportBatchRepository creates a new import batch repository
func NewImportBatchRepository(pool *pgxpool.Pool) *ImportBatchRepository {
	return &ImportBatchRepository{pool: pool}
}

// batchColumns is the canonical column list for import_batches, used across all queries.
const batchColumns = `id, tenant_id, source_file, file_size, status, row_limit, row_offset,
	progress_current, progress_total, progress_percent, total_in_batch, next_offset,
	has_coordinates, stats, changes, warnings, attempt, last_error, idempotency_key,
	content_hash, duration_ms, started_at, completed_at, created_at, updated_at`

func scanBatch(row pgx.Row, b *models.ImportBatch) error {
	return row.Scan(
		&b.ID,
		&b.TenantID,
		&b.SourceFile,
		&b.FileSize,
		&b.Status,
		&b.RowLimit,
		&b.RowOffset,
		&b.ProgressCurrent,
		&b.ProgressTotal,
		&b.ProgressPercent,
		&b.TotalInBatch,
		&b.NextOffset,
		&b.HasCoordinates,
		&b.Stats,
		&b.Changes,
		&b.Warnings,
		&b.Attempt,
		&b.LastError,
		&b.IdempotencyKey,
		&b.ContentHash,
		&b.DurationMs,
		&b.StartedAt,
		&b.CompletedAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
}

// Create inserts a new import batch
func (r *ImportBatchRepository) Create(ctx context.Context, b *models.ImportBatch) error {
	if b == nil {
		return errors.New("import batch cannot be nil")
	}

	query := `
		INSERT INTO import_batches (
			id, tenant_id, source_file, file_size, status, row_limit, row_offset,
			stats, warnings, idempotency_key, content_hash, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
		RETURNING ` + batchColumns

	return scanBatch(r.pool.QueryRow(
		ctx, query,
		b.ID, b.TenantID, b.SourceFile, b.FileSize, b.Status, b.RowLimit, b.RowOffset,
		jsonOrEmpty(b.Stats, "{}"), jsonOrEmpty(b.Warnings, "[]"), b.IdempotencyKey, b.ContentHash,
		b.CreatedAt, b.UpdatedAt,
	), b)
}

// GetByID retrieves a batch by ID, scoped to the tenant
func (r *ImportBatchRepository) GetByID(ctx context.Context, tenantID, batchID uuid.UUID) (*models.ImportBatch, error) {
	query := `SELECT ` + batchColumns + ` FROM import_batches WHERE id = $1 AND tenant_id = $2`
	return r.getOne(ctx, query, batchID, tenantID)
}

// GetByContentHash retrieves the latest batch for a SHA-256 content hash, scoped to the tenant.
// Returns nil, nil if no match found.
func (r *ImportBatchRepository) GetByContentHash(ctx context.Context, tenantID uuid.UUID, hash string) (*models.ImportBatch, error) {
	query := `SELECT ` + batchColumns + ` FROM import_batches
		WHERE tenant_id = $1 AND content_hash = $2 AND status <> 'failed'
		ORDER BY created_at DESC LIMIT 1`
	return r.getOne(ctx, query, tenantID, hash)
}

func (r *ImportBatchRepository) getOne(ctx context.Context, query string, args ...any) (*models.ImportBatch, error) {
	b := &models.ImportBatch{}
	err := scanBatch(r.pool.QueryRow(ctx, query, args...), b)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return b, nil
}

// UpdateStatus sets the batch status. lastError is kept when nil.
// started_at is stamped on the first transition to running and completed_at
// on succeeded or failed.
func (r *ImportBatchRepository) UpdateStatus(ctx context.Context, batchID uuid.UUID, status string, lastError *string) error {
	query := `
		UPDATE import_batches
		SET status = $1,
		    last_error = COALESCE($2, last_error),
		    started_at = CASE WHEN $1 = 'running' THEN COALESCE(started_at, NOW()) ELSE started_at END,
		    completed_at = CASE WHEN $1 IN ('succeeded', 'failed') THEN NOW() ELSE completed_at END,
		    updated_at = NOW()
		WHERE id = $3
		RETURNING id
	`
	return r.execReturningID(ctx, query, status, lastError, batchID)
}

// UpdateProgress records parse progress
func (r *ImportBatchRepository) UpdateProgress(ctx context.Context, batchID uuid.UUID, current, total, percent int) error {
	query := `
		UPDATE import_batches
		SET progress_current = $1, progress_total = $2, progress_percent = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING id
	`
	return r.execReturningID(ctx, query, current, total, percent, batchID)
}

// IncrementAttempt increments the attempt counter for a batch
func (r *ImportBatchRepository) IncrementAttempt(ctx context.Context, batchID uuid.UUID) error {
	query := `
		UPDATE import_batches
		SET attempt = attempt + 1,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING id
	`
	return r.execReturningID(ctx, query, batchID)
}

// BatchOutcome is what a finished parse stores on its batch.
type BatchOutcome struct {
	Stats          models.ImportStats
	Changes        models.ChangeSummary
	Warnings       []string
	HasCoordinates bool
	TotalInBatch   int
	NextOffset     int
	DurationMs     int
}

// Complete stores the outcome of a parse and marks the batch succeeded.
func (r *ImportBatchRepository) Complete(ctx context.Context, batchID uuid.UUID, outcome BatchOutcome) error {
	stats, err := json.Marshal(outcome.Stats)
	if err != nil {
		return err
	}
	changes, err := json.Marshal(outcome.Changes)
	if err != nil {
		return err
	}
	if outcome.Warnings == nil {
		outcome.Warnings = []string{}
	}
	warnings, err := json.Marshal(outcome.Warnings)
	if err != nil {
		return err
	}

	query := `
		UPDATE import_batches
		SET status = 'succeeded',
		    stats = $1,
		    warnings = $2,
		    has_coordinates = $3,
		    total_in_batch = $4,
		    next_offset = $5,
		    duration_ms = $6,
		    changes = $7,
		    completed_at = NOW(),
		    updated_at = NOW()
		WHERE id = $8
		RETURNING id
	`
	return r.execReturningID(ctx, query,
		stats, warnings, outcome.HasCoordinates, outcome.TotalInBatch,
		outcome.NextOffset, outcome.DurationMs, changes, batchID,
	)
}

func (r *ImportBatchRepository) execReturningID(ctx context.Context, query string, args ...any) error {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, query, args...).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrBatchNotFound
		}
		return err
	}
	return nil
}

func jsonOrEmpty(raw json.RawMessage, empty string) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(empty)
	}
	return raw
}
