package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ResourceImport is the resource type recorded for import uploads.
const ResourceImport = "import"

// IdempotencyResult holds the outcome of a claim attempt.
type IdempotencyResult struct {
	// AlreadyExists is true when an unexpired claim for the key was found.
	AlreadyExists bool
	// ResourceID is the batch the key points at, existing or newly claimed.
	ResourceID uuid.UUID
}

// IdempotencyRepository stores Idempotency-Key claims per tenant.
type IdempotencyRepository struct {
	pool *pgxpool.Pool
}

// NewIdempotencyRepository creates a new idempotency repository.
func NewIdempotencyRepository(pool *pgxpool.Pool) *IdempotencyRepository {
	return &IdempotencyRepository{pool: pool}
}

// Claim records key for resourceID unless (tenant, key, resourceType) is
// already claimed, in which case the original resource id is returned.
// Concurrent claims are settled by INSERT ... ON CONFLICT on the primary key.
// Expired claims are replaced.
func (r *IdempotencyRepository) Claim(
	ctx context.Context,
	tenantID uuid.UUID,
	key string,
	resourceType string,
	resourceID uuid.UUID,
	ttl time.Duration,
) (*IdempotencyResult, error) {
	if key == "" {
		return nil, errors.New("idempotency key cannot be empty")
	}

	// PK is (tenant_id, key, resource_type).
	query := `
		WITH inserted AS (
			INSERT INTO idempotency_keys (key, tenant_id, resource_type, resource_id, expires_at)
			VALUES ($1, $2, $3, $4, NOW() + make_interval(secs => $5))
			ON CONFLICT (tenant_id, key, resource_type) DO UPDATE
				SET resource_id = EXCLUDED.resource_id,
				    expires_at = EXCLUDED.expires_at,
				    created_at = NOW()
				WHERE idempotency_keys.expires_at < NOW()
			RETURNING resource_id, FALSE AS already_exists
		)
		SELECT resource_id, already_exists FROM inserted
		UNION ALL
		SELECT resource_id, TRUE AS already_exists
		FROM idempotency_keys
		WHERE tenant_id = $2 AND key = $1 AND resource_type = $3
		  AND NOT EXISTS (SELECT 1 FROM inserted)
	`

	var result IdempotencyResult
	err := r.pool.QueryRow(ctx, query, key, tenantID, resourceType, resourceID, ttl.Seconds()).Scan(
		&result.ResourceID,
		&result.AlreadyExists,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New("unexpected empty result from idempotency claim")
		}
		return nil, err
	}

	return &result, nil
}

// Release drops a claim whose resource was never created.
func (r *IdempotencyRepository) Release(ctx context.Context, tenantID uuid.UUID, key, resourceType string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM idempotency_keys WHERE tenant_id = $1 AND key = $2 AND resource_type = $3`,
		tenantID, key, resourceType,
	)
	return err
}

// CleanExpired removes expired idempotency keys.
func (r *IdempotencyRepository) CleanExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE expires_at < NOW()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
