package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/legacy-compass/farm-ingest/internal/models"
)

// PropertyRepository handles data access for canonical property records
type PropertyRepository struct {
	pool *pgxpool.Pool
}

// NewPropertyRepository creates a new property repository
func NewPropertyRepository(pool *pgxpool.Pool) *PropertyRepository {
	return &PropertyRepository{pool: pool}
}

// A property is identified per tenant by its canonical id; re-importing the
// same parcel moves it to the newest batch.
const upsertPropertyQuery = `
	INSERT INTO properties (
		id, batch_id, tenant_id, property_id, address, city, state, zip,
		latitude, longitude, owner_name, is_absentee, equity_percent, status,
		tags, data, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
	)
	ON CONFLICT (tenant_id, property_id) DO UPDATE SET
		batch_id = EXCLUDED.batch_id,
		address = EXCLUDED.address,
		city = EXCLUDED.city,
		state = EXCLUDED.state,
		zip = EXCLUDED.zip,
		latitude = EXCLUDED.latitude,
		longitude = EXCLUDED.longitude,
		owner_name = EXCLUDED.owner_name,
		is_absentee = EXCLUDED.is_absentee,
		equity_percent = EXCLUDED.equity_percent,
		status = EXCLUDED.status,
		tags = EXCLUDED.tags,
		data = EXCLUDED.data,
		updated_at = EXCLUDED.updated_at
`

func upsertArgs(rec *models.PropertyRecord) ([]any, error) {
	data, err := json.Marshal(rec.Property)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal property %s: %w", rec.Property.ID, err)
	}
	p := rec.Property
	tags := p.Activity.Tags
	if tags == nil {
		tags = []string{}
	}
	return []any{
		rec.ID, rec.BatchID, rec.TenantID, p.ID, p.Address.Street, p.Address.City,
		p.Address.State, p.Address.Zip, p.Coordinates.Lat, p.Coordinates.Lng,
		p.Owner.FullName, p.Owner.IsAbsentee, p.Financial.EquityPercent, p.Activity.Status,
		tags, data, rec.CreatedAt, rec.UpdatedAt,
	}, nil
}

// BulkUpsert upserts records in a single pgx batch
func (r *PropertyRepository) BulkUpsert(ctx context.Context, records []models.PropertyRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := range records {
		args, err := upsertArgs(&records[i])
		if err != nil {
			return err
		}
		batch.Queue(upsertPropertyQuery, args...)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(records); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert property %s: %w", records[i].Property.ID, err)
		}
	}

	return nil
}

// UpsertOne upserts a single record
func (r *PropertyRepository) UpsertOne(ctx context.Context, record models.PropertyRecord) error {
	args, err := upsertArgs(&record)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, upsertPropertyQuery, args...)
	return err
}

// GetByPropertyIDs returns the stored canonical records of a tenant keyed by
// property id. Ids with no stored record are absent from the map.
func (r *PropertyRepository) GetByPropertyIDs(ctx context.Context, tenantID uuid.UUID, propertyIDs []string) (map[string]models.CanonicalProperty, error) {
	stored := make(map[string]models.CanonicalProperty, len(propertyIDs))
	if len(propertyIDs) == 0 {
		return stored, nil
	}

	query := `
		SELECT property_id, data
		FROM properties
		WHERE tenant_id = $1 AND property_id = ANY($2)
	`
	rows, err := r.pool.Query(ctx, query, tenantID, propertyIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		var p models.CanonicalProperty
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to decode property %s: %w", id, err)
		}
		stored[id] = p
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stored, nil
}

const propertyColumns = `id, batch_id, tenant_id, data, created_at, updated_at`

func scanProperty(row pgx.Row) (models.PropertyRecord, error) {
	var rec models.PropertyRecord
	var data []byte
	if err := row.Scan(&rec.ID, &rec.BatchID, &rec.TenantID, &data, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, &rec.Property); err != nil {
		return rec, fmt.Errorf("failed to decode property %s: %w", rec.ID, err)
	}
	return rec, nil
}

// ListByBatch retrieves one page of a batch's records in import order.
// status filters by activity status when non-empty.
func (r *PropertyRepository) ListByBatch(
	ctx context.Context,
	tenantID, batchID uuid.UUID,
	status string,
	limit, offset int,
) ([]models.PropertyRecord, int, error) {
	countQuery := `
		SELECT COUNT(*)
		FROM properties
		WHERE batch_id = $1 AND tenant_id = $2 AND ($3 = '' OR status = $3)
	`
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, batchID, tenantID, status).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + propertyColumns + `
		FROM properties
		WHERE batch_id = $1 AND tenant_id = $2 AND ($3 = '' OR status = $3)
		ORDER BY (data->>'row_index')::int ASC
		LIMIT $4 OFFSET $5
	`
	records, err := r.query(ctx, query, batchID, tenantID, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// ListAllByBatch retrieves every record of a batch in import order
func (r *PropertyRepository) ListAllByBatch(ctx context.Context, tenantID, batchID uuid.UUID) ([]models.PropertyRecord, error) {
	query := `
		SELECT ` + propertyColumns + `
		FROM properties
		WHERE batch_id = $1 AND tenant_id = $2
		ORDER BY (data->>'row_index')::int ASC
	`
	return r.query(ctx, query, batchID, tenantID)
}

func (r *PropertyRepository) query(ctx context.Context, query string, args ...any) ([]models.PropertyRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]models.PropertyRecord, 0)
	for rows.Next() {
		rec, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}
