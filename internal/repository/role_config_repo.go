package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/legacy-compass/farm-ingest/internal/models"
)

// RoleConfigRepository handles data access for column-role pattern configs
type RoleConfigRepository struct {
	pool *pgxpool.Pool
}

// NewRoleConfigRepository creates a new role config repository
func NewRoleConfigRepository(pool *pgxpool.Pool) *RoleConfigRepository {
	return &RoleConfigRepository{pool: pool}
}

const roleConfigColumns = `id, tenant_id, version, config, description, is_active, created_at, updated_at`

func scanRoleConfig(row pgx.Row) (*models.RoleConfig, error) {
	config := &models.RoleConfig{}
	err := row.Scan(
		&config.ID,
		&config.TenantID,
		&config.Version,
		&config.Config,
		&config.Description,
		&config.IsActive,
		&config.CreatedAt,
		&config.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return config, nil
}

// GetGlobalActive retrieves the currently active global role configuration
func (r *RoleConfigRepository) GetGlobalActive(ctx context.Context) (*models.RoleConfig, error) {
	query := `
		SELECT ` + roleConfigColumns + `
		FROM role_configs
		WHERE tenant_id IS NULL AND is_active = true
		ORDER BY version DESC
		LIMIT 1
	`
	return scanRoleConfig(r.pool.QueryRow(ctx, query))
}

// GetTenantActive retrieves the currently active role overrides for a specific tenant
func (r *RoleConfigRepository) GetTenantActive(ctx context.Context, tenantID uuid.UUID) (*models.RoleConfig, error) {
	query := `
		SELECT ` + roleConfigColumns + `
		FROM role_configs
		WHERE tenant_id = $1 AND is_active = true
		ORDER BY version DESC
		LIMIT 1
	`
	return scanRoleConfig(r.pool.QueryRow(ctx, query, tenantID))
}
