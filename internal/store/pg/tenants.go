package pg

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/teampulse/internal/domain/repository"
)

type tenantRepo struct {
	pool *pgxpool.Pool
}

const tenantColumns = `id, slug, name, external_workspace_id, is_active, created_at, updated_at`

func scanTenant(row pgx.Row) (*repository.Tenant, error) {
	var t repository.Tenant
	var extWS *string
	err := row.Scan(&t.ID, &t.Slug, &t.Name, &extWS, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if extWS != nil {
		t.ExternalWorkspaceID = *extWS
	}
	return &t, nil
}

func (r *tenantRepo) GetBySlug(ctx context.Context, slug string) (*repository.Tenant, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenant WHERE slug = $1`, slug)
	return scanTenant(row)
}

func (r *tenantRepo) GetByID(ctx context.Context, id string) (*repository.Tenant, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenant WHERE id = $1`, id)
	return scanTenant(row)
}

func (r *tenantRepo) Create(ctx context.Context, tenant *repository.Tenant) error {
	if tenant.ID == "" {
		tenant.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	tenant.CreatedAt = now
	tenant.UpdatedAt = now

	_, err := r.pool.Exec(ctx, `
		INSERT INTO tenant (id, slug, name, external_workspace_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		tenant.ID, tenant.Slug, tenant.Name, nullIfEmpty(tenant.ExternalWorkspaceID),
		tenant.IsActive, now,
	)
	if isUniqueViolation(err) {
		return repository.ErrConflict
	}
	return err
}

// nullIfEmpty convierte "" en NULL para columnas opcionales.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// deref desreferencia una columna opcional a string.
func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
