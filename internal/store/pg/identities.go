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

type identityRepo struct {
	pool *pgxpool.Pool
}

const identityColumns = `id, tenant_id, account_id, provider, provider_user_id, email, display_name, created_at, updated_at`

func scanIdentity(row pgx.Row) (*repository.IdentityLink, error) {
	var l repository.IdentityLink
	var email, display *string
	err := row.Scan(&l.ID, &l.TenantID, &l.AccountID, &l.Provider, &l.ProviderUserID,
		&email, &display, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	l.Email = deref(email)
	l.DisplayName = deref(display)
	return &l, nil
}

func (r *identityRepo) GetByProvider(ctx context.Context, tenantID, provider, providerUserID string) (*repository.IdentityLink, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+identityColumns+` FROM identity_link
		 WHERE tenant_id = $1 AND provider = $2 AND provider_user_id = $3`,
		tenantID, provider, providerUserID)
	return scanIdentity(row)
}

func (r *identityRepo) FindByProviderAcrossTenants(ctx context.Context, provider, providerUserID, excludeTenantID string) ([]repository.IdentityLink, error) {
	// Índice global idx_identity_provider_sub: un lookup, nunca O(tenants).
	rows, err := r.pool.Query(ctx,
		`SELECT `+identityColumns+` FROM identity_link
		 WHERE provider = $1 AND provider_user_id = $2 AND tenant_id <> $3
		 ORDER BY created_at`,
		provider, providerUserID, excludeTenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.IdentityLink
	for rows.Next() {
		l, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func (r *identityRepo) HasLink(ctx context.Context, accountID, provider string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM identity_link WHERE account_id = $1 AND provider = $2)`,
		accountID, provider).Scan(&exists)
	return exists, err
}

func (r *identityRepo) Create(ctx context.Context, link *repository.IdentityLink) error {
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	link.CreatedAt = now
	link.UpdatedAt = now

	_, err := r.pool.Exec(ctx, `
		INSERT INTO identity_link (id, tenant_id, account_id, provider, provider_user_id, email, display_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		link.ID, link.TenantID, link.AccountID, link.Provider, link.ProviderUserID,
		nullIfEmpty(link.Email), nullIfEmpty(link.DisplayName), now,
	)
	if isUniqueViolation(err) {
		return repository.ErrConflict
	}
	return err
}

func (r *identityRepo) UpdateProfile(ctx context.Context, id, email, displayName string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE identity_link SET
			email = COALESCE(NULLIF($2, ''), email),
			display_name = COALESCE(NULLIF($3, ''), display_name),
			updated_at = NOW()
		WHERE id = $1`,
		id, email, displayName,
	)
	return err
}
