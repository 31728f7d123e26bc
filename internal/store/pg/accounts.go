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

type accountRepo struct {
	pool *pgxpool.Pool
}

const accountColumns = `id, tenant_id, email, normalized_email, display_name, avatar_url,
	role, is_account_owner, is_super_admin, is_active, credential_hash, created_at, updated_at`

func scanAccount(row pgx.Row) (*repository.Account, error) {
	var a repository.Account
	var email, normEmail, display, avatar, cred *string
	err := row.Scan(&a.ID, &a.TenantID, &email, &normEmail, &display, &avatar,
		&a.Role, &a.IsAccountOwner, &a.IsSuperAdmin, &a.IsActive, &cred, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Email = deref(email)
	a.NormalizedEmail = deref(normEmail)
	a.DisplayName = deref(display)
	a.AvatarURL = deref(avatar)
	a.CredentialHash = deref(cred)
	return &a, nil
}

func (r *accountRepo) GetByID(ctx context.Context, id string) (*repository.Account, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM account WHERE id = $1`, id)
	return scanAccount(row)
}

func (r *accountRepo) GetByEmail(ctx context.Context, tenantID, normalizedEmail string) (*repository.Account, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM account WHERE tenant_id = $1 AND normalized_email = $2`,
		tenantID, normalizedEmail)
	return scanAccount(row)
}

func (r *accountRepo) FindByEmailAcrossTenants(ctx context.Context, normalizedEmail, excludeTenantID string) ([]repository.Account, error) {
	// Índice global idx_account_normalized_email: lookup constante, sin
	// iterar tenants.
	rows, err := r.pool.Query(ctx,
		`SELECT `+accountColumns+` FROM account
		 WHERE normalized_email = $1 AND tenant_id <> $2 AND is_active
		 ORDER BY created_at`,
		normalizedEmail, excludeTenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *accountRepo) Create(ctx context.Context, account *repository.Account) error {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	_, err := r.pool.Exec(ctx, `
		INSERT INTO account (id, tenant_id, email, normalized_email, display_name, avatar_url,
			role, is_account_owner, is_super_admin, is_active, credential_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)`,
		account.ID, account.TenantID, nullIfEmpty(account.Email), nullIfEmpty(account.NormalizedEmail),
		nullIfEmpty(account.DisplayName), nullIfEmpty(account.AvatarURL),
		account.Role, account.IsAccountOwner, account.IsSuperAdmin, account.IsActive,
		nullIfEmpty(account.CredentialHash), now,
	)
	if isUniqueViolation(err) {
		return repository.ErrConflict
	}
	return err
}

func (r *accountRepo) UpdateProfile(ctx context.Context, id, displayName, avatarURL, email string) error {
	// Email solo se backfillea si estaba vacío; nunca se pisa uno existente.
	_, err := r.pool.Exec(ctx, `
		UPDATE account SET
			display_name = COALESCE(NULLIF($2, ''), display_name),
			avatar_url = COALESCE(NULLIF($3, ''), avatar_url),
			email = CASE WHEN email IS NULL OR email = '' THEN NULLIF($4, '') ELSE email END,
			normalized_email = CASE WHEN email IS NULL OR email = '' THEN lower(NULLIF($4, '')) ELSE normalized_email END,
			updated_at = NOW()
		WHERE id = $1`,
		id, displayName, avatarURL, email,
	)
	return err
}

func (r *accountRepo) Elevate(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE account SET
			is_super_admin = TRUE,
			role = CASE WHEN role = $2 THEN $3 ELSE role END,
			updated_at = NOW()
		WHERE id = $1`,
		id, repository.RoleMember, repository.RoleAdmin,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
