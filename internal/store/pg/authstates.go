package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/teampulse/internal/domain/repository"
)

type authStateRepo struct {
	pool *pgxpool.Pool
}

func (r *authStateRepo) Create(ctx context.Context, state *repository.PendingAuthState) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO auth_state (token_hash, tenant_hint, nonce, issued_at, expires_at, consumed)
		VALUES ($1, $2, $3, $4, $5, FALSE)`,
		state.TokenHash, state.TenantHint, state.Nonce, state.IssuedAt, state.ExpiresAt,
	)
	if isUniqueViolation(err) {
		return repository.ErrConflict
	}
	return err
}

// Consume es el único punto de consumo: un UPDATE condicional con RETURNING.
// Dos callbacks concurrentes con el mismo token ven exactamente un RowsAffected=1;
// el perdedor recibe ErrNotFound y el caller lo reclasifica con Get.
func (r *authStateRepo) Consume(ctx context.Context, tokenHash string) (*repository.PendingAuthState, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE auth_state
		SET consumed = TRUE, consumed_at = NOW()
		WHERE token_hash = $1 AND consumed = FALSE
		RETURNING token_hash, tenant_hint, nonce, issued_at, expires_at, consumed`,
		tokenHash,
	)
	return scanAuthState(row)
}

func (r *authStateRepo) Get(ctx context.Context, tokenHash string) (*repository.PendingAuthState, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT token_hash, tenant_hint, nonce, issued_at, expires_at, consumed
		FROM auth_state WHERE token_hash = $1`,
		tokenHash,
	)
	return scanAuthState(row)
}

func (r *authStateRepo) DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM auth_state WHERE expires_at < $1`,
		time.Now().UTC().Add(-olderThan),
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanAuthState(row pgx.Row) (*repository.PendingAuthState, error) {
	var s repository.PendingAuthState
	err := row.Scan(&s.TokenHash, &s.TenantHint, &s.Nonce, &s.IssuedAt, &s.ExpiresAt, &s.Consumed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
