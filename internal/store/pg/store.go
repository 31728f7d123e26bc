// Package pg implementa los repositorios del dominio sobre PostgreSQL.
// Usa pgxpool directamente; cada mutación es un solo statement.
package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/teampulse/internal/domain/repository"
)

// Config configura la conexión al Postgres global.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MinIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store agrupa los repositorios PostgreSQL sobre un único pool.
type Store struct {
	pool *pgxpool.Pool

	tenants    *tenantRepo
	accounts   *accountRepo
	identities *identityRepo
	authStates *authStateRepo
}

// New abre el pool y construye los repositorios.
func New(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	} else {
		poolCfg.MaxConns = 10
	}
	if cfg.MinIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.MinIdleConns)
	} else {
		poolCfg.MinConns = 2
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}

	return &Store{
		pool:       pool,
		tenants:    &tenantRepo{pool: pool},
		accounts:   &accountRepo{pool: pool},
		identities: &identityRepo{pool: pool},
		authStates: &authStateRepo{pool: pool},
	}, nil
}

// Tenants retorna el repositorio de workspaces.
func (s *Store) Tenants() repository.TenantRepository { return s.tenants }

// Accounts retorna el repositorio de cuentas.
func (s *Store) Accounts() repository.AccountRepository { return s.accounts }

// Identities retorna el repositorio de identity links.
func (s *Store) Identities() repository.IdentityRepository { return s.identities }

// AuthStates retorna el repositorio de estados pendientes de login.
func (s *Store) AuthStates() repository.AuthStateRepository { return s.authStates }

// Ping verifica la conexión (readiness).
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Pool expone el pool para métricas.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Close cierra el pool.
func (s *Store) Close() { s.pool.Close() }

// isUniqueViolation detecta violaciones de índice único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
