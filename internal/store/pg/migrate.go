package pg

import (
	"context"
	"fmt"
	"io/fs"
	"sort"

	"github.com/dropDatabas3/teampulse/internal/observability/logger"
	migrations "github.com/dropDatabas3/teampulse/migrations/postgres"
)

// Migrate aplica las migraciones embebidas en orden lexicográfico,
// registrando cada una en schema_migrations. Idempotente.
func (s *Store) Migrate(ctx context.Context) error {
	log := logger.From(ctx).With(logger.Component("pg.migrate"))

	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("pg: ensure schema_migrations: %w", err)
	}

	names, err := fs.Glob(migrations.Files, "*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)

	for _, name := range names {
		var applied bool
		err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, name).Scan(&applied)
		if err != nil {
			return fmt.Errorf("pg: check migration %s: %w", name, err)
		}
		if applied {
			continue
		}

		sql, err := migrations.Files.ReadFile(name)
		if err != nil {
			return err
		}
		if _, err := s.pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("pg: apply migration %s: %w", name, err)
		}
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO schema_migrations (version) VALUES ($1)`, name); err != nil {
			return fmt.Errorf("pg: record migration %s: %w", name, err)
		}
		log.Info("migration applied", logger.String("version", name))
	}
	return nil
}
