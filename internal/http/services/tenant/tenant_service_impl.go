package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dropDatabas3/teampulse/internal/domain/repository"
	"github.com/dropDatabas3/teampulse/internal/observability/logger"
)

// maxSlugAttempts acota el loop de sufijos ante colisiones concurrentes.
const maxSlugAttempts = 10

// Deps contiene las dependencias del servicio.
type Deps struct {
	Tenants repository.TenantRepository
}

type tenantService struct {
	tenants repository.TenantRepository
}

// New crea el Service.
func New(d Deps) Service {
	return &tenantService{tenants: d.Tenants}
}

func (s *tenantService) FindBySlug(ctx context.Context, slug string) (*repository.Tenant, error) {
	t, err := s.tenants.GetBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	if !t.IsActive {
		return nil, ErrTenantNotFound
	}
	return t, nil
}

func (s *tenantService) FindByID(ctx context.Context, id string) (*repository.Tenant, error) {
	t, err := s.tenants.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *tenantService) CreateWorkspace(ctx context.Context, name, externalWorkspaceID string) (*repository.Tenant, error) {
	log := logger.From(ctx).With(logger.Component("tenant.service"), logger.Op("CreateWorkspace"))

	base := Slugify(name)
	if base == "" {
		base = "workspace"
	}

	// La unicidad real la garantiza el índice único de la tabla; acá solo
	// reintentamos con sufijo cuando el insert choca.
	for i := 0; i < maxSlugAttempts; i++ {
		slug := base
		if i > 0 {
			slug = fmt.Sprintf("%s-%d", base, i)
		}

		t := &repository.Tenant{
			Slug:                slug,
			Name:                name,
			ExternalWorkspaceID: externalWorkspaceID,
			IsActive:            true,
		}
		err := s.tenants.Create(ctx, t)
		if err == nil {
			log.Info("workspace provisioned", logger.TenantID(t.ID), logger.TenantSlug(slug))
			return t, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, err
		}
	}
	log.Warn("slug allocation exhausted", logger.String("base", base))
	return nil, ErrSlugAllocationFailed
}

// Slugify normaliza un nombre de workspace a slug apto para URL:
// minúsculas, alfanuméricos, runs de separadores colapsados a un guión.
func Slugify(name string) string {
	var b strings.Builder
	lastDash := true // suprime guión inicial
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
