// Package tenant expone el directorio de workspaces: lookup por slug/ID y
// aprovisionamiento de workspaces nuevos con slug único.
package tenant

import (
	"context"
	"errors"

	"github.com/dropDatabas3/teampulse/internal/domain/repository"
)

// Service es el directorio de tenants.
type Service interface {
	// FindBySlug resuelve un tenant activo por slug.
	// ErrTenantNotFound si no existe o está inactivo.
	FindBySlug(ctx context.Context, slug string) (*repository.Tenant, error)

	// FindByID resuelve un tenant por UUID, activo o no.
	FindByID(ctx context.Context, id string) (*repository.Tenant, error)

	// CreateWorkspace aprovisiona un tenant nuevo vinculado al workspace
	// externo. El slug se deriva de name; ante colisión se reintenta con
	// sufijo numérico una cantidad acotada de veces.
	CreateWorkspace(ctx context.Context, name, externalWorkspaceID string) (*repository.Tenant, error)
}

var (
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrSlugAllocationFailed indica que se agotaron los reintentos de slug.
	ErrSlugAllocationFailed = errors.New("could not allocate a unique tenant slug")
)
