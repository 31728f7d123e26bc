package repository

import (
	"context"
	"time"
)

// Tenant representa un workspace del sistema.
type Tenant struct {
	ID   string
	Slug string
	Name string

	// ExternalWorkspaceID es el ID del workspace en el proveedor externo
	// (team_id de Slack). Vacío si el tenant no está vinculado a un workspace.
	ExternalWorkspaceID string

	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TenantRepository define operaciones sobre workspaces.
type TenantRepository interface {
	// GetBySlug busca un tenant por slug. ErrNotFound si no existe.
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)

	// GetByID busca un tenant por UUID. ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*Tenant, error)

	// Create inserta un tenant nuevo.
	// Retorna ErrConflict si el slug ya existe (índice único).
	Create(ctx context.Context, tenant *Tenant) error
}
