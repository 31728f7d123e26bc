package repository

import (
	"context"
	"time"
)

// IdentityLink es el mapeo persistido de una identidad externa a una cuenta
// interna. Único por (tenant_id, provider, provider_user_id); el mismo
// provider_user_id puede aparecer en varios tenants (uno por tenant), y solo
// se autoriza el cruce de tenants para cuentas super-admin.
type IdentityLink struct {
	ID             string
	TenantID       string
	AccountID      string
	Provider       string
	ProviderUserID string

	Email       string
	DisplayName string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IdentityRepository define operaciones sobre identity links.
type IdentityRepository interface {
	// GetByProvider busca el link de (provider, providerUserID) dentro de un
	// tenant. ErrNotFound si no existe.
	GetByProvider(ctx context.Context, tenantID, provider, providerUserID string) (*IdentityLink, error)

	// FindByProviderAcrossTenants busca links de (provider, providerUserID) en
	// cualquier tenant distinto de excludeTenantID. Usa el índice global
	// (provider, provider_user_id); costo constante, sin loop por tenant.
	FindByProviderAcrossTenants(ctx context.Context, provider, providerUserID, excludeTenantID string) ([]IdentityLink, error)

	// HasLink indica si la cuenta ya tiene algún identity link del provider.
	HasLink(ctx context.Context, accountID, provider string) (bool, error)

	// Create inserta un link nuevo.
	// Retorna ErrConflict si (tenant, provider, provider_user_id) ya existe.
	Create(ctx context.Context, link *IdentityLink) error

	// UpdateProfile refresca email y display name del link en logins repetidos.
	// El link nunca se re-apunta a otra cuenta desde este flujo.
	UpdateProfile(ctx context.Context, id, email, displayName string) error
}
