// Package identity resuelve una identidad externa verificada a exactamente
// una cuenta interna, aplicando las reglas de dedup cross-tenant y la
// autorización de la clase super-admin.
package identity

import (
	"context"
	"errors"

	"github.com/dropDatabas3/teampulse/internal/domain/repository"
	"github.com/dropDatabas3/teampulse/internal/oauth/slack"
)

// ProviderSlack es el único provider soportado hoy.
const ProviderSlack = "slack"

// Resolution es el resultado de una resolución exitosa. TenantID/TenantSlug
// son el tenant efectivo de la sesión, que para super-admins puede diferir
// del tenant del hint.
type Resolution struct {
	Account    *repository.Account
	TenantID   string
	TenantSlug string

	// ProvisionedTenant es true cuando el flujo creó un workspace nuevo.
	ProvisionedTenant bool
}

// Service resuelve identidades externas a cuentas internas.
type Service interface {
	// Resolve aplica el algoritmo de resolución en orden, cortando en el
	// primer match:
	//
	//  1. hint "new"     → aprovisionar workspace + cuenta owner/admin
	//  2. lookup tenant  → ErrTenantNotFound
	//  3. binding check  → ErrWorkspaceMismatch
	//  4. link directo en el tenant destino (refresca perfil)
	//  5. búsqueda cross-tenant: super-admin autoriza el cruce (el tenant
	//     efectivo pasa a ser el propio, salvo sessionAuthTenantID); cuenta
	//     común falla cerrada con ErrIdentityBoundToAnotherTenant
	//  6. aprovisionar cuenta member en el tenant destino, con el único
	//     fallback por email dentro de ese tenant
	//  7. override de dominio elevado (aditivo, nunca degrada)
	//
	// sessionAuthTenantID viene de un contexto pre-login autenticado (vincular
	// provider desde adentro de la app); vacío en el login normal.
	Resolve(ctx context.Context, tenantHint string, ext *slack.Identity, sessionAuthTenantID string) (*Resolution, error)
}

// Errores terminales del flujo. Ninguno se reintenta del lado del servidor.
var (
	ErrTenantNotFound               = errors.New("tenant not found")
	ErrWorkspaceMismatch            = errors.New("identity belongs to a different external workspace")
	ErrIdentityBoundToAnotherTenant = errors.New("identity already bound to another tenant")
	ErrAccountProvisioningFailed    = errors.New("account provisioning failed")
)
