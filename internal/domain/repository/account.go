package repository

import (
	"context"
	"time"
)

// Roles de cuenta, de menor a mayor privilegio.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
	RoleOwner  = "owner"
)

// Account representa una cuenta interna, perteneciente a exactamente un tenant.
// Un super-admin tiene una cuenta física en su propio tenant pero puede
// autenticarse desde el login de cualquier workspace.
type Account struct {
	ID       string
	TenantID string

	Email           string
	NormalizedEmail string
	DisplayName     string
	AvatarURL       string

	Role           string
	IsAccountOwner bool
	IsSuperAdmin   bool
	IsActive       bool

	// CredentialHash es una credencial opaca generada al aprovisionar la
	// cuenta via social login; nunca sirve para login directo por password.
	CredentialHash string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AccountRepository define operaciones sobre cuentas.
type AccountRepository interface {
	// GetByID busca una cuenta por UUID. ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*Account, error)

	// GetByEmail busca una cuenta por email normalizado dentro de un tenant.
	// ErrNotFound si no existe.
	GetByEmail(ctx context.Context, tenantID, normalizedEmail string) (*Account, error)

	// FindByEmailAcrossTenants busca cuentas con el mismo email normalizado en
	// cualquier tenant distinto de excludeTenantID. Usa el índice global de
	// email; nunca itera tenants.
	FindByEmailAcrossTenants(ctx context.Context, normalizedEmail, excludeTenantID string) ([]Account, error)

	// Create inserta una cuenta nueva.
	// Retorna ErrConflict si ya existe una cuenta con ese email en el tenant.
	Create(ctx context.Context, account *Account) error

	// UpdateProfile refresca campos mutables (display name, avatar; email solo
	// si estaba vacío).
	UpdateProfile(ctx context.Context, id, displayName, avatarURL, email string) error

	// Elevate marca la cuenta como super-admin y sube el rol a admin si el rol
	// actual es menor. Nunca degrada un rol existente.
	Elevate(ctx context.Context, id string) error
}
