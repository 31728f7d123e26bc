package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/teampulse/internal/domain/repository"
	"github.com/dropDatabas3/teampulse/internal/http/services/tenant"
	"github.com/dropDatabas3/teampulse/internal/oauth/slack"
	"github.com/dropDatabas3/teampulse/internal/testutil"
)

type fixture struct {
	tenants    *testutil.TenantRepo
	accounts   *testutil.AccountRepo
	identities *testutil.IdentityRepo
	svc        Service
}

func newFixture(elevatedDomains ...string) *fixture {
	f := &fixture{
		tenants:    testutil.NewTenantRepo(),
		accounts:   testutil.NewAccountRepo(),
		identities: testutil.NewIdentityRepo(),
	}
	f.svc = New(Deps{
		Tenants:         tenant.New(tenant.Deps{Tenants: f.tenants}),
		Accounts:        f.accounts,
		Identities:      f.identities,
		ElevatedDomains: elevatedDomains,
	})
	return f
}

func slackIdentity(sub, email, name, teamID string) *slack.Identity {
	return &slack.Identity{Sub: sub, Email: email, EmailVerified: true, Name: name, WorkspaceID: teamID}
}

// Escenario end-to-end del caso común: hint "acme", sin link previo, email
// de dominio no privilegiado. Debe crear cuenta member linkeada en acme.
func TestProvisionMemberInTargetTenant(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	acme := f.tenants.Seed(&repository.Tenant{Slug: "acme", Name: "Acme", IsActive: true})

	res, err := f.svc.Resolve(ctx, "acme", slackIdentity("U100", "new.user@acme.com", "New User", ""), "")
	require.NoError(t, err)

	assert.Equal(t, acme.ID, res.TenantID)
	assert.Equal(t, "acme", res.TenantSlug)
	assert.Equal(t, repository.RoleMember, res.Account.Role)
	assert.False(t, res.Account.IsAccountOwner)
	assert.NotEmpty(t, res.Account.CredentialHash)
	assert.Equal(t, 1, f.identities.Count(acme.ID))
}

func TestRepeatLoginIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.tenants.Seed(&repository.Tenant{Slug: "acme", Name: "Acme", IsActive: true})
	ident := slackIdentity("U100", "user@acme.com", "User", "")

	first, err := f.svc.Resolve(ctx, "acme", ident, "")
	require.NoError(t, err)
	second, err := f.svc.Resolve(ctx, "acme", ident, "")
	require.NoError(t, err)

	assert.Equal(t, first.Account.ID, second.Account.ID)
	assert.Equal(t, 1, f.accounts.Count(""))
	assert.Equal(t, 1, f.identities.Count(""))
}

func TestRepeatLoginRefreshesProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.tenants.Seed(&repository.Tenant{Slug: "acme", Name: "Acme", IsActive: true})

	first, err := f.svc.Resolve(ctx, "acme", slackIdentity("U100", "user@acme.com", "Old Name", ""), "")
	require.NoError(t, err)

	renamed := slackIdentity("U100", "user@acme.com", "New Name", "")
	renamed.Picture = "https://avatars.example/new.png"
	second, err := f.svc.Resolve(ctx, "acme", renamed, "")
	require.NoError(t, err)

	assert.Equal(t, first.Account.ID, second.Account.ID)
	assert.Equal(t, "New Name", second.Account.DisplayName)
	assert.Equal(t, "https://avatars.example/new.png", second.Account.AvatarURL)
}

func TestTenantNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Resolve(context.Background(), "nope", slackIdentity("U100", "a@b.com", "A", ""), "")
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestWorkspaceMismatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.tenants.Seed(&repository.Tenant{Slug: "acme", Name: "Acme", ExternalWorkspaceID: "T-ACME", IsActive: true})

	_, err := f.svc.Resolve(ctx, "acme", slackIdentity("U100", "a@b.com", "A", "T-OTHER"), "")
	assert.ErrorIs(t, err, ErrWorkspaceMismatch)
	assert.Equal(t, 0, f.accounts.Count(""))
}

func TestWorkspaceBindingAllowsMatchingTeam(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.tenants.Seed(&repository.Tenant{Slug: "acme", Name: "Acme", ExternalWorkspaceID: "T-ACME", IsActive: true})

	_, err := f.svc.Resolve(ctx, "acme", slackIdentity("U100", "a@b.com", "A", "T-ACME"), "")
	assert.NoError(t, err)
}

// Identidad común ya linkeada al tenant A intentando entrar por el login de
// B: falla cerrada y no crea nada en B.
func TestCrossTenantNonPrivilegedFailsClosed(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	tenantA := f.tenants.Seed(&repository.Tenant{Slug: "tenant-a", Name: "A", IsActive: true})
	tenantB := f.tenants.Seed(&repository.Tenant{Slug: "tenant-b", Name: "B", IsActive: true})

	acc := f.accounts.Seed(&repository.Account{
		TenantID: tenantA.ID, Email: "bound@a.com", Role: repository.RoleMember, IsActive: true,
	})
	f.identities.Seed(&repository.IdentityLink{
		TenantID: tenantA.ID, AccountID: acc.ID, Provider: ProviderSlack, ProviderUserID: "U-BOUND",
	})

	_, err := f.svc.Resolve(ctx, "tenant-b", slackIdentity("U-BOUND", "bound@a.com", "Bound", ""), "")
	assert.ErrorIs(t, err, ErrIdentityBoundToAnotherTenant)
	assert.Equal(t, 0, f.accounts.Count(tenantB.ID))
	assert.Equal(t, 0, f.identities.Count(tenantB.ID))
}

// El mismo email en otro tenant, sin link del provider, también cuenta como
// identidad ajena para una cuenta común.
func TestCrossTenantEmailMatchFailsClosed(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	tenantA := f.tenants.Seed(&repository.Tenant{Slug: "tenant-a", Name: "A", IsActive: true})
	f.tenants.Seed(&repository.Tenant{Slug: "tenant-b", Name: "B", IsActive: true})

	f.accounts.Seed(&repository.Account{
		TenantID: tenantA.ID, Email: "shared@x.com", Role: repository.RoleMember, IsActive: true,
	})

	_, err := f.svc.Resolve(ctx, "tenant-b", slackIdentity("U-NEW", "shared@x.com", "S", ""), "")
	assert.ErrorIs(t, err, ErrIdentityBoundToAnotherTenant)
}

// Super-admin linkeado al tenant A entrando por el login de B: resuelve a su
// cuenta de A y la sesión queda scoped a A, no a B.
func TestSuperAdminCrossTenantLandsInOwnTenant(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	home := f.tenants.Seed(&repository.Tenant{Slug: "ops", Name: "Ops", IsActive: true})
	f.tenants.Seed(&repository.Tenant{Slug: "customer", Name: "Customer", IsActive: true})

	admin := f.accounts.Seed(&repository.Account{
		TenantID: home.ID, Email: "root@teampulse.dev", Role: repository.RoleOwner,
		IsSuperAdmin: true, IsActive: true,
	})
	f.identities.Seed(&repository.IdentityLink{
		TenantID: home.ID, AccountID: admin.ID, Provider: ProviderSlack, ProviderUserID: "U-ROOT",
	})

	res, err := f.svc.Resolve(ctx, "customer", slackIdentity("U-ROOT", "root@teampulse.dev", "Root", ""), "")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, res.Account.ID)
	assert.Equal(t, home.ID, res.TenantID)
	assert.Equal(t, "ops", res.TenantSlug)
}

// Un contexto pre-login autenticado pisa el tenant efectivo del super-admin.
func TestSuperAdminHonorsAuthenticatedContextTenant(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	home := f.tenants.Seed(&repository.Tenant{Slug: "ops", Name: "Ops", IsActive: true})
	customer := f.tenants.Seed(&repository.Tenant{Slug: "customer", Name: "Customer", IsActive: true})

	admin := f.accounts.Seed(&repository.Account{
		TenantID: home.ID, Email: "root@teampulse.dev", Role: repository.RoleOwner,
		IsSuperAdmin: true, IsActive: true,
	})
	f.identities.Seed(&repository.IdentityLink{
		TenantID: home.ID, AccountID: admin.ID, Provider: ProviderSlack, ProviderUserID: "U-ROOT",
	})

	res, err := f.svc.Resolve(ctx, "customer", slackIdentity("U-ROOT", "root@teampulse.dev", "Root", ""), customer.ID)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, res.Account.ID)
	assert.Equal(t, customer.ID, res.TenantID)
	assert.Equal(t, "customer", res.TenantSlug)
}

// Fallback por email dentro del tenant destino: cuenta preexistente sin link
// se linkea en vez de duplicarse.
func TestEmailFallbackLinksExistingAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	acme := f.tenants.Seed(&repository.Tenant{Slug: "acme", Name: "Acme", IsActive: true})
	existing := f.accounts.Seed(&repository.Account{
		TenantID: acme.ID, Email: "present@acme.com", Role: repository.RoleMember, IsActive: true,
	})

	res, err := f.svc.Resolve(ctx, "acme", slackIdentity("U-NEW", "Present@acme.com", "P", ""), "")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, res.Account.ID)
	assert.Equal(t, 1, f.accounts.Count(acme.ID))
	assert.Equal(t, 1, f.identities.Count(acme.ID))
}

// Escenario "new": tenant nuevo con slug derivado del dominio del email y
// cuenta owner/admin.
func TestNewWorkspaceProvisionsTenantAndOwner(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	res, err := f.svc.Resolve(ctx, "new", slackIdentity("U-JANE", "jane@startupco.io", "Jane", "T-STARTUP"), "")
	require.NoError(t, err)

	assert.True(t, res.ProvisionedTenant)
	assert.Equal(t, "startupco", res.TenantSlug)
	assert.Equal(t, repository.RoleAdmin, res.Account.Role)
	assert.True(t, res.Account.IsAccountOwner)

	created, err := f.tenants.GetBySlug(ctx, "startupco")
	require.NoError(t, err)
	assert.Equal(t, "T-STARTUP", created.ExternalWorkspaceID)
}

func TestNewWorkspaceSuffixesTakenSlug(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.tenants.Seed(&repository.Tenant{Slug: "startupco", Name: "taken", IsActive: true})

	res, err := f.svc.Resolve(ctx, "new", slackIdentity("U-JANE", "jane@startupco.io", "Jane", ""), "")
	require.NoError(t, err)
	assert.Equal(t, "startupco-1", res.TenantSlug)
}

func TestElevatedDomainOverride(t *testing.T) {
	ctx := context.Background()
	f := newFixture("teampulse.dev")
	f.tenants.Seed(&repository.Tenant{Slug: "acme", Name: "Acme", IsActive: true})

	res, err := f.svc.Resolve(ctx, "acme", slackIdentity("U-OP", "operator@teampulse.dev", "Op", ""), "")
	require.NoError(t, err)
	assert.True(t, res.Account.IsSuperAdmin)
	assert.Equal(t, repository.RoleAdmin, res.Account.Role)
}

// El override es aditivo: un owner preexistente no baja a admin.
func TestElevatedDomainNeverDowngrades(t *testing.T) {
	ctx := context.Background()
	f := newFixture("teampulse.dev")
	acme := f.tenants.Seed(&repository.Tenant{Slug: "acme", Name: "Acme", IsActive: true})
	owner := f.accounts.Seed(&repository.Account{
		TenantID: acme.ID, Email: "owner@teampulse.dev", Role: repository.RoleOwner, IsActive: true,
	})
	f.identities.Seed(&repository.IdentityLink{
		TenantID: acme.ID, AccountID: owner.ID, Provider: ProviderSlack, ProviderUserID: "U-OWNER",
	})

	res, err := f.svc.Resolve(ctx, "acme", slackIdentity("U-OWNER", "owner@teampulse.dev", "Owner", ""), "")
	require.NoError(t, err)
	assert.True(t, res.Account.IsSuperAdmin)
	assert.Equal(t, repository.RoleOwner, res.Account.Role)
}

func TestProvisioningRaceRetriesOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.tenants.Seed(&repository.Tenant{Slug: "acme", Name: "Acme", IsActive: true})

	// Primer intento pierde la carrera del constraint único; el retry gana.
	f.accounts.CreateErr = repository.ErrConflict

	res, err := f.svc.Resolve(ctx, "acme", slackIdentity("U-RACE", "race@acme.com", "R", ""), "")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Account.ID)
}
