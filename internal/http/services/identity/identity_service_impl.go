package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/dropDatabas3/teampulse/internal/domain/repository"
	"github.com/dropDatabas3/teampulse/internal/http/services/authstate"
	"github.com/dropDatabas3/teampulse/internal/http/services/tenant"
	"github.com/dropDatabas3/teampulse/internal/oauth/slack"
	"github.com/dropDatabas3/teampulse/internal/observability/logger"
	"github.com/dropDatabas3/teampulse/internal/security/password"
	"github.com/dropDatabas3/teampulse/internal/security/token"

	"go.uber.org/zap"
)

// Deps contiene las dependencias del servicio.
type Deps struct {
	Tenants    tenant.Service
	Accounts   repository.AccountRepository
	Identities repository.IdentityRepository

	// ElevatedDomains es la allow-list de dominios de email de operadores.
	ElevatedDomains []string
}

type identityService struct {
	tenants    tenant.Service
	accounts   repository.AccountRepository
	identities repository.IdentityRepository
	elevated   map[string]struct{}
}

// New crea el Service.
func New(d Deps) Service {
	elevated := make(map[string]struct{}, len(d.ElevatedDomains))
	for _, dom := range d.ElevatedDomains {
		dom = strings.ToLower(strings.TrimSpace(dom))
		if dom != "" {
			elevated[dom] = struct{}{}
		}
	}
	return &identityService{
		tenants:    d.Tenants,
		accounts:   d.Accounts,
		identities: d.Identities,
		elevated:   elevated,
	}
}

func (s *identityService) Resolve(ctx context.Context, tenantHint string, ext *slack.Identity, sessionAuthTenantID string) (*Resolution, error) {
	log := logger.From(ctx).With(
		logger.Component("identity.resolver"),
		logger.Provider(ProviderSlack),
		logger.String("sub", ext.Sub),
	)

	// 1. Workspace nuevo.
	if tenantHint == authstate.HintNewWorkspace {
		return s.provisionWorkspace(ctx, log, ext)
	}

	// 2. Tenant destino.
	t, err := s.tenants.FindBySlug(ctx, tenantHint)
	if errors.Is(err, tenant.ErrTenantNotFound) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	log = log.With(logger.TenantSlug(t.Slug))

	// 3. Binding de workspace externo.
	if t.ExternalWorkspaceID != "" && ext.WorkspaceID != "" && t.ExternalWorkspaceID != ext.WorkspaceID {
		log.Warn("workspace mismatch",
			logger.String("bound_workspace", t.ExternalWorkspaceID),
			logger.String("identity_workspace", ext.WorkspaceID))
		return nil, ErrWorkspaceMismatch
	}

	// 4. Link directo en el tenant destino.
	link, err := s.identities.GetByProvider(ctx, t.ID, ProviderSlack, ext.Sub)
	if err == nil {
		acc, err := s.accounts.GetByID(ctx, link.AccountID)
		if err != nil {
			return nil, err
		}
		s.refreshProfile(ctx, log, acc, link, ext)
		if err := s.applyElevatedDomain(ctx, log, acc, ext); err != nil {
			return nil, err
		}
		return &Resolution{Account: acc, TenantID: t.ID, TenantSlug: t.Slug}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	// 5. Búsqueda cross-tenant (índices globales, costo constante).
	matched, err := s.findAcrossTenants(ctx, ext, t.ID)
	if err != nil {
		return nil, err
	}
	if matched != nil {
		if !matched.IsSuperAdmin {
			// Falla cerrada: el merge de cuentas es una acción administrativa
			// explícita, nunca un efecto colateral del login.
			log.Warn("identity bound to another tenant", logger.TenantID(matched.TenantID))
			return nil, ErrIdentityBoundToAnotherTenant
		}
		return s.resolveSuperAdmin(ctx, log, matched, ext, sessionAuthTenantID)
	}

	// 6. Sin match en ningún lado: aprovisionar en el tenant destino.
	acc, err := s.provisionAccount(ctx, log, t, ext)
	if err != nil {
		return nil, err
	}

	// 7. Override de dominio elevado.
	if err := s.applyElevatedDomain(ctx, log, acc, ext); err != nil {
		return nil, err
	}
	return &Resolution{Account: acc, TenantID: t.ID, TenantSlug: t.Slug}, nil
}

// provisionWorkspace crea tenant + cuenta owner para el hint "new".
func (s *identityService) provisionWorkspace(ctx context.Context, log *zap.Logger, ext *slack.Identity) (*Resolution, error) {
	name := workspaceNameFor(ext)

	t, err := s.tenants.CreateWorkspace(ctx, name, ext.WorkspaceID)
	if err != nil {
		return nil, err
	}
	log = log.With(logger.TenantID(t.ID), logger.TenantSlug(t.Slug))

	acc := &repository.Account{
		TenantID:        t.ID,
		Email:           ext.Email,
		NormalizedEmail: normalizeEmail(ext.Email),
		DisplayName:     ext.Name,
		AvatarURL:       ext.Picture,
		Role:            repository.RoleAdmin,
		IsAccountOwner:  true,
		IsActive:        true,
	}
	if err := s.fillPlaceholderCredential(acc); err != nil {
		return nil, err
	}
	if err := s.accounts.Create(ctx, acc); err != nil {
		return nil, err
	}
	if err := s.createLink(ctx, t.ID, acc.ID, ext); err != nil {
		return nil, err
	}
	if err := s.applyElevatedDomain(ctx, log, acc, ext); err != nil {
		return nil, err
	}

	log.Info("workspace owner provisioned", logger.UserID(acc.ID))
	return &Resolution{Account: acc, TenantID: t.ID, TenantSlug: t.Slug, ProvisionedTenant: true}, nil
}

// findAcrossTenants busca la identidad en otros tenants: primero por
// (provider, sub) en el índice global de links, después por email normalizado
// para cuentas que todavía no tienen link del provider.
func (s *identityService) findAcrossTenants(ctx context.Context, ext *slack.Identity, excludeTenantID string) (*repository.Account, error) {
	links, err := s.identities.FindByProviderAcrossTenants(ctx, ProviderSlack, ext.Sub, excludeTenantID)
	if err != nil {
		return nil, err
	}
	if len(links) > 0 {
		return s.accounts.GetByID(ctx, links[0].AccountID)
	}

	email := normalizeEmail(ext.Email)
	if email == "" {
		return nil, nil
	}
	accounts, err := s.accounts.FindByEmailAcrossTenants(ctx, email, excludeTenantID)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		acc := &accounts[i]
		// El fallback por email solo aplica a cuentas sin link del provider;
		// una cuenta ya linkeada a otro sub no es la misma identidad.
		has, err := s.identities.HasLink(ctx, acc.ID, ProviderSlack)
		if err != nil {
			return nil, err
		}
		if !has {
			return acc, nil
		}
	}
	return nil, nil
}

// resolveSuperAdmin autoriza el cruce de tenants para la clase privilegiada.
// El tenant efectivo es el propio de la cuenta, salvo que un contexto
// pre-login autenticado haya fijado otro.
func (s *identityService) resolveSuperAdmin(ctx context.Context, log *zap.Logger, acc *repository.Account, ext *slack.Identity, sessionAuthTenantID string) (*Resolution, error) {
	effectiveTenantID := acc.TenantID
	if sessionAuthTenantID != "" {
		effectiveTenantID = sessionAuthTenantID
	}
	home, err := s.tenants.FindByID(ctx, effectiveTenantID)
	if err != nil {
		return nil, err
	}

	// Si el match vino por email, dejar el link creado en el tenant propio
	// para que el próximo login resuelva por índice directo.
	has, err := s.identities.HasLink(ctx, acc.ID, ProviderSlack)
	if err != nil {
		return nil, err
	}
	if !has {
		if err := s.createLink(ctx, acc.TenantID, acc.ID, ext); err != nil && !errors.Is(err, repository.ErrConflict) {
			return nil, err
		}
	}

	log.Info("cross-tenant super-admin sign-in",
		logger.UserID(acc.ID),
		logger.TenantID(effectiveTenantID))
	return &Resolution{Account: acc, TenantID: home.ID, TenantSlug: home.Slug}, nil
}

// provisionAccount crea (o linkea por email) la cuenta en el tenant destino.
// Una carrera de constraint único se reintenta una sola vez.
func (s *identityService) provisionAccount(ctx context.Context, log *zap.Logger, t *repository.Tenant, ext *slack.Identity) (*repository.Account, error) {
	for attempt := 0; attempt < 2; attempt++ {
		acc, err := s.findOrCreateAccount(ctx, t, ext)
		if errors.Is(err, repository.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}

		if err := s.createLink(ctx, t.ID, acc.ID, ext); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				continue
			}
			return nil, err
		}
		log.Info("account provisioned", logger.UserID(acc.ID), logger.TenantID(t.ID))
		return acc, nil
	}
	log.Error("account provisioning lost unique-constraint race twice")
	return nil, ErrAccountProvisioningFailed
}

func (s *identityService) findOrCreateAccount(ctx context.Context, t *repository.Tenant, ext *slack.Identity) (*repository.Account, error) {
	email := normalizeEmail(ext.Email)

	// Único fallback por email: una cuenta preexistente del mismo email en
	// el tenant destino, siempre que no esté linkeada ya a otro sub.
	if email != "" {
		existing, err := s.accounts.GetByEmail(ctx, t.ID, email)
		if err == nil {
			has, err := s.identities.HasLink(ctx, existing.ID, ProviderSlack)
			if err != nil {
				return nil, err
			}
			if has {
				return nil, ErrAccountProvisioningFailed
			}
			return existing, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	acc := &repository.Account{
		TenantID:        t.ID,
		Email:           ext.Email,
		NormalizedEmail: email,
		DisplayName:     ext.Name,
		AvatarURL:       ext.Picture,
		Role:            repository.RoleMember,
		IsActive:        true,
	}
	if err := s.fillPlaceholderCredential(acc); err != nil {
		return nil, err
	}
	if err := s.accounts.Create(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

func (s *identityService) createLink(ctx context.Context, tenantID, accountID string, ext *slack.Identity) error {
	return s.identities.Create(ctx, &repository.IdentityLink{
		TenantID:       tenantID,
		AccountID:      accountID,
		Provider:       ProviderSlack,
		ProviderUserID: ext.Sub,
		Email:          ext.Email,
		DisplayName:    ext.Name,
	})
}

// refreshProfile actualiza campos mutables en logins repetidos. Los errores
// acá no cortan el login; se loguean y se sigue.
func (s *identityService) refreshProfile(ctx context.Context, log *zap.Logger, acc *repository.Account, link *repository.IdentityLink, ext *slack.Identity) {
	if err := s.identities.UpdateProfile(ctx, link.ID, ext.Email, ext.Name); err != nil {
		log.Warn("identity link profile refresh failed", logger.Err(err))
	}
	email := ""
	if acc.Email == "" {
		email = ext.Email
	}
	if err := s.accounts.UpdateProfile(ctx, acc.ID, ext.Name, ext.Picture, email); err != nil {
		log.Warn("account profile refresh failed", logger.Err(err))
		return
	}
	if ext.Name != "" {
		acc.DisplayName = ext.Name
	}
	if ext.Picture != "" {
		acc.AvatarURL = ext.Picture
	}
	if email != "" {
		acc.Email = email
		acc.NormalizedEmail = normalizeEmail(email)
	}
}

// applyElevatedDomain aplica la allow-list de operadores. Aditivo: setea
// is_super_admin y sube member a admin; nunca degrada admin/owner.
func (s *identityService) applyElevatedDomain(ctx context.Context, log *zap.Logger, acc *repository.Account, ext *slack.Identity) error {
	dom := emailDomain(ext.Email)
	if dom == "" {
		return nil
	}
	if _, ok := s.elevated[dom]; !ok {
		return nil
	}
	if acc.IsSuperAdmin && acc.Role != repository.RoleMember {
		return nil
	}
	if err := s.accounts.Elevate(ctx, acc.ID); err != nil {
		return err
	}
	acc.IsSuperAdmin = true
	if acc.Role == repository.RoleMember {
		acc.Role = repository.RoleAdmin
	}
	log.Info("elevated-domain override applied", logger.UserID(acc.ID))
	return nil
}

func (s *identityService) fillPlaceholderCredential(acc *repository.Account) error {
	// Credencial opaca aleatoria: la cuenta existe solo via social login.
	secret, err := token.GenerateOpaque(32)
	if err != nil {
		return err
	}
	hash, err := password.Hash(password.Default, secret)
	if err != nil {
		return err
	}
	acc.CredentialHash = hash
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

// workspaceNameFor deriva el nombre del workspace nuevo: label del dominio
// del email, o el display name como fallback.
func workspaceNameFor(ext *slack.Identity) string {
	if dom := emailDomain(ext.Email); dom != "" {
		if i := strings.IndexByte(dom, '.'); i > 0 {
			return dom[:i]
		}
		return dom
	}
	return ext.Name
}
