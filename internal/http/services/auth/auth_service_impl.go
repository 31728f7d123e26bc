package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/teampulse/internal/http/services/authstate"
	"github.com/dropDatabas3/teampulse/internal/http/services/identity"
	"github.com/dropDatabas3/teampulse/internal/http/services/session"
	"github.com/dropDatabas3/teampulse/internal/http/services/tenant"
	"github.com/dropDatabas3/teampulse/internal/metrics"
	"github.com/dropDatabas3/teampulse/internal/oauth/slack"
	"github.com/dropDatabas3/teampulse/internal/observability/logger"

	"go.uber.org/zap"
)

// Deps contiene las dependencias del servicio.
type Deps struct {
	States   authstate.Service
	OIDC     *slack.OIDC
	Tenants  tenant.Service
	Resolver identity.Service
	Sessions session.Service

	// AdminLandingPath es el destino post-login de super-admins
	// (selección de workspace). Default "/admin/workspaces".
	AdminLandingPath string
}

type authService struct {
	states       authstate.Service
	oidc         *slack.OIDC
	tenants      tenant.Service
	resolver     identity.Service
	sessions     session.Service
	adminLanding string
}

// New crea el Service.
func New(d Deps) Service {
	if d.AdminLandingPath == "" {
		d.AdminLandingPath = "/admin/workspaces"
	}
	return &authService{
		states:       d.States,
		oidc:         d.OIDC,
		tenants:      d.Tenants,
		resolver:     d.Resolver,
		sessions:     d.Sessions,
		adminLanding: d.AdminLandingPath,
	}
}

func (s *authService) BeginLogin(ctx context.Context, workspaceHint string) (string, error) {
	log := logger.From(ctx).With(logger.Component("auth.flow"), logger.Op("BeginLogin"))

	// Pre-validar el hint para fallar antes del round-trip al proveedor.
	if workspaceHint != authstate.HintNewWorkspace {
		if _, err := s.tenants.FindBySlug(ctx, workspaceHint); err != nil {
			return "", err
		}
	}

	state, nonce, err := s.states.Issue(ctx, workspaceHint)
	if err != nil {
		return "", err
	}
	url, err := s.oidc.AuthURL(ctx, state, nonce)
	if err != nil {
		return "", err
	}

	metrics.LoginFlowsStarted.Inc()
	log.Info("login flow started", logger.String("workspace_hint", workspaceHint))
	return url, nil
}

func (s *authService) Callback(ctx context.Context, in CallbackInput) (*CallbackResult, error) {
	start := time.Now()
	log := logger.From(ctx).With(logger.Component("auth.flow"), logger.Op("Callback"))

	res, err := s.runCallback(ctx, log, in)
	metrics.LoginFlowCompleted(resultLabel(err), time.Since(start))
	return res, err
}

func (s *authService) runCallback(ctx context.Context, log *zap.Logger, in CallbackInput) (*CallbackResult, error) {
	// El proveedor ya reportó el error: corto-circuito, no se lo contacta.
	if in.ProviderError != "" {
		log.Warn("provider error on callback", logger.String("provider_error", in.ProviderError))
		return nil, ErrProviderDenied
	}

	pending, err := s.states.ValidateAndConsume(ctx, in.State)
	if err != nil {
		return nil, err
	}

	tokens, err := s.oidc.ExchangeCode(ctx, in.Code)
	if err != nil {
		// El código del proveedor queda en logs, nunca en la respuesta.
		log.Error("code exchange failed", logger.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrProviderExchange, err)
	}

	ident, err := s.oidc.VerifyIDToken(ctx, tokens.IDToken, pending.Nonce)
	if err != nil {
		log.Error("id token verification failed", logger.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrIdentityInvalid, err)
	}

	resolved, err := s.resolver.Resolve(ctx, pending.TenantHint, ident, in.SessionAuthTenantID)
	if err != nil {
		return nil, err
	}

	sessionID, err := s.sessions.Commit(ctx, resolved.Account.ID, resolved.TenantID, resolved.TenantSlug, in.PriorSessionID)
	if err != nil {
		log.Error("session commit failed", logger.Err(err))
		return nil, session.ErrSessionCommitFailed
	}
	// Releer antes de redirigir: un commit no verificado jamás produce un
	// redirect de éxito.
	if err := s.sessions.Verify(ctx, sessionID); err != nil {
		log.Error("session verification failed", logger.Err(err))
		return nil, session.ErrSessionCommitFailed
	}

	redirect := fmt.Sprintf("/%s/dashboard", resolved.TenantSlug)
	if resolved.Account.IsSuperAdmin {
		redirect = s.adminLanding
	}

	log.Info("login flow completed",
		logger.UserID(resolved.Account.ID),
		logger.TenantID(resolved.TenantID),
		logger.TenantSlug(resolved.TenantSlug))
	return &CallbackResult{SessionID: sessionID, RedirectTo: redirect}, nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, authstate.ErrStateNotFound),
		errors.Is(err, authstate.ErrStateExpired),
		errors.Is(err, authstate.ErrStateAlreadyConsumed):
		return metrics.ResultStateInvalid
	case errors.Is(err, ErrProviderDenied), errors.Is(err, ErrProviderExchange):
		return metrics.ResultProviderError
	case errors.Is(err, ErrIdentityInvalid):
		return metrics.ResultIdentityInvalid
	case errors.Is(err, identity.ErrTenantNotFound), errors.Is(err, tenant.ErrTenantNotFound):
		return metrics.ResultTenantNotFound
	case errors.Is(err, identity.ErrWorkspaceMismatch):
		return metrics.ResultWorkspaceDenied
	case errors.Is(err, identity.ErrIdentityBoundToAnotherTenant):
		return metrics.ResultIdentityConflict
	case errors.Is(err, identity.ErrAccountProvisioningFailed), errors.Is(err, tenant.ErrSlugAllocationFailed):
		return metrics.ResultProvisionFailed
	case errors.Is(err, session.ErrSessionCommitFailed):
		return metrics.ResultSessionFailed
	default:
		return metrics.ResultInternalError
	}
}
