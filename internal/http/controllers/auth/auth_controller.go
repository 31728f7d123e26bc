// Package auth expone los endpoints HTTP del flujo de login.
package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	authdto "github.com/dropDatabas3/teampulse/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/teampulse/internal/http/errors"
	"github.com/dropDatabas3/teampulse/internal/http/middlewares"
	authsvc "github.com/dropDatabas3/teampulse/internal/http/services/auth"
	"github.com/dropDatabas3/teampulse/internal/http/services/authstate"
	"github.com/dropDatabas3/teampulse/internal/http/services/identity"
	"github.com/dropDatabas3/teampulse/internal/http/services/session"
	"github.com/dropDatabas3/teampulse/internal/http/services/tenant"
	"github.com/dropDatabas3/teampulse/internal/observability/logger"
)

// Controller maneja login, callback, logout y el endpoint de principal.
type Controller struct {
	flow     authsvc.Service
	sessions session.Service
}

// New crea el Controller.
func New(flow authsvc.Service, sessions session.Service) *Controller {
	return &Controller{flow: flow, sessions: sessions}
}

// BeginLogin maneja GET /v1/auth/login?workspace=<slug|new>.
// Responde 302 al authorize de Slack, o JSON con la URL si el cliente pide
// application/json.
func (c *Controller) BeginLogin(w http.ResponseWriter, r *http.Request) {
	hint := strings.TrimSpace(r.URL.Query().Get("workspace"))
	if hint == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("missing workspace parameter"))
		return
	}

	url, err := c.flow.BeginLogin(r.Context(), hint)
	if err != nil {
		c.writeFlowError(w, r, err)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, authdto.BeginLoginResponse{AuthorizationURL: url})
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// Callback maneja GET /v1/auth/callback?code&state[&error].
func (c *Controller) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := authsvc.CallbackInput{
		Code:          q.Get("code"),
		State:         q.Get("state"),
		ProviderError: q.Get("error"),
	}
	if in.ProviderError == "" && (in.Code == "" || in.State == "") {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("missing code or state parameter"))
		return
	}

	if cookie, err := r.Cookie(c.sessions.CookieName()); err == nil {
		in.PriorSessionID = cookie.Value
	}
	if p := middlewares.PrincipalFrom(r.Context()); p.Authenticated() {
		in.SessionAuthTenantID = p.TenantID
	}

	res, err := c.flow.Callback(r.Context(), in)
	if err != nil {
		c.writeFlowError(w, r, err)
		return
	}

	http.SetCookie(w, c.sessions.Cookie(res.SessionID))
	http.Redirect(w, r, res.RedirectTo, http.StatusFound)
}

// Logout maneja POST /v1/session/logout. Reporta éxito aunque el destroy
// falle: el contrato de logout es "ya no estás autenticado".
func (c *Controller) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(c.sessions.CookieName()); err == nil && cookie.Value != "" {
		if err := c.sessions.Logout(r.Context(), cookie.Value); err != nil {
			logger.From(r.Context()).Warn("logout destroy failed", logger.Err(err))
		}
	}
	http.SetCookie(w, c.sessions.DeletionCookie())
	w.WriteHeader(http.StatusNoContent)
}

// Me maneja GET /v1/session/me: la tripleta de la sesión para colaboradores.
func (c *Controller) Me(w http.ResponseWriter, r *http.Request) {
	p := middlewares.PrincipalFrom(r.Context())
	if !p.Authenticated() {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, authdto.MeResponse{
		UserID:     p.UserID,
		TenantID:   p.TenantID,
		TenantSlug: p.TenantSlug,
	})
}

// writeFlowError mapea errores de servicio a AppError. El detalle interno
// solo va a logs; el usuario recibe el mensaje genérico del código.
func (c *Controller) writeFlowError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := mapFlowError(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.From(r.Context()).Error("login flow failed", logger.Err(err))
	} else {
		logger.From(r.Context()).Warn("login flow rejected", logger.Err(err))
	}
	httperrors.WriteError(w, appErr)
}

func mapFlowError(err error) *httperrors.AppError {
	switch {
	case errors.Is(err, authstate.ErrStateNotFound),
		errors.Is(err, authstate.ErrStateExpired),
		errors.Is(err, authstate.ErrStateAlreadyConsumed):
		return httperrors.ErrLoginStateInvalid
	case errors.Is(err, authsvc.ErrProviderDenied):
		return httperrors.ErrUnauthorized.WithDetail("the provider rejected the sign-in attempt")
	case errors.Is(err, authsvc.ErrIdentityInvalid):
		return httperrors.ErrUnauthorized
	case errors.Is(err, identity.ErrTenantNotFound), errors.Is(err, tenant.ErrTenantNotFound):
		return httperrors.ErrWorkspaceNotFound
	case errors.Is(err, identity.ErrWorkspaceMismatch):
		return httperrors.ErrWorkspaceMismatch
	case errors.Is(err, identity.ErrIdentityBoundToAnotherTenant):
		return httperrors.ErrIdentityInUse
	case errors.Is(err, authsvc.ErrProviderExchange),
		errors.Is(err, identity.ErrAccountProvisioningFailed),
		errors.Is(err, tenant.ErrSlugAllocationFailed),
		errors.Is(err, session.ErrSessionCommitFailed):
		return httperrors.ErrInternalServerError.WithCause(err)
	default:
		return httperrors.ErrInternalServerError.WithCause(err)
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
