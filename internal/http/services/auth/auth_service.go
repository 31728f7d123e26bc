// Package auth orquesta el flujo de login: begin-login y callback.
// Cada paso es síncrono dentro de un request; no hay máquina de estados
// persistida más allá del registro de auth state.
package auth

import (
	"context"
	"errors"
)

// CallbackInput son los query params que llegan del proveedor.
type CallbackInput struct {
	Code          string
	State         string
	ProviderError string // param "error"; presente ⇒ corto-circuito

	// PriorSessionID es la cookie de sesión previa si la hay (anónima o
	// vieja); Commit la destruye.
	PriorSessionID string

	// SessionAuthTenantID viene de un principal ya autenticado que vincula
	// el provider desde adentro de la app.
	SessionAuthTenantID string
}

// CallbackResult es el resultado de un callback exitoso.
type CallbackResult struct {
	SessionID  string
	RedirectTo string
}

// Service orquesta begin-login y callback.
type Service interface {
	// BeginLogin valida el hint (slug existente o "new"), emite el state y
	// retorna la authorize URL del proveedor.
	BeginLogin(ctx context.Context, workspaceHint string) (authorizeURL string, err error)

	// Callback corre la cadena state → exchange → verify → resolve →
	// commit → verify-commit y retorna sesión + redirect. Todo error es
	// terminal para el intento; nunca se reintenta del lado del servidor.
	Callback(ctx context.Context, in CallbackInput) (*CallbackResult, error)
}

var (
	// ErrProviderDenied cubre el param error del callback (acceso denegado,
	// cancelación del usuario en Slack).
	ErrProviderDenied = errors.New("provider returned an error on callback")

	ErrProviderExchange = errors.New("authorization code exchange failed")
	ErrIdentityInvalid  = errors.New("identity token verification failed")
)
