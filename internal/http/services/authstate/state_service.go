// Package authstate implementa el manejo del state anti-CSRF del login:
// emisión, consumo single-use atómico y garbage collection.
package authstate

import (
	"context"
	"errors"
	"time"
)

// HintNewWorkspace es el valor centinela del tenant hint que significa
// "crear un workspace nuevo" durante el callback.
const HintNewWorkspace = "new"

// PendingState es lo que recupera el callback al consumir un state válido.
type PendingState struct {
	TenantHint string
	Nonce      string
}

// Service emite y consume state tokens de login.
type Service interface {
	// Issue genera un token opaco (>=128 bits), persiste el registro pendiente
	// y retorna token + nonce para atar al id_token.
	Issue(ctx context.Context, tenantHint string) (token, nonce string, err error)

	// ValidateAndConsume valida y consume el token exactamente una vez.
	// La transición unconsumed→consumed es un único statement atómico:
	// de dos callbacks concurrentes con el mismo token, uno gana y el otro
	// recibe ErrStateAlreadyConsumed.
	ValidateAndConsume(ctx context.Context, token string) (*PendingState, error)

	// RunGC borra registros vencidos cada interval hasta que ctx termine.
	RunGC(ctx context.Context, interval time.Duration)
}

// Errores del servicio. Todos son terminales para el flujo en curso.
var (
	ErrStateNotFound        = errors.New("auth state not found")
	ErrStateExpired         = errors.New("auth state expired")
	ErrStateAlreadyConsumed = errors.New("auth state already consumed")
)
