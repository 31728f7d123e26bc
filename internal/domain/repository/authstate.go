package repository

import (
	"context"
	"time"
)

// PendingAuthState es el registro single-use que ata un begin-login con su
// callback. Se persiste hasheado; la transición unconsumed → consumed ocurre
// exactamente una vez (CAS en un solo UPDATE).
type PendingAuthState struct {
	TokenHash  string
	TenantHint string
	Nonce      string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Consumed   bool
}

// AuthStateRepository define operaciones sobre estados pendientes de login.
type AuthStateRepository interface {
	// Create inserta un estado pendiente.
	Create(ctx context.Context, state *PendingAuthState) error

	// Consume marca el estado como consumido si y solo si no lo estaba,
	// en un único statement atómico, y retorna la fila resultante.
	// ErrNotFound si el hash no existe o ya estaba consumido; el caller
	// distingue ambos casos con Get.
	Consume(ctx context.Context, tokenHash string) (*PendingAuthState, error)

	// Get lee un estado sin mutarlo (para distinguir not-found de consumed).
	Get(ctx context.Context, tokenHash string) (*PendingAuthState, error)

	// DeleteExpired borra estados cuyo expires_at quedó atrás del horizonte.
	// Retorna la cantidad eliminada.
	DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}
