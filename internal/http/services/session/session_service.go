// Package session administra las sesiones server-side: commit con
// regeneración de id, verificación post-commit y logout.
package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	dto "github.com/dropDatabas3/teampulse/internal/http/dto/session"
)

// Service administra el ciclo de vida de la sesión.
type Service interface {
	// Commit emite SIEMPRE un session id nuevo (previene session fixation),
	// destruye la sesión previa si la hay y persiste el payload.
	Commit(ctx context.Context, userID, tenantID, tenantSlug, priorSessionID string) (sessionID string, err error)

	// Verify relee la sesión recién escrita. El flujo de login no debe
	// redirigir si esta lectura falla.
	Verify(ctx context.Context, sessionID string) error

	// Get carga el payload de una sesión vigente. ErrSessionNotFound si no
	// existe o expiró.
	Get(ctx context.Context, sessionID string) (*dto.Payload, error)

	// Logout destruye la sesión. El endpoint HTTP reporta éxito aunque el
	// destroy falle; el error acá es solo para loguear.
	Logout(ctx context.Context, sessionID string) error

	// Cookie construye la cookie de sesión para un session id.
	Cookie(sessionID string) *http.Cookie

	// DeletionCookie construye la cookie que borra la sesión en el browser.
	DeletionCookie() *http.Cookie

	// TTL expone la duración configurada de la sesión.
	TTL() time.Duration

	// CookieName expone el nombre de la cookie, para el middleware.
	CookieName() string
}

var (
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionCommitFailed indica que la verificación post-commit falló.
	ErrSessionCommitFailed = errors.New("session commit verification failed")
)
