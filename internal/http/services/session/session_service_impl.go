package session

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dropDatabas3/teampulse/internal/cache"
	dto "github.com/dropDatabas3/teampulse/internal/http/dto/session"
	"github.com/dropDatabas3/teampulse/internal/observability/logger"
	"github.com/dropDatabas3/teampulse/internal/security/token"
)

const keyPrefix = "sid:"

// Deps contiene las dependencias del servicio.
type Deps struct {
	Store  cache.Cache
	Cookie dto.CookieConfig // TTL default 24h, Name default "tp_session"
}

type sessionService struct {
	store  cache.Cache
	cookie dto.CookieConfig
}

// New crea el Service.
func New(d Deps) Service {
	if d.Cookie.Name == "" {
		d.Cookie.Name = "tp_session"
	}
	if d.Cookie.TTL <= 0 {
		d.Cookie.TTL = 24 * time.Hour
	}
	return &sessionService{store: d.Store, cookie: d.Cookie}
}

// cacheKey hashea el session id: el store nunca ve el id en claro.
func cacheKey(sessionID string) string {
	return keyPrefix + token.SHA256Base64URL(sessionID)
}

func (s *sessionService) Commit(ctx context.Context, userID, tenantID, tenantSlug, priorSessionID string) (string, error) {
	log := logger.From(ctx).With(logger.Component("session.service"), logger.Op("Commit"))

	// Id fresco en cada commit; la sesión anónima o vieja muere acá.
	if priorSessionID != "" {
		if err := s.store.Delete(cacheKey(priorSessionID)); err != nil {
			log.Warn("prior session delete failed", logger.Err(err))
		}
	}
	sessionID, err := token.GenerateOpaque(32)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	payload, err := json.Marshal(dto.Payload{
		UserID:     userID,
		TenantID:   tenantID,
		TenantSlug: tenantSlug,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.cookie.TTL),
	})
	if err != nil {
		return "", err
	}

	s.store.Set(cacheKey(sessionID), payload, s.cookie.TTL)
	log.Debug("session committed", logger.UserID(userID), logger.TenantID(tenantID))
	return sessionID, nil
}

func (s *sessionService) Verify(ctx context.Context, sessionID string) error {
	p, err := s.Get(ctx, sessionID)
	if err != nil {
		return ErrSessionCommitFailed
	}
	if p.UserID == "" || p.TenantID == "" || p.TenantSlug == "" {
		return ErrSessionCommitFailed
	}
	return nil
}

func (s *sessionService) Get(_ context.Context, sessionID string) (*dto.Payload, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}
	raw, ok := s.store.Get(cacheKey(sessionID))
	if !ok {
		return nil, ErrSessionNotFound
	}
	var p dto.Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, ErrSessionNotFound
	}
	if time.Now().UTC().After(p.ExpiresAt) {
		return nil, ErrSessionNotFound
	}
	return &p, nil
}

func (s *sessionService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.store.Delete(cacheKey(sessionID)); err != nil {
		logger.From(ctx).Warn("session destroy failed",
			logger.Component("session.service"), logger.Err(err))
		return err
	}
	return nil
}

func (s *sessionService) Cookie(sessionID string) *http.Cookie {
	return &http.Cookie{
		Name:     s.cookie.Name,
		Value:    sessionID,
		Path:     "/",
		Domain:   s.cookie.Domain,
		MaxAge:   int(s.cookie.TTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cookie.Secure,
		SameSite: sameSite(s.cookie.SameSite),
	}
}

func (s *sessionService) DeletionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     s.cookie.Name,
		Value:    "",
		Path:     "/",
		Domain:   s.cookie.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookie.Secure,
		SameSite: sameSite(s.cookie.SameSite),
	}
}

func (s *sessionService) TTL() time.Duration { return s.cookie.TTL }

func sameSite(v string) http.SameSite {
	switch v {
	case "Strict":
		return http.SameSiteStrictMode
	case "None":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// CookieName expone el nombre configurado, para el middleware.
func (s *sessionService) CookieName() string { return s.cookie.Name }
