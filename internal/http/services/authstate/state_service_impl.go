package authstate

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/teampulse/internal/domain/repository"
	"github.com/dropDatabas3/teampulse/internal/observability/logger"
	"github.com/dropDatabas3/teampulse/internal/security/token"
)

// Deps contiene las dependencias del servicio.
type Deps struct {
	States repository.AuthStateRepository
	TTL    time.Duration // default 10m
}

type stateService struct {
	states repository.AuthStateRepository
	ttl    time.Duration
}

// New crea el Service.
func New(d Deps) Service {
	ttl := d.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &stateService{states: d.States, ttl: ttl}
}

func (s *stateService) Issue(ctx context.Context, tenantHint string) (string, string, error) {
	// 32 bytes = 256 bits de entropía para el token; 16 para el nonce.
	tok, err := token.GenerateOpaque(32)
	if err != nil {
		return "", "", err
	}
	nonce, err := token.GenerateOpaque(16)
	if err != nil {
		return "", "", err
	}

	now := time.Now().UTC()
	err = s.states.Create(ctx, &repository.PendingAuthState{
		TokenHash:  token.SHA256Base64URL(tok),
		TenantHint: tenantHint,
		Nonce:      nonce,
		IssuedAt:   now,
		ExpiresAt:  now.Add(s.ttl),
	})
	if err != nil {
		return "", "", err
	}
	return tok, nonce, nil
}

func (s *stateService) ValidateAndConsume(ctx context.Context, tok string) (*PendingState, error) {
	hash := token.SHA256Base64URL(tok)

	rec, err := s.states.Consume(ctx, hash)
	if err == nil {
		if time.Now().UTC().After(rec.ExpiresAt) {
			// La fila quedó consumida, pero un token vencido es terminal
			// igual; el GC la levanta después.
			return nil, ErrStateExpired
		}
		return &PendingState{TenantHint: rec.TenantHint, Nonce: rec.Nonce}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	// El CAS no encontró fila consumible: distinguir inexistente de reusado.
	existing, getErr := s.states.Get(ctx, hash)
	if errors.Is(getErr, repository.ErrNotFound) {
		return nil, ErrStateNotFound
	}
	if getErr != nil {
		return nil, getErr
	}
	if existing.Consumed {
		return nil, ErrStateAlreadyConsumed
	}
	return nil, ErrStateNotFound
}

func (s *stateService) RunGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	log := logger.From(ctx).With(logger.Component("authstate.gc"))

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			// Retención acotada: ttl de margen después del vencimiento.
			n, err := s.states.DeleteExpired(ctx, s.ttl)
			if err != nil {
				log.Warn("auth state gc failed", logger.Err(err))
				continue
			}
			if n > 0 {
				log.Debug("auth states purged", logger.Int("count", int(n)))
			}
		}
	}
}
