// Package app arma las dependencias y corre el servidor HTTP.
package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/dropDatabas3/teampulse/internal/cache"
	"github.com/dropDatabas3/teampulse/internal/cache/memory"
	"github.com/dropDatabas3/teampulse/internal/cache/redis"
	"github.com/dropDatabas3/teampulse/internal/config"
	authctrl "github.com/dropDatabas3/teampulse/internal/http/controllers/auth"
	healthctrl "github.com/dropDatabas3/teampulse/internal/http/controllers/health"
	sessiondto "github.com/dropDatabas3/teampulse/internal/http/dto/session"
	"github.com/dropDatabas3/teampulse/internal/http/router"
	authsvc "github.com/dropDatabas3/teampulse/internal/http/services/auth"
	"github.com/dropDatabas3/teampulse/internal/http/services/authstate"
	"github.com/dropDatabas3/teampulse/internal/http/services/identity"
	"github.com/dropDatabas3/teampulse/internal/http/services/session"
	"github.com/dropDatabas3/teampulse/internal/http/services/tenant"
	"github.com/dropDatabas3/teampulse/internal/oauth/slack"
	"github.com/dropDatabas3/teampulse/internal/observability/logger"
	"github.com/dropDatabas3/teampulse/internal/store/pg"
)

// Run levanta el servicio completo y bloquea hasta SIGINT/SIGTERM.
func Run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.L()

	store, err := pg.New(ctx, pg.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MinIdleConns:    cfg.Database.MinIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime.Std(),
	})
	if err != nil {
		return err
	}
	defer store.Close()

	sessionStore, redisCache := buildCache(cfg)
	if redisCache != nil {
		defer redisCache.Close()
	}

	oidc := buildOIDC(cfg)

	states := authstate.New(authstate.Deps{
		States: store.AuthStates(),
		TTL:    cfg.Auth.StateTTL.Std(),
	})
	tenants := tenant.New(tenant.Deps{Tenants: store.Tenants()})
	resolver := identity.New(identity.Deps{
		Tenants:         tenants,
		Accounts:        store.Accounts(),
		Identities:      store.Identities(),
		ElevatedDomains: cfg.Auth.ElevatedDomains,
	})
	sessions := session.New(session.Deps{
		Store: sessionStore,
		Cookie: sessiondto.CookieConfig{
			Name:     cfg.Session.CookieName,
			Domain:   cfg.Session.CookieDomain,
			SameSite: cfg.Session.SameSite,
			Secure:   cfg.Session.Secure,
			TTL:      cfg.Session.TTL.Std(),
		},
	})
	flow := authsvc.New(authsvc.Deps{
		States:           states,
		OIDC:             oidc,
		Tenants:          tenants,
		Resolver:         resolver,
		Sessions:         sessions,
		AdminLandingPath: cfg.Auth.AdminLandingPath,
	})

	go states.RunGC(logger.ToContext(ctx, log), cfg.Auth.GCInterval.Std())

	readiness := map[string]healthctrl.Pinger{"database": store}
	if redisCache != nil {
		readiness["cache"] = redisCache
	}

	handler := router.New(router.Deps{
		Auth:     authctrl.New(flow, sessions),
		Health:   healthctrl.New(readiness),
		Sessions: sessions,
	})

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout.Std(),
		WriteTimeout: cfg.HTTP.WriteTimeout.Std(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", logger.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout.Std())
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func buildCache(cfg *config.Config) (cache.Cache, *redis.Cache) {
	if cfg.Cache.Backend == "redis" {
		r := redis.New(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		return r, r
	}
	return memory.New(cfg.Session.TTL.Std()), nil
}

func buildOIDC(cfg *config.Config) *slack.OIDC {
	var opts []slack.Option
	if cfg.Slack.DiscoveryURL != "" {
		opts = append(opts, slack.WithDiscoveryURL(cfg.Slack.DiscoveryURL))
	}
	return slack.New(cfg.Slack.ClientID, cfg.Slack.ClientSecret, cfg.Slack.RedirectURL, opts...)
}
