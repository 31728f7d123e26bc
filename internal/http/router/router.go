// Package router arma el árbol de rutas y la cadena de middlewares.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authctrl "github.com/dropDatabas3/teampulse/internal/http/controllers/auth"
	healthctrl "github.com/dropDatabas3/teampulse/internal/http/controllers/health"
	httperrors "github.com/dropDatabas3/teampulse/internal/http/errors"
	"github.com/dropDatabas3/teampulse/internal/http/middlewares"
	"github.com/dropDatabas3/teampulse/internal/http/services/session"
)

// Deps son los controllers y servicios que el router necesita.
type Deps struct {
	Auth     *authctrl.Controller
	Health   *healthctrl.Controller
	Sessions session.Service
}

// New construye el http.Handler raíz.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middlewares.RequestLogger)
	r.Use(middlewares.Metrics)
	r.Use(middlewares.SessionLoader(d.Sessions))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	r.Get("/healthz", d.Health.Healthz)
	r.Get("/readyz", d.Health.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Get("/login", d.Auth.BeginLogin)
			r.Get("/callback", d.Auth.Callback)
		})
		r.Route("/session", func(r chi.Router) {
			r.Post("/logout", d.Auth.Logout)
			r.Get("/me", d.Auth.Me)
		})
	})

	return r
}
