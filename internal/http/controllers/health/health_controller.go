// Package health expone los probes de liveness y readiness.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger es cualquier dependencia con un health check propio.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Controller responde /healthz y /readyz.
type Controller struct {
	deps map[string]Pinger
}

// New crea el Controller. deps mapea nombre → dependencia a chequear en
// readiness (db, cache).
func New(deps map[string]Pinger) *Controller {
	return &Controller{deps: deps}
}

// Healthz es el liveness probe: el proceso responde.
func (c *Controller) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz chequea cada dependencia con timeout corto. Cualquier falla
// responde 503 con el detalle por dependencia.
func (c *Controller) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(c.deps))
	for name, dep := range c.deps {
		if err := dep.Ping(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	writeStatus(w, status, checks)
}

func writeStatus(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
