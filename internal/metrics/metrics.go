// Package metrics registra los contadores prometheus del servicio.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resultados del flujo de login para la label result.
const (
	ResultSuccess          = "success"
	ResultStateInvalid     = "state_invalid"
	ResultProviderError    = "provider_error"
	ResultIdentityInvalid  = "identity_invalid"
	ResultTenantNotFound   = "tenant_not_found"
	ResultWorkspaceDenied  = "workspace_denied"
	ResultIdentityConflict = "identity_conflict"
	ResultProvisionFailed  = "provision_failed"
	ResultSessionFailed    = "session_failed"
	ResultInternalError    = "internal_error"
)

var (
	LoginFlowsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "teampulse",
		Name:      "login_flows_started_total",
		Help:      "Login flows started (state issued).",
	})

	loginFlowsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "teampulse",
		Name:      "login_flows_completed_total",
		Help:      "Login callbacks finished, by result.",
	}, []string{"result"})

	loginFlowDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "teampulse",
		Name:      "login_flow_duration_seconds",
		Help:      "Callback handling duration, provider round-trips included.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "teampulse",
		Name:      "http_requests_total",
		Help:      "HTTP requests, by method, route pattern and status.",
	}, []string{"method", "path", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "teampulse",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration, by method and route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// LoginFlowCompleted registra el resultado y la duración de un callback.
func LoginFlowCompleted(result string, elapsed time.Duration) {
	loginFlowsCompleted.WithLabelValues(result).Inc()
	loginFlowDuration.Observe(elapsed.Seconds())
}

// HTTPRequest registra un request HTTP terminado.
func HTTPRequest(method, path, status string, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, path, status).Inc()
	httpDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}
