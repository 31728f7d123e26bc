// Package middlewares contiene la cadena de middlewares HTTP: request id,
// logging estructurado, métricas y carga del principal de sesión.
package middlewares

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/dropDatabas3/teampulse/internal/metrics"
	"github.com/dropDatabas3/teampulse/internal/observability/logger"
)

// RequestLogger inyecta un logger scoped con request id en el contexto y
// loguea el request terminado con status y duración.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}

		log := logger.With(
			logger.RequestID(reqID),
			logger.Method(r.Method),
			logger.Path(r.URL.Path),
		)
		ctx := logger.ToContext(r.Context(), log)
		w.Header().Set("X-Request-Id", reqID)

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctx))

		log.Info("request completed",
			logger.Status(ww.Status()),
			logger.Duration(time.Since(start)))
	})
}

// Metrics registra contadores y latencia por ruta. Usa el route pattern de
// chi para no explotar la cardinalidad con paths dinámicos.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		metrics.HTTPRequest(r.Method, pattern, strconv.Itoa(ww.Status()), time.Since(start))
	})
}
