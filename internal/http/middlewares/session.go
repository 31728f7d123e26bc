package middlewares

import (
	"context"
	"net/http"

	"github.com/dropDatabas3/teampulse/internal/http/services/session"
)

type principalKey struct{}

// Principal es la tripleta que consume el resto de la aplicación. La
// ausencia de cualquiera de los tres campos significa "no autenticado".
type Principal struct {
	UserID     string
	TenantID   string
	TenantSlug string
	SessionID  string
}

// Authenticated indica si el principal está completo.
func (p *Principal) Authenticated() bool {
	return p != nil && p.UserID != "" && p.TenantID != "" && p.TenantSlug != ""
}

// PrincipalFrom extrae el principal del contexto; nil si no hay sesión.
func PrincipalFrom(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}

// SessionLoader lee la cookie de sesión y, si la sesión es válida, expone el
// principal en el contexto. Nunca rechaza el request por sí mismo; eso es
// decisión de cada handler.
func SessionLoader(sessions session.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(sessions.CookieName())
			if err != nil || c.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			p, err := sessions.Get(r.Context(), c.Value)
			if err != nil {
				// Sesión inexistente o backend caído: seguir como anónimo,
				// los handlers protegidos responden 401.
				next.ServeHTTP(w, r)
				return
			}

			principal := &Principal{
				UserID:     p.UserID,
				TenantID:   p.TenantID,
				TenantSlug: p.TenantSlug,
				SessionID:  c.Value,
			}
			ctx := context.WithValue(r.Context(), principalKey{}, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
