package session

import "time"

// Payload es el registro de sesión que se serializa al session store.
// El resto de la aplicación solo necesita la tripleta user/tenant/slug;
// la ausencia de cualquiera de las tres significa "no autenticado".
type Payload struct {
	UserID     string    `json:"user_id"`
	TenantID   string    `json:"tenant_id"`
	TenantSlug string    `json:"tenant_slug"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// CookieConfig define cómo se emite la cookie de sesión.
type CookieConfig struct {
	Name     string
	Domain   string
	SameSite string // "Lax" | "Strict" | "None"
	Secure   bool
	TTL      time.Duration
}
