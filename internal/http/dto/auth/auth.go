package auth

// BeginLoginResponse se retorna cuando el cliente pide JSON en vez del 302.
type BeginLoginResponse struct {
	AuthorizationURL string `json:"authorization_url"`
}

// MeResponse expone la tripleta de la sesión a los colaboradores.
type MeResponse struct {
	UserID     string `json:"user_id"`
	TenantID   string `json:"tenant_id"`
	TenantSlug string `json:"tenant_slug"`
}
