// Package slack implementa el relying party OIDC contra Slack
// (openid.connect). Descubre endpoints, cachea JWKS y verifica id_tokens.
package slack

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

const (
	defaultDiscoveryURL = "https://slack.com/.well-known/openid-configuration"
	expectedIssuer      = "https://slack.com"

	// Claims namespaced de Slack en el id_token.
	claimTeamID = "https://slack.com/team_id"
	claimUserID = "https://slack.com/user_id"
)

// Scopes que pide el flujo de sign-in.
var DefaultScopes = []string{"openid", "profile", "email"}

type discoveryDoc struct {
	Issuer        string `json:"issuer"`
	AuthEndpoint  string `json:"authorization_endpoint"`
	TokenEndpoint string `json:"token_endpoint"`
	JWKSURI       string `json:"jwks_uri"`
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"` // base64url
	E   string `json:"e"` // base64url
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

// TokenResponse es la respuesta del token endpoint. Los campos fuera del
// id_token firmado no se usan para decisiones de autorización.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
}

// Identity son los claims verificados del id_token.
type Identity struct {
	Sub           string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
	WorkspaceID   string // team_id del workspace de Slack
	Nonce         string
}

// ProviderError preserva el código de error del proveedor para logs.
// El código nunca se muestra al usuario final.
type ProviderError struct {
	Status      int
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider http %d: %s %s", e.Status, e.Code, e.Description)
}

// OIDC es el cliente de sign-in contra Slack.
type OIDC struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	discoveryURL string
	http         *http.Client

	mu    sync.RWMutex
	disc  *discoveryDoc
	discU time.Time

	keys     *jwks
	keysAt   time.Time
	keysETag string

	fetch singleflight.Group
}

// Option configura el cliente.
type Option func(*OIDC)

// WithDiscoveryURL reemplaza el endpoint de discovery (tests).
func WithDiscoveryURL(u string) Option {
	return func(o *OIDC) { o.discoveryURL = u }
}

// WithHTTPClient reemplaza el http.Client (tests, timeouts custom).
func WithHTTPClient(c *http.Client) Option {
	return func(o *OIDC) { o.http = c }
}

// New crea el cliente. El timeout corto evita que un proveedor lento
// retenga la conexión del callback.
func New(clientID, clientSecret, redirectURL string, opts ...Option) *OIDC {
	o := &OIDC{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       DefaultScopes,
		discoveryURL: defaultDiscoveryURL,
		http:         &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *OIDC) discovery(ctx context.Context) (*discoveryDoc, error) {
	o.mu.RLock()
	disc := o.disc
	stale := time.Since(o.discU) > 24*time.Hour
	o.mu.RUnlock()
	if disc != nil && !stale {
		return disc, nil
	}

	v, err, _ := o.fetch.Do("discovery", func() (any, error) {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, o.discoveryURL, nil)
		resp, err := o.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode/100 != 2 {
			return nil, fmt.Errorf("discovery http %d", resp.StatusCode)
		}
		var dd discoveryDoc
		if err := json.NewDecoder(resp.Body).Decode(&dd); err != nil {
			return nil, err
		}
		o.mu.Lock()
		o.disc = &dd
		o.discU = time.Now()
		o.mu.Unlock()
		return &dd, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*discoveryDoc), nil
}

func (o *OIDC) getJWKS(ctx context.Context, uri string) (*jwks, error) {
	o.mu.RLock()
	k := o.keys
	age := time.Since(o.keysAt)
	o.mu.RUnlock()
	if k != nil && age < time.Hour {
		return k, nil
	}

	v, err, _ := o.fetch.Do("jwks", func() (any, error) {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
		o.mu.RLock()
		if o.keysETag != "" {
			req.Header.Set("If-None-Match", o.keysETag)
		}
		o.mu.RUnlock()

		resp, err := o.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotModified {
			o.mu.Lock()
			out := o.keys
			o.keysAt = time.Now()
			o.mu.Unlock()
			return out, nil
		}
		if resp.StatusCode/100 != 2 {
			return nil, fmt.Errorf("jwks http %d", resp.StatusCode)
		}
		var jj jwks
		if err := json.NewDecoder(resp.Body).Decode(&jj); err != nil {
			return nil, err
		}
		o.mu.Lock()
		o.keys = &jj
		o.keysAt = time.Now()
		o.keysETag = resp.Header.Get("ETag")
		o.mu.Unlock()
		return &jj, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*jwks), nil
}

func (o *OIDC) rsaKeyForKid(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	disc, err := o.discovery(ctx)
	if err != nil {
		return nil, err
	}
	keys, err := o.getJWKS(ctx, disc.JWKSURI)
	if err != nil {
		return nil, err
	}
	for _, k := range keys.Keys {
		if k.Kid != kid || !strings.EqualFold(k.Kty, "RSA") {
			continue
		}
		nb, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			return nil, err
		}
		eb, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			return nil, err
		}
		e := 0
		for _, b := range eb {
			e = (e << 8) | int(b)
		}
		if e == 0 {
			e = 65537
		}
		return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}, nil
	}
	return nil, errors.New("kid not found in jwks")
}

// AuthURL construye la URL de autorización con state y nonce.
func (o *OIDC) AuthURL(ctx context.Context, state, nonce string) (string, error) {
	disc, err := o.discovery(ctx)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(disc.AuthEndpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", o.ClientID)
	q.Set("redirect_uri", o.RedirectURL)
	q.Set("scope", strings.Join(o.Scopes, " "))
	q.Set("state", state)
	q.Set("nonce", nonce)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ExchangeCode canjea el authorization code por tokens.
// En error del proveedor retorna *ProviderError con el código para logs.
func (o *OIDC) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	disc, err := o.discovery(ctx)
	if err != nil {
		return nil, err
	}
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", o.ClientID)
	form.Set("client_secret", o.ClientSecret)
	form.Set("redirect_uri", o.RedirectURL)

	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, disc.TokenEndpoint, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := o.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		var b struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&b)
		return nil, &ProviderError{Status: resp.StatusCode, Code: b.Error, Description: b.ErrorDescription}
	}
	var tr TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, err
	}
	if tr.IDToken == "" {
		return nil, errors.New("token response missing id_token")
	}
	return &tr, nil
}

// VerifyIDToken valida firma, iss, aud, exp y nonce, y extrae los claims.
// Solo los claims del token firmado alimentan decisiones de autorización.
func (o *OIDC) VerifyIDToken(ctx context.Context, idToken, expectedNonce string) (*Identity, error) {
	parts := strings.Split(idToken, ".")
	if len(parts) != 3 {
		return nil, errors.New("bad jwt format")
	}
	hb, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, err
	}
	var header struct {
		Alg string `json:"alg"`
		Kid string `json:"kid"`
	}
	if err := json.Unmarshal(hb, &header); err != nil {
		return nil, err
	}
	if header.Alg != "RS256" {
		return nil, fmt.Errorf("unexpected alg: %s", header.Alg)
	}

	key, err := o.rsaKeyForKid(ctx, header.Kid)
	if err != nil {
		return nil, err
	}
	tok, err := jwtv5.Parse(idToken,
		func(t *jwtv5.Token) (any, error) { return key, nil },
		jwtv5.WithValidMethods([]string{"RS256"}),
	)
	if err != nil || !tok.Valid {
		return nil, errors.New("invalid id_token")
	}
	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, errors.New("unexpected claims type")
	}

	if iss, _ := claims["iss"].(string); iss != expectedIssuer {
		return nil, fmt.Errorf("bad iss: %s", iss)
	}
	if !audMatches(claims["aud"], o.ClientID) {
		return nil, errors.New("bad aud")
	}
	if expectedNonce != "" {
		if got, _ := claims["nonce"].(string); got != expectedNonce {
			return nil, errors.New("bad nonce")
		}
	}
	if expf, ok := claims["exp"].(float64); ok {
		// 30s de gracia por clock skew
		if time.Unix(int64(expf), 0).Before(time.Now().Add(-30 * time.Second)) {
			return nil, errors.New("id_token expired")
		}
	}

	id := &Identity{
		Sub:           strClaim(claims, "sub"),
		Email:         strClaim(claims, "email"),
		EmailVerified: boolClaim(claims, "email_verified"),
		Name:          strClaim(claims, "name"),
		Picture:       strClaim(claims, "picture"),
		WorkspaceID:   strClaim(claims, claimTeamID),
		Nonce:         strClaim(claims, "nonce"),
	}
	if id.Sub == "" {
		return nil, errors.New("id_token missing sub")
	}
	return id, nil
}

func audMatches(aud any, clientID string) bool {
	switch a := aud.(type) {
	case string:
		return a == clientID
	case []any:
		for _, v := range a {
			if s, _ := v.(string); s == clientID {
				return true
			}
		}
	}
	return false
}

func strClaim(m jwtv5.MapClaims, k string) string {
	s, _ := m[k].(string)
	return s
}

func boolClaim(m jwtv5.MapClaims, k string) bool {
	b, _ := m[k].(bool)
	return b
}
