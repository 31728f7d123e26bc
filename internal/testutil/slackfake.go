package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// SlackFake es un proveedor OIDC de prueba que imita los endpoints de Slack:
// discovery, JWKS y token. Firma id_tokens con una key RSA propia.
type SlackFake struct {
	Server *httptest.Server
	Key    *rsa.PrivateKey
	Kid    string

	// TokenStatus fuerza el status del token endpoint (default 200).
	TokenStatus atomic.Int32

	// NextIDToken es el id_token que devuelve el próximo exchange.
	nextIDToken atomic.Value

	discoveryHits atomic.Int64
	jwksHits      atomic.Int64
}

// NewSlackFake levanta el servidor. Cerrar con Close.
func NewSlackFake(t interface{ Fatalf(string, ...any) }) *SlackFake {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	f := &SlackFake{Key: key, Kid: "test-key-1"}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		f.discoveryHits.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"issuer":                 "https://slack.com",
			"authorization_endpoint": f.Server.URL + "/openid/connect/authorize",
			"token_endpoint":         f.Server.URL + "/api/openid.connect.token",
			"jwks_uri":               f.Server.URL + "/openid/connect/keys",
		})
	})
	mux.HandleFunc("/openid/connect/keys", func(w http.ResponseWriter, _ *http.Request) {
		f.jwksHits.Add(1)
		w.Header().Set("ETag", `"v1"`)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": f.Kid,
				"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
			}},
		})
	})
	mux.HandleFunc("/api/openid.connect.token", func(w http.ResponseWriter, r *http.Request) {
		if st := f.TokenStatus.Load(); st != 0 && st != http.StatusOK {
			w.WriteHeader(int(st))
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}
		idt, _ := f.nextIDToken.Load().(string)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token": "xoxp-test",
			"token_type":   "Bearer",
			"id_token":     idt,
		})
	})

	f.Server = httptest.NewServer(mux)
	return f
}

// DiscoveryURL es la URL para slack.WithDiscoveryURL.
func (f *SlackFake) DiscoveryURL() string {
	return f.Server.URL + "/.well-known/openid-configuration"
}

func (f *SlackFake) Close() { f.Server.Close() }

// DiscoveryHits y JWKSHits exponen los contadores de fetch (tests de cache).
func (f *SlackFake) DiscoveryHits() int64 { return f.discoveryHits.Load() }
func (f *SlackFake) JWKSHits() int64      { return f.jwksHits.Load() }

// IDTokenClaims son los claims variables de un id_token de prueba.
type IDTokenClaims struct {
	Sub      string
	Aud      string
	Nonce    string
	Email    string
	Name     string
	Picture  string
	TeamID   string
	Iss      string // default https://slack.com
	Exp      time.Time
	BadAlg   bool // firma con HS256 en vez de RS256
	OtherKey bool // firma con una key que no está en el JWKS
}

// MintIDToken firma un id_token con los claims dados.
func (f *SlackFake) MintIDToken(t interface{ Fatalf(string, ...any) }, c IDTokenClaims) string {
	if c.Iss == "" {
		c.Iss = "https://slack.com"
	}
	if c.Exp.IsZero() {
		c.Exp = time.Now().Add(10 * time.Minute)
	}
	claims := jwtv5.MapClaims{
		"iss":                       c.Iss,
		"sub":                       c.Sub,
		"aud":                       c.Aud,
		"exp":                       c.Exp.Unix(),
		"iat":                       time.Now().Unix(),
		"nonce":                     c.Nonce,
		"email":                     c.Email,
		"email_verified":            true,
		"name":                      c.Name,
		"picture":                   c.Picture,
		"https://slack.com/team_id": c.TeamID,
	}

	if c.BadAlg {
		tok := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
		signed, err := tok.SignedString([]byte("hs256-secret"))
		if err != nil {
			t.Fatalf("sign hs256 token: %v", err)
		}
		return signed
	}

	key := f.Key
	if c.OtherKey {
		other, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatalf("generate rogue key: %v", err)
		}
		key = other
	}
	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodRS256, claims)
	tok.Header["kid"] = f.Kid
	signed, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

// SetNextIDToken fija el id_token del próximo exchange.
func (f *SlackFake) SetNextIDToken(idToken string) { f.nextIDToken.Store(idToken) }
