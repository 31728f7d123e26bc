package slack

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/teampulse/internal/testutil"
)

const clientID = "tp-client"

func newClient(f *testutil.SlackFake) *OIDC {
	return New(clientID, "shh", "https://app.example.com/v1/auth/callback",
		WithDiscoveryURL(f.DiscoveryURL()))
}

func TestAuthURL(t *testing.T) {
	f := testutil.NewSlackFake(t)
	defer f.Close()
	o := newClient(f)

	raw, err := o.AuthURL(context.Background(), "state-1", "nonce-1")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(u.Path, "/openid/connect/authorize"))
	q := u.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, clientID, q.Get("client_id"))
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, "nonce-1", q.Get("nonce"))
	assert.Equal(t, "openid profile email", q.Get("scope"))
}

func TestExchangeCodeOK(t *testing.T) {
	f := testutil.NewSlackFake(t)
	defer f.Close()
	o := newClient(f)

	f.SetNextIDToken(f.MintIDToken(t, testutil.IDTokenClaims{Sub: "U1", Aud: clientID}))

	tr, err := o.ExchangeCode(context.Background(), "code-1")
	require.NoError(t, err)
	assert.NotEmpty(t, tr.IDToken)
}

func TestExchangeCodeProviderError(t *testing.T) {
	f := testutil.NewSlackFake(t)
	defer f.Close()
	o := newClient(f)

	f.TokenStatus.Store(http.StatusBadRequest)

	_, err := o.ExchangeCode(context.Background(), "bad-code")
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusBadRequest, pe.Status)
	assert.Equal(t, "invalid_grant", pe.Code)
}

func TestVerifyIDToken(t *testing.T) {
	f := testutil.NewSlackFake(t)
	defer f.Close()
	o := newClient(f)

	idt := f.MintIDToken(t, testutil.IDTokenClaims{
		Sub: "U1", Aud: clientID, Nonce: "n-1",
		Email: "jane@startupco.io", Name: "Jane", TeamID: "T-START",
	})

	ident, err := o.VerifyIDToken(context.Background(), idt, "n-1")
	require.NoError(t, err)
	assert.Equal(t, "U1", ident.Sub)
	assert.Equal(t, "jane@startupco.io", ident.Email)
	assert.Equal(t, "Jane", ident.Name)
	assert.Equal(t, "T-START", ident.WorkspaceID)
	assert.True(t, ident.EmailVerified)
}

func TestVerifyIDTokenRejections(t *testing.T) {
	f := testutil.NewSlackFake(t)
	defer f.Close()
	o := newClient(f)
	ctx := context.Background()

	cases := map[string]testutil.IDTokenClaims{
		"wrong audience": {Sub: "U1", Aud: "someone-else", Nonce: "n"},
		"wrong issuer":   {Sub: "U1", Aud: clientID, Nonce: "n", Iss: "https://evil.example"},
		"expired":        {Sub: "U1", Aud: clientID, Nonce: "n", Exp: time.Now().Add(-5 * time.Minute)},
		"missing sub":    {Aud: clientID, Nonce: "n"},
		"alg confusion":  {Sub: "U1", Aud: clientID, Nonce: "n", BadAlg: true},
		"rogue key":      {Sub: "U1", Aud: clientID, Nonce: "n", OtherKey: true},
	}
	for name, claims := range cases {
		t.Run(name, func(t *testing.T) {
			idt := f.MintIDToken(t, claims)
			_, err := o.VerifyIDToken(ctx, idt, "n")
			assert.Error(t, err)
		})
	}

	t.Run("nonce mismatch", func(t *testing.T) {
		idt := f.MintIDToken(t, testutil.IDTokenClaims{Sub: "U1", Aud: clientID, Nonce: "issued"})
		_, err := o.VerifyIDToken(ctx, idt, "expected")
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := o.VerifyIDToken(ctx, "not.a.jwt", "n")
		assert.Error(t, err)
	})
}

// Discovery y JWKS se cachean: varios verifies no repiten los fetches.
func TestDiscoveryAndJWKSCached(t *testing.T) {
	f := testutil.NewSlackFake(t)
	defer f.Close()
	o := newClient(f)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		idt := f.MintIDToken(t, testutil.IDTokenClaims{Sub: "U1", Aud: clientID, Nonce: "n"})
		_, err := o.VerifyIDToken(ctx, idt, "n")
		require.NoError(t, err)
	}

	assert.EqualValues(t, 1, f.DiscoveryHits())
	assert.EqualValues(t, 1, f.JWKSHits())
}
