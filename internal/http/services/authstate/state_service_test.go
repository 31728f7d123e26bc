package authstate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/teampulse/internal/security/token"
	"github.com/dropDatabas3/teampulse/internal/testutil"
)

func newService(repo *testutil.AuthStateRepo, ttl time.Duration) Service {
	return New(Deps{States: repo, TTL: ttl})
}

func TestIssueAndConsume(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewAuthStateRepo()
	svc := newService(repo, 10*time.Minute)

	tok, nonce, err := svc.Issue(ctx, "acme")
	require.NoError(t, err)
	require.NotEmpty(t, tok)
	require.NotEmpty(t, nonce)

	// El token nunca se guarda en claro.
	for _, h := range repo.Hashes() {
		assert.NotEqual(t, tok, h)
	}

	pending, err := svc.ValidateAndConsume(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, "acme", pending.TenantHint)
	assert.Equal(t, nonce, pending.Nonce)
}

func TestSecondConsumeFailsClosed(t *testing.T) {
	ctx := context.Background()
	svc := newService(testutil.NewAuthStateRepo(), 10*time.Minute)

	tok, _, err := svc.Issue(ctx, "acme")
	require.NoError(t, err)

	_, err = svc.ValidateAndConsume(ctx, tok)
	require.NoError(t, err)

	_, err = svc.ValidateAndConsume(ctx, tok)
	assert.ErrorIs(t, err, ErrStateAlreadyConsumed)
}

func TestUnknownToken(t *testing.T) {
	svc := newService(testutil.NewAuthStateRepo(), 10*time.Minute)

	_, err := svc.ValidateAndConsume(context.Background(), "never-issued")
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestExpiredToken(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewAuthStateRepo()
	svc := newService(repo, 10*time.Minute)

	tok, _, err := svc.Issue(ctx, "acme")
	require.NoError(t, err)

	// Retro-datar el registro más allá del TTL.
	repo.Age(token.SHA256Base64URL(tok), 11*time.Minute)

	_, err = svc.ValidateAndConsume(ctx, tok)
	assert.ErrorIs(t, err, ErrStateExpired)
}

func TestConcurrentConsumeSingleWinner(t *testing.T) {
	ctx := context.Background()
	svc := newService(testutil.NewAuthStateRepo(), 10*time.Minute)

	tok, _, err := svc.Issue(ctx, "acme")
	require.NoError(t, err)

	const callers = 16
	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ValidateAndConsume(ctx, tok)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins, losses := 0, 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, ErrStateAlreadyConsumed)
		losses++
	}
	assert.Equal(t, 1, wins, "exactamente un callback debe ganar")
	assert.Equal(t, callers-1, losses)
}

func TestGCDeletesExpired(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewAuthStateRepo()
	svc := newService(repo, 10*time.Minute)

	tok, _, err := svc.Issue(ctx, "acme")
	require.NoError(t, err)
	repo.Age(token.SHA256Base64URL(tok), time.Hour)

	n, err := repo.DeleteExpired(ctx, 10*time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = svc.ValidateAndConsume(ctx, tok)
	assert.ErrorIs(t, err, ErrStateNotFound)
}
