package tenant

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/teampulse/internal/domain/repository"
	"github.com/dropDatabas3/teampulse/internal/testutil"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Acme Corp":        "acme-corp",
		"  StartupCo  ":    "startupco",
		"Héctor & Friends": "h-ctor-friends",
		"a--b":             "a-b",
		"---":              "",
		"Café 24/7":        "caf-24-7",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), "Slugify(%q)", in)
	}
}

func TestFindBySlug(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewTenantRepo()
	repo.Seed(&repository.Tenant{Slug: "acme", Name: "Acme", IsActive: true})
	repo.Seed(&repository.Tenant{Slug: "ghost", Name: "Ghost", IsActive: false})
	svc := New(Deps{Tenants: repo})

	got, err := svc.FindBySlug(ctx, "  ACME ")
	require.NoError(t, err)
	assert.Equal(t, "acme", got.Slug)

	_, err = svc.FindBySlug(ctx, "nope")
	assert.ErrorIs(t, err, ErrTenantNotFound)

	// Un tenant inactivo no existe para el login.
	_, err = svc.FindBySlug(ctx, "ghost")
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestCreateWorkspaceAllocatesSuffixOnCollision(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewTenantRepo()
	repo.Seed(&repository.Tenant{Slug: "startupco", Name: "taken", IsActive: true})
	svc := New(Deps{Tenants: repo})

	created, err := svc.CreateWorkspace(ctx, "StartupCo", "T111")
	require.NoError(t, err)
	assert.Equal(t, "startupco-1", created.Slug)
	assert.Equal(t, "T111", created.ExternalWorkspaceID)
	assert.True(t, created.IsActive)
}

func TestCreateWorkspaceExhaustsAttempts(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewTenantRepo()
	repo.Seed(&repository.Tenant{Slug: "busy", IsActive: true})
	for i := 1; i < maxSlugAttempts; i++ {
		repo.Seed(&repository.Tenant{Slug: fmt.Sprintf("busy-%d", i), IsActive: true})
	}
	svc := New(Deps{Tenants: repo})

	_, err := svc.CreateWorkspace(ctx, "busy", "")
	assert.ErrorIs(t, err, ErrSlugAllocationFailed)
}

func TestConcurrentCreatesNeverShareSlug(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewTenantRepo()
	svc := New(Deps{Tenants: repo})

	const racers = 8
	var wg sync.WaitGroup
	slugs := make(chan string, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, err := svc.CreateWorkspace(ctx, "Same Name", "")
			if err == nil {
				slugs <- created.Slug
			}
		}()
	}
	wg.Wait()
	close(slugs)

	seen := map[string]bool{}
	for s := range slugs {
		require.False(t, seen[s], "slug repetido: %s", s)
		seen[s] = true
	}
	assert.Equal(t, racers, len(seen))
}
