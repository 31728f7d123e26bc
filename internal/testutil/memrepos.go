// Package testutil provee implementaciones en memoria de los repositorios
// para tests. Replican la semántica de los adapters PostgreSQL: errores
// ErrNotFound/ErrConflict, índices únicos y el consume CAS del auth state.
package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/teampulse/internal/domain/repository"
)

// TenantRepo es un TenantRepository en memoria.
type TenantRepo struct {
	mu      sync.Mutex
	bySlug  map[string]*repository.Tenant
	byID    map[string]*repository.Tenant
	created int
}

func NewTenantRepo() *TenantRepo {
	return &TenantRepo{
		bySlug: make(map[string]*repository.Tenant),
		byID:   make(map[string]*repository.Tenant),
	}
}

// Seed inserta un tenant sin pasar por Create (para armar escenarios).
func (r *TenantRepo) Seed(t *repository.Tenant) *repository.Tenant {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	cp := *t
	r.bySlug[t.Slug] = &cp
	r.byID[t.ID] = &cp
	return &cp
}

// Created retorna cuántos tenants creó Create.
func (r *TenantRepo) Created() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.created
}

func (r *TenantRepo) GetBySlug(_ context.Context, slug string) (*repository.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.bySlug[slug]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *TenantRepo) GetByID(_ context.Context, id string) (*repository.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *TenantRepo) Create(_ context.Context, t *repository.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.bySlug[t.Slug]; exists {
		return repository.ErrConflict
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	cp := *t
	r.bySlug[t.Slug] = &cp
	r.byID[t.ID] = &cp
	r.created++
	return nil
}

// AccountRepo es un AccountRepository en memoria.
type AccountRepo struct {
	mu   sync.Mutex
	byID map[string]*repository.Account

	// CreateErr fuerza el próximo Create a fallar con este error.
	CreateErr error
}

func NewAccountRepo() *AccountRepo {
	return &AccountRepo{byID: make(map[string]*repository.Account)}
}

func (r *AccountRepo) Seed(a *repository.Account) *repository.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.NormalizedEmail == "" && a.Email != "" {
		a.NormalizedEmail = strings.ToLower(a.Email)
	}
	cp := *a
	r.byID[a.ID] = &cp
	return &cp
}

// Count retorna la cantidad de cuentas, opcionalmente filtrada por tenant.
func (r *AccountRepo) Count(tenantID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tenantID == "" {
		return len(r.byID)
	}
	n := 0
	for _, a := range r.byID {
		if a.TenantID == tenantID {
			n++
		}
	}
	return n
}

func (r *AccountRepo) GetByID(_ context.Context, id string) (*repository.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *AccountRepo) GetByEmail(_ context.Context, tenantID, normalizedEmail string) (*repository.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.TenantID == tenantID && a.NormalizedEmail == normalizedEmail && normalizedEmail != "" {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *AccountRepo) FindByEmailAcrossTenants(_ context.Context, normalizedEmail, excludeTenantID string) ([]repository.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.Account
	for _, a := range r.byID {
		if a.TenantID != excludeTenantID && a.NormalizedEmail == normalizedEmail && a.IsActive {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *AccountRepo) Create(_ context.Context, a *repository.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateErr != nil {
		err := r.CreateErr
		r.CreateErr = nil
		return err
	}
	for _, existing := range r.byID {
		if existing.TenantID == a.TenantID && existing.NormalizedEmail == a.NormalizedEmail && a.NormalizedEmail != "" {
			return repository.ErrConflict
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	r.byID[a.ID] = &cp
	return nil
}

func (r *AccountRepo) UpdateProfile(_ context.Context, id, displayName, avatarURL, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	if displayName != "" {
		a.DisplayName = displayName
	}
	if avatarURL != "" {
		a.AvatarURL = avatarURL
	}
	if email != "" && a.Email == "" {
		a.Email = email
		a.NormalizedEmail = strings.ToLower(email)
	}
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *AccountRepo) Elevate(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.IsSuperAdmin = true
	if a.Role == repository.RoleMember {
		a.Role = repository.RoleAdmin
	}
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// IdentityRepo es un IdentityRepository en memoria.
type IdentityRepo struct {
	mu   sync.Mutex
	byID map[string]*repository.IdentityLink
}

func NewIdentityRepo() *IdentityRepo {
	return &IdentityRepo{byID: make(map[string]*repository.IdentityLink)}
}

func (r *IdentityRepo) Seed(l *repository.IdentityLink) *repository.IdentityLink {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	cp := *l
	r.byID[l.ID] = &cp
	return &cp
}

// Count retorna la cantidad de links, opcionalmente filtrada por tenant.
func (r *IdentityRepo) Count(tenantID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tenantID == "" {
		return len(r.byID)
	}
	n := 0
	for _, l := range r.byID {
		if l.TenantID == tenantID {
			n++
		}
	}
	return n
}

func (r *IdentityRepo) GetByProvider(_ context.Context, tenantID, provider, providerUserID string) (*repository.IdentityLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.byID {
		if l.TenantID == tenantID && l.Provider == provider && l.ProviderUserID == providerUserID {
			cp := *l
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *IdentityRepo) FindByProviderAcrossTenants(_ context.Context, provider, providerUserID, excludeTenantID string) ([]repository.IdentityLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.IdentityLink
	for _, l := range r.byID {
		if l.TenantID != excludeTenantID && l.Provider == provider && l.ProviderUserID == providerUserID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (r *IdentityRepo) HasLink(_ context.Context, accountID, provider string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.byID {
		if l.AccountID == accountID && l.Provider == provider {
			return true, nil
		}
	}
	return false, nil
}

func (r *IdentityRepo) Create(_ context.Context, l *repository.IdentityLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.TenantID == l.TenantID && existing.Provider == l.Provider && existing.ProviderUserID == l.ProviderUserID {
			return repository.ErrConflict
		}
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.CreatedAt = time.Now().UTC()
	l.UpdatedAt = l.CreatedAt
	cp := *l
	r.byID[l.ID] = &cp
	return nil
}

func (r *IdentityRepo) UpdateProfile(_ context.Context, id, email, displayName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	if email != "" {
		l.Email = email
	}
	if displayName != "" {
		l.DisplayName = displayName
	}
	l.UpdatedAt = time.Now().UTC()
	return nil
}

// AuthStateRepo es un AuthStateRepository en memoria con consume CAS.
type AuthStateRepo struct {
	mu     sync.Mutex
	byHash map[string]*repository.PendingAuthState
}

func NewAuthStateRepo() *AuthStateRepo {
	return &AuthStateRepo{byHash: make(map[string]*repository.PendingAuthState)}
}

// Age retro-data un registro (para simular expiración).
func (r *AuthStateRepo) Age(tokenHash string, by time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.byHash[tokenHash]; ok {
		st.IssuedAt = st.IssuedAt.Add(-by)
		st.ExpiresAt = st.ExpiresAt.Add(-by)
	}
}

// Hashes retorna los hashes almacenados.
func (r *AuthStateRepo) Hashes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.byHash))
	for h := range r.byHash {
		out = append(out, h)
	}
	return out
}

func (r *AuthStateRepo) Create(_ context.Context, st *repository.PendingAuthState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byHash[st.TokenHash]; exists {
		return repository.ErrConflict
	}
	cp := *st
	r.byHash[st.TokenHash] = &cp
	return nil
}

func (r *AuthStateRepo) Consume(_ context.Context, tokenHash string) (*repository.PendingAuthState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.byHash[tokenHash]
	if !ok || st.Consumed {
		return nil, repository.ErrNotFound
	}
	st.Consumed = true
	cp := *st
	return &cp, nil
}

func (r *AuthStateRepo) Get(_ context.Context, tokenHash string) (*repository.PendingAuthState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.byHash[tokenHash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (r *AuthStateRepo) DeleteExpired(_ context.Context, olderThan time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	horizon := time.Now().UTC().Add(-olderThan)
	var n int64
	for h, st := range r.byHash {
		if st.ExpiresAt.Before(horizon) {
			delete(r.byHash, h)
			n++
		}
	}
	return n, nil
}
