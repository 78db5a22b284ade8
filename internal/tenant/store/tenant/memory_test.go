package tenant

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warden/internal/tenant/models"
	id "warden/pkg/domain"
	"warden/pkg/platform/sentinel"
	"warden/pkg/testutil"
)

func newTenant(t *testing.T, domain, name string) *models.Tenant {
	t.Helper()
	tenant, err := models.NewTenant(id.NewTenantID(), domain, name, time.Now())
	require.NoError(t, err)
	return tenant
}

func TestCreateIfDomainAvailable_Success(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	tenant := newTenant(t, "acme.example.com", "Acme")

	require.NoError(t, store.CreateIfDomainAvailable(ctx, tenant))

	found, err := store.FindByID(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", found.Name)
}

func TestCreateIfDomainAvailable_DuplicateDomainCaseInsensitive(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	require.NoError(t, store.CreateIfDomainAvailable(ctx, newTenant(t, "acme.example.com", "Acme")))

	err := store.CreateIfDomainAvailable(ctx, &models.Tenant{ID: id.NewTenantID(), Domain: "ACME.example.com", Name: "Copy"})
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)
}

func TestFindByDomain(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	tenant := newTenant(t, "beta.example.com", "Beta")
	require.NoError(t, store.CreateIfDomainAvailable(ctx, tenant))

	found, err := store.FindByDomain(ctx, " Beta.Example.com. ")
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, found.ID)

	_, err = store.FindByDomain(ctx, "missing.example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindByID_NotFound(t *testing.T) {
	store := NewInMemory()
	_, err := store.FindByID(context.Background(), id.NewTenantID())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate_MovesDomainIndex(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	a := newTenant(t, "a.example.com", "A")
	b := newTenant(t, "b.example.com", "B")
	require.NoError(t, store.CreateIfDomainAvailable(ctx, a))
	require.NoError(t, store.CreateIfDomainAvailable(ctx, b))

	a.Domain = "renamed.example.com"
	require.NoError(t, store.Update(ctx, a))
	_, err := store.FindByDomain(ctx, "a.example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	b.Domain = "renamed.example.com"
	assert.ErrorIs(t, store.Update(ctx, b), sentinel.ErrAlreadyUsed)

	assert.ErrorIs(t, store.Update(ctx, newTenant(t, "ghost.example.com", "Ghost")), ErrNotFound)
}

func TestListAndDelete(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	z := newTenant(t, "z.example.com", "Z")
	a := newTenant(t, "a.example.com", "A")
	require.NoError(t, store.CreateIfDomainAvailable(ctx, z))
	require.NoError(t, store.CreateIfDomainAvailable(ctx, a))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a.example.com", list[0].Domain)

	require.NoError(t, store.Delete(ctx, a.ID))
	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.ErrorIs(t, store.Delete(ctx, a.ID), ErrNotFound)

	// The freed domain can be claimed again.
	require.NoError(t, store.CreateIfDomainAvailable(ctx, newTenant(t, "a.example.com", "A2")))
}

func TestCreateIfDomainAvailable_ConcurrentClaims(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	res := testutil.RunConcurrent(20, func(int) error {
		return store.CreateIfDomainAvailable(ctx, testutil.NewTenant(func(t *models.Tenant) { t.Domain = "race.example.com" }))
	})

	assert.Equal(t, int32(1), res.Successes)
	assert.Equal(t, int32(19), res.Conflicts)
	assert.Zero(t, res.Errors)
}
