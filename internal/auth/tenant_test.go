package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetdesk/assetdesk/internal/config"
	"github.com/assetdesk/assetdesk/internal/db/models"
)

func TestTenantResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	resolver := NewTenantResolver(store)

	user := mustCreateUser(t, store, "user", models.GlobalRoleStandard)
	p := NewPrincipal(user, config.AuthProviderLocal)

	_, _, err := resolver.Resolve(ctx, p, 0)
	require.ErrorIs(t, err, ErrNoTenant)

	first, err := store.CreateTenant(ctx, "First")
	require.NoError(t, err)
	second, err := store.CreateTenant(ctx, "Second")
	require.NoError(t, err)
	foreign, err := store.CreateTenant(ctx, "Foreign")
	require.NoError(t, err)

	_, err = store.AddMembership(ctx, user.ID, first.ID, models.TenantRoleMember)
	require.NoError(t, err)
	_, err = store.AddMembership(ctx, user.ID, second.ID, models.TenantRoleAdmin)
	require.NoError(t, err)

	tenant, membership, err := resolver.Resolve(ctx, p, 0)
	require.NoError(t, err)
	assert.Equal(t, first.ID, tenant.ID)
	assert.Equal(t, models.TenantRoleMember, membership.Role)

	tenant, membership, err = resolver.Resolve(ctx, p, second.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, tenant.ID)
	assert.Equal(t, models.TenantRoleAdmin, membership.Role)

	_, _, err = resolver.Resolve(ctx, p, foreign.ID)
	require.ErrorIs(t, err, ErrForbidden)

	_, _, err = resolver.Resolve(ctx, p, 9999)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestTenantResolver_Setup(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	resolver := NewTenantResolver(store)

	user := mustCreateUser(t, store, "founder", models.GlobalRoleStandard)
	p := NewPrincipal(user, config.AuthProviderLocal)

	_, _, err := resolver.Setup(ctx, p, "  ")
	require.Error(t, err)

	_, _, err = resolver.Resolve(ctx, p, 0)
	require.ErrorIs(t, err, ErrNoTenant, "a failed setup leaves nothing behind")

	tenant, membership, err := resolver.Setup(ctx, p, "Founders Inc")
	require.NoError(t, err)
	assert.Equal(t, "founders-inc", tenant.Slug)
	assert.Equal(t, models.TenantRoleAdmin, membership.Role)
	assert.Equal(t, tenant.ID, membership.TenantID)

	_, _, err = resolver.Setup(ctx, p, "Second Try")
	require.ErrorIs(t, err, ErrTenantExists)

	resolved, _, err := resolver.Resolve(ctx, p, 0)
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, resolved.ID)
}
