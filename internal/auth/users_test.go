package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetdesk/assetdesk/internal/config"
	"github.com/assetdesk/assetdesk/internal/db/controller/identity"
	"github.com/assetdesk/assetdesk/internal/db/models"
	"github.com/assetdesk/assetdesk/internal/directory"
)

// stubDirectory answers every call with the configured result and records the calls.
type stubDirectory struct {
	create directory.Result
	delete directory.Result
	reset  directory.Result

	created []directory.RemoteUser
	deleted []string
	resets  []string
}

func (s *stubDirectory) CreateUser(_ context.Context, u directory.RemoteUser) directory.Result {
	s.created = append(s.created, u)

	return s.create
}

func (s *stubDirectory) DeleteUser(_ context.Context, id string) directory.Result {
	s.deleted = append(s.deleted, id)

	return s.delete
}

func (s *stubDirectory) ResetPassword(_ context.Context, id, _ string) directory.Result {
	s.resets = append(s.resets, id)

	return s.reset
}

func newTestManager(t *testing.T, provider config.AuthProvider, dir directory.Synchronizer) (*UserManager, *identity.Controller) {
	t.Helper()

	store := newTestStore(t)

	return NewUserManager(provider, store, NewRoleGuard(store), dir), store
}

func TestUserManager_CreateLocal(t *testing.T) {
	m, store := newTestManager(t, config.AuthProviderLocal, nil)

	u, res, err := m.Create(context.Background(), NewUser{
		Username: " grace ",
		Email:    "Grace@Example.com",
		Password: "s3cret-password",
	})
	require.NoError(t, err)
	assert.Equal(t, directory.StatusSkipped, res.Status)
	assert.Equal(t, "grace", u.Username)
	assert.Equal(t, "grace@example.com", u.Email)
	assert.Equal(t, models.GlobalRoleStandard, u.GlobalRole)
	assert.Nil(t, u.ExternalID)

	got, err := store.UserByUsername(context.Background(), "grace")
	require.NoError(t, err)

	assert.True(t, got.VerifyPassword("s3cret-password"))
}

func TestUserManager_CreateInvalidRole(t *testing.T) {
	dir := &stubDirectory{}
	m, _ := newTestManager(t, config.AuthProviderLocal, dir)

	_, _, err := m.Create(context.Background(), NewUser{Username: "x", Email: "x@example.com", GlobalRole: "root"})
	require.ErrorIs(t, err, ErrInvalidRole)
	assert.Empty(t, dir.created)
}

func TestUserManager_CreateRemoteConflict(t *testing.T) {
	dir := &stubDirectory{create: directory.Result{Status: directory.StatusConflict, Err: directory.ErrConflict}}
	m, store := newTestManager(t, config.AuthProviderExternal, dir)

	_, res, err := m.Create(context.Background(), NewUser{Username: "heidi", Email: "heidi@example.com"})
	require.ErrorIs(t, err, ErrRemoteConflict)
	assert.True(t, res.Conflict())

	_, err = store.UserByUsername(context.Background(), "heidi")
	assert.ErrorIs(t, err, identity.ErrUserNotFound, "nothing is written locally")
}

func TestUserManager_CreateRemoteUnavailable(t *testing.T) {
	dir := &stubDirectory{create: directory.Result{Status: directory.StatusUnavailable, Err: directory.ErrUnavailable}}
	m, _ := newTestManager(t, config.AuthProviderExternal, dir)

	u, res, err := m.Create(context.Background(), NewUser{Username: "ivan", Email: "ivan@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, directory.StatusUnavailable, res.Status)
	assert.Equal(t, models.AuthSourceExternal, u.AuthSource)
	assert.Empty(t, u.Password, "external accounts keep no local hash")
	assert.Nil(t, u.ExternalID)
}

func TestUserManager_CreateSyncedAndRollback(t *testing.T) {
	ctx := context.Background()
	dir := &stubDirectory{
		create: directory.Result{Status: directory.StatusSynced, RemoteID: "remote-1"},
		delete: directory.Result{Status: directory.StatusSynced},
	}
	m, store := newTestManager(t, config.AuthProviderExternal, dir)

	u, res, err := m.Create(ctx, NewUser{Username: "judy", Email: "judy@example.com", FirstName: "Judy"})
	require.NoError(t, err)
	assert.Equal(t, directory.StatusSynced, res.Status)
	require.NotNil(t, u.ExternalID)
	assert.Equal(t, "remote-1", *u.ExternalID)
	require.Len(t, dir.created, 1)
	assert.Equal(t, "Judy", dir.created[0].FirstName)

	// the local create fails on the duplicate, the remote account is removed again
	_, _, err = m.Create(ctx, NewUser{Username: "judy", Email: "other@example.com"})
	require.ErrorIs(t, err, identity.ErrUserExists)
	assert.Equal(t, []string{"remote-1"}, dir.deleted)

	_, total, err := store.ListUsers(ctx, identity.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestUserManager_Delete(t *testing.T) {
	ctx := context.Background()
	dir := &stubDirectory{delete: directory.Result{Status: directory.StatusUnavailable, Err: directory.ErrUnavailable}}
	m, store := newTestManager(t, config.AuthProviderExternal, dir)

	admin := mustCreateUser(t, store, "admin", models.GlobalRolePlatformAdmin)
	local := mustCreateUser(t, store, "local", models.GlobalRoleStandard)
	remoteID := "remote-linked"
	linked := &models.User{Username: "linked", Email: "linked@example.com", ExternalID: &remoteID}
	require.NoError(t, store.CreateUser(ctx, linked))

	_, res, err := m.Delete(ctx, admin.ID, local.ID)
	require.NoError(t, err)
	assert.Equal(t, directory.StatusSkipped, res.Status)
	assert.Empty(t, dir.deleted)

	// an unavailable directory does not fail the local delete
	_, res, err = m.Delete(ctx, admin.ID, linked.ID)
	require.NoError(t, err)
	assert.Equal(t, directory.StatusUnavailable, res.Status)
	assert.Equal(t, []string{"remote-linked"}, dir.deleted)

	_, err = store.UserByID(ctx, linked.ID)
	require.ErrorIs(t, err, identity.ErrUserNotFound)

	_, _, err = m.Delete(ctx, admin.ID, admin.ID)
	assert.ErrorIs(t, err, ErrInvariantViolation)
}

func TestUserManager_ResetPassword(t *testing.T) {
	ctx := context.Background()
	dir := &stubDirectory{reset: directory.Result{Status: directory.StatusUnavailable, Err: directory.ErrUnavailable}}
	m, store := newTestManager(t, config.AuthProviderLocal, dir)

	local := mustCreateUser(t, store, "local", models.GlobalRoleStandard)

	res, err := m.ResetPassword(ctx, local.ID, "brand-new-password")
	require.NoError(t, err)
	assert.Equal(t, directory.StatusSkipped, res.Status)

	got, err := store.UserByID(ctx, local.ID)
	require.NoError(t, err)

	assert.True(t, got.VerifyPassword("brand-new-password"))

	extID := "remote-ext"
	external := &models.User{
		Username:   "ext",
		Email:      "ext@example.com",
		AuthSource: models.AuthSourceExternal,
		ExternalID: &extID,
	}
	require.NoError(t, store.CreateUser(ctx, external))

	res, err = m.ResetPassword(ctx, external.ID, "whatever")
	require.ErrorIs(t, err, ErrRemoteUnavailable)
	assert.Equal(t, directory.StatusUnavailable, res.Status)
	assert.Equal(t, []string{"remote-ext"}, dir.resets)

	_, err = m.ResetPassword(ctx, 9999, "whatever")
	assert.ErrorIs(t, err, identity.ErrUserNotFound)
}
