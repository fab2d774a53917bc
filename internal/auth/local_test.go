package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/assetdesk/assetdesk/internal/config"
	"github.com/assetdesk/assetdesk/internal/db/controller/identity"
	"github.com/assetdesk/assetdesk/internal/db/dbtest"
	"github.com/assetdesk/assetdesk/internal/db/models"
	"github.com/assetdesk/assetdesk/internal/web/session"
)

func newTestLocal(t *testing.T) (*LocalProvider, *identity.Controller) {
	t.Helper()

	store := newTestStore(t)

	storage := session.NewGormStorage(newSessionDB(t), -1)
	t.Cleanup(func() { _ = storage.Close() })

	sessions, err := session.NewManager(storage, session.Config{Lifetime: 7 * 24 * time.Hour})
	require.NoError(t, err)

	p, err := NewLocalProvider(store, sessions)
	require.NoError(t, err)

	return p, store
}

func newSessionDB(t *testing.T) *gorm.DB {
	t.Helper()

	return dbtest.Open(t)
}

func TestLocal_Verify(t *testing.T) {
	p, store := newTestLocal(t)
	ctx := context.Background()

	alice := mustCreateUser(t, store, "alice", models.GlobalRoleStandard)

	external := &models.User{Username: "ext", Email: "ext@example.com", AuthSource: models.AuthSourceExternal}
	require.NoError(t, store.CreateUser(ctx, external))

	got, err := p.Verify(ctx, "alice", "alice-password")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	for _, tc := range []struct{ username, password string }{
		{"alice", "wrong"},
		{"nobody", "alice-password"},
		{"ext", ""},
		{"ext", "anything"},
		{"", ""},
	} {
		_, err = p.Verify(ctx, tc.username, tc.password)
		assert.Equal(t, ErrInvalidCredentials, err, "%s/%s", tc.username, tc.password)
	}
}

func TestLocal_VerifyLegacyBcrypt(t *testing.T) {
	p, store := newTestLocal(t)
	ctx := context.Background()

	for _, tc := range []struct {
		name string
		cost int
		ok   bool
	}{
		{name: "strong", cost: bcrypt.DefaultCost, ok: true},
		{name: "weak", cost: bcrypt.MinCost, ok: false},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte("legacy"), tc.cost)
		require.NoError(t, err)

		require.NoError(t, store.CreateUser(ctx, &models.User{
			Username: tc.name, Email: tc.name + "@example.com", Password: string(hash),
		}))

		_, err = p.Verify(ctx, tc.name, "legacy")
		if tc.ok {
			assert.NoError(t, err, tc.name)
		} else {
			assert.ErrorIs(t, err, ErrInvalidCredentials, tc.name)
		}
	}
}

func TestLocal_LoginSessionFlow(t *testing.T) {
	p, store := newTestLocal(t)
	user := mustCreateUser(t, store, "bob", models.GlobalRoleStandard)

	app := fiber.New()
	app.Post("/login", func(c *fiber.Ctx) error {
		principal, err := p.Login(c, c.FormValue("username"), c.FormValue("password"))
		if err != nil {
			return WriteError(c, err)
		}

		return c.JSON(principal)
	})
	app.Post("/logout", func(c *fiber.Ctx) error {
		return p.Logout(c)
	})
	app.Get("/me", Resolve(p), func(c *fiber.Ctx) error {
		principal, _ := PrincipalFrom(c)

		return c.JSON(principal)
	})

	login := func(password string) *http.Response {
		req := httptest.NewRequest(fiber.MethodPost, "/login",
			strings.NewReader("username=bob&password="+password))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)

		resp, err := app.Test(req)
		require.NoError(t, err)

		return resp
	}

	resp := login("wrong")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, resp.Cookies())

	resp = login("bob-password")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var principal Principal
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&principal))
	assert.Equal(t, user.ID, principal.UserID)
	assert.Equal(t, config.AuthProviderLocal, principal.Provider)

	require.Len(t, resp.Cookies(), 1)
	cookie := resp.Cookies()[0]
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	me := func() int {
		req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})

		r, err := app.Test(req)
		require.NoError(t, err)

		return r.StatusCode
	}

	assert.Equal(t, fiber.StatusOK, me())

	// a deleted user loses the session immediately
	require.NoError(t, store.DeleteUser(context.Background(), user.ID))
	assert.Equal(t, fiber.StatusUnauthorized, me())
}

func TestLocal_LogoutEndsSession(t *testing.T) {
	p, store := newTestLocal(t)
	mustCreateUser(t, store, "carl", models.GlobalRoleStandard)

	app := fiber.New()
	app.Post("/login", func(c *fiber.Ctx) error {
		_, err := p.Login(c, "carl", "carl-password")

		return err
	})
	app.Post("/logout", func(c *fiber.Ctx) error { return p.Logout(c) })
	app.Get("/me", Resolve(p), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/login", nil))
	require.NoError(t, err)
	require.Len(t, resp.Cookies(), 1)
	cookie := resp.Cookies()[0]

	req := httptest.NewRequest(fiber.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	_, err = app.Test(req)
	require.NoError(t, err)

	req = httptest.NewRequest(fiber.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestLocal_LoginReplacesSession(t *testing.T) {
	p, store := newTestLocal(t)
	mustCreateUser(t, store, "cora", models.GlobalRoleStandard)

	app := fiber.New()
	app.Post("/login", func(c *fiber.Ctx) error {
		_, err := p.Login(c, "cora", "cora-password")

		return err
	})
	app.Get("/me", Resolve(p), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	sessionCookie := func(resp *http.Response) *http.Cookie {
		t.Helper()

		for _, cookie := range resp.Cookies() {
			if cookie.Name == session.CookieName && cookie.Value != "" {
				return cookie
			}
		}

		require.FailNow(t, "no session cookie")

		return nil
	}

	me := func(cookie *http.Cookie) int {
		req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})

		resp, err := app.Test(req)
		require.NoError(t, err)

		return resp.StatusCode
	}

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/login", nil))
	require.NoError(t, err)
	first := sessionCookie(resp)

	req := httptest.NewRequest(fiber.MethodPost, "/login", nil)
	req.AddCookie(&http.Cookie{Name: first.Name, Value: first.Value})
	resp, err = app.Test(req)
	require.NoError(t, err)
	second := sessionCookie(resp)

	assert.NotEqual(t, first.Value, second.Value)
	assert.Equal(t, fiber.StatusUnauthorized, me(first))
	assert.Equal(t, fiber.StatusOK, me(second))
}

func TestLocal_RegisterAndChangePassword(t *testing.T) {
	p, _ := newTestLocal(t)
	ctx := context.Background()

	user, err := p.Register(ctx, Registration{Username: "dana", Email: "Dana@Example.com", Password: "first-password"})
	require.NoError(t, err)
	assert.Equal(t, "dana@example.com", user.Email)
	assert.Equal(t, models.GlobalRoleStandard, user.GlobalRole)

	_, err = p.Register(ctx, Registration{Username: "dana", Email: "other@example.com", Password: "x"})
	assert.ErrorIs(t, err, identity.ErrUserExists)

	assert.ErrorIs(t, p.ChangePassword(ctx, user.ID, "wrong", "second-password"), ErrInvalidOldPassword)
	require.NoError(t, p.ChangePassword(ctx, user.ID, "first-password", "second-password"))

	_, err = p.Verify(ctx, "dana", "first-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = p.Verify(ctx, "dana", "second-password")
	assert.NoError(t, err)
}

func TestNewLocalProvider_Validation(t *testing.T) {
	_, err := NewLocalProvider(nil, nil)
	assert.ErrorIs(t, err, identity.ErrDBNil)

	_, err = NewLocalProvider(newTestStore(t), nil)
	assert.ErrorIs(t, err, ErrSessionsNil)
}
