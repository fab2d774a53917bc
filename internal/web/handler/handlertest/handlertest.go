// Package handlertest wires handlers against an in-memory identity store for tests.
package handlertest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/assetdesk/assetdesk/internal/auth"
	"github.com/assetdesk/assetdesk/internal/config"
	"github.com/assetdesk/assetdesk/internal/db/controller/identity"
	"github.com/assetdesk/assetdesk/internal/db/dbtest"
	"github.com/assetdesk/assetdesk/internal/db/models"
	"github.com/assetdesk/assetdesk/internal/directory"
	"github.com/assetdesk/assetdesk/internal/web/handler"
	"github.com/assetdesk/assetdesk/internal/web/session"
)

// Env is a fiber app with local authentication and its backing store.
type Env struct {
	App   *fiber.App
	DB    *gorm.DB
	Store *identity.Controller
	Deps  *handler.Deps
}

// Config returns a minimal valid configuration for the local provider.
func Config() *config.Config {
	return &config.Config{
		Title: "assetdesk",
		Webserver: config.Webserver{
			URL:     "http://localhost",
			Port:    3000,
			Session: config.Session{ExpiryTime: time.Hour},
		},
		Auth: config.Auth{Provider: config.AuthProviderLocal},
	}
}

// NewLocal builds an Env with the local provider. dir may be nil.
func NewLocal(t *testing.T, dir directory.Synchronizer) *Env {
	t.Helper()

	db := dbtest.Open(t)

	store, err := identity.New(db)
	require.NoError(t, err)

	storage := session.NewGormStorage(db, -1)
	t.Cleanup(func() { _ = storage.Close() })

	cfg := Config()

	sessions, err := session.NewManager(storage, session.Config{Lifetime: cfg.Webserver.Session.ExpiryTime})
	require.NoError(t, err)

	local, err := auth.NewLocalProvider(store, sessions)
	require.NoError(t, err)

	guard := auth.NewRoleGuard(store)

	deps := &handler.Deps{
		Cfg:       cfg,
		Store:     store,
		Provider:  local,
		Local:     local,
		Resolver:  auth.NewTenantResolver(store),
		Guard:     guard,
		Users:     auth.NewUserManager(cfg.Auth.Provider, store, guard, dir),
		Validator: validator.New(),
	}

	return &Env{
		App:   fiber.New(fiber.Config{ErrorHandler: handler.ErrorHandler}),
		DB:    db,
		Store: store,
		Deps:  deps,
	}
}

// CreateUser stores a local user whose password is username + "-password".
func (e *Env) CreateUser(t *testing.T, username string, role models.GlobalRole) *models.User {
	t.Helper()

	u := &models.User{
		Username:   username,
		Email:      username + "@example.com",
		Password:   models.HashPassword(Password(username)),
		GlobalRole: role,
		AuthSource: models.AuthSourceLocal,
	}
	require.NoError(t, e.Store.CreateUser(t.Context(), u))

	return u
}

// Password returns the password CreateUser assigns.
func Password(username string) string {
	return username + "-password"
}

// Login starts a session for user and returns its cookie.
func (e *Env) Login(t *testing.T, username string) *http.Cookie {
	t.Helper()

	app := fiber.New()
	app.Post("/login", func(c *fiber.Ctx) error {
		if _, err := e.Deps.Local.Login(c, username, Password(username)); err != nil {
			return err
		}

		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	for _, cookie := range resp.Cookies() {
		if cookie.Name == session.CookieName && cookie.Value != "" {
			return cookie
		}
	}

	require.FailNow(t, "login did not set a session cookie")

	return nil
}

// Request is a test request against the Env app.
type Request struct {
	Method  string
	Path    string
	Body    any
	Cookie  *http.Cookie
	Headers map[string]string
}

// Do runs r and returns the response with its body read.
func (e *Env) Do(t *testing.T, r Request) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader = http.NoBody
	if r.Body != nil {
		raw, err := json.Marshal(r.Body)
		require.NoError(t, err)

		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(r.Method, r.Path, body)
	if r.Body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	if r.Cookie != nil {
		req.AddCookie(r.Cookie)
	}

	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}

	resp, err := e.App.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, raw
}

// DecodeError decodes an error body.
func DecodeError(t *testing.T, raw []byte) auth.ErrorResponse {
	t.Helper()

	var body auth.ErrorResponse
	require.NoError(t, json.Unmarshal(raw, &body))

	return body
}
