package login

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetdesk/assetdesk/internal/auth"
	"github.com/assetdesk/assetdesk/internal/config"
	"github.com/assetdesk/assetdesk/internal/db/models"
	"github.com/assetdesk/assetdesk/internal/web/handler/handlertest"
	"github.com/assetdesk/assetdesk/internal/web/session"
)

func newEnv(t *testing.T) *handlertest.Env {
	t.Helper()

	env := handlertest.NewLocal(t, nil)

	var s Service
	require.NoError(t, s.Init(env.App, env.Deps))

	return env
}

func TestInit_ExternalProvider(t *testing.T) {
	env := handlertest.NewLocal(t, nil)
	env.Deps.Cfg.Auth.Provider = config.AuthProviderExternal

	var s Service
	assert.ErrorIs(t, s.Init(env.App, env.Deps), ErrLocalAuthDisabled)
}

func TestLogin(t *testing.T) {
	env := newEnv(t)
	alice := env.CreateUser(t, "alice", models.GlobalRoleStandard)

	resp, raw := env.Do(t, handlertest.Request{
		Method: http.MethodPost,
		Path:   Path,
		Body:   Credentials{Username: "alice", Password: handlertest.Password("alice")},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var principal auth.Principal
	require.NoError(t, json.Unmarshal(raw, &principal))
	assert.Equal(t, alice.ID, principal.UserID)
	assert.Equal(t, config.AuthProviderLocal, principal.Provider)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == session.CookieName {
			cookie = c
		}
	}

	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
}

func TestLogin_Failures(t *testing.T) {
	env := newEnv(t)
	env.CreateUser(t, "alice", models.GlobalRoleStandard)

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"wrong password", Credentials{Username: "alice", Password: "nope"}, http.StatusUnauthorized, auth.CodeInvalidCredentials},
		{"unknown user", Credentials{Username: "bob", Password: "nope"}, http.StatusUnauthorized, auth.CodeInvalidCredentials},
		{"missing password", map[string]string{"username": "alice"}, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, raw := env.Do(t, handlertest.Request{Method: http.MethodPost, Path: Path, Body: tt.body})
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Empty(t, resp.Cookies())

			if tt.code != "" {
				assert.Equal(t, tt.code, handlertest.DecodeError(t, raw).Error)
			}
		})
	}
}

func TestRegister(t *testing.T) {
	env := newEnv(t)

	body := Registration{Username: "newbie", Email: "Newbie@Example.com", Password: "long-enough"}

	resp, raw := env.Do(t, handlertest.Request{Method: http.MethodPost, Path: RegisterPath, Body: body})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var principal auth.Principal
	require.NoError(t, json.Unmarshal(raw, &principal))
	assert.Equal(t, "newbie@example.com", principal.Email)
	assert.Equal(t, models.GlobalRoleStandard, principal.GlobalRole)

	resp, raw = env.Do(t, handlertest.Request{Method: http.MethodPost, Path: RegisterPath, Body: body})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, auth.CodeConflict, handlertest.DecodeError(t, raw).Error)

	body.Username, body.Password = "x", "short"
	resp, _ = env.Do(t, handlertest.Request{Method: http.MethodPost, Path: RegisterPath, Body: body})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChangePassword(t *testing.T) {
	env := newEnv(t)
	alice := env.CreateUser(t, "alice", models.GlobalRoleStandard)
	cookie := env.Login(t, "alice")

	resp, _ := env.Do(t, handlertest.Request{
		Method: http.MethodPost,
		Path:   PasswordPath,
		Body:   PasswordChange{OldPassword: "nope", NewPassword: "a-new-password"},
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, raw := env.Do(t, handlertest.Request{
		Method: http.MethodPost,
		Path:   PasswordPath,
		Cookie: cookie,
		Body:   PasswordChange{OldPassword: "nope", NewPassword: "a-new-password"},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, auth.CodeInvalidPassword, handlertest.DecodeError(t, raw).Error)

	resp, _ = env.Do(t, handlertest.Request{
		Method: http.MethodPost,
		Path:   PasswordPath,
		Cookie: cookie,
		Body:   PasswordChange{OldPassword: handlertest.Password("alice"), NewPassword: "a-new-password"},
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	got, err := env.Store.UserByID(t.Context(), alice.ID)
	require.NoError(t, err)
	assert.True(t, got.VerifyPassword("a-new-password"))
}
