package logout

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetdesk/assetdesk/internal/db/models"
	"github.com/assetdesk/assetdesk/internal/web/handler/handlertest"
)

func TestLogout(t *testing.T) {
	env := handlertest.NewLocal(t, nil)
	env.CreateUser(t, "alice", models.GlobalRoleStandard)

	var s Service
	require.NoError(t, s.Init(env.App, env.Deps))

	env.App.Get("/me", env.Deps.Authenticated(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	cookie := env.Login(t, "alice")

	resp, _ := env.Do(t, handlertest.Request{Method: http.MethodGet, Path: "/me", Cookie: cookie})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.Do(t, handlertest.Request{Method: http.MethodPost, Path: Path, Cookie: cookie})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = env.Do(t, handlertest.Request{Method: http.MethodGet, Path: "/me", Cookie: cookie})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "the old cookie is dead")

	resp, _ = env.Do(t, handlertest.Request{Method: http.MethodPost, Path: Path})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode, "logout without a session is fine")
}
