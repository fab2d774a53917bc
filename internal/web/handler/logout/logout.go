// Package logout ends local sessions.
package logout

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/assetdesk/assetdesk/internal/config"
	"github.com/assetdesk/assetdesk/internal/web/handler"
	"github.com/assetdesk/assetdesk/internal/web/handler/login"
)

// Path is the logout endpoint.
const Path = handler.AuthPath + "/logout"

// Service is the logout handler service.
type Service struct {
	handler.Service
	deps *handler.Deps
}

// Handler is the logout handler.
var Handler = Service{}

// Init registers the logout route, local provider only.
func (s *Service) Init(app fiber.Router, deps *handler.Deps) error {
	if app == nil {
		return handler.ErrMissingDeps
	}

	if err := deps.Check(); err != nil {
		return err
	}

	if deps.Cfg.Auth.Provider != config.AuthProviderLocal || deps.Local == nil {
		return login.ErrLocalAuthDisabled
	}

	s.deps = deps

	// no authentication required, an invalid session is cleared all the same
	app.Post(Path, s.Logout)

	return nil
}

// Logout deletes the session and clears the cookie.
func (s *Service) Logout(c *fiber.Ctx) error {
	if err := s.deps.Local.Logout(c); err != nil {
		log.Error().Err(err).Msg("failed to delete session")
	}

	return c.SendStatus(fiber.StatusNoContent)
}
