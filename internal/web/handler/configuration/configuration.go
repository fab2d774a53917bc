// Package configuration serves the public client configuration.
package configuration

import (
	"github.com/gofiber/fiber/v2"

	"github.com/assetdesk/assetdesk/internal/web/handler"
)

// Path is the public configuration endpoint.
const Path = handler.RootPath + "config"

// Service is the configuration handler service.
type Service struct {
	handler.Service
	deps *handler.Deps
}

// Handler is the configuration handler.
var Handler = Service{}

// Init registers the route. It needs no authentication.
func (s *Service) Init(app fiber.Router, deps *handler.Deps) error {
	if app == nil {
		return handler.ErrMissingDeps
	}

	if err := deps.Check(); err != nil {
		return err
	}

	s.deps = deps

	app.Get(Path, s.Get)

	return nil
}

// Get answers the descriptor of the wired provider, so clients know which login flow to run.
// It never contains secrets.
func (s *Service) Get(c *fiber.Ctx) error {
	return c.JSON(s.deps.Provider.Descriptor())
}
