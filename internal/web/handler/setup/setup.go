// Package setup creates the first workspace of a user that has none.
package setup

import (
	"github.com/gofiber/fiber/v2"

	"github.com/assetdesk/assetdesk/internal/auth"
	"github.com/assetdesk/assetdesk/internal/db/models"
	"github.com/assetdesk/assetdesk/internal/web/handler"
)

// Path is the workspace setup endpoint.
const Path = handler.AuthPath + "/setup"

// Request is the setup request body.
type Request struct {
	Name string `json:"name" validate:"required,max=150"`
}

// Response is the created workspace.
type Response struct {
	Tenant     *models.Tenant     `json:"tenant"`
	Membership *models.Membership `json:"membership"`
}

// Service is the setup handler service.
type Service struct {
	handler.Service
	deps *handler.Deps
}

// Handler is the setup handler.
var Handler = Service{}

// Init registers the route behind authentication.
func (s *Service) Init(app fiber.Router, deps *handler.Deps) error {
	if app == nil {
		return handler.ErrMissingDeps
	}

	if err := deps.Check(); err != nil {
		return err
	}

	if deps.Resolver == nil {
		return handler.ErrMissingDeps
	}

	s.deps = deps

	app.Post(Path, deps.Authenticated(), s.Post)

	return nil
}

// Post creates the tenant and makes the caller its admin. 409 if the caller already has a tenant.
func (s *Service) Post(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		return auth.ErrUnauthenticated
	}

	var body Request
	if err := handler.Bind(c, s.deps.Validator, &body); err != nil {
		return err
	}

	tenant, membership, err := s.deps.Resolver.Setup(c.UserContext(), principal, body.Name)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(Response{Tenant: tenant, Membership: membership})
}
