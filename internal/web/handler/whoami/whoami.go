// Package whoami tells a client who it is and which tenant it works in.
package whoami

import (
	"github.com/gofiber/fiber/v2"

	"github.com/assetdesk/assetdesk/internal/auth"
	"github.com/assetdesk/assetdesk/internal/db/models"
	"github.com/assetdesk/assetdesk/internal/web/handler"
)

// Path is the whoami endpoint.
const Path = handler.AuthPath + "/whoami"

// Response is the whoami answer.
type Response struct {
	Principal  *auth.Principal    `json:"principal"`
	Tenant     *models.Tenant     `json:"tenant"`
	Membership *models.Membership `json:"membership"`
}

// Service is the whoami handler service.
type Service struct {
	handler.Service
	deps *handler.Deps
}

// Handler is the whoami handler.
var Handler = Service{}

// Init registers the route behind authentication and tenant resolution.
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

	app.Get(Path, deps.Authenticated(), auth.RequireTenant(deps.Resolver), s.Get)

	return nil
}

// Get answers the principal with its resolved tenant and membership.
// A principal without any tenant gets 404 no_tenant from the tenant middleware.
func (s *Service) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		return auth.ErrUnauthenticated
	}

	tenant, membership, ok := auth.TenantFrom(c)
	if !ok {
		return auth.ErrNoTenant
	}

	return c.JSON(Response{Principal: principal, Tenant: tenant, Membership: membership})
}
