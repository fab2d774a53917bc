package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/assetdesk/assetdesk/internal/auth"
	"github.com/assetdesk/assetdesk/internal/config"
	"github.com/assetdesk/assetdesk/internal/db/controller/identity"
)

// ErrMissingDeps is returned by Init when a required dependency is nil.
var ErrMissingDeps = errors.New(ErrNilDepsMsg)

// Deps holds everything the handlers share. It is built once by the daemon.
type Deps struct {
	Cfg      *config.Config
	Store    identity.Store
	Provider auth.Provider
	// Local is the local provider, nil when the external provider is wired.
	Local     *auth.LocalProvider
	Resolver  *auth.TenantResolver
	Guard     *auth.RoleGuard
	Users     *auth.UserManager
	Validator *validator.Validate
}

// Check reports ErrMissingDeps if a dependency every handler needs is missing.
func (d *Deps) Check() error {
	if d == nil || d.Cfg == nil || d.Store == nil || d.Provider == nil {
		return ErrMissingDeps
	}

	if d.Validator == nil {
		d.Validator = validator.New()
	}

	return nil
}

// Authenticated resolves the principal of the request through the wired provider.
func (d *Deps) Authenticated() fiber.Handler {
	return auth.Resolve(d.Provider)
}

// Service is the interface for a web handler service.
type Service interface {
	Init(app fiber.Router, deps *Deps) error
}

// AdminRouter groups the platform-admin routes under AdminPath.
// Every route in it requires an authenticated platform-admin.
func AdminRouter(app fiber.Router, deps *Deps) fiber.Router {
	return app.Group(AdminPath, deps.Authenticated(), auth.RequirePlatformAdmin(deps.Store))
}
