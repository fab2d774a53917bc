// Package user provides the platform-admin user management endpoints.
package user

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/assetdesk/assetdesk/internal/auth"
	"github.com/assetdesk/assetdesk/internal/config"
	"github.com/assetdesk/assetdesk/internal/db/controller/identity"
	"github.com/assetdesk/assetdesk/internal/web/handler"
)

const (
	// Path is the user collection, relative to the admin router.
	Path = "/users"

	idParam = "id"
)

// Service provides the user administration.
type Service struct {
	handler.Service
	deps *handler.Deps
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers the routes on the admin router.
func (s *Service) Init(admin fiber.Router, deps *handler.Deps) error {
	if admin == nil {
		return handler.ErrMissingDeps
	}

	if err := deps.Check(); err != nil {
		return err
	}

	if deps.Users == nil || deps.Guard == nil {
		return handler.ErrMissingDeps
	}

	s.deps = deps

	admin.Get(Path, s.List)
	admin.Post(Path, s.Create)
	admin.Patch(Path+"/:id/role", s.SetRole)
	admin.Delete(Path+"/:id", s.Delete)
	admin.Post(Path+"/:id/password", s.ResetPassword)

	return nil
}

// List shows users with simple pagination and search.
func (s *Service) List(c *fiber.Ctx) error {
	page, pageSize := handler.Page(c)

	users, total, err := s.deps.Store.ListUsers(c.UserContext(), identity.ListFilter{
		Search: c.Query("search"),
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	})
	if err != nil {
		return err
	}

	return c.JSON(ListResponse{Users: users, Total: total, Page: page, PageSize: pageSize})
}

// Create creates a user remotely first, then locally.
func (s *Service) Create(c *fiber.Ctx) error {
	var input createInput
	if err := handler.Bind(c, s.deps.Validator, &input); err != nil {
		return err
	}

	if input.Password == "" && s.deps.Cfg.Auth.Provider == config.AuthProviderLocal {
		return fiber.NewError(fiber.StatusBadRequest, "password is required")
	}

	user, res, err := s.deps.Users.Create(c.UserContext(), auth.NewUser{
		Username:   input.Username,
		Email:      input.Email,
		Password:   input.Password,
		FirstName:  input.FirstName,
		LastName:   input.LastName,
		GlobalRole: input.GlobalRole,
	})
	if err != nil {
		return err
	}

	log.Info().Uint64("user_id", user.ID).Str("username", user.Username).Stringer("directory", res.Status).Msg("user created")

	return c.Status(fiber.StatusCreated).JSON(SyncResponse{User: user, Directory: res.Status})
}

// SetRole changes the global role of a user.
func (s *Service) SetRole(c *fiber.Ctx) error {
	actor, ok := auth.PrincipalFrom(c)
	if !ok {
		return auth.ErrUnauthenticated
	}

	id, err := handler.ParamID(c, idParam)
	if err != nil {
		return err
	}

	var input roleInput
	if err = handler.Bind(c, s.deps.Validator, &input); err != nil {
		return err
	}

	user, err := s.deps.Guard.ChangeGlobalRole(c.UserContext(), actor.UserID, id, input.Role)
	if err != nil {
		return err
	}

	return c.JSON(user)
}

// Delete deletes a user locally, then in the remote directory.
func (s *Service) Delete(c *fiber.Ctx) error {
	actor, ok := auth.PrincipalFrom(c)
	if !ok {
		return auth.ErrUnauthenticated
	}

	id, err := handler.ParamID(c, idParam)
	if err != nil {
		return err
	}

	user, res, err := s.deps.Users.Delete(c.UserContext(), actor.UserID, id)
	if err != nil {
		return err
	}

	return c.JSON(SyncResponse{User: user, Directory: res.Status})
}

// ResetPassword sets a new password for a user.
func (s *Service) ResetPassword(c *fiber.Ctx) error {
	id, err := handler.ParamID(c, idParam)
	if err != nil {
		return err
	}

	var input passwordInput
	if err = handler.Bind(c, s.deps.Validator, &input); err != nil {
		return err
	}

	res, err := s.deps.Users.ResetPassword(c.UserContext(), id, input.Password)
	if err != nil {
		return err
	}

	return c.JSON(SyncResponse{Directory: res.Status})
}
