package login

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/assetdesk/assetdesk/internal/auth"
	"github.com/assetdesk/assetdesk/internal/config"
	"github.com/assetdesk/assetdesk/internal/web/handler"
)

const (
	// Path is the local login endpoint.
	Path = handler.AuthPath + "/local"
	// RegisterPath is the self-service sign up endpoint.
	RegisterPath = handler.AuthPath + "/register"
	// PasswordPath changes the password of the caller.
	PasswordPath = handler.AuthPath + "/password"
)

// Credentials is the login request body.
type Credentials struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=256"`
}

// Registration is the sign up request body.
type Registration struct {
	Username  string `json:"username"  validate:"required,min=3,max=100"`
	Email     string `json:"email"     validate:"required,email,max=255"`
	Password  string `json:"password"  validate:"required,min=8,max=256"`
	FirstName string `json:"firstName" validate:"max=100"`
	LastName  string `json:"lastName"  validate:"max=100"`
}

// PasswordChange is the body of a password change.
type PasswordChange struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=256,nefield=OldPassword"`
}

// Service is the login handler service.
type Service struct {
	handler.Service
	deps *handler.Deps
}

// Handler is the login handler.
var Handler = Service{}

// Init registers the local routes. It fails unless the local provider is wired.
func (s *Service) Init(app fiber.Router, deps *handler.Deps) error {
	if app == nil {
		return handler.ErrMissingDeps
	}

	if err := deps.Check(); err != nil {
		return err
	}

	if deps.Cfg.Auth.Provider != config.AuthProviderLocal || deps.Local == nil {
		return ErrLocalAuthDisabled
	}

	s.deps = deps

	app.Post(Path, s.Login)
	app.Post(RegisterPath, s.Register)
	app.Post(PasswordPath, deps.Authenticated(), s.ChangePassword)

	return nil
}

// Login verifies the credentials, sets the session cookie and answers the principal.
// Every failure is the same 401 invalid_credentials.
func (s *Service) Login(c *fiber.Ctx) error {
	var body Credentials
	if err := handler.Bind(c, s.deps.Validator, &body); err != nil {
		return err
	}

	principal, err := s.deps.Local.Login(c, body.Username, body.Password)
	if err != nil {
		return err
	}

	return c.JSON(principal)
}

// Register creates a standard local user. It does not log the user in.
func (s *Service) Register(c *fiber.Ctx) error {
	var body Registration
	if err := handler.Bind(c, s.deps.Validator, &body); err != nil {
		return err
	}

	user, err := s.deps.Local.Register(c.UserContext(), auth.Registration{
		Username:  body.Username,
		Email:     body.Email,
		Password:  body.Password,
		FirstName: body.FirstName,
		LastName:  body.LastName,
	})
	if err != nil {
		return err
	}

	log.Info().Uint64("user_id", user.ID).Str("username", user.Username).Msg("user registered")

	return c.Status(fiber.StatusCreated).JSON(auth.NewPrincipal(user, config.AuthProviderLocal))
}

// ChangePassword changes the caller's own password after checking the old one.
func (s *Service) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		return auth.ErrUnauthenticated
	}

	var body PasswordChange
	if err := handler.Bind(c, s.deps.Validator, &body); err != nil {
		return err
	}

	if err := s.deps.Local.ChangePassword(c.UserContext(), principal.UserID, body.OldPassword, body.NewPassword); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}
