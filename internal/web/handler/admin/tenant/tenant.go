// Package tenant provides the platform-admin tenant and membership endpoints.
package tenant

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/assetdesk/assetdesk/internal/db/models"
	"github.com/assetdesk/assetdesk/internal/web/handler"
)

const (
	// Path is the tenant collection, relative to the admin router.
	Path = "/tenants"

	tenantParam = "id"
	userParam   = "userId"
)

// Service provides the tenant administration.
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

	if deps.Guard == nil {
		return handler.ErrMissingDeps
	}

	s.deps = deps

	admin.Post(Path, s.Create)
	admin.Post(Path+"/:id/users/:userId", s.AddMember)
	admin.Patch(Path+"/:id/users/:userId", s.SetMemberRole)
	admin.Delete(Path+"/:id/users/:userId", s.RemoveMember)

	return nil
}

// Create creates a tenant without members.
func (s *Service) Create(c *fiber.Ctx) error {
	var input createInput
	if err := handler.Bind(c, s.deps.Validator, &input); err != nil {
		return err
	}

	tenant, err := s.deps.Store.CreateTenant(c.UserContext(), input.Name)
	if err != nil {
		return err
	}

	log.Info().Uint64("tenant_id", tenant.ID).Str("slug", tenant.Slug).Msg("tenant created")

	return c.Status(fiber.StatusCreated).JSON(tenant)
}

// AddMember adds a user to a tenant. The role defaults to member.
func (s *Service) AddMember(c *fiber.Ctx) error {
	tenantID, userID, input, err := s.membershipRequest(c)
	if err != nil {
		return err
	}

	membership, err := s.deps.Guard.AddMembership(c.UserContext(), tenantID, userID, input.Role)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(membership)
}

// SetMemberRole changes the tenant role of a member.
func (s *Service) SetMemberRole(c *fiber.Ctx) error {
	tenantID, userID, input, err := s.membershipRequest(c)
	if err != nil {
		return err
	}

	if err = s.deps.Guard.SetMembershipRole(c.UserContext(), tenantID, userID, input.Role); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// RemoveMember removes a user from a tenant.
func (s *Service) RemoveMember(c *fiber.Ctx) error {
	tenantID, err := handler.ParamID(c, tenantParam)
	if err != nil {
		return err
	}

	userID, err := handler.ParamID(c, userParam)
	if err != nil {
		return err
	}

	if err = s.deps.Guard.RemoveMembership(c.UserContext(), tenantID, userID); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Service) membershipRequest(c *fiber.Ctx) (uint64, uint64, membershipInput, error) {
	var input membershipInput

	tenantID, err := handler.ParamID(c, tenantParam)
	if err != nil {
		return 0, 0, input, err
	}

	userID, err := handler.ParamID(c, userParam)
	if err != nil {
		return 0, 0, input, err
	}

	if len(c.Body()) > 0 {
		if err = handler.Bind(c, s.deps.Validator, &input); err != nil {
			return 0, 0, input, err
		}
	}

	if input.Role == "" {
		input.Role = models.TenantRoleMember
	}

	return tenantID, userID, input, nil
}
