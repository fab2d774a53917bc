// Package members lets tenant admins manage the members of their own tenant.
package members

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/assetdesk/assetdesk/internal/auth"
	"github.com/assetdesk/assetdesk/internal/db/models"
	"github.com/assetdesk/assetdesk/internal/web/handler"
)

const (
	// Path is the member collection of the resolved tenant.
	Path = "/tenant/members"

	userParam = "userId"
)

// Member is a tenant member as listed to tenant admins.
type Member struct {
	UserID    uint64            `json:"userId"`
	Username  string            `json:"username"`
	Email     string            `json:"email"`
	Role      models.TenantRole `json:"role"`
	CreatedAt time.Time         `json:"createdAt"`
}

type roleInput struct {
	Role models.TenantRole `json:"role" validate:"omitempty"`
}

// Service provides the member endpoints.
type Service struct {
	handler.Service
	deps *handler.Deps
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers the routes behind authentication, tenant resolution and the tenant admin guard.
func (s *Service) Init(app fiber.Router, deps *handler.Deps) error {
	if app == nil {
		return handler.ErrMissingDeps
	}

	if err := deps.Check(); err != nil {
		return err
	}

	if deps.Resolver == nil || deps.Guard == nil {
		return handler.ErrMissingDeps
	}

	s.deps = deps

	group := app.Group(Path,
		deps.Authenticated(),
		auth.RequireTenant(deps.Resolver),
		auth.RequireTenantAdmin(deps.Store),
	)

	group.Get("", s.List)
	group.Post("/:userId", s.Add)
	group.Patch("/:userId", s.SetRole)
	group.Delete("/:userId", s.Remove)

	return nil
}

// List lists the members of the tenant.
func (s *Service) List(c *fiber.Ctx) error {
	tenant, _, ok := auth.TenantFrom(c)
	if !ok {
		return auth.ErrNoTenant
	}

	memberships, err := s.deps.Store.ListMembers(c.UserContext(), tenant.ID)
	if err != nil {
		return err
	}

	members := make([]Member, 0, len(memberships))
	for _, m := range memberships {
		members = append(members, Member{
			UserID:    m.UserID,
			Username:  m.User.Username,
			Email:     m.User.Email,
			Role:      m.Role,
			CreatedAt: m.CreatedAt,
		})
	}

	return c.JSON(members)
}

// Add adds a user to the tenant. The role defaults to member.
func (s *Service) Add(c *fiber.Ctx) error {
	tenantID, userID, input, err := s.request(c)
	if err != nil {
		return err
	}

	membership, err := s.deps.Guard.AddMembership(c.UserContext(), tenantID, userID, input.Role)
	if err != nil {
		return err
	}

	log.Info().Uint64("tenant_id", tenantID).Uint64("user_id", userID).Msg("member added")

	return c.Status(fiber.StatusCreated).JSON(membership)
}

// SetRole changes the tenant role of a member.
func (s *Service) SetRole(c *fiber.Ctx) error {
	tenantID, userID, input, err := s.request(c)
	if err != nil {
		return err
	}

	if err = s.deps.Guard.SetMembershipRole(c.UserContext(), tenantID, userID, input.Role); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Remove removes a member from the tenant.
func (s *Service) Remove(c *fiber.Ctx) error {
	tenantID, userID, _, err := s.request(c)
	if err != nil {
		return err
	}

	if err = s.deps.Guard.RemoveMembership(c.UserContext(), tenantID, userID); err != nil {
		return err
	}

	log.Info().Uint64("tenant_id", tenantID).Uint64("user_id", userID).Msg("member removed")

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Service) request(c *fiber.Ctx) (uint64, uint64, roleInput, error) {
	var input roleInput

	tenant, _, ok := auth.TenantFrom(c)
	if !ok {
		return 0, 0, input, auth.ErrNoTenant
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

	return tenant.ID, userID, input, nil
}
