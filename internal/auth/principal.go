package auth

import (
	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"

	"github.com/assetdesk/assetdesk/internal/config"
	"github.com/assetdesk/assetdesk/internal/db/models"
)

const (
	localsPrincipal  = "auth.principal"
	localsTenant     = "auth.tenant"
	localsMembership = "auth.membership"
)

// Principal is the normalized identity of the caller, whatever provider authenticated it.
// It is rebuilt on every request and never persisted.
type Principal struct {
	UserID     uint64              `json:"id"`
	Username   string              `json:"username"`
	Email      string              `json:"email"`
	FirstName  string              `json:"firstName"`
	LastName   string              `json:"lastName"`
	GlobalRole models.GlobalRole   `json:"globalRole"`
	Provider   config.AuthProvider `json:"provider"`

	// Token is the bearer token of the request, external provider only.
	Token string `json:"-"`
	// Refreshed holds the token pair obtained by a refresh exchange during validation.
	Refreshed *oauth2.Token `json:"-"`
}

// NewPrincipal builds the principal of a stored user.
func NewPrincipal(u *models.User, provider config.AuthProvider) *Principal {
	return &Principal{
		UserID:     u.ID,
		Username:   u.Username,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		GlobalRole: u.GlobalRole,
		Provider:   provider,
	}
}

// PrincipalFrom returns the principal stored by Resolve.
func PrincipalFrom(c *fiber.Ctx) (*Principal, bool) {
	p, ok := c.Locals(localsPrincipal).(*Principal)

	return p, ok && p != nil
}

// TenantFrom returns the tenant context stored by RequireTenant.
func TenantFrom(c *fiber.Ctx) (*models.Tenant, *models.Membership, bool) {
	t, okT := c.Locals(localsTenant).(*models.Tenant)
	m, okM := c.Locals(localsMembership).(*models.Membership)

	return t, m, okT && okM
}

// WithPrincipal stores p in the request context.
func WithPrincipal(c *fiber.Ctx, p *Principal) {
	c.Locals(localsPrincipal, p)
}

func withTenant(c *fiber.Ctx, t *models.Tenant, m *models.Membership) {
	c.Locals(localsTenant, t)
	c.Locals(localsMembership, m)
}
