package auth

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/assetdesk/assetdesk/internal/db/controller/identity"
	"github.com/assetdesk/assetdesk/internal/db/models"
)

// Resolve authenticates every request with the wired provider and stores the principal.
// Failures answer 401 with error code unauthenticated or token_expired; there is no redirect.
func Resolve(p Provider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, err := p.Authenticate(c)
		if err != nil {
			if !errors.Is(err, ErrUnauthenticated) && !errors.Is(err, ErrTokenExpired) {
				log.Error().Err(err).Str("provider", string(p.Name())).Msg("failed to authenticate request")
			}

			return WriteError(c, err)
		}

		WithPrincipal(c, principal)

		return c.Next()
	}
}

// RequirePlatformAdmin allows platform-admins only. The role is read from the store,
// not from the session or token snapshot. Must run after Resolve.
func RequirePlatformAdmin(store identity.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFrom(c)
		if !ok {
			return WriteError(c, ErrUnauthenticated)
		}

		user, err := store.UserByID(c.UserContext(), principal.UserID)
		if errors.Is(err, identity.ErrUserNotFound) {
			return WriteError(c, ErrUnauthenticated)
		}

		if err != nil {
			log.Error().Err(err).Uint64("user_id", principal.UserID).Msg("failed to load user")

			return WriteError(c, err)
		}

		if !user.IsPlatformAdmin() {
			log.Warn().Uint64("user_id", principal.UserID).Str("path", c.Path()).Msg("platform-admin required")

			return WriteError(c, ErrForbidden)
		}

		return c.Next()
	}
}

// RequireTenant resolves the tenant of the principal and stores it with the membership.
// An X-Tenant-ID header selects a tenant explicitly; it is honoured only with a membership.
// Must run after Resolve.
func RequireTenant(resolver *TenantResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFrom(c)
		if !ok {
			return WriteError(c, ErrUnauthenticated)
		}

		requested, err := requestedTenant(c)
		if err != nil {
			return WriteError(c, ErrForbidden)
		}

		tenant, membership, err := resolver.Resolve(c.UserContext(), principal, requested)
		if err != nil {
			return WriteError(c, err)
		}

		withTenant(c, tenant, membership)

		return c.Next()
	}
}

// RequireTenantAdmin allows tenant admins of the resolved tenant and platform-admins.
// Must run after RequireTenant.
func RequireTenantAdmin(store identity.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFrom(c)
		if !ok {
			return WriteError(c, ErrUnauthenticated)
		}

		_, membership, ok := TenantFrom(c)
		if !ok {
			return WriteError(c, ErrNoTenant)
		}

		if membership.Role == models.TenantRoleAdmin {
			return c.Next()
		}

		user, err := store.UserByID(c.UserContext(), principal.UserID)
		if err != nil {
			return WriteError(c, err)
		}

		if !user.IsPlatformAdmin() {
			return WriteError(c, ErrForbidden)
		}

		return c.Next()
	}
}

func requestedTenant(c *fiber.Ctx) (uint64, error) {
	raw := c.Get(HeaderTenantID)
	if raw == "" {
		return 0, nil
	}

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrForbidden
	}

	return id, nil
}
