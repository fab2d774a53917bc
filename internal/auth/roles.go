package auth

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/assetdesk/assetdesk/internal/db/controller/identity"
	"github.com/assetdesk/assetdesk/internal/db/models"
)

// RoleGuard performs role and membership writes under the platform-admin invariants:
// the last platform-admin can neither be demoted nor deleted, and nobody demotes themselves.
//
// The checks re-read the target and the admin count inside the writing transaction.
// Rows are not locked, so two concurrent demotions of different admins can still race.
type RoleGuard struct {
	store identity.Store
}

// NewRoleGuard creates a guard on store.
func NewRoleGuard(store identity.Store) *RoleGuard {
	return &RoleGuard{store: store}
}

// ChangeGlobalRole sets the global role of target on behalf of actor.
func (g *RoleGuard) ChangeGlobalRole(
	ctx context.Context,
	actorID, targetID uint64,
	role models.GlobalRole,
) (*models.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	var updated *models.User

	err := g.store.Transaction(ctx, func(tx identity.Store) error {
		target, err := tx.UserByID(ctx, targetID)
		if err != nil {
			return err
		}

		if target.IsPlatformAdmin() && role != models.GlobalRolePlatformAdmin {
			if actorID == targetID {
				return fmt.Errorf("%w: platform-admins can not demote themselves", ErrInvariantViolation)
			}

			if err = ensureAnotherAdmin(ctx, tx); err != nil {
				return err
			}
		}

		if err = tx.SetGlobalRole(ctx, targetID, role); err != nil {
			return err
		}

		target.GlobalRole = role
		updated = target

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Uint64("actor_id", actorID).Uint64("user_id", targetID).Str("role", string(role)).Msg("global role changed")

	return updated, nil
}

// ApplyAssertedRole follows the global role the external identity provider asserts for a user.
// Only a change of the assertion is applied, so a role set by an administrator holds until the
// provider asserts something new. A row without any recorded assertion keeps its role.
//
// Demoting the last platform-admin is refused: the stored role stays, the assertion is left
// pending and is applied once another platform-admin exists.
func (g *RoleGuard) ApplyAssertedRole(
	ctx context.Context,
	userID uint64,
	asserted models.GlobalRole,
) (*models.User, error) {
	var (
		user    *models.User
		refused bool
	)

	err := g.store.Transaction(ctx, func(tx identity.Store) error {
		var err error

		user, err = tx.UserByID(ctx, userID)
		if err != nil {
			return err
		}

		if user.AssertedRole == asserted {
			return nil
		}

		if user.AssertedRole != "" && user.GlobalRole != asserted {
			if user.IsPlatformAdmin() {
				if ensureAnotherAdmin(ctx, tx) != nil {
					refused = true

					return nil
				}
			}

			if err = tx.SetGlobalRole(ctx, userID, asserted); err != nil {
				return err
			}

			user.GlobalRole = asserted
		}

		if err = tx.SetAssertedRole(ctx, userID, asserted); err != nil {
			return err
		}

		user.AssertedRole = asserted

		return nil
	})
	if err != nil {
		return nil, err
	}

	if refused {
		log.Warn().Uint64("user_id", userID).Str("asserted_role", string(asserted)).
			Msg("identity provider demotes the last platform-admin, keeping the stored role")
	}

	return user, nil
}

// DeleteUser deletes target on behalf of actor and returns the deleted row.
func (g *RoleGuard) DeleteUser(ctx context.Context, actorID, targetID uint64) (*models.User, error) {
	var deleted *models.User

	err := g.store.Transaction(ctx, func(tx identity.Store) error {
		target, err := tx.UserByID(ctx, targetID)
		if err != nil {
			return err
		}

		if target.IsPlatformAdmin() {
			if err = ensureAnotherAdmin(ctx, tx); err != nil {
				return err
			}
		}

		if err = tx.DeleteUser(ctx, targetID); err != nil {
			return err
		}

		deleted = target

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Uint64("actor_id", actorID).Uint64("user_id", targetID).Msg("user deleted")

	return deleted, nil
}

// AddMembership adds user to tenant with role.
func (g *RoleGuard) AddMembership(
	ctx context.Context,
	tenantID, userID uint64,
	role models.TenantRole,
) (*models.Membership, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	return g.store.AddMembership(ctx, userID, tenantID, role)
}

// SetMembershipRole changes the tenant role of an existing membership.
func (g *RoleGuard) SetMembershipRole(ctx context.Context, tenantID, userID uint64, role models.TenantRole) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	return g.store.Transaction(ctx, func(tx identity.Store) error {
		if _, err := tx.Membership(ctx, userID, tenantID); err != nil {
			return err
		}

		return tx.SetMembershipRole(ctx, userID, tenantID, role)
	})
}

// RemoveMembership removes user from tenant.
func (g *RoleGuard) RemoveMembership(ctx context.Context, tenantID, userID uint64) error {
	return g.store.RemoveMembership(ctx, userID, tenantID)
}

func ensureAnotherAdmin(ctx context.Context, tx identity.Store) error {
	count, err := tx.CountPlatformAdmins(ctx)
	if err != nil {
		return fmt.Errorf("failed to count platform-admins: %w", err)
	}

	if count <= 1 {
		return fmt.Errorf("%w: the last platform-admin can not be removed", ErrInvariantViolation)
	}

	return nil
}
