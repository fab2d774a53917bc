package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/assetdesk/assetdesk/internal/db/controller/identity"
	"github.com/assetdesk/assetdesk/internal/db/models"
)

// HeaderTenantID selects one of the principal's tenants explicitly.
const HeaderTenantID = "X-Tenant-ID"

// TenantResolver maps a principal to its tenant context.
type TenantResolver struct {
	store identity.Store
}

// NewTenantResolver creates a resolver on store.
func NewTenantResolver(store identity.Store) *TenantResolver {
	return &TenantResolver{store: store}
}

// Resolve returns the tenant and membership of the principal.
// Without a requested tenant the oldest membership is used. A requested tenant must be
// backed by a membership, otherwise ErrForbidden. No membership at all is ErrNoTenant.
func (r *TenantResolver) Resolve(
	ctx context.Context,
	p *Principal,
	requested uint64,
) (*models.Tenant, *models.Membership, error) {
	var (
		membership *models.Membership
		err        error
	)

	if requested != 0 {
		membership, err = r.store.Membership(ctx, p.UserID, requested)
		if errors.Is(err, identity.ErrMembershipNotFound) {
			log.Warn().Uint64("user_id", p.UserID).Uint64("tenant_id", requested).Msg("tenant requested without membership")

			return nil, nil, ErrForbidden
		}
	} else {
		membership, err = r.store.FirstMembership(ctx, p.UserID)
		if errors.Is(err, identity.ErrMembershipNotFound) {
			return nil, nil, ErrNoTenant
		}
	}

	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve membership: %w", err)
	}

	tenant, err := r.store.TenantByID(ctx, membership.TenantID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load tenant: %w", err)
	}

	return tenant, membership, nil
}

// Setup creates the first workspace of a principal without any tenant and makes them its admin.
func (r *TenantResolver) Setup(ctx context.Context, p *Principal, name string) (*models.Tenant, *models.Membership, error) {
	var (
		tenant     *models.Tenant
		membership *models.Membership
	)

	err := r.store.Transaction(ctx, func(tx identity.Store) error {
		_, err := tx.FirstMembership(ctx, p.UserID)

		switch {
		case err == nil:
			return ErrTenantExists
		case !errors.Is(err, identity.ErrMembershipNotFound):
			return err
		}

		if tenant, err = tx.CreateTenant(ctx, name); err != nil {
			return err
		}

		membership, err = tx.AddMembership(ctx, p.UserID, tenant.ID, models.TenantRoleAdmin)

		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("workspace setup failed: %w", err)
	}

	log.Info().Uint64("user_id", p.UserID).Uint64("tenant_id", tenant.ID).Str("slug", tenant.Slug).Msg("workspace created")

	return tenant, membership, nil
}
