package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/assetdesk/assetdesk/internal/config"
	"github.com/assetdesk/assetdesk/internal/db/controller/identity"
	"github.com/assetdesk/assetdesk/internal/db/models"
	"github.com/assetdesk/assetdesk/internal/directory"
)

// NewUser is an account created by an administrator.
type NewUser struct {
	Username   string
	Email      string
	Password   string
	FirstName  string
	LastName   string
	GlobalRole models.GlobalRole
}

// UserManager runs the administrative user lifecycle and mirrors it into the remote directory.
type UserManager struct {
	provider config.AuthProvider
	store    identity.Store
	guard    *RoleGuard
	dir      directory.Synchronizer
}

// NewUserManager creates a manager. Under the local provider dir is normally directory.Noop.
func NewUserManager(
	provider config.AuthProvider,
	store identity.Store,
	guard *RoleGuard,
	dir directory.Synchronizer,
) *UserManager {
	if dir == nil {
		dir = directory.Noop{}
	}

	return &UserManager{provider: provider, store: store, guard: guard, dir: dir}
}

// Create creates the account remotely first, then locally.
// A remote conflict aborts with ErrRemoteConflict and nothing is written locally.
// An unavailable directory does not stop the local create.
func (m *UserManager) Create(ctx context.Context, in NewUser) (*models.User, directory.Result, error) {
	role := in.GlobalRole
	if role == "" {
		role = models.GlobalRoleStandard
	}

	if !role.Valid() {
		return nil, directory.Result{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	user := &models.User{
		Username:   strings.TrimSpace(in.Username),
		Email:      strings.ToLower(strings.TrimSpace(in.Email)),
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		GlobalRole: role,
		AuthSource: models.AuthSourceLocal,
	}

	// password hashes only exist for users that log in locally
	if m.provider == config.AuthProviderLocal {
		user.Password = models.HashPassword(in.Password)
	} else {
		user.AuthSource = models.AuthSourceExternal
	}

	res := m.dir.CreateUser(ctx, directory.RemoteUser{
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Password:  in.Password,
	})
	if res.Conflict() {
		return nil, res, res.Err
	}

	if res.RemoteID != "" {
		user.ExternalID = &res.RemoteID
	}

	if err := m.store.CreateUser(ctx, user); err != nil {
		if res.Status == directory.StatusSynced {
			// keep both stores aligned, the remote account must not outlive the failed local create
			if undo := m.dir.DeleteUser(ctx, res.RemoteID); undo.Status != directory.StatusSynced {
				log.Error().Err(undo.Err).Str("remote_id", res.RemoteID).Msg("failed to roll back remote user")
			}
		}

		return nil, res, fmt.Errorf("failed to create user: %w", err)
	}

	return user, res, nil
}

// Delete deletes the local user under the role invariants, then the remote account.
func (m *UserManager) Delete(ctx context.Context, actorID, targetID uint64) (*models.User, directory.Result, error) {
	user, err := m.guard.DeleteUser(ctx, actorID, targetID)
	if err != nil {
		return nil, directory.Result{}, err
	}

	if user.ExternalID == nil {
		return user, directory.Result{Status: directory.StatusSkipped}, nil
	}

	return user, m.dir.DeleteUser(ctx, *user.ExternalID), nil
}

// ResetPassword sets a new password. Local accounts are updated in the store; accounts
// known to the remote directory are reset there too. An externally managed account whose
// directory is unavailable fails with ErrRemoteUnavailable since nothing could be changed.
func (m *UserManager) ResetPassword(ctx context.Context, targetID uint64, password string) (directory.Result, error) {
	user, err := m.store.UserByID(ctx, targetID)
	if err != nil {
		return directory.Result{}, err
	}

	if user.AuthSource == models.AuthSourceLocal {
		if err = m.store.UpdatePassword(ctx, targetID, models.HashPassword(password)); err != nil {
			return directory.Result{}, err
		}
	}

	if user.ExternalID == nil {
		return directory.Result{Status: directory.StatusSkipped}, nil
	}

	res := m.dir.ResetPassword(ctx, *user.ExternalID, password)
	if user.AuthSource == models.AuthSourceExternal && res.Status == directory.StatusUnavailable {
		return res, res.Err
	}

	return res, nil
}
