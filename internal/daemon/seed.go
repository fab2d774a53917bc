package daemon

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/assetdesk/assetdesk/internal/config"
	"github.com/assetdesk/assetdesk/internal/db/controller/identity"
	"github.com/assetdesk/assetdesk/internal/db/controller/setting"
	"github.com/assetdesk/assetdesk/internal/db/models"
	"github.com/assetdesk/assetdesk/internal/uniuri"
)

const generatedPasswordLen = 20

// seed records the provider the service boots with and, under the local provider,
// creates the bootstrap platform-admin once while the user table is empty.
func seed(ctx context.Context, cfg *config.Config, db *gorm.DB, store identity.Store) error {
	if err := recordProvider(ctx, cfg, db); err != nil {
		return err
	}

	if cfg.Auth.Provider != config.AuthProviderLocal {
		return nil
	}

	_, err := setting.Get(ctx, db, setting.KeySeeded)
	if err == nil {
		return nil
	}

	if !errors.Is(err, setting.ErrSettingNotFound) {
		return err
	}

	_, total, err := store.ListUsers(ctx, identity.ListFilter{Limit: 1})
	if err != nil {
		return err
	}

	if total == 0 {
		password := cfg.Bootstrap.AdminPassword
		if password == "" {
			password = uniuri.NewLen(generatedPasswordLen)
			log.Warn().Str("username", cfg.Bootstrap.AdminUsername).Str("password", password).
				Msg("generated bootstrap admin password, change it after the first login")
		}

		if _, err = CreateAdmin(ctx, store, cfg.Bootstrap.AdminUsername, cfg.Bootstrap.AdminEmail, password); err != nil {
			return err
		}
	}

	return setting.Set(ctx, db, setting.KeySeeded, []byte("true"))
}

// recordProvider warns when the provider changed since the last boot.
// Existing users keep their auth source; external accounts can not log in locally and vice versa.
func recordProvider(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	previous, err := setting.Get(ctx, db, setting.KeyAuthProvider)

	switch {
	case errors.Is(err, setting.ErrSettingNotFound):
	case err != nil:
		return err
	case string(previous) != string(cfg.Auth.Provider):
		log.Warn().
			Str("previous", string(previous)).
			Str("current", string(cfg.Auth.Provider)).
			Msg("authentication provider changed, existing users keep their auth source")
	default:
		return nil
	}

	return setting.Set(ctx, db, setting.KeyAuthProvider, []byte(cfg.Auth.Provider))
}

// CreateAdmin creates a local platform-admin.
func CreateAdmin(ctx context.Context, store identity.Store, username, email, password string) (*models.User, error) {
	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", ErrIncompleteAdmin)
	}

	user := &models.User{
		Username:   username,
		Email:      email,
		Password:   models.HashPassword(password),
		GlobalRole: models.GlobalRolePlatformAdmin,
		AuthSource: models.AuthSourceLocal,
	}

	if err := store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	log.Info().Uint64("user_id", user.ID).Str("username", user.Username).Msg("platform-admin created")

	return user, nil
}

// ErrIncompleteAdmin is returned when an administrator is created without credentials.
var ErrIncompleteAdmin = errors.New("incomplete administrator")
