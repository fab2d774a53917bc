package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/assetdesk/assetdesk/internal/config"
	"github.com/assetdesk/assetdesk/internal/db/controller/identity"
	"github.com/assetdesk/assetdesk/internal/db/models"
	"github.com/assetdesk/assetdesk/internal/web/session"
)

// ErrSessionsNil is returned when the local provider is built without a session manager.
var ErrSessionsNil = errors.New("local provider needs a session manager")

// LocalProvider authenticates with local passwords and server side sessions.
type LocalProvider struct {
	store    identity.Store
	sessions *session.Manager
}

var _ Provider = (*LocalProvider)(nil)

// NewLocalProvider creates a new local authentication provider.
func NewLocalProvider(store identity.Store, sessions *session.Manager) (*LocalProvider, error) {
	if store == nil {
		return nil, identity.ErrDBNil
	}

	if sessions == nil {
		return nil, ErrSessionsNil
	}

	return &LocalProvider{store: store, sessions: sessions}, nil
}

// Name implements Provider.
func (p *LocalProvider) Name() config.AuthProvider {
	return config.AuthProviderLocal
}

// Descriptor implements Provider.
func (p *LocalProvider) Descriptor() Descriptor {
	return Descriptor{AuthProvider: config.AuthProviderLocal}
}

// Authenticate resolves the session cookie to its user. The user row is reloaded on
// every request, so role changes and deletions take effect immediately.
func (p *LocalProvider) Authenticate(c *fiber.Ctx) (*Principal, error) {
	data, err := p.sessions.Lookup(c)
	if errors.Is(err, session.ErrNoSession) {
		return nil, ErrUnauthenticated
	}

	if err != nil {
		return nil, err
	}

	user, err := p.store.UserByID(c.UserContext(), data.UserID)
	if errors.Is(err, identity.ErrUserNotFound) {
		_ = p.sessions.Destroy(c)

		return nil, ErrUnauthenticated
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load session user: %w", err)
	}

	return NewPrincipal(user, config.AuthProviderLocal), nil
}

// Verify checks a username and password. Unknown users, wrong passwords and externally
// managed accounts all fail with ErrInvalidCredentials after a full hash comparison.
func (p *LocalProvider) Verify(ctx context.Context, username, password string) (*models.User, error) {
	user, err := p.store.UserByUsername(ctx, strings.TrimSpace(username))

	switch {
	case errors.Is(err, identity.ErrUserNotFound):
		models.BurnPasswordCheck(password)

		return nil, ErrInvalidCredentials
	case err != nil:
		return nil, fmt.Errorf("failed to query user: %w", err)
	case user.AuthSource != models.AuthSourceLocal:
		models.BurnPasswordCheck(password)

		return nil, ErrInvalidCredentials
	case !user.VerifyPassword(password):
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// Login verifies the credentials and starts a session on success.
// A session the request already carries is ended first.
func (p *LocalProvider) Login(c *fiber.Ctx, username, password string) (*Principal, error) {
	user, err := p.Verify(c.UserContext(), username, password)
	if err != nil {
		countAttempt(config.AuthProviderLocal, outcomeFor(err))

		return nil, err
	}

	if err = p.sessions.Destroy(c); err != nil {
		return nil, fmt.Errorf("failed to end previous session: %w", err)
	}

	if _, err = p.sessions.Create(c, user.ID, user.Username); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	countAttempt(config.AuthProviderLocal, outcomeSuccess)
	log.Info().Uint64("user_id", user.ID).Str("username", user.Username).Msg("local login")

	return NewPrincipal(user, config.AuthProviderLocal), nil
}

// Logout ends the session of the request.
func (p *LocalProvider) Logout(c *fiber.Ctx) error {
	return p.sessions.Destroy(c)
}

// Registration is a self-service sign up.
type Registration struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates a standard local user.
func (p *LocalProvider) Register(ctx context.Context, r Registration) (*models.User, error) {
	user := &models.User{
		Username:   strings.TrimSpace(r.Username),
		Email:      strings.ToLower(strings.TrimSpace(r.Email)),
		Password:   models.HashPassword(r.Password),
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		GlobalRole: models.GlobalRoleStandard,
		AuthSource: models.AuthSourceLocal,
	}

	if err := p.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	return user, nil
}

// ChangePassword changes a user's own password after checking the old one.
func (p *LocalProvider) ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error {
	user, err := p.store.UserByID(ctx, userID)
	if err != nil {
		return err
	}

	if user.AuthSource != models.AuthSourceLocal {
		return ErrNotLocalAccount
	}

	if !user.VerifyPassword(oldPassword) {
		return ErrInvalidOldPassword
	}

	return p.store.UpdatePassword(ctx, userID, models.HashPassword(newPassword))
}
