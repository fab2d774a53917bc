package auth

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/assetdesk/assetdesk/internal/config"
	"github.com/assetdesk/assetdesk/internal/db/controller/identity"
	"github.com/assetdesk/assetdesk/internal/web/session"
)

// Provider is one authentication strategy. Exactly one is wired at boot.
type Provider interface {
	// Name returns the configured provider tag.
	Name() config.AuthProvider
	// Authenticate resolves the caller of the request or fails with
	// ErrUnauthenticated or ErrTokenExpired.
	Authenticate(c *fiber.Ctx) (*Principal, error)
	// Descriptor is the public description clients use to pick their login flow.
	Descriptor() Descriptor
}

// Descriptor is served unauthenticated on GET /config.
type Descriptor struct {
	AuthProvider config.AuthProvider `json:"authProvider"`
	ExternalAuth *ExternalDescriptor `json:"externalAuth,omitempty"`
}

// ExternalDescriptor names the public endpoints of the external provider. It holds no secrets.
type ExternalDescriptor struct {
	URL      string `json:"url"`
	Realm    string `json:"realm"`
	ClientID string `json:"clientId"`
}

// NewProvider wires the strategy selected by cfg.Auth.Provider.
// sessions is only used by the local provider and may be nil otherwise.
func NewProvider(
	ctx context.Context,
	cfg *config.Config,
	store identity.Store,
	sessions *session.Manager,
) (Provider, error) {
	switch cfg.Auth.Provider {
	case config.AuthProviderLocal:
		return NewLocalProvider(store, sessions)
	case config.AuthProviderExternal:
		return NewExternalProvider(ctx, cfg.Auth.External, store)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownAuthProvider, cfg.Auth.Provider)
	}
}
