package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/assetdesk/assetdesk/internal/config"
	"github.com/assetdesk/assetdesk/internal/db/controller/identity"
)

// Headers carrying the refresh token in, and a refreshed token pair out.
const (
	HeaderRefreshToken = "X-Refresh-Token"
	HeaderAccessToken  = "X-Access-Token"
)

var (
	errNoSubject      = errors.New("token has no subject")
	errAudience       = errors.New("token was not issued for this client")
	errNoRefreshToken = errors.New("no refresh token supplied")
	errOutsideGrace   = errors.New("token expired outside the refresh grace window")
)

// ExternalProvider validates bearer tokens issued by the external OpenID Connect provider.
type ExternalProvider struct {
	cfg        config.External
	store      identity.Store
	guard      *RoleGuard
	verifier   *oidc.IDTokenVerifier
	oauth2     oauth2.Config
	httpClient *http.Client
	now        func() time.Time
}

var _ Provider = (*ExternalProvider)(nil)

// NewExternalProvider discovers the realm at {url}/realms/{realm} and builds the validator.
func NewExternalProvider(ctx context.Context, cfg config.External, store identity.Store) (*ExternalProvider, error) {
	if store == nil {
		return nil, identity.ErrDBNil
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}

	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, httpClient), cfg.IssuerURL())
	if err != nil {
		return nil, fmt.Errorf("failed to discover identity provider: %w", err)
	}

	p := newExternalProvider(cfg, store, httpClient, provider.Endpoint())
	p.verifier = provider.Verifier(p.verifierConfig())

	return p, nil
}

func newExternalProvider(
	cfg config.External,
	store identity.Store,
	httpClient *http.Client,
	endpoint oauth2.Endpoint,
) *ExternalProvider {
	return &ExternalProvider{
		cfg:        cfg,
		store:      store,
		guard:      NewRoleGuard(store),
		httpClient: httpClient,
		now:        time.Now,
		oauth2: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			Scopes:       []string{oidc.ScopeOpenID},
		},
	}
}

// verifierConfig checks signature and issuer only. Access tokens of the realm carry the
// client in azp rather than aud, and expiry has to be told apart from other failures.
func (p *ExternalProvider) verifierConfig() *oidc.Config {
	return &oidc.Config{
		ClientID:          p.cfg.ClientID,
		SkipClientIDCheck: true,
		SkipExpiryCheck:   true,
	}
}

// Name implements Provider.
func (p *ExternalProvider) Name() config.AuthProvider {
	return config.AuthProviderExternal
}

// Descriptor implements Provider.
func (p *ExternalProvider) Descriptor() Descriptor {
	return Descriptor{
		AuthProvider: config.AuthProviderExternal,
		ExternalAuth: &ExternalDescriptor{
			URL:      p.cfg.URL,
			Realm:    p.cfg.Realm,
			ClientID: p.cfg.ClientID,
		},
	}
}

// Authenticate validates the Authorization bearer token. A refresh token may be passed in
// X-Refresh-Token; a refreshed pair is returned in X-Access-Token and X-Refresh-Token.
func (p *ExternalProvider) Authenticate(c *fiber.Ctx) (*Principal, error) {
	bearer, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		countAttempt(config.AuthProviderExternal, outcomeRejected)

		return nil, ErrUnauthenticated
	}

	principal, err := p.Validate(c.UserContext(), bearer, c.Get(HeaderRefreshToken))
	if err != nil {
		return nil, err
	}

	if principal.Refreshed != nil {
		c.Set(HeaderAccessToken, principal.Refreshed.AccessToken)

		if principal.Refreshed.RefreshToken != "" {
			c.Set(HeaderRefreshToken, principal.Refreshed.RefreshToken)
		}
	}

	return principal, nil
}

// Validate verifies the bearer token, upserts its user and follows the asserted role.
// The principal carries the stored role, which may differ from the token's.
// An expired token within the refresh grace window is exchanged with refreshToken; if that
// is not possible the result is ErrTokenExpired, every other failure is ErrUnauthenticated.
func (p *ExternalProvider) Validate(ctx context.Context, bearer, refreshToken string) (*Principal, error) {
	if bearer == "" {
		countAttempt(config.AuthProviderExternal, outcomeRejected)

		return nil, ErrUnauthenticated
	}

	claims, err := p.verify(ctx, bearer)

	var (
		expired   *oidc.TokenExpiredError
		refreshed *oauth2.Token
		outcome   = outcomeSuccess
	)

	switch {
	case errors.As(err, &expired):
		refreshed, claims, err = p.refresh(ctx, expired.Expiry, refreshToken)
		if err != nil {
			log.Debug().Err(err).Msg("bearer token expired")
			countAttempt(config.AuthProviderExternal, outcomeExpired)

			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}

		bearer = refreshed.AccessToken
		outcome = outcomeRefreshed
	case err != nil:
		log.Debug().Err(err).Msg("bearer token rejected")
		countAttempt(config.AuthProviderExternal, outcomeRejected)

		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	ext := claims.ExternalUser(p.cfg.AdminRole)

	user, err := p.store.UpsertExternalUser(ctx, ext)
	if err == nil {
		user, err = p.guard.ApplyAssertedRole(ctx, user.ID, ext.GlobalRole)
	}

	if err != nil {
		countAttempt(config.AuthProviderExternal, outcomeError)

		return nil, fmt.Errorf("failed to upsert external user: %w", err)
	}

	countAttempt(config.AuthProviderExternal, outcome)

	principal := NewPrincipal(user, config.AuthProviderExternal)
	principal.Token = bearer
	principal.Refreshed = refreshed

	return principal, nil
}

// verify checks signature, issuer, audience and expiry of raw.
// Expiry is reported as *oidc.TokenExpiredError, and only for an otherwise valid token.
func (p *ExternalProvider) verify(ctx context.Context, raw string) (*Claims, error) {
	token, err := p.verifier.Verify(oidc.ClientContext(ctx, p.httpClient), raw)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	var claimSet map[string]any
	if err = token.Claims(&claimSet); err != nil {
		return nil, fmt.Errorf("failed to read claims: %w", err)
	}

	claims, err := DecodeClaims(claimSet)
	if err != nil {
		return nil, err
	}

	if claims.Subject == "" {
		return nil, errNoSubject
	}

	if !slices.Contains(token.Audience, p.cfg.ClientID) && claims.AuthorizedParty != p.cfg.ClientID {
		return nil, errAudience
	}

	if !token.Expiry.IsZero() && !p.now().Before(token.Expiry) {
		return claims, &oidc.TokenExpiredError{Expiry: token.Expiry}
	}

	return claims, nil
}

// refresh exchanges refreshToken for a new pair and verifies the new access token.
func (p *ExternalProvider) refresh(
	ctx context.Context,
	expiry time.Time,
	refreshToken string,
) (*oauth2.Token, *Claims, error) {
	if refreshToken == "" {
		return nil, nil, errNoRefreshToken
	}

	if p.now().Sub(expiry) > p.cfg.RefreshGrace {
		return nil, nil, errOutsideGrace
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	token, err := p.oauth2.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, nil, fmt.Errorf("refresh exchange failed: %w", err)
	}

	claims, err := p.verify(ctx, token.AccessToken)
	if err != nil {
		return nil, nil, fmt.Errorf("refreshed token rejected: %w", err)
	}

	return token, claims, nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)

	return token, token != ""
}
