package config

import (
	"strings"
	"time"

	"github.com/assetdesk/assetdesk/internal/logger"
)

// AuthProvider names the authentication strategy wired at boot.
type AuthProvider string

const (
	// AuthProviderLocal authenticates with local passwords and server side sessions.
	AuthProviderLocal AuthProvider = "local"
	// AuthProviderExternal authenticates bearer tokens issued by the external OpenID Connect provider.
	AuthProviderExternal AuthProvider = "external"
)

// Session settings.
type Session struct {
	ExpiryTime time.Duration // absolute lifetime, not extended by activity
}

// External holds the external identity provider settings.
type External struct {
	URL               string        // base url of the identity provider, e.g. https://sso.example.com
	Realm             string        // realm the users live in
	ClientID          string        // public client id, also the expected token audience
	ClientSecret      string        // secret used for refresh exchanges, empty for public clients
	AdminClientID     string        // service account client for directory sync, defaults to ClientID
	AdminClientSecret string        // service account secret for directory sync
	AdminRole         string        // realm role that maps to the platform-admin global role
	RefreshGrace      time.Duration // how long after expiry a token may still be refreshed
	Timeout           time.Duration // http timeout for calls to the identity provider
}

// IssuerURL returns the realm issuer, {url}/realms/{realm}.
func (e External) IssuerURL() string {
	return strings.TrimRight(e.URL, "/") + "/realms/" + e.Realm
}

// AdminURL returns the realm admin API base, {url}/admin/realms/{realm}.
func (e External) AdminURL() string {
	return strings.TrimRight(e.URL, "/") + "/admin/realms/" + e.Realm
}

// Auth selects and configures the authentication provider.
type Auth struct {
	Provider AuthProvider
	External External
}

// Bootstrap holds the credentials of the administrator seeded into an empty local user table.
type Bootstrap struct {
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Auth      Auth
	Bootstrap Bootstrap
	Webserver Webserver
}

// Webserver implement webserver settings.
type Webserver struct {
	DisableRecover      bool    // disable recover middleware
	Domain              string  // domain name for the webserver
	Port                int     // listening port for the webserver
	ShutDownTime        int     // wait time for shutdown
	URL                 string  // base url for the webserver
	CookieEncryptionKey string  // base64 AES key encrypting the session cookie, empty disables encryption
	Session             Session // session settings
}
