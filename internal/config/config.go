// Package config handles input from etc/*.toml files
package config

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	// EnvConfigJSON holds a JSON document merged over the TOML file.
	EnvConfigJSON = "ASSETDESK_CONFIG_JSON"

	// EnvPrefix prefixes the individual environment overrides, e.g. ASSETDESK_AUTH_PROVIDER.
	EnvPrefix = "ASSETDESK"

	defaultShutDownTime    = 5
	defaultSessionExpiry   = 7 * 24 * time.Hour
	defaultAdminRole       = "super-admin"
	defaultRefreshGrace    = 5 * time.Minute
	defaultExternalTimeout = 10 * time.Second

	redacted = "********"
)

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var (
		c             Config
		JSONConfigEnv string
		err           error
	)

	// Read main configuration
	if path == "" {
		path = "./etc/"
	}

	if _, err = toml.DecodeFile(path+"main.toml", &c); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	// override it from env
	JSONConfigEnv = os.Getenv(EnvConfigJSON)

	if JSONConfigEnv != "" {
		c, err = decodeAndMergeConfig(c, JSONConfigEnv)
		if err != nil {
			return c, err
		}
	}

	applyEnv(&c)

	return c, validate(&c)
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	err := json.Unmarshal([]byte(configAsJSON), &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to read json config override")
	}

	return c, nil
}

// applyEnv overrides the deployment specific knobs from single environment variables.
func applyEnv(c *Config) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	overrides := map[string]*string{
		"auth.external.url":               &c.Auth.External.URL,
		"auth.external.realm":             &c.Auth.External.Realm,
		"auth.external.clientid":          &c.Auth.External.ClientID,
		"auth.external.clientsecret":      &c.Auth.External.ClientSecret,
		"auth.external.adminclientid":     &c.Auth.External.AdminClientID,
		"auth.external.adminclientsecret": &c.Auth.External.AdminClientSecret,
		"db.dsn":                          &c.DB.DSN,
		"db.gormengine":                   &c.DB.GormEngine,
		"bootstrap.adminpassword":         &c.Bootstrap.AdminPassword,
	}

	for key, target := range overrides {
		_ = v.BindEnv(key)

		if v.IsSet(key) {
			*target = v.GetString(key)
		}
	}

	// the cookie key has two names, the first one set wins
	_ = v.BindEnv("webserver.cookieencryptionkey",
		EnvPrefix+"_WEBSERVER_COOKIEENCRYPTIONKEY",
		EnvPrefix+"_WEBSERVER_SESSION_SECRET",
	)

	if v.IsSet("webserver.cookieencryptionkey") {
		c.Webserver.CookieEncryptionKey = v.GetString("webserver.cookieencryptionkey")
	}

	_ = v.BindEnv("auth.provider")

	if v.IsSet("auth.provider") {
		c.Auth.Provider = AuthProvider(strings.ToLower(v.GetString("auth.provider")))
	}
}

// DumpConfig config as TOML String. Secrets are redacted.
func DumpConfig(c *Config) (string, error) {
	var buffer bytes.Buffer
	t := toml.NewEncoder(&buffer)

	if err := t.Encode(redact(*c)); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// DumpConfigJSON config as JSON String. Secrets are redacted.
func DumpConfigJSON(c *Config) (string, error) {
	var buffer bytes.Buffer
	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(redact(*c)); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

func redact(c Config) Config {
	for _, s := range []*string{
		&c.DB.Password,
		&c.DB.DSN,
		&c.Auth.External.ClientSecret,
		&c.Auth.External.AdminClientSecret,
		&c.Webserver.CookieEncryptionKey,
		&c.Bootstrap.AdminPassword,
	} {
		if *s != "" {
			*s = redacted
		}
	}

	return c
}

// validate checks the settings the service can not start without and fills in defaults.
// A half configured external provider is fatal.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = defaultShutDownTime
	}

	if c.Webserver.Session.ExpiryTime == 0 {
		c.Webserver.Session.ExpiryTime = defaultSessionExpiry
	}

	if c.Webserver.CookieEncryptionKey != "" {
		key, err := base64.StdEncoding.DecodeString(c.Webserver.CookieEncryptionKey)
		if err != nil || (len(key) != 16 && len(key) != 24 && len(key) != 32) {
			return errors.Wrap(ErrInvalidCookieKey, invalidErrMessage)
		}
	}

	switch c.DB.GormEngine {
	case "":
		c.DB.GormEngine = EngineMySQL
	case EngineMySQL, EnginePostgres, EngineSQLite:
	default:
		return errors.Wrapf(ErrUnknownDBEngine, "%s: %q", invalidErrMessage, c.DB.GormEngine)
	}

	return validateAuth(&c.Auth)
}

func validateAuth(a *Auth) error {
	switch a.Provider {
	case "":
		a.Provider = AuthProviderLocal
	case AuthProviderLocal:
	case AuthProviderExternal:
		var missing []string

		if a.External.URL == "" {
			missing = append(missing, "url")
		}

		if a.External.Realm == "" {
			missing = append(missing, "realm")
		}

		if a.External.ClientID == "" {
			missing = append(missing, "clientId")
		}

		if len(missing) > 0 {
			return errors.Wrapf(ErrExternalAuthIncomplete, "missing %s", strings.Join(missing, ", "))
		}
	default:
		return errors.Wrapf(ErrUnknownAuthProvider, "got %q", a.Provider)
	}

	if a.External.AdminRole == "" {
		a.External.AdminRole = defaultAdminRole
	}

	if a.External.AdminClientID == "" {
		a.External.AdminClientID = a.External.ClientID
	}

	if a.External.AdminClientSecret == "" {
		a.External.AdminClientSecret = a.External.ClientSecret
	}

	if a.External.RefreshGrace == 0 {
		a.External.RefreshGrace = defaultRefreshGrace
	}

	if a.External.Timeout == 0 {
		a.External.Timeout = defaultExternalTimeout
	}

	return nil
}
