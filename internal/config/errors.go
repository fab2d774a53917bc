package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("toml config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("toml config webserver.port listening port can not be 0")

	// ErrUnknownAuthProvider error if auth.provider is neither local nor external.
	ErrUnknownAuthProvider = errors.New("toml config auth.provider must be local or external")

	// ErrExternalAuthIncomplete error if the external provider is selected without url, realm or client id.
	ErrExternalAuthIncomplete = errors.New("toml config auth.external is incomplete")

	// ErrUnknownDBEngine error if db.gormEngine names an unsupported engine.
	ErrUnknownDBEngine = errors.New("toml config db.gormEngine must be mysql, postgres or sqlite")

	// ErrInvalidCookieKey error if webserver.cookieEncryptionKey is not a base64 encoded AES key.
	ErrInvalidCookieKey = errors.New("toml config webserver.cookieEncryptionKey must be a base64 encoded 16, 24 or 32 byte key")
)
