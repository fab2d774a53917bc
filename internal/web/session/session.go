// Package session keeps server side sessions of locally authenticated users.
//
// Sessions live in a fiber.Storage backend under an opaque random key. The key travels
// in an HTTP-only, SameSite=Lax cookie. The lifetime is absolute: a session expires a fixed
// time after login no matter how active it is.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
)

// CookieName is the name of the session cookie.
const CookieName = "session"

// idBytes is the entropy of a session id, 256 bits.
const idBytes = 32

var (
	// ErrNoSession is returned when the request carries no live session.
	ErrNoSession = errors.New("no session")

	// ErrStorageNil is returned by NewManager without a storage backend.
	ErrStorageNil = errors.New("session storage is nil")
)

// Data is the payload stored per session.
type Data struct {
	UserID    uint64 `json:"uid"`
	Username  string `json:"username"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// Config of the session manager.
type Config struct {
	// Lifetime is the absolute session lifetime.
	Lifetime time.Duration
	// Secure marks the cookie https only.
	Secure bool
	// Domain of the cookie, empty for host only.
	Domain string
}

// Manager creates, reads and destroys sessions.
type Manager struct {
	storage fiber.Storage
	cfg     Config
	now     func() time.Time
}

// NewManager creates a Manager on top of storage.
func NewManager(storage fiber.Storage, cfg Config) (*Manager, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}

	return &Manager{storage: storage, cfg: cfg, now: time.Now}, nil
}

// Create starts a new session for the user and sets the session cookie.
func (m *Manager) Create(c *fiber.Ctx, userID uint64, username string) (*Data, error) {
	id, err := GenerateSessionID()
	if err != nil {
		return nil, err
	}

	now := m.now()
	expires := now.Add(m.cfg.Lifetime)

	data := &Data{
		UserID:    userID,
		Username:  username,
		IssuedAt:  now.Unix(),
		ExpiresAt: expires.Unix(),
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode session")
	}

	if err = m.storage.Set(id, raw, m.cfg.Lifetime); err != nil {
		return nil, errors.Wrap(err, "failed to store session")
	}

	c.Cookie(m.cookie(id, expires))

	return data, nil
}

// Lookup returns the session referenced by the request cookie.
// Missing, unknown and expired sessions all yield ErrNoSession.
func (m *Manager) Lookup(c *fiber.Ctx) (*Data, error) {
	id := c.Cookies(CookieName)
	if id == "" {
		return nil, ErrNoSession
	}

	raw, err := m.storage.Get(id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read session")
	}

	if len(raw) == 0 {
		return nil, ErrNoSession
	}

	var data Data
	if err = json.Unmarshal(raw, &data); err != nil {
		_ = m.storage.Delete(id)

		return nil, ErrNoSession
	}

	// storage backends only expire lazily, the absolute deadline is checked here
	if m.now().Unix() >= data.ExpiresAt {
		_ = m.storage.Delete(id)

		return nil, ErrNoSession
	}

	return &data, nil
}

// Destroy removes the session of the request and clears the cookie.
func (m *Manager) Destroy(c *fiber.Ctx) error {
	if id := c.Cookies(CookieName); id != "" {
		if err := m.storage.Delete(id); err != nil {
			return errors.Wrap(err, "failed to delete session")
		}
	}

	c.Cookie(m.cookie("", time.Unix(0, 0)))

	return nil
}

func (m *Manager) cookie(value string, expires time.Time) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		Domain:   m.cfg.Domain,
		Expires:  expires,
		Secure:   m.cfg.Secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}

// GenerateSessionID generates a new secure random session ID.
func GenerateSessionID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "failed to read random bytes")
	}

	return hex.EncodeToString(b), nil
}
