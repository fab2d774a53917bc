package models

import "time"

// AuthSource represents the authentication source for a user account.
type AuthSource string

const (
	// AuthSourceLocal indicates the user authenticates with a local database password.
	AuthSourceLocal AuthSource = "local"
	// AuthSourceExternal indicates the user authenticates via the external OpenID Connect provider.
	AuthSourceExternal AuthSource = "external"
)

// GlobalRole is the platform wide role of a user.
type GlobalRole string

const (
	// GlobalRoleStandard is the default role for every user.
	GlobalRoleStandard GlobalRole = "standard"
	// GlobalRolePlatformAdmin grants cross-tenant administrative authority.
	GlobalRolePlatformAdmin GlobalRole = "platform-admin"
)

// Valid reports whether r is one of the known global roles.
func (r GlobalRole) Valid() bool {
	return r == GlobalRoleStandard || r == GlobalRolePlatformAdmin
}

// User represents a user account in the system.
// Users either authenticate locally with a password or are mirrored from the external identity provider.
type User struct {
	// ID is the unique identifier for the user.
	ID uint64 `gorm:"primaryKey" json:"id"`
	// Username is the unique login name.
	Username string `gorm:"uniqueIndex;size:100;not null" json:"username"`
	// Email is the user's unique email address.
	Email string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	// Password is the hashed password (only set for local authentication).
	Password string `gorm:"size:255" json:"-"`
	// FirstName is the user's first or given name.
	FirstName string `gorm:"size:100" json:"firstName"`
	// LastName is the user's last or family name.
	LastName string `gorm:"size:100" json:"lastName"`
	// GlobalRole is the platform wide role.
	GlobalRole GlobalRole `gorm:"type:varchar(20);not null;default:'standard';index" json:"globalRole"`
	// AssertedRole is the global role the external identity provider last asserted for the user.
	AssertedRole GlobalRole `gorm:"type:varchar(20)" json:"-"`
	// AuthSource indicates how this user authenticates.
	AuthSource AuthSource `gorm:"type:varchar(20);not null;default:'local'" json:"authSource"`
	// ExternalID is the subject claim of the external identity provider, or the remote directory id.
	ExternalID *string `gorm:"uniqueIndex;size:255" json:"externalId,omitempty"`
	// CreatedAt is the timestamp when the user was created (managed by GORM).
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is the timestamp when the user was last updated (managed by GORM).
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsPlatformAdmin reports whether the user holds the platform-admin global role.
func (u *User) IsPlatformAdmin() bool {
	return u.GlobalRole == GlobalRolePlatformAdmin
}
