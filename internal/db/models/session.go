package models

// Session is a persisted local-auth session blob, used when no dedicated session storage backend exists.
type Session struct {
	// Key is the opaque session identifier.
	Key string `gorm:"primaryKey;size:128"`
	// Data is the encoded session payload.
	Data []byte
	// ExpiresAt is the unix timestamp after which the row is ignored; 0 means no expiry.
	ExpiresAt int64 `gorm:"index"`
}

// TableName specifies the database table name for the Session model.
func (Session) TableName() string {
	return "auth_sessions"
}
