// Package models contains database model definitions.
package models

// Setting is a named value kept for boot time bookkeeping.
type Setting struct {
	ID    uint64 `gorm:"primaryKey"`
	Name  string `gorm:"unique;size:100"`
	Value []byte
}

// All returns every model that has to be migrated.
func All() []any {
	return []any{
		&User{},
		&Tenant{},
		&Membership{},
		&Setting{},
		&Session{},
	}
}
