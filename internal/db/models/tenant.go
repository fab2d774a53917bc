package models

import "time"

// Tenant is an isolated workspace. Everything the inventory owns hangs off a tenant.
type Tenant struct {
	// ID is the unique identifier for the tenant.
	ID uint64 `gorm:"primaryKey" json:"id"`
	// Name is the display name.
	Name string `gorm:"size:150;not null" json:"name"`
	// Slug is the unique url friendly name.
	Slug string `gorm:"uniqueIndex;size:150;not null" json:"slug"`
	// CreatedAt is the timestamp when the tenant was created (managed by GORM).
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is the timestamp when the tenant was last updated (managed by GORM).
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the database table name for the Tenant model.
func (Tenant) TableName() string {
	return "tenants"
}
