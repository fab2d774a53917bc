package models

import "time"

// TenantRole is the role a user holds inside a single tenant.
type TenantRole string

const (
	// TenantRoleAdmin may manage the tenant.
	TenantRoleAdmin TenantRole = "admin"
	// TenantRoleMember has regular access to the tenant.
	TenantRoleMember TenantRole = "member"
)

// Valid reports whether r is one of the known tenant roles.
func (r TenantRole) Valid() bool {
	return r == TenantRoleAdmin || r == TenantRoleMember
}

// Membership grants a user access to a tenant with a tenant scoped role.
// A (user, tenant) pair is unique. The first membership of a user by creation is its primary tenant.
type Membership struct {
	// ID is the unique identifier for the membership.
	ID uint64 `gorm:"primaryKey" json:"id"`
	// UserID references the member.
	UserID uint64 `gorm:"not null;uniqueIndex:idx_membership_user_tenant" json:"userId"`
	// TenantID references the tenant.
	TenantID uint64 `gorm:"not null;uniqueIndex:idx_membership_user_tenant;index" json:"tenantId"`
	// Role is the tenant scoped role.
	Role TenantRole `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	// User is the associated user. Memberships are removed with their user (CASCADE).
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	// Tenant is the associated tenant. Memberships are removed with their tenant (CASCADE).
	Tenant Tenant `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE" json:"-"`
	// CreatedAt is the timestamp when the user joined the tenant (managed by GORM).
	CreatedAt time.Time `json:"createdAt"`
}

// TableName specifies the database table name for the Membership model.
func (Membership) TableName() string {
	return "memberships"
}
