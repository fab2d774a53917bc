// Package identity is the identity store: users, tenants and the memberships between them.
//
// The rest of the service consumes it through the Store interface, so the access-control code
// never touches gorm directly and tests can run against sqlite.
package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/assetdesk/assetdesk/internal/db/models"
	"github.com/assetdesk/assetdesk/internal/uniuri"
)

const (
	whereID       = "id = ?"
	whereUserID   = "user_id = ?"
	whereTenantID = "tenant_id = ?"

	slugSuffixLen = 6
	maxSlugLen    = 120
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrUserNotFound is returned when a user cannot be found.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when a user with the same username or email already exists.
	ErrUserExists = errors.New("user with username or email already exists")
	// ErrTenantNotFound is returned when a tenant cannot be found.
	ErrTenantNotFound = errors.New("tenant not found")
	// ErrMembershipNotFound is returned when the user is not a member of the tenant.
	ErrMembershipNotFound = errors.New("membership not found")
	// ErrMembershipExists is returned when the user already belongs to the tenant.
	ErrMembershipExists = errors.New("membership already exists")
	// ErrEmptyTenantName is returned when a tenant is created without a name.
	ErrEmptyTenantName = errors.New("tenant name cannot be empty")

	slugStrip = regexp.MustCompile(`[^a-z0-9]+`)
	slugChars = []byte("abcdefghijklmnopqrstuvwxyz0123456789")
)

// ExternalUser carries the identity attributes asserted by the external identity provider.
type ExternalUser struct {
	Subject       string
	Username      string
	Email         string
	EmailVerified bool
	FirstName     string
	LastName      string
	GlobalRole    models.GlobalRole
}

// ListFilter narrows ListUsers.
type ListFilter struct {
	Search string
	Limit  int
	Offset int
}

// Store is the narrow repository the access-control layer depends on.
type Store interface {
	UserByID(ctx context.Context, id uint64) (*models.User, error)
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpsertExternalUser(ctx context.Context, ext ExternalUser) (*models.User, error)
	ListUsers(ctx context.Context, filter ListFilter) ([]models.User, int64, error)
	UpdatePassword(ctx context.Context, userID uint64, hash string) error
	SetGlobalRole(ctx context.Context, userID uint64, role models.GlobalRole) error
	SetAssertedRole(ctx context.Context, userID uint64, role models.GlobalRole) error
	DeleteUser(ctx context.Context, userID uint64) error
	CountPlatformAdmins(ctx context.Context) (int64, error)

	CreateTenant(ctx context.Context, name string) (*models.Tenant, error)
	TenantByID(ctx context.Context, id uint64) (*models.Tenant, error)

	FirstMembership(ctx context.Context, userID uint64) (*models.Membership, error)
	Membership(ctx context.Context, userID, tenantID uint64) (*models.Membership, error)
	ListMembers(ctx context.Context, tenantID uint64) ([]models.Membership, error)
	AddMembership(ctx context.Context, userID, tenantID uint64, role models.TenantRole) (*models.Membership, error)
	SetMembershipRole(ctx context.Context, userID, tenantID uint64, role models.TenantRole) error
	RemoveMembership(ctx context.Context, userID, tenantID uint64) error

	// Transaction runs fn against a Store bound to a single database transaction.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// Controller implements Store on top of gorm.
type Controller struct {
	db *gorm.DB
}

var _ Store = (*Controller)(nil)

// New creates a gorm backed identity store.
func New(db *gorm.DB) (*Controller, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	return &Controller{db: db}, nil
}

// UserByID retrieves a user by ID.
func (c *Controller) UserByID(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User

	err := c.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return &user, nil
}

// UserByUsername retrieves a user by username.
func (c *Controller) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User

	err := c.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return &user, nil
}

// CreateUser inserts a new user. Username and email must both be unused.
func (c *Controller) CreateUser(ctx context.Context, user *models.User) error {
	var existing models.User

	err := c.db.WithContext(ctx).
		Where("username = ? OR email = ?", user.Username, user.Email).
		First(&existing).Error
	if err == nil {
		return ErrUserExists
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check existing user: %w", err)
	}

	if user.GlobalRole == "" {
		user.GlobalRole = models.GlobalRoleStandard
	}

	if user.AuthSource == "" {
		user.AuthSource = models.AuthSourceLocal
	}

	// a concurrent insert can still slip past the lookup, the unique indexes settle it
	if err = c.db.WithContext(ctx).Create(user).Error; err != nil {
		return createUserError(err)
	}

	return nil
}

func createUserError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrUserExists
	}

	return fmt.Errorf("failed to create user: %w", err)
}

// UpsertExternalUser creates the user asserted by the identity provider or refreshes its profile.
// Lookup is by subject first. Rows created for the directory before their first login are
// linked by email, and only when the provider verified that email. Local accounts are never linked.
//
// The global role of an existing row is not touched here. A new row starts with ext.GlobalRole.
func (c *Controller) UpsertExternalUser(ctx context.Context, ext ExternalUser) (*models.User, error) {
	user, err := c.upsertExternalUser(ctx, ext)
	if err != nil && !errors.Is(err, ErrUserNotFound) && !errors.Is(err, ErrUserExists) {
		// A concurrent first login may have inserted the same subject; one more lookup settles it.
		user, err = c.upsertExternalUser(ctx, ext)
	}

	return user, err
}

func (c *Controller) upsertExternalUser(ctx context.Context, ext ExternalUser) (*models.User, error) {
	if ext.Subject == "" {
		return nil, ErrUserNotFound
	}

	db := c.db.WithContext(ctx)

	var user models.User

	err := db.Where("external_id = ?", ext.Subject).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) && ext.Email != "" && ext.EmailVerified {
		err = db.Where("email = ? AND external_id IS NULL AND auth_source = ?", ext.Email, models.AuthSourceExternal).
			First(&user).Error
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		username := ext.Username
		if username == "" {
			username = ext.Email
		}

		subject := ext.Subject
		user = models.User{
			Username:     username,
			Email:        ext.Email,
			FirstName:    ext.FirstName,
			LastName:     ext.LastName,
			GlobalRole:   ext.GlobalRole,
			AssertedRole: ext.GlobalRole,
			AuthSource:   models.AuthSourceExternal,
			ExternalID:   &subject,
		}

		if err = db.Create(&user).Error; err != nil {
			return nil, createUserError(err)
		}

		return &user, nil
	case err != nil:
		return nil, fmt.Errorf("failed to query external user: %w", err)
	}

	subject := ext.Subject
	updates := map[string]any{
		"external_id": &subject,
		"first_name":  ext.FirstName,
		"last_name":   ext.LastName,
	}

	if ext.Email != "" {
		updates["email"] = ext.Email
	}

	if err = db.Model(&user).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserExists
		}

		return nil, fmt.Errorf("failed to update external user: %w", err)
	}

	if err = db.First(&user, user.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload external user: %w", err)
	}

	return &user, nil
}

// ListUsers lists users ordered by id, with optional search on username, email and names.
func (c *Controller) ListUsers(ctx context.Context, filter ListFilter) ([]models.User, int64, error) {
	var (
		users []models.User
		total int64
		query = c.db.WithContext(ctx).Model(&models.User{})
	)

	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where(
			"LOWER(username) LIKE ? OR LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?",
			like, like, like, like,
		)
	}

	query = query.Session(&gorm.Session{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	if err := query.Offset(filter.Offset).Order("id").Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	return users, total, nil
}

// UpdatePassword replaces the stored password hash of a local user.
func (c *Controller) UpdatePassword(ctx context.Context, userID uint64, hash string) error {
	return c.updateUser(ctx, userID, "password", hash)
}

// SetGlobalRole writes the global role. Invariants are checked by the caller.
func (c *Controller) SetGlobalRole(ctx context.Context, userID uint64, role models.GlobalRole) error {
	return c.updateUser(ctx, userID, "global_role", role)
}

// SetAssertedRole records the global role the external identity provider asserted.
func (c *Controller) SetAssertedRole(ctx context.Context, userID uint64, role models.GlobalRole) error {
	return c.updateUser(ctx, userID, "asserted_role", role)
}

func (c *Controller) updateUser(ctx context.Context, userID uint64, column string, value any) error {
	result := c.db.WithContext(ctx).Model(&models.User{}).Where(whereID, userID).Update(column, value)
	if result.Error != nil {
		return fmt.Errorf("failed to update user %s: %w", column, result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// DeleteUser removes a user and its memberships.
func (c *Controller) DeleteUser(ctx context.Context, userID uint64) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(whereUserID, userID).Delete(&models.Membership{}).Error; err != nil {
			return fmt.Errorf("failed to delete memberships: %w", err)
		}

		result := tx.Delete(&models.User{}, userID)
		if result.Error != nil {
			return fmt.Errorf("failed to delete user: %w", result.Error)
		}

		if result.RowsAffected == 0 {
			return ErrUserNotFound
		}

		return nil
	})
}

// CountPlatformAdmins returns the number of users holding the platform-admin role.
func (c *Controller) CountPlatformAdmins(ctx context.Context) (int64, error) {
	var count int64

	err := c.db.WithContext(ctx).Model(&models.User{}).
		Where("global_role = ?", models.GlobalRolePlatformAdmin).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count platform admins: %w", err)
	}

	return count, nil
}

// CreateTenant creates a tenant with a slug derived from its name, suffixed when already taken.
func (c *Controller) CreateTenant(ctx context.Context, name string) (*models.Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyTenantName
	}

	db := c.db.WithContext(ctx)
	slug := Slugify(name)

	var count int64
	if err := db.Model(&models.Tenant{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check tenant slug: %w", err)
	}

	if count > 0 {
		slug = slug + "-" + uniuri.NewLenChars(slugSuffixLen, slugChars)
	}

	tenant := models.Tenant{Name: name, Slug: slug}
	if err := db.Create(&tenant).Error; err != nil {
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	return &tenant, nil
}

// TenantByID retrieves a tenant by ID.
func (c *Controller) TenantByID(ctx context.Context, id uint64) (*models.Tenant, error) {
	var tenant models.Tenant

	err := c.db.WithContext(ctx).First(&tenant, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTenantNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query tenant: %w", err)
	}

	return &tenant, nil
}

// FirstMembership returns the oldest membership of the user, its primary tenant.
func (c *Controller) FirstMembership(ctx context.Context, userID uint64) (*models.Membership, error) {
	var m models.Membership

	err := c.db.WithContext(ctx).Where(whereUserID, userID).Order("created_at, id").First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMembershipNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query membership: %w", err)
	}

	return &m, nil
}

// Membership returns the membership of a user in a specific tenant.
func (c *Controller) Membership(ctx context.Context, userID, tenantID uint64) (*models.Membership, error) {
	var m models.Membership

	err := c.db.WithContext(ctx).Where(whereUserID, userID).Where(whereTenantID, tenantID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMembershipNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query membership: %w", err)
	}

	return &m, nil
}

// ListMembers returns the memberships of a tenant with their users, oldest first.
func (c *Controller) ListMembers(ctx context.Context, tenantID uint64) ([]models.Membership, error) {
	var members []models.Membership

	err := c.db.WithContext(ctx).Preload("User").Where(whereTenantID, tenantID).Order("created_at, id").Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	return members, nil
}

// AddMembership adds a user to a tenant.
func (c *Controller) AddMembership(
	ctx context.Context,
	userID, tenantID uint64,
	role models.TenantRole,
) (*models.Membership, error) {
	if _, err := c.Membership(ctx, userID, tenantID); err == nil {
		return nil, ErrMembershipExists
	} else if !errors.Is(err, ErrMembershipNotFound) {
		return nil, err
	}

	if _, err := c.UserByID(ctx, userID); err != nil {
		return nil, err
	}

	if _, err := c.TenantByID(ctx, tenantID); err != nil {
		return nil, err
	}

	m := models.Membership{UserID: userID, TenantID: tenantID, Role: role}
	if err := c.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, fmt.Errorf("failed to create membership: %w", err)
	}

	return &m, nil
}

// SetMembershipRole changes the tenant scoped role of a member.
func (c *Controller) SetMembershipRole(ctx context.Context, userID, tenantID uint64, role models.TenantRole) error {
	result := c.db.WithContext(ctx).Model(&models.Membership{}).
		Where(whereUserID, userID).Where(whereTenantID, tenantID).
		Update("role", role)
	if result.Error != nil {
		return fmt.Errorf("failed to update membership: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrMembershipNotFound
	}

	return nil
}

// RemoveMembership removes a user from a tenant.
func (c *Controller) RemoveMembership(ctx context.Context, userID, tenantID uint64) error {
	result := c.db.WithContext(ctx).Where(whereUserID, userID).Where(whereTenantID, tenantID).
		Delete(&models.Membership{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete membership: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrMembershipNotFound
	}

	return nil
}

// Transaction runs fn against a Store bound to a single database transaction.
func (c *Controller) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Controller{db: tx})
	})
}

// Slugify lowercases name and collapses everything that is not a letter or digit into single dashes.
func Slugify(name string) string {
	slug := strings.Trim(slugStrip.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "-")
	}

	if slug == "" {
		slug = "workspace"
	}

	return slug
}
