package auth

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/assetdesk/assetdesk/internal/db/controller/identity"
	"github.com/assetdesk/assetdesk/internal/db/models"
)

// placeholderEmailDomain completes users whose token carries no email, the column is unique and required.
const placeholderEmailDomain = "@external.invalid"

// Claims are the token claims the access-control layer reads.
type Claims struct {
	Subject           string `mapstructure:"sub"`
	Email             string `mapstructure:"email"`
	EmailVerified     bool   `mapstructure:"email_verified"`
	PreferredUsername string `mapstructure:"preferred_username"`
	GivenName         string `mapstructure:"given_name"`
	FamilyName        string `mapstructure:"family_name"`
	AuthorizedParty   string `mapstructure:"azp"`
	RealmAccess       struct {
		Roles []string `mapstructure:"roles"`
	} `mapstructure:"realm_access"`
}

// DecodeClaims decodes the raw claim set of a verified token.
func DecodeClaims(raw map[string]any) (*Claims, error) {
	var claims Claims

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &claims,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create claims decoder: %w", err)
	}

	if err = decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode claims: %w", err)
	}

	return &claims, nil
}

// HasRealmRole reports whether role is among the realm roles.
func (c *Claims) HasRealmRole(role string) bool {
	return role != "" && slices.Contains(c.RealmAccess.Roles, role)
}

// GlobalRole maps the realm roles to a global role: adminRole grants platform-admin.
func (c *Claims) GlobalRole(adminRole string) models.GlobalRole {
	if c.HasRealmRole(adminRole) {
		return models.GlobalRolePlatformAdmin
	}

	return models.GlobalRoleStandard
}

// ExternalUser converts the claims into the attributes mirrored into the identity store.
func (c *Claims) ExternalUser(adminRole string) identity.ExternalUser {
	email := strings.ToLower(strings.TrimSpace(c.Email))
	verified := c.EmailVerified && email != ""

	if email == "" {
		email = c.Subject + placeholderEmailDomain
	}

	username := c.PreferredUsername
	if username == "" {
		username = email
	}

	return identity.ExternalUser{
		Subject:       c.Subject,
		Username:      username,
		Email:         email,
		EmailVerified: verified,
		FirstName:     c.GivenName,
		LastName:      c.FamilyName,
		GlobalRole:    c.GlobalRole(adminRole),
	}
}
