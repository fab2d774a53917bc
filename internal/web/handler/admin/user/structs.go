package user

import (
	"github.com/assetdesk/assetdesk/internal/db/models"
	"github.com/assetdesk/assetdesk/internal/directory"
)

type createInput struct {
	Username   string            `json:"username"   validate:"required,min=3,max=100"`
	Email      string            `json:"email"      validate:"required,email,max=255"`
	Password   string            `json:"password"   validate:"omitempty,min=8,max=256"`
	FirstName  string            `json:"firstName"  validate:"max=100"`
	LastName   string            `json:"lastName"   validate:"max=100"`
	GlobalRole models.GlobalRole `json:"globalRole" validate:"omitempty,oneof=standard platform-admin"`
}

type roleInput struct {
	Role models.GlobalRole `json:"role" validate:"required"`
}

type passwordInput struct {
	Password string `json:"password" validate:"required,min=8,max=256"`
}

// ListResponse is one page of users.
type ListResponse struct {
	Users    []models.User `json:"users"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"pageSize"`
}

// SyncResponse reports a user write together with the outcome of the directory sync.
// Directory is one of synced, skipped or unavailable.
type SyncResponse struct {
	User      *models.User     `json:"user,omitempty"`
	Directory directory.Status `json:"directory"`
}
