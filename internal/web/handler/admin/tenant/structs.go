package tenant

import "github.com/assetdesk/assetdesk/internal/db/models"

type createInput struct {
	Name string `json:"name" validate:"required,min=1,max=150"`
}

type membershipInput struct {
	Role models.TenantRole `json:"role" validate:"omitempty"`
}
