package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelsplants/checkout-backend/pkg/db/models"
	"github.com/angelsplants/checkout-backend/pkg/enums"
)

// UserDTO is the transport shape for the local user projection.
type UserDTO struct {
	ID        uuid.UUID      `json:"id"`
	Email     string         `json:"email"`
	FirstName string         `json:"first_name"`
	LastName  string         `json:"last_name"`
	Phone     string         `json:"phone,omitempty"`
	Role      enums.UserRole `json:"role"`
	CreatedAt time.Time      `json:"created_at"`
}

// ProvisionInput is the identity asserted by a verified access token.
type ProvisionInput struct {
	ID        uuid.UUID
	Email     string
	FirstName string
	LastName  string
	Role      enums.UserRole
}

func (in ProvisionInput) toModel() *models.User {
	role := in.Role
	if !role.IsValid() {
		role = enums.UserRoleCustomer
	}
	return &models.User{
		ID:        in.ID,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Role:      role,
	}
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
