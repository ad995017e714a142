package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/koumale-backend/pkg/db/models"
	"github.com/angelmondragon/koumale-backend/pkg/enums"
)

// UserDTO is the transport shape that omits credentials and verification state.
type UserDTO struct {
	ID            uuid.UUID        `json:"id"`
	Email         string           `json:"email"`
	FirstName     string           `json:"firstName"`
	LastName      string           `json:"lastName"`
	Role          enums.UserRole   `json:"role"`
	Status        enums.UserStatus `json:"status"`
	EmailVerified bool             `json:"emailVerified"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:            u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Role:          u.Role,
		Status:        u.Status,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

// ListFilter narrows the admin user listing.
type ListFilter struct {
	Role   *enums.UserRole
	Status *enums.UserStatus
	Query  string
}
