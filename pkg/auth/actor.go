package auth

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/koumale-backend/pkg/enums"
)

// Actor is the authenticated caller of a mutating operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// IsAdmin reports whether the actor bypasses ownership checks.
func (a Actor) IsAdmin() bool {
	return a.Role == enums.UserRoleSuperAdmin
}
