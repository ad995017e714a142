package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/koumale-backend/pkg/enums"
)

// User is an account on the marketplace: shopper, vendor owner or admin.
type User struct {
	ID                    uuid.UUID        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Email                 string           `gorm:"column:email;type:text;not null;uniqueIndex" json:"email"`
	PasswordHash          *string          `gorm:"column:password_hash" json:"-"`
	FirstName             string           `gorm:"column:first_name;not null" json:"firstName"`
	LastName              string           `gorm:"column:last_name;not null" json:"lastName"`
	GoogleID              *string          `gorm:"column:google_id;uniqueIndex" json:"-"`
	Role                  enums.UserRole   `gorm:"column:role;type:text;not null" json:"role"`
	Status                enums.UserStatus `gorm:"column:status;type:text;not null" json:"status"`
	EmailVerified         bool             `gorm:"column:email_verified;not null" json:"emailVerified"`
	VerificationCode      *string          `gorm:"column:verification_code" json:"-"`
	VerificationExpiresAt *time.Time       `gorm:"column:verification_expires_at" json:"-"`
	CreatedAt             time.Time        `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt             time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

// IsPendingVendor reports whether the account awaits admin approval.
func (u *User) IsPendingVendor() bool {
	return u.Role == enums.UserRoleVendor && u.Status == enums.UserStatusPending
}
