package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/koumale-backend/pkg/enums"
)

// Review is a 1..5 rating attached to a product, a vendor or the app itself.
type Review struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID        `gorm:"column:user_id;type:uuid;not null;index"`
	Type      enums.ReviewType `gorm:"column:type;type:text;not null;index"`
	ProductID *uuid.UUID       `gorm:"column:product_id;type:uuid;index"`
	VendorID  *uuid.UUID       `gorm:"column:vendor_id;type:uuid;index"`
	Rating    int              `gorm:"column:rating;not null"`
	Comment   string           `gorm:"column:comment;not null"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
