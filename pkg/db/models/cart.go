package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/koumale-backend/pkg/types"
)

// Cart is the single shopping cart of a user.
type Cart struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Cart) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// CartItem is one line of a cart. Position keeps insertion order stable.
type CartItem struct {
	ID                 uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	CartID             uuid.UUID                `gorm:"column:cart_id;type:uuid;not null;index"`
	ProductID          uuid.UUID                `gorm:"column:product_id;type:uuid;not null;index"`
	Quantity           int                      `gorm:"column:quantity;not null"`
	SelectedAttributes types.SelectedAttributes `gorm:"column:selected_attributes;type:jsonb;not null"`
	Note               *string                  `gorm:"column:note"`
	Position           int                      `gorm:"column:position;not null"`
	CreatedAt          time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *CartItem) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	if i.SelectedAttributes == nil {
		i.SelectedAttributes = types.SelectedAttributes{}
	}
	return nil
}
