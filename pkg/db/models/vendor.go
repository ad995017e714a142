package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/koumale-backend/pkg/types"
)

// Vendor is the storefront profile owned by a vendor user.
type Vendor struct {
	ID                 uuid.UUID        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID             uuid.UUID        `gorm:"column:user_id;type:uuid;not null;uniqueIndex" json:"userId"`
	Slug               string           `gorm:"column:slug;not null;uniqueIndex" json:"vendorSlug"`
	BusinessName       string           `gorm:"column:business_name;not null" json:"businessName"`
	BusinessNameSearch string           `gorm:"column:business_name_search;not null" json:"-"`
	Description        string           `gorm:"column:description;not null" json:"description"`
	ContactPhone       string           `gorm:"column:contact_phone;not null" json:"contactPhone"`
	WhatsappLink       *string          `gorm:"column:whatsapp_link" json:"whatsappLink,omitempty"`
	TelegramLink       *string          `gorm:"column:telegram_link" json:"telegramLink,omitempty"`
	Address            *string          `gorm:"column:address" json:"address,omitempty"`
	Latitude           *float64         `gorm:"column:latitude" json:"latitude,omitempty"`
	Longitude          *float64         `gorm:"column:longitude" json:"longitude,omitempty"`
	Logo               *string          `gorm:"column:logo" json:"logo,omitempty"`
	CoverImage         *string          `gorm:"column:cover_image" json:"coverImage,omitempty"`
	Documents          types.StringList `gorm:"column:documents;type:jsonb;not null" json:"documents"`
	CreatedAt          time.Time        `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt          time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (v *Vendor) BeforeCreate(tx *gorm.DB) error {
	ensureID(&v.ID)
	if v.Documents == nil {
		v.Documents = types.StringList{}
	}
	return nil
}
