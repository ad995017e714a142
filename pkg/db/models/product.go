package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/koumale-backend/pkg/enums"
	"github.com/angelmondragon/koumale-backend/pkg/types"
)

// Product is a vendor listing. Typed attributes live in product_attributes.
type Product struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	VendorID         uuid.UUID           `gorm:"column:vendor_id;type:uuid;not null;index"`
	Name             string              `gorm:"column:name;not null"`
	NameSearch       string              `gorm:"column:name_search;not null"`
	Description      string              `gorm:"column:description;not null"`
	Price            decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null"`
	PromotionalPrice decimal.NullDecimal `gorm:"column:promotional_price;type:numeric(12,2)"`
	Category         string              `gorm:"column:category;not null;index"`
	Images           types.StringList    `gorm:"column:images;type:jsonb;not null"`
	IsActive         bool                `gorm:"column:is_active;not null"`
	Views            int64               `gorm:"column:views;not null"`
	Clicks           int64               `gorm:"column:clicks;not null"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	if p.Images == nil {
		p.Images = types.StringList{}
	}
	return nil
}

// EffectivePrice is the price a shopper pays: the promotion when one is set.
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.PromotionalPrice.Valid && p.PromotionalPrice.Decimal.IsPositive() {
		return p.PromotionalPrice.Decimal
	}
	return p.Price
}

// ProductAttribute is one typed entry of a product's attribute bag.
type ProductAttribute struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID           `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_product_attributes_key"`
	Key       string              `gorm:"column:attr_key;not null;uniqueIndex:ux_product_attributes_key"`
	Value     string              `gorm:"column:attr_value;not null"`
	ValueType enums.AttributeType `gorm:"column:value_type;type:text;not null"`
}

func (a *ProductAttribute) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
