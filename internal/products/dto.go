package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/koumale-backend/pkg/db/models"
	"github.com/angelmondragon/koumale-backend/pkg/enums"
	"github.com/angelmondragon/koumale-backend/pkg/ratings"
	"github.com/angelmondragon/koumale-backend/pkg/types"
)

// Row is a product joined with its vendor and review aggregates.
type Row struct {
	models.Product     `gorm:"embedded"`
	VendorBusinessName string           `gorm:"column:vendor_business_name"`
	VendorSlug         string           `gorm:"column:vendor_slug"`
	OwnerStatus        enums.UserStatus `gorm:"column:owner_status"`
	AverageRating      float64          `gorm:"column:average_rating"`
	ReviewCount        int64            `gorm:"column:review_count"`
}

// VendorRef is the vendor slice embedded in product payloads.
type VendorRef struct {
	ID           uuid.UUID `json:"id"`
	BusinessName string    `json:"businessName"`
	VendorSlug   string    `json:"vendorSlug"`
}

// ProductDTO is the product payload returned to clients.
type ProductDTO struct {
	ID               uuid.UUID        `json:"id"`
	VendorID         uuid.UUID        `json:"vendorId"`
	Name             string           `json:"name"`
	Description      string           `json:"description"`
	Price            float64          `json:"price"`
	PromotionalPrice *float64         `json:"promotionalPrice,omitempty"`
	Category         string           `json:"category"`
	Attributes       types.Attributes `json:"attributes"`
	Images           []string         `json:"images"`
	IsActive         bool             `json:"isActive"`
	Views            int64            `json:"views"`
	Clicks           int64            `json:"clicks"`
	Vendor           *VendorRef       `json:"vendor,omitempty"`
	ratings.Summary
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FromModel maps a stored product without aggregates.
func FromModel(p *models.Product, attrs types.Attributes) *ProductDTO {
	if attrs == nil {
		attrs = types.Attributes{}
	}
	images := []string(p.Images)
	if images == nil {
		images = []string{}
	}
	dto := &ProductDTO{
		ID:          p.ID,
		VendorID:    p.VendorID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.InexactFloat64(),
		Category:    p.Category,
		Attributes:  attrs,
		Images:      images,
		IsActive:    p.IsActive,
		Views:       p.Views,
		Clicks:      p.Clicks,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.PromotionalPrice.Valid {
		promo := p.PromotionalPrice.Decimal.InexactFloat64()
		dto.PromotionalPrice = &promo
	}
	return dto
}

// FromRow maps an aggregated listing row.
func FromRow(row Row, attrs types.Attributes) ProductDTO {
	dto := FromModel(&row.Product, attrs)
	dto.Vendor = &VendorRef{
		ID:           row.VendorID,
		BusinessName: row.VendorBusinessName,
		VendorSlug:   row.VendorSlug,
	}
	dto.Summary = ratings.Summary{
		AverageRating: ratings.Round(row.AverageRating),
		ReviewCount:   row.ReviewCount,
	}
	return *dto
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name             string
	Description      string
	Price            decimal.Decimal
	PromotionalPrice *decimal.Decimal
	Category         string
	Attributes       types.Attributes
	Images           []string
	IsActive         *bool
}

// UpdateProductInput holds optional mutation values for a product.
// PromotionalPrice distinguishes absent from explicitly cleared.
type UpdateProductInput struct {
	Name             *string
	Description      *string
	Price            *decimal.Decimal
	PromotionalPrice types.NullableDecimal
	Category         *string
	Attributes       *types.Attributes
	Images           *[]string
	IsActive         *bool
}
