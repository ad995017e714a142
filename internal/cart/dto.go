package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/koumale-backend/pkg/db/models"
	"github.com/angelmondragon/koumale-backend/pkg/types"
)

// LineRow is a cart item joined with its product and vendor.
type LineRow struct {
	models.CartItem         `gorm:"embedded"`
	ProductName             *string             `gorm:"column:product_name"`
	ProductPrice            decimal.NullDecimal `gorm:"column:product_price"`
	ProductPromotionalPrice decimal.NullDecimal `gorm:"column:product_promotional_price"`
	ProductImages           types.StringList    `gorm:"column:product_images"`
	ProductIsActive         *bool               `gorm:"column:product_is_active"`
	ProductVendorID         *uuid.UUID          `gorm:"column:product_vendor_id"`
	VendorBusinessName      *string             `gorm:"column:vendor_business_name"`
	VendorSlug              *string             `gorm:"column:vendor_slug"`
	VendorContactPhone      *string             `gorm:"column:vendor_contact_phone"`
	VendorWhatsappLink      *string             `gorm:"column:vendor_whatsapp_link"`
	VendorTelegramLink      *string             `gorm:"column:vendor_telegram_link"`
	VendorAddress           *string             `gorm:"column:vendor_address"`
}

// AddItemInput is the payload of POST /cart.
type AddItemInput struct {
	ProductID          uuid.UUID
	Quantity           int
	SelectedAttributes types.SelectedAttributes
	Note               *string
}

// UpdateItemInput is the payload of PUT /cart/:itemId.
type UpdateItemInput struct {
	Quantity           *int
	Note               *string
	SelectedAttributes *types.SelectedAttributes
}

// VendorContact is the vendor slice shoppers need to reach out.
type VendorContact struct {
	ID           uuid.UUID `json:"id"`
	BusinessName string    `json:"businessName"`
	VendorSlug   string    `json:"vendorSlug"`
	ContactPhone string    `json:"contactPhone"`
	WhatsappLink *string   `json:"whatsappLink,omitempty"`
	TelegramLink *string   `json:"telegramLink,omitempty"`
	Address      *string   `json:"address,omitempty"`
}

// ProductRef is the live product data shown on a cart line.
type ProductRef struct {
	ID               uuid.UUID      `json:"id"`
	Name             string         `json:"name"`
	Price            float64        `json:"price"`
	PromotionalPrice *float64       `json:"promotionalPrice,omitempty"`
	Images           []string       `json:"images"`
	IsActive         bool           `json:"isActive"`
	Vendor           *VendorContact `json:"vendor,omitempty"`
}

// ItemDTO is one cart line.
type ItemDTO struct {
	ID                 uuid.UUID                `json:"id"`
	ProductID          uuid.UUID                `json:"productId"`
	Quantity           int                      `json:"quantity"`
	SelectedAttributes types.SelectedAttributes `json:"selectedAttributes"`
	Note               *string                  `json:"note,omitempty"`
	Product            *ProductRef              `json:"product"`
	LineTotal          float64                  `json:"lineTotal"`
}

// CartDTO is the cart with totals computed from live prices.
type CartDTO struct {
	ID         uuid.UUID `json:"id"`
	Items      []ItemDTO `json:"items"`
	TotalPrice float64   `json:"totalPrice"`
	TotalItems int       `json:"totalItems"`
}

// unitPrice is the price a shopper pays today: a positive promotion wins.
func (row LineRow) unitPrice() (decimal.Decimal, bool) {
	if row.ProductName == nil || !row.ProductPrice.Valid {
		return decimal.Zero, false
	}
	if row.ProductPromotionalPrice.Valid && row.ProductPromotionalPrice.Decimal.IsPositive() {
		return row.ProductPromotionalPrice.Decimal, true
	}
	return row.ProductPrice.Decimal, true
}

func (row LineRow) product() *ProductRef {
	if row.ProductName == nil {
		return nil
	}
	ref := &ProductRef{
		ID:       row.ProductID,
		Name:     *row.ProductName,
		Price:    row.ProductPrice.Decimal.InexactFloat64(),
		Images:   []string(row.ProductImages),
		IsActive: row.ProductIsActive != nil && *row.ProductIsActive,
	}
	if ref.Images == nil {
		ref.Images = []string{}
	}
	if row.ProductPromotionalPrice.Valid {
		promo := row.ProductPromotionalPrice.Decimal.InexactFloat64()
		ref.PromotionalPrice = &promo
	}
	if row.ProductVendorID != nil && row.VendorSlug != nil {
		ref.Vendor = &VendorContact{
			ID:           *row.ProductVendorID,
			BusinessName: deref(row.VendorBusinessName),
			VendorSlug:   *row.VendorSlug,
			ContactPhone: deref(row.VendorContactPhone),
			WhatsappLink: row.VendorWhatsappLink,
			TelegramLink: row.VendorTelegramLink,
			Address:      row.VendorAddress,
		}
	}
	return ref
}

// buildCart computes line totals and cart totals. Lines whose product no
// longer exists are listed but excluded from the totals.
func buildCart(cartID uuid.UUID, rows []LineRow) *CartDTO {
	out := &CartDTO{ID: cartID, Items: make([]ItemDTO, 0, len(rows))}
	total := decimal.Zero
	for _, row := range rows {
		item := ItemDTO{
			ID:                 row.ID,
			ProductID:          row.ProductID,
			Quantity:           row.Quantity,
			SelectedAttributes: row.SelectedAttributes,
			Note:               row.Note,
			Product:            row.product(),
		}
		if item.SelectedAttributes == nil {
			item.SelectedAttributes = types.SelectedAttributes{}
		}
		if unit, ok := row.unitPrice(); ok {
			line := unit.Mul(decimal.NewFromInt(int64(row.Quantity)))
			item.LineTotal = line.InexactFloat64()
			total = total.Add(line)
			out.TotalItems += row.Quantity
		}
		out.Items = append(out.Items, item)
	}
	out.TotalPrice = total.InexactFloat64()
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
