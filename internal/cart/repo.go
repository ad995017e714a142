package cart

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/koumale-backend/pkg/db/models"
)

var lineSelect = strings.Join([]string{
	"ci.*",
	"p.name AS product_name",
	"p.price AS product_price",
	"p.promotional_price AS product_promotional_price",
	"p.images AS product_images",
	"p.is_active AS product_is_active",
	"p.vendor_id AS product_vendor_id",
	"v.business_name AS vendor_business_name",
	"v.slug AS vendor_slug",
	"v.contact_phone AS vendor_contact_phone",
	"v.whatsapp_link AS vendor_whatsapp_link",
	"v.telegram_link AS vendor_telegram_link",
	"v.address AS vendor_address",
}, ", ")

// Repository exposes persistence operations for carts and their lines.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByUser loads the cart owned by userID.
func (r *Repository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// Create inserts a new cart.
func (r *Repository) Create(ctx context.Context, cart *models.Cart) error {
	return r.db.WithContext(ctx).Create(cart).Error
}

// Lines returns the cart lines joined with live product and vendor data, in
// insertion order. Lines whose product is gone carry no product fields.
func (r *Repository) Lines(ctx context.Context, cartID uuid.UUID) ([]LineRow, error) {
	var rows []LineRow
	err := r.db.WithContext(ctx).
		Table("cart_items AS ci").
		Select(lineSelect).
		Joins("LEFT JOIN products p ON p.id = ci.product_id").
		Joins("LEFT JOIN vendors v ON v.id = p.vendor_id").
		Where("ci.cart_id = ?", cartID).
		Order("ci.position ASC").
		Order("ci.created_at ASC").
		Find(&rows).Error
	return rows, err
}

// ItemsForProduct returns every line of the cart for productID.
func (r *Repository) ItemsForProduct(ctx context.Context, cartID, productID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Order("position ASC").
		Find(&items).Error
	return items, err
}

// FindItem loads a line that belongs to cartID.
func (r *Repository) FindItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.db.WithContext(ctx).Where("id = ? AND cart_id = ?", itemID, cartID).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// NextPosition returns the position after the last line of the cart.
func (r *Repository) NextPosition(ctx context.Context, cartID uuid.UUID) (int, error) {
	var last int
	err := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Select("COALESCE(MAX(position), 0)").
		Where("cart_id = ?", cartID).
		Scan(&last).Error
	return last + 1, err
}

// CreateItem inserts a cart line.
func (r *Repository) CreateItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// SaveItem persists a cart line.
func (r *Repository) SaveItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// DeleteItem removes a line of cartID and reports whether it existed.
func (r *Repository) DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND cart_id = ?", itemID, cartID).Delete(&models.CartItem{})
	return res.RowsAffected > 0, res.Error
}

// Clear removes every line of the cart.
func (r *Repository) Clear(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
}
