package product

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/koumale-backend/internal/repo"
	"github.com/angelmondragon/koumale-backend/pkg/db/models"
	"github.com/angelmondragon/koumale-backend/pkg/enums"
	"github.com/angelmondragon/koumale-backend/pkg/query"
	"github.com/angelmondragon/koumale-backend/pkg/ratings"
	"github.com/angelmondragon/koumale-backend/pkg/types"
	"github.com/angelmondragon/koumale-backend/pkg/visibility"
)

var (
	innerColumns = query.Columns{
		Fields: map[string]string{
			query.FieldID:               "p.id",
			query.FieldCategory:         "p.category",
			query.FieldVendorID:         "p.vendor_id",
			query.FieldPrice:            "p.price",
			query.FieldPromotionalPrice: "p.promotional_price",
			query.FieldCreatedAt:        "p.created_at",
			query.FieldNameSearch:       "p.name_search",
			query.FieldAddress:          "v.address",
			query.FieldIsActive:         "p.is_active",
		},
		AttributeOwner: "p.id",
	}
	listingColumns = query.Columns{Fields: map[string]string{
		query.FieldID:            "listing.id",
		query.FieldCreatedAt:     "listing.created_at",
		query.FieldViews:         "listing.views",
		query.FieldClicks:        "listing.clicks",
		query.FieldAverageRating: "listing.average_rating",
		query.FieldReviewCount:   "listing.review_count",
	}}
)

var summarySelect = strings.Join([]string{
	"p.*",
	"v.business_name AS vendor_business_name",
	"v.slug AS vendor_slug",
	"u.status AS owner_status",
	ratings.AverageExpr("r.rating") + " AS average_rating",
	ratings.CountExpr("r.id") + " AS review_count",
}, ", ")

// updatableColumns excludes the counters so edits never overwrite concurrent
// view and click increments.
var updatableColumns = []string{
	"name", "name_search", "description", "price", "promotional_price",
	"category", "images", "is_active", "updated_at",
}

// Repository wires together all product-related persistence helpers.
type Repository struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Bound(tx)}
}

// FindByID loads the product without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// Create inserts a product.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.DB(ctx).Create(product).Error
}

// Update persists the editable columns of product.
func (r *Repository) Update(ctx context.Context, product *models.Product) error {
	return r.DB(ctx).
		Model(product).
		Select(updatableColumns).
		Updates(product).Error
}

// Delete removes a product and its attributes.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tx := r.DB(ctx)
	if err := tx.Where("product_id = ?", id).Delete(&models.ProductAttribute{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", id).Delete(&models.Product{}).Error
}

// ReplaceAttributes rewrites the attribute bag of a product.
func (r *Repository) ReplaceAttributes(ctx context.Context, productID uuid.UUID, attrs []models.ProductAttribute) error {
	tx := r.DB(ctx)
	if err := tx.Where("product_id = ?", productID).Delete(&models.ProductAttribute{}).Error; err != nil {
		return err
	}
	if len(attrs) == 0 {
		return nil
	}
	return tx.Create(&attrs).Error
}

// AttributesFor loads the attribute bags of the given products.
func (r *Repository) AttributesFor(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]types.Attributes, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]types.Attributes{}, nil
	}
	var rows []models.ProductAttribute
	if err := r.DB(ctx).
		Where("product_id IN ?", ids).
		Order("attr_key ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return attributesFromRows(rows), nil
}

func (r *Repository) summary(ctx context.Context) *gorm.DB {
	return r.DB(ctx).
		Table("products AS p").
		Select(summarySelect).
		Joins("JOIN vendors v ON v.id = p.vendor_id").
		Joins("JOIN users u ON u.id = v.user_id").
		Joins("LEFT JOIN reviews r ON r.product_id = p.id AND r.type = ?", enums.ReviewTypeProduct).
		Group("p.id, v.id, u.id")
}

func (r *Repository) listing(ctx context.Context, plan query.Plan) (*gorm.DB, error) {
	inner, err := query.ApplyWhere(
		r.summary(ctx).Scopes(visibility.PublicProducts("p", "u")),
		plan.Base,
		innerColumns,
	)
	if err != nil {
		return nil, err
	}
	return query.ApplyWhere(r.DB(ctx).Table("(?) AS listing", inner), plan.Post, listingColumns)
}

// List pages through the public catalog: active products of approved vendors
// matching plan. The total counts the same filtered relation.
func (r *Repository) List(ctx context.Context, plan query.Plan) ([]Row, int64, error) {
	countQuery, err := r.listing(ctx, plan)
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	rowsQuery, err := r.listing(ctx, plan)
	if err != nil {
		return nil, 0, err
	}
	rowsQuery, err = query.ApplyOrder(rowsQuery, plan.Sort, listingColumns)
	if err != nil {
		return nil, 0, err
	}
	var rows []Row
	if err := query.ApplyPage(rowsQuery, plan.Page).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Summary loads one product with vendor fields and review aggregates,
// regardless of visibility.
func (r *Repository) Summary(ctx context.Context, id uuid.UUID) (*Row, error) {
	var row Row
	if err := r.summary(ctx).Where("p.id = ?", id).Take(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// IncrementViews bumps the view counter in a single statement and reports
// whether the product exists.
func (r *Repository) IncrementViews(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.increment(ctx, id, "views")
}

// IncrementClicks bumps the click counter and returns the stored count.
func (r *Repository) IncrementClicks(ctx context.Context, id uuid.UUID) (int64, error) {
	found, err := r.increment(ctx, id, "clicks")
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, gorm.ErrRecordNotFound
	}
	var clicks int64
	err = r.DB(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Select("clicks").
		Scan(&clicks).Error
	return clicks, err
}

func (r *Repository) increment(ctx context.Context, id uuid.UUID, column string) (bool, error) {
	res := r.DB(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + ?", 1))
	return res.RowsAffected > 0, res.Error
}

// Categories returns the distinct categories of active products.
func (r *Repository) Categories(ctx context.Context) ([]string, error) {
	categories := []string{}
	err := r.DB(ctx).
		Model(&models.Product{}).
		Where("is_active = ?", true).
		Distinct("category").
		Order("category ASC").
		Pluck("category", &categories).Error
	return categories, err
}

// LowViewIDs returns up to limit active products with fewer than below views.
func (r *Repository) LowViewIDs(ctx context.Context, below int64, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.DB(ctx).
		Model(&models.Product{}).
		Where("is_active = ? AND views < ?", true, below).
		Order("views ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}
