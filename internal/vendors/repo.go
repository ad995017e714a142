package vendors

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/koumale-backend/internal/repo"
	"github.com/angelmondragon/koumale-backend/pkg/db/models"
	"github.com/angelmondragon/koumale-backend/pkg/enums"
	"github.com/angelmondragon/koumale-backend/pkg/pagination"
	"github.com/angelmondragon/koumale-backend/pkg/query"
	"github.com/angelmondragon/koumale-backend/pkg/ratings"
	"github.com/angelmondragon/koumale-backend/pkg/visibility"
)

var (
	innerColumns = query.Columns{Fields: map[string]string{
		query.FieldID:         "v.id",
		query.FieldCreatedAt:  "v.created_at",
		query.FieldNameSearch: "v.business_name_search",
		query.FieldAddress:    "v.address",
	}}
	listingColumns = query.Columns{Fields: map[string]string{
		query.FieldID:            "listing.id",
		query.FieldCreatedAt:     "listing.created_at",
		query.FieldAverageRating: "listing.average_rating",
		query.FieldReviewCount:   "listing.review_count",
		query.FieldProductCount:  "listing.product_count",
	}}
)

var summarySelect = strings.Join([]string{
	"v.*",
	"u.email AS owner_email",
	"u.status AS owner_status",
	"u.first_name AS owner_first_name",
	"u.last_name AS owner_last_name",
	ratings.AverageExpr("r.rating") + " AS average_rating",
	ratings.CountExpr("r.id") + " AS review_count",
	"COUNT(DISTINCT p.id) AS product_count",
}, ", ")

// Repository exposes vendor persistence and the aggregated vendor listings.
type Repository struct {
	repo.Base
}

// NewRepository constructs a vendors repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// summary selects every vendor with owner fields and the rating aggregates
// computed over the product reviews of all of its products.
func (r *Repository) summary(ctx context.Context) *gorm.DB {
	return r.DB(ctx).
		Table("vendors AS v").
		Select(summarySelect).
		Joins("JOIN users u ON u.id = v.user_id").
		Joins("LEFT JOIN products p ON p.vendor_id = v.id").
		Joins("LEFT JOIN reviews r ON r.product_id = p.id AND r.type = ?", enums.ReviewTypeProduct).
		Group("v.id, u.id")
}

// listing wraps the aggregated summary so post-aggregation predicates, the
// count and the page all run against the same relation.
func (r *Repository) listing(ctx context.Context, plan query.Plan, scopes ...func(*gorm.DB) *gorm.DB) (*gorm.DB, error) {
	inner, err := query.ApplyWhere(r.summary(ctx).Scopes(scopes...), plan.Base, innerColumns)
	if err != nil {
		return nil, err
	}
	return query.ApplyWhere(r.DB(ctx).Table("(?) AS listing", inner), plan.Post, listingColumns)
}

func (r *Repository) page(ctx context.Context, plan query.Plan, scopes ...func(*gorm.DB) *gorm.DB) ([]Row, int64, error) {
	countQuery, err := r.listing(ctx, plan, scopes...)
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	rowsQuery, err := r.listing(ctx, plan, scopes...)
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

// List pages through approved vendors matching plan.
func (r *Repository) List(ctx context.Context, plan query.Plan) ([]Row, int64, error) {
	return r.page(ctx, plan, visibility.ApprovedOwners("u"))
}

// ListPending pages through vendors whose owner awaits approval, newest first.
// term matches business name or slug, case-insensitively.
func (r *Repository) ListPending(ctx context.Context, term string, page pagination.Params) ([]Row, int64, error) {
	plan := query.NewPlan()
	plan.Page = page
	return r.page(ctx, plan, pendingScope(term))
}

func pendingScope(term string) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		q = q.Where("u.role = ? AND u.status = ?", enums.UserRoleVendor, enums.UserStatusPending)
		if term = strings.ToLower(strings.TrimSpace(term)); term != "" {
			like := "%" + term + "%"
			q = q.Where("(LOWER(v.business_name) LIKE ? OR LOWER(v.slug) LIKE ?)", like, like)
		}
		return q
	}
}

// SummaryBySlug loads one vendor with its aggregates regardless of approval.
func (r *Repository) SummaryBySlug(ctx context.Context, slug string) (*Row, error) {
	var row Row
	if err := r.summary(ctx).Where("v.slug = ?", slug).Take(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindBySlugWithOwner loads a vendor and its owning user.
func (r *Repository) FindBySlugWithOwner(ctx context.Context, slug string) (*models.Vendor, *models.User, error) {
	var vendor models.Vendor
	if err := r.DB(ctx).Where("slug = ?", slug).First(&vendor).Error; err != nil {
		return nil, nil, err
	}
	var owner models.User
	if err := r.DB(ctx).First(&owner, "id = ?", vendor.UserID).Error; err != nil {
		return nil, nil, err
	}
	return &vendor, &owner, nil
}

// FindByID loads a vendor by id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.DB(ctx).First(&vendor, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

// FindByUserID loads the vendor profile owned by a user.
func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.DB(ctx).Where("user_id = ?", userID).First(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

// SlugExists reports whether a vendor already holds slug.
func (r *Repository) SlugExists(ctx context.Context, slug string) (bool, error) {
	return r.Exists(ctx, &models.Vendor{}, "slug = ?", slug)
}

// BusinessNameTaken reports whether another vendor uses name, compared
// case-insensitively. exclude skips the vendor being edited.
func (r *Repository) BusinessNameTaken(ctx context.Context, name string, exclude uuid.UUID) (bool, error) {
	q := r.DB(ctx).Model(&models.Vendor{}).
		Where("LOWER(business_name) = ?", strings.ToLower(strings.TrimSpace(name)))
	if exclude != uuid.Nil {
		q = q.Where("id <> ?", exclude)
	}
	var count int64
	err := q.Count(&count).Error
	return count > 0, err
}

// Create inserts a vendor profile.
func (r *Repository) Create(ctx context.Context, vendor *models.Vendor) error {
	return r.DB(ctx).Create(vendor).Error
}

// Save persists every column of an existing vendor.
func (r *Repository) Save(ctx context.Context, vendor *models.Vendor) error {
	return r.DB(ctx).Save(vendor).Error
}

// Delete removes the vendor row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.DB(ctx).Where("id = ?", id).Delete(&models.Vendor{}).Error
}

// DeleteByUserID removes the vendor owned by userID, if any.
func (r *Repository) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	return r.DB(ctx).Where("user_id = ?", userID).Delete(&models.Vendor{}).Error
}

// DeleteProducts removes every product of a vendor together with its
// attributes and returns the number of products removed.
func (r *Repository) DeleteProducts(ctx context.Context, vendorID uuid.UUID) (int64, error) {
	owned := r.DB(ctx).Model(&models.Product{}).Select("id").Where("vendor_id = ?", vendorID)
	if err := r.DB(ctx).Where("product_id IN (?)", owned).Delete(&models.ProductAttribute{}).Error; err != nil {
		return 0, err
	}
	res := r.DB(ctx).Where("vendor_id = ?", vendorID).Delete(&models.Product{})
	return res.RowsAffected, res.Error
}

// Stats aggregates a vendor's catalog counters and its five most viewed products.
func (r *Repository) Stats(ctx context.Context, vendorID uuid.UUID) (*Stats, error) {
	var totals struct {
		TotalProducts int64
		TotalViews    int64
		TotalClicks   int64
	}
	err := r.DB(ctx).
		Model(&models.Product{}).
		Select("COUNT(*) AS total_products, COALESCE(SUM(views), 0) AS total_views, COALESCE(SUM(clicks), 0) AS total_clicks").
		Where("vendor_id = ?", vendorID).
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}

	top := []TopProduct{}
	err = r.DB(ctx).
		Model(&models.Product{}).
		Select("id, name, views, clicks").
		Where("vendor_id = ?", vendorID).
		Order("views DESC").
		Order("clicks DESC").
		Order("created_at DESC").
		Limit(5).
		Scan(&top).Error
	if err != nil {
		return nil, err
	}

	return &Stats{
		TotalProducts: totals.TotalProducts,
		TotalViews:    totals.TotalViews,
		TotalClicks:   totals.TotalClicks,
		TopProducts:   top,
	}, nil
}

// WithFewProducts returns approved vendors owning fewer than threshold
// products, smallest catalogs first. A limit below 1 returns every match.
func (r *Repository) WithFewProducts(ctx context.Context, threshold int64, limit int) ([]ProductCount, error) {
	q := r.DB(ctx).
		Table("vendors AS v").
		Select("v.id AS vendor_id, v.user_id, v.business_name, COUNT(p.id) AS product_count").
		Joins("JOIN users u ON u.id = v.user_id").
		Joins("LEFT JOIN products p ON p.vendor_id = v.id").
		Scopes(visibility.ApprovedOwners("u")).
		Group("v.id").
		Having("COUNT(p.id) < ?", threshold).
		Order("product_count ASC").
		Order("v.created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []ProductCount
	if err := q.Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// WithUnpromotedProducts returns approved vendors that have at least one
// active product without a promotional price.
func (r *Repository) WithUnpromotedProducts(ctx context.Context) ([]ProductCount, error) {
	var out []ProductCount
	err := r.DB(ctx).
		Table("vendors AS v").
		Select("v.id AS vendor_id, v.user_id, v.business_name, COUNT(p.id) AS product_count").
		Joins("JOIN users u ON u.id = v.user_id").
		Joins("JOIN products p ON p.vendor_id = v.id").
		Scopes(visibility.ApprovedOwners("u")).
		Where("p.is_active = ?", true).
		Where("(p.promotional_price IS NULL OR p.promotional_price <= 0)").
		Group("v.id").
		Order("v.created_at ASC").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
