package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/koumale-backend/pkg/auth"
	"github.com/angelmondragon/koumale-backend/pkg/db/models"
	"github.com/angelmondragon/koumale-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/koumale-backend/pkg/errors"
	"github.com/angelmondragon/koumale-backend/pkg/logger"
	"github.com/angelmondragon/koumale-backend/pkg/pagination"
)

const (
	minRating = 1
	maxRating = 5
)

type reviewsRepository interface {
	Create(ctx context.Context, review *models.Review) error
	List(ctx context.Context, scope func(*gorm.DB) *gorm.DB, page pagination.Params) ([]Row, int64, error)
}

type productLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type vendorResolver interface {
	ResolveVisible(ctx context.Context, slug string) (*models.Vendor, error)
}

// Announcer tells a vendor about feedback on their catalog. Implementations
// must not block.
type Announcer interface {
	ProductReviewed(ctx context.Context, product models.Product, review models.Review)
}

// ServiceParams groups dependencies for the reviews service.
type ServiceParams struct {
	Repo      reviewsRepository
	Products  productLookup
	Vendors   vendorResolver
	Announcer Announcer
	Logg      *logger.Logger
}

// Service exposes product, vendor and app reviews.
type Service interface {
	CreateProductReview(ctx context.Context, actor auth.Actor, productID uuid.UUID, input Input) (*ReviewDTO, error)
	ListProductReviews(ctx context.Context, productID uuid.UUID, page pagination.Params) ([]ReviewDTO, int64, error)
	CreateVendorReview(ctx context.Context, actor auth.Actor, vendorSlug string, input Input) (*ReviewDTO, error)
	ListVendorReviews(ctx context.Context, vendorSlug string, page pagination.Params) ([]ReviewDTO, int64, error)
	CreateAppReview(ctx context.Context, actor auth.Actor, input Input) (*ReviewDTO, error)
	ListAppReviews(ctx context.Context, page pagination.Params) ([]ReviewDTO, int64, error)
}

type service struct {
	repo      reviewsRepository
	products  productLookup
	vendors   vendorResolver
	announcer Announcer
	logg      *logger.Logger
}

// NewService builds a reviews service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("reviews repo required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product lookup required")
	}
	if params.Vendors == nil {
		return nil, fmt.Errorf("vendor resolver required")
	}
	if params.Announcer == nil {
		return nil, fmt.Errorf("announcer required")
	}
	if params.Logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      params.Repo,
		products:  params.Products,
		vendors:   params.Vendors,
		announcer: params.Announcer,
		logg:      params.Logg,
	}, nil
}

func (s *service) CreateProductReview(ctx context.Context, actor auth.Actor, productID uuid.UUID, input Input) (*ReviewDTO, error) {
	comment, err := validate(input)
	if err != nil {
		return nil, err
	}
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	review := &models.Review{
		UserID:    actor.UserID,
		Type:      enums.ReviewTypeProduct,
		ProductID: &product.ID,
		Rating:    input.Rating,
		Comment:   comment,
	}
	if err := s.repo.Create(ctx, review); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
	}
	s.announcer.ProductReviewed(s.logg.WithField(ctx, "product_id", product.ID.String()), *product, *review)

	dto := fromModel(review)
	return &dto, nil
}

func (s *service) ListProductReviews(ctx context.Context, productID uuid.UUID, page pagination.Params) ([]ReviewDTO, int64, error) {
	if _, err := s.loadProduct(ctx, productID); err != nil {
		return nil, 0, err
	}
	return s.list(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("r.type = ? AND r.product_id = ?", enums.ReviewTypeProduct, productID)
	}, page)
}

func (s *service) CreateVendorReview(ctx context.Context, actor auth.Actor, vendorSlug string, input Input) (*ReviewDTO, error) {
	comment, err := validate(input)
	if err != nil {
		return nil, err
	}
	vendor, err := s.vendors.ResolveVisible(ctx, vendorSlug)
	if err != nil {
		return nil, err
	}

	review := &models.Review{
		UserID:   actor.UserID,
		Type:     enums.ReviewTypeVendor,
		VendorID: &vendor.ID,
		Rating:   input.Rating,
		Comment:  comment,
	}
	if err := s.repo.Create(ctx, review); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
	}
	dto := fromModel(review)
	return &dto, nil
}

func (s *service) ListVendorReviews(ctx context.Context, vendorSlug string, page pagination.Params) ([]ReviewDTO, int64, error) {
	vendor, err := s.vendors.ResolveVisible(ctx, vendorSlug)
	if err != nil {
		return nil, 0, err
	}
	return s.list(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("r.type = ? AND r.vendor_id = ?", enums.ReviewTypeVendor, vendor.ID)
	}, page)
}

func (s *service) CreateAppReview(ctx context.Context, actor auth.Actor, input Input) (*ReviewDTO, error) {
	comment, err := validate(input)
	if err != nil {
		return nil, err
	}
	review := &models.Review{
		UserID:  actor.UserID,
		Type:    enums.ReviewTypeApp,
		Rating:  input.Rating,
		Comment: comment,
	}
	if err := s.repo.Create(ctx, review); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
	}
	dto := fromModel(review)
	return &dto, nil
}

func (s *service) ListAppReviews(ctx context.Context, page pagination.Params) ([]ReviewDTO, int64, error) {
	return s.list(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("r.type = ?", enums.ReviewTypeApp)
	}, page)
}

func (s *service) list(ctx context.Context, scope func(*gorm.DB) *gorm.DB, page pagination.Params) ([]ReviewDTO, int64, error) {
	rows, total, err := s.repo.List(ctx, scope, page)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	items := make([]ReviewDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, FromRow(row))
	}
	return items, total, nil
}

func (s *service) loadProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

// validate enforces an integer rating in 1..5 and a non-blank comment, and
// returns the trimmed comment.
func validate(input Input) (string, error) {
	comment := strings.TrimSpace(input.Comment)
	if input.Rating < minRating || input.Rating > maxRating || comment == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "rating (1-5) and comment are required")
	}
	return comment, nil
}
