package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/koumale-backend/pkg/auth"
	"github.com/angelmondragon/koumale-backend/pkg/db"
	"github.com/angelmondragon/koumale-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/koumale-backend/pkg/errors"
	"github.com/angelmondragon/koumale-backend/pkg/logger"
	"github.com/angelmondragon/koumale-backend/pkg/pagination"
	"github.com/angelmondragon/koumale-backend/pkg/query"
	"github.com/angelmondragon/koumale-backend/pkg/textmatch"
	"github.com/angelmondragon/koumale-backend/pkg/visibility"
)

// Service exposes the public catalog and vendor product management.
type Service interface {
	List(ctx context.Context, plan query.Plan) ([]ProductDTO, int64, error)
	ListForVendor(ctx context.Context, vendorSlug, category string, page pagination.Params) ([]ProductDTO, int64, error)
	Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	Click(ctx context.Context, id uuid.UUID) (int64, error)
	Categories(ctx context.Context) ([]string, error)
	CreateProduct(ctx context.Context, actor auth.Actor, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, actor auth.Actor, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, actor auth.Actor, productID uuid.UUID) error
}

// VendorDirectory resolves vendors for listings and ownership checks.
type VendorDirectory interface {
	VendorResolver
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Vendor, error)
}

// Announcer broadcasts catalog events. Implementations must not block.
type Announcer interface {
	ProductCreated(ctx context.Context, vendor models.Vendor, product models.Product)
}

type service struct {
	repo      *Repository
	dbClient  *db.Client
	vendors   VendorDirectory
	announcer Announcer
	logg      *logger.Logger
}

// NewService constructs a product service instance.
func NewService(repo *Repository, dbClient *db.Client, vendors VendorDirectory, announcer Announcer, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if vendors == nil {
		return nil, fmt.Errorf("vendor directory required")
	}
	if announcer == nil {
		return nil, fmt.Errorf("announcer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      repo,
		dbClient:  dbClient,
		vendors:   vendors,
		announcer: announcer,
		logg:      logg,
	}, nil
}

// List returns one page of the public catalog.
func (s *service) List(ctx context.Context, plan query.Plan) ([]ProductDTO, int64, error) {
	rows, total, err := s.repo.List(ctx, plan)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	items, err := s.toDTOs(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListForVendor lists the active products of one approved vendor. An unknown
// slug is NotFound and a vendor awaiting approval is Forbidden.
func (s *service) ListForVendor(ctx context.Context, vendorSlug, category string, page pagination.Params) ([]ProductDTO, int64, error) {
	vendor, err := s.vendors.ResolveVisible(ctx, vendorSlug)
	if err != nil {
		return nil, 0, err
	}
	plan := query.NewPlan()
	plan.Where(query.Eq(query.FieldVendorID, vendor.ID))
	if category = strings.TrimSpace(category); category != "" {
		plan.Where(query.Eq(query.FieldCategory, category))
	}
	plan.Page = pagination.Normalize(page)
	return s.List(ctx, plan)
}

// Get returns a product of a visible vendor and counts the view.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	row, err := s.repo.Summary(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load product")
	}
	if !visibility.VendorVisible(row.OwnerStatus) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	found, err := s.repo.IncrementViews(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment views")
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	row.Views++

	attrs, err := s.repo.AttributesFor(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load attributes")
	}
	dto := FromRow(*row, attrs[id])
	return &dto, nil
}

// Click counts a click and returns the stored total.
func (s *service) Click(ctx context.Context, id uuid.UUID) (int64, error) {
	clicks, err := s.repo.IncrementClicks(ctx, id)
	if err != nil {
		return 0, notFoundOr(err, "increment clicks")
	}
	return clicks, nil
}

func (s *service) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.repo.Categories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	return categories, nil
}

// CreateProduct stores a product for the caller's vendor profile and
// announces it.
func (s *service) CreateProduct(ctx context.Context, actor auth.Actor, input CreateProductInput) (*ProductDTO, error) {
	vendor, err := s.vendors.GetByUserID(ctx, actor.UserID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor profile required")
		}
		return nil, err
	}
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	product := &models.Product{
		VendorID:    vendor.ID,
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Price:       input.Price,
		Category:    strings.TrimSpace(input.Category),
		Images:      cleanImages(input.Images),
		IsActive:    true,
	}
	product.NameSearch = textmatch.Normalize(product.Name)
	if input.PromotionalPrice != nil {
		product.PromotionalPrice = decimal.NewNullDecimal(*input.PromotionalPrice)
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Create(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
		}
		if err := txRepo.ReplaceAttributes(ctx, product.ID, attributeRows(product.ID, input.Attributes)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store attributes")
		}
		return nil
	}); err != nil {
		return nil, err
	}

	ctx = s.logg.WithVendorID(ctx, vendor.ID.String())
	ctx = s.logg.WithField(ctx, "product_id", product.ID.String())
	s.logg.Info(ctx, "product.created")
	if product.IsActive {
		s.announcer.ProductCreated(ctx, *vendor, *product)
	}

	return FromModel(product, input.Attributes), nil
}

// UpdateProduct applies a partial update. The caller must own the product's
// vendor or be an admin.
func (s *service) UpdateProduct(ctx context.Context, actor auth.Actor, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.authorize(ctx, actor, productID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
		}
		product.Name = name
		product.NameSearch = textmatch.Normalize(name)
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if description == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "description is required")
		}
		product.Description = description
	}
	if input.Category != nil {
		category := strings.TrimSpace(*input.Category)
		if category == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category is required")
		}
		product.Category = category
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be >= 0")
		}
		product.Price = *input.Price
	}
	switch {
	case input.PromotionalPrice.Cleared():
		product.PromotionalPrice = decimal.NullDecimal{}
	case input.PromotionalPrice.Set:
		product.PromotionalPrice = decimal.NewNullDecimal(*input.PromotionalPrice.Value)
	}
	if product.PromotionalPrice.Valid {
		if err := validatePromotion(product.PromotionalPrice.Decimal, product.Price); err != nil {
			return nil, err
		}
	}
	if input.Images != nil {
		product.Images = cleanImages(*input.Images)
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	if input.Attributes != nil {
		if err := validateAttributes(*input.Attributes); err != nil {
			return nil, err
		}
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Update(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
		}
		if input.Attributes != nil {
			if err := txRepo.ReplaceAttributes(ctx, product.ID, attributeRows(product.ID, *input.Attributes)); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store attributes")
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return s.detail(ctx, product.ID)
}

// DeleteProduct removes a product owned by the caller, or any product for an
// admin.
func (s *service) DeleteProduct(ctx context.Context, actor auth.Actor, productID uuid.UUID) error {
	if _, err := s.authorize(ctx, actor, productID); err != nil {
		return err
	}
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Delete(ctx, productID)
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	s.logg.Info(s.logg.WithField(ctx, "product_id", productID.String()), "product.deleted")
	return nil
}

func (s *service) authorize(ctx context.Context, actor auth.Actor, productID uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return nil, notFoundOr(err, "load product")
	}
	if actor.IsAdmin() {
		return product, nil
	}
	vendor, err := s.vendors.GetByUserID(ctx, actor.UserID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not owner")
		}
		return nil, err
	}
	if vendor.ID != product.VendorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not owner")
	}
	return product, nil
}

func (s *service) detail(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	row, err := s.repo.Summary(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load product")
	}
	attrs, err := s.repo.AttributesFor(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load attributes")
	}
	dto := FromRow(*row, attrs[id])
	return &dto, nil
}

func (s *service) toDTOs(ctx context.Context, rows []Row) ([]ProductDTO, error) {
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	attrs, err := s.repo.AttributesFor(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load attributes")
	}
	items := make([]ProductDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, FromRow(row, attrs[row.ID]))
	}
	return items, nil
}

func validateCreate(input CreateProductInput) error {
	missing := make([]string, 0, 3)
	if strings.TrimSpace(input.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(input.Description) == "" {
		missing = append(missing, "description")
	}
	if strings.TrimSpace(input.Category) == "" {
		missing = append(missing, "category")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "missing required fields").
			WithDetails(map[string]string{"fields": strings.Join(missing, ",")})
	}
	if input.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be >= 0")
	}
	if input.PromotionalPrice != nil {
		if err := validatePromotion(*input.PromotionalPrice, input.Price); err != nil {
			return err
		}
	}
	return validateAttributes(input.Attributes)
}

// validatePromotion enforces 0 <= promo < price.
func validatePromotion(promo, price decimal.Decimal) error {
	if promo.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "promotionalPrice must be >= 0")
	}
	if promo.GreaterThanOrEqual(price) {
		return pkgerrors.New(pkgerrors.CodeValidation, "promotionalPrice must be lower than price").
			WithDetails(map[string]string{
				"price":            price.String(),
				"promotionalPrice": promo.String(),
			})
	}
	return nil
}

func cleanImages(images []string) []string {
	out := make([]string, 0, len(images))
	for _, image := range images {
		if image = strings.TrimSpace(image); image != "" {
			out = append(out, image)
		}
	}
	return out
}

func notFoundOr(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
