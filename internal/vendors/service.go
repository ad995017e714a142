package vendors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/koumale-backend/pkg/auth"
	"github.com/angelmondragon/koumale-backend/pkg/db"
	"github.com/angelmondragon/koumale-backend/pkg/db/models"
	"github.com/angelmondragon/koumale-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/koumale-backend/pkg/errors"
	"github.com/angelmondragon/koumale-backend/pkg/logger"
	"github.com/angelmondragon/koumale-backend/pkg/pagination"
	"github.com/angelmondragon/koumale-backend/pkg/query"
	"github.com/angelmondragon/koumale-backend/pkg/slug"
	"github.com/angelmondragon/koumale-backend/pkg/textmatch"
	"github.com/angelmondragon/koumale-backend/pkg/visibility"
)

type vendorsRepository interface {
	List(ctx context.Context, plan query.Plan) ([]Row, int64, error)
	ListPending(ctx context.Context, term string, page pagination.Params) ([]Row, int64, error)
	SummaryBySlug(ctx context.Context, slug string) (*Row, error)
	FindBySlugWithOwner(ctx context.Context, slug string) (*models.Vendor, *models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Vendor, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	BusinessNameTaken(ctx context.Context, name string, exclude uuid.UUID) (bool, error)
	Create(ctx context.Context, vendor *models.Vendor) error
	Save(ctx context.Context, vendor *models.Vendor) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
	DeleteProducts(ctx context.Context, vendorID uuid.UUID) (int64, error)
	Stats(ctx context.Context, vendorID uuid.UUID) (*Stats, error)
}

type ownerRoleUpdater interface {
	UpdateRole(ctx context.Context, id uuid.UUID, role enums.UserRole) error
}

// Service exposes vendor listings, profile management and the cascade delete.
type Service interface {
	List(ctx context.Context, plan query.Plan) ([]VendorDTO, int64, error)
	GetBySlug(ctx context.Context, slug string) (*VendorDTO, error)
	ResolveVisible(ctx context.Context, slug string) (*models.Vendor, error)
	ListPending(ctx context.Context, term string, page pagination.Params) ([]VendorDTO, int64, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Vendor, error)
	CheckBusinessName(ctx context.Context, name string) (bool, error)
	CreateProfile(ctx context.Context, ownerID uuid.UUID, input ProfileInput) (*models.Vendor, error)
	UpdateMine(ctx context.Context, actor auth.Actor, input UpdateInput) (*models.Vendor, error)
	Update(ctx context.Context, actor auth.Actor, vendorID uuid.UUID, input UpdateInput) (*models.Vendor, error)
	Stats(ctx context.Context, actor auth.Actor) (*Stats, error)
	DeleteMine(ctx context.Context, actor auth.Actor) error
	Delete(ctx context.Context, actor auth.Actor, vendorID uuid.UUID) error
	DeleteByOwner(ctx context.Context, ownerID uuid.UUID) error
}

// ServiceParams groups the vendors service collaborators.
type ServiceParams struct {
	Repo      vendorsRepository
	Owners    ownerRoleUpdater
	Allocator *slug.Allocator
	Logg      *logger.Logger
}

type service struct {
	repo      vendorsRepository
	owners    ownerRoleUpdater
	allocator *slug.Allocator
	logg      *logger.Logger
}

// NewService builds the vendors service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("vendors repository required")
	}
	if params.Owners == nil {
		return nil, fmt.Errorf("owner role updater required")
	}
	if params.Allocator == nil {
		return nil, fmt.Errorf("slug allocator required")
	}
	if params.Logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      params.Repo,
		owners:    params.Owners,
		allocator: params.Allocator,
		logg:      params.Logg,
	}, nil
}

func (s *service) List(ctx context.Context, plan query.Plan) ([]VendorDTO, int64, error) {
	rows, total, err := s.repo.List(ctx, plan)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendors")
	}
	return toDTOs(rows), total, nil
}

func (s *service) GetBySlug(ctx context.Context, vendorSlug string) (*VendorDTO, error) {
	row, err := s.repo.SummaryBySlug(ctx, vendorSlug)
	if err != nil {
		return nil, notFoundOr(err, "vendor not found", "load vendor")
	}
	owner := &models.User{ID: row.UserID, Status: row.OwnerStatus}
	if err := visibility.EnsureVendorVisible(&row.Vendor, owner); err != nil {
		return nil, err
	}
	dto := FromRow(*row)
	return &dto, nil
}

// ResolveVisible returns the vendor behind slug when it passes the approval
// gate: absent is NotFound, pending is Forbidden.
func (s *service) ResolveVisible(ctx context.Context, vendorSlug string) (*models.Vendor, error) {
	vendor, owner, err := s.repo.FindBySlugWithOwner(ctx, vendorSlug)
	if err != nil {
		return nil, notFoundOr(err, "vendor not found", "load vendor")
	}
	if err := visibility.EnsureVendorVisible(vendor, owner); err != nil {
		return nil, err
	}
	return vendor, nil
}

func (s *service) ListPending(ctx context.Context, term string, page pagination.Params) ([]VendorDTO, int64, error) {
	rows, total, err := s.repo.ListPending(ctx, term, page)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending vendors")
	}
	return toDTOs(rows), total, nil
}

func (s *service) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Vendor, error) {
	vendor, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "vendor profile not found", "load vendor profile")
	}
	return vendor, nil
}

// CheckBusinessName reports whether name is free.
func (s *service) CheckBusinessName(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "businessName is required")
	}
	taken, err := s.repo.BusinessNameTaken(ctx, name, uuid.Nil)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check business name")
	}
	return !taken, nil
}

// CreateProfile upserts the vendor profile of ownerID. An existing profile
// keeps its slug; a new one gets a freshly allocated slug.
func (s *service) CreateProfile(ctx context.Context, ownerID uuid.UUID, input ProfileInput) (*models.Vendor, error) {
	name := strings.TrimSpace(input.BusinessName)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "businessName is required")
	}

	existing, err := s.repo.FindByUserID(ctx, ownerID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor profile")
	}
	exclude := uuid.Nil
	if existing != nil {
		exclude = existing.ID
	}
	if err := s.ensureNameFree(ctx, name, exclude); err != nil {
		return nil, err
	}

	vendor := existing
	if vendor == nil {
		vendor = &models.Vendor{UserID: ownerID}
	}
	vendor.BusinessName = name
	vendor.BusinessNameSearch = textmatch.Normalize(name)
	vendor.Description = strings.TrimSpace(input.Description)
	vendor.ContactPhone = strings.TrimSpace(input.ContactPhone)
	vendor.WhatsappLink = input.WhatsappLink
	vendor.TelegramLink = input.TelegramLink
	vendor.Address = input.Address
	vendor.Latitude = input.Latitude
	vendor.Longitude = input.Longitude
	vendor.Logo = input.Logo
	vendor.CoverImage = input.CoverImage
	vendor.Documents = cloneDocuments(input.Documents)

	if existing != nil {
		if err := s.repo.Save(ctx, vendor); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update vendor profile")
		}
		return vendor, nil
	}

	if err := s.insertWithSlug(ctx, vendor); err != nil {
		return nil, err
	}
	return vendor, nil
}

// insertWithSlug allocates a slug and inserts. The unique index decides races
// between concurrent registrations; a violation is retried once.
func (s *service) insertWithSlug(ctx context.Context, vendor *models.Vendor) error {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		allocated, err := s.allocator.Allocate(ctx, vendor.BusinessName)
		if err != nil {
			if pkgerrors.As(err) != nil {
				return err
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate vendor slug")
		}
		vendor.Slug = allocated
		vendor.ID = uuid.Nil

		lastErr = s.repo.Create(ctx, vendor)
		if lastErr == nil {
			return nil
		}
		if !db.IsUniqueViolation(lastErr, "slug") {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, lastErr, "create vendor profile")
		}
		s.logg.Warn(s.logg.WithField(ctx, "slug", allocated), "vendor.slug_race")
	}
	return pkgerrors.Wrap(pkgerrors.CodeConflict, lastErr, "vendor slug already taken")
}

func (s *service) UpdateMine(ctx context.Context, actor auth.Actor, input UpdateInput) (*models.Vendor, error) {
	vendor, err := s.GetByUserID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, vendor, input)
}

func (s *service) Update(ctx context.Context, actor auth.Actor, vendorID uuid.UUID, input UpdateInput) (*models.Vendor, error) {
	vendor, err := s.loadOwned(ctx, actor, vendorID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, vendor, input)
}

func (s *service) apply(ctx context.Context, vendor *models.Vendor, input UpdateInput) (*models.Vendor, error) {
	if input.BusinessName != nil {
		name := strings.TrimSpace(*input.BusinessName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "businessName cannot be empty")
		}
		if !strings.EqualFold(name, vendor.BusinessName) {
			if err := s.ensureNameFree(ctx, name, vendor.ID); err != nil {
				return nil, err
			}
		}
		vendor.BusinessName = name
		vendor.BusinessNameSearch = textmatch.Normalize(name)
	}
	if input.Description != nil {
		vendor.Description = strings.TrimSpace(*input.Description)
	}
	if input.ContactPhone != nil {
		vendor.ContactPhone = strings.TrimSpace(*input.ContactPhone)
	}
	if input.WhatsappLink != nil {
		vendor.WhatsappLink = input.WhatsappLink
	}
	if input.TelegramLink != nil {
		vendor.TelegramLink = input.TelegramLink
	}
	if input.Address != nil {
		vendor.Address = input.Address
	}
	if input.Latitude != nil {
		vendor.Latitude = input.Latitude
	}
	if input.Longitude != nil {
		vendor.Longitude = input.Longitude
	}
	if input.Logo != nil {
		vendor.Logo = input.Logo
	}
	if input.CoverImage != nil {
		vendor.CoverImage = input.CoverImage
	}
	if input.Documents != nil {
		vendor.Documents = cloneDocuments(*input.Documents)
	}

	if err := s.repo.Save(ctx, vendor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update vendor")
	}
	return vendor, nil
}

func (s *service) Stats(ctx context.Context, actor auth.Actor) (*Stats, error) {
	vendor, err := s.GetByUserID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	stats, err := s.repo.Stats(ctx, vendor.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "vendor stats")
	}
	return stats, nil
}

func (s *service) DeleteMine(ctx context.Context, actor auth.Actor) error {
	vendor, err := s.GetByUserID(ctx, actor.UserID)
	if err != nil {
		return err
	}
	return s.cascade(ctx, vendor)
}

func (s *service) Delete(ctx context.Context, actor auth.Actor, vendorID uuid.UUID) error {
	if !actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only administrators can delete other vendors")
	}
	vendor, err := s.repo.FindByID(ctx, vendorID)
	if err != nil {
		return notFoundOr(err, "vendor not found", "load vendor")
	}
	return s.cascade(ctx, vendor)
}

// DeleteByOwner removes the vendor profile of a rejected applicant. Products
// are removed first so no orphaned listing survives.
func (s *service) DeleteByOwner(ctx context.Context, ownerID uuid.UUID) error {
	vendor, err := s.repo.FindByUserID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor profile")
	}
	if _, err := s.repo.DeleteProducts(ctx, vendor.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete vendor products")
	}
	if err := s.repo.DeleteByUserID(ctx, ownerID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete vendor profile")
	}
	return nil
}

// cascade removes the products, then the vendor, then demotes the owner to
// client. The steps are not transactional; each failure is logged and stops
// the remaining steps.
func (s *service) cascade(ctx context.Context, vendor *models.Vendor) error {
	ctx = s.logg.WithVendorID(ctx, vendor.ID.String())

	removed, err := s.repo.DeleteProducts(ctx, vendor.ID)
	if err != nil {
		s.logg.Error(ctx, "vendor.cascade.products_failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete vendor products")
	}
	if err := s.repo.Delete(ctx, vendor.ID); err != nil {
		s.logg.Error(ctx, "vendor.cascade.vendor_failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete vendor")
	}
	if err := s.owners.UpdateRole(ctx, vendor.UserID, enums.UserRoleClient); err != nil {
		s.logg.Error(ctx, "vendor.cascade.owner_role_failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset owner role")
	}

	s.logg.Info(s.logg.WithField(ctx, "products_removed", removed), "vendor.deleted")
	return nil
}

func (s *service) loadOwned(ctx context.Context, actor auth.Actor, vendorID uuid.UUID) (*models.Vendor, error) {
	vendor, err := s.repo.FindByID(ctx, vendorID)
	if err != nil {
		return nil, notFoundOr(err, "vendor not found", "load vendor")
	}
	if !actor.IsAdmin() && vendor.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to modify this vendor")
	}
	return vendor, nil
}

func (s *service) ensureNameFree(ctx context.Context, name string, exclude uuid.UUID) error {
	taken, err := s.repo.BusinessNameTaken(ctx, name, exclude)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check business name")
	}
	if taken {
		return pkgerrors.New(pkgerrors.CodeValidation, "business name already in use").
			WithDetails(map[string]string{"businessName": name})
	}
	return nil
}

func notFoundOr(err error, notFound, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}

func toDTOs(rows []Row) []VendorDTO {
	out := make([]VendorDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromRow(row))
	}
	return out
}
