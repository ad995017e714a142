package users

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/koumale-backend/internal/repo"
	"github.com/angelmondragon/koumale-backend/pkg/db/models"
	"github.com/angelmondragon/koumale-backend/pkg/enums"
	"github.com/angelmondragon/koumale-backend/pkg/pagination"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	repo.Base
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, user *models.User) error {
	return r.DB(ctx).Create(user).Error
}

// Save persists every column of an existing user.
func (r *Repository) Save(ctx context.Context, user *models.User) error {
	return r.DB(ctx).Save(user).Error
}

// FindByEmail retrieves the user matching the provided (lowercased) email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByGoogleID loads the user linked to a Google account.
func (r *Repository) FindByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).Where("google_id = ?", googleID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateRoleStatus sets role and status in one statement.
func (r *Repository) UpdateRoleStatus(ctx context.Context, id uuid.UUID, role enums.UserRole, status enums.UserStatus) error {
	return r.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"role": role, "status": status}).Error
}

// UpdateRole sets only the role.
func (r *Repository) UpdateRole(ctx context.Context, id uuid.UUID, role enums.UserRole) error {
	return r.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("role", role).Error
}

// IDsByRole returns the ids of every user with the given role.
func (r *Repository) IDsByRole(ctx context.Context, role enums.UserRole) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.DB(ctx).
		Model(&models.User{}).
		Where("role = ?", role).
		Pluck("id", &ids).Error
	return ids, err
}

// List pages through users matching filter, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter, page pagination.Params) ([]models.User, int64, error) {
	scope := listScope(filter)

	var total int64
	if err := r.DB(ctx).Model(&models.User{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.User
	page = pagination.Normalize(page)
	err := r.DB(ctx).
		Scopes(scope).
		Order("created_at DESC").
		Order("id ASC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func listScope(filter ListFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if filter.Role != nil {
			q = q.Where("role = ?", *filter.Role)
		} else {
			q = q.Where("role <> ?", enums.UserRoleSuperAdmin)
		}
		if filter.Status != nil {
			q = q.Where("status = ?", *filter.Status)
		}
		if term := strings.ToLower(strings.TrimSpace(filter.Query)); term != "" {
			like := "%" + term + "%"
			q = q.Where("(LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?)", like, like, like)
		}
		return q
	}
}
