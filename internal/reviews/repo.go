package reviews

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/koumale-backend/internal/repo"
	"github.com/angelmondragon/koumale-backend/pkg/db/models"
	"github.com/angelmondragon/koumale-backend/pkg/pagination"
)

// Repository encapsulates review persistence.
type Repository struct {
	repo.Base
}

// NewRepository constructs a reviews repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Create inserts a review.
func (r *Repository) Create(ctx context.Context, review *models.Review) error {
	return r.DB(ctx).Create(review).Error
}

// List returns one page of the reviews selected by scope, newest first, with
// the author's names.
func (r *Repository) List(ctx context.Context, scope func(*gorm.DB) *gorm.DB, page pagination.Params) ([]Row, int64, error) {
	var total int64
	if err := r.DB(ctx).Table("reviews AS r").Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page = pagination.Normalize(page)
	var rows []Row
	err := r.DB(ctx).
		Table("reviews AS r").
		Select("r.*, u.first_name AS author_first_name, u.last_name AS author_last_name").
		Joins("LEFT JOIN users u ON u.id = r.user_id").
		Scopes(scope).
		Order("r.created_at DESC").
		Order("r.id ASC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
