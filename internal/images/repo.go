package images

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/koumale-backend/pkg/db/models"
)

// Repository persists registered remote images.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an image repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists an image record.
func (r *Repository) Create(ctx context.Context, image *models.Image) error {
	return r.db.WithContext(ctx).Create(image).Error
}

// FindByID retrieves an image record by ID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Image, error) {
	var image models.Image
	if err := r.db.WithContext(ctx).First(&image, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &image, nil
}
