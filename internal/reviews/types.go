package reviews

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/koumale-backend/pkg/db/models"
	"github.com/angelmondragon/koumale-backend/pkg/enums"
)

// Input is the payload shared by every review kind.
type Input struct {
	Rating  int
	Comment string
}

// Row is a review joined with its author's names.
type Row struct {
	models.Review   `gorm:"embedded"`
	AuthorFirstName string `gorm:"column:author_first_name"`
	AuthorLastName  string `gorm:"column:author_last_name"`
}

// AuthorDTO is the public slice of the review author.
type AuthorDTO struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
}

// ReviewDTO is the review payload returned to clients.
type ReviewDTO struct {
	ID        uuid.UUID        `json:"id"`
	Type      enums.ReviewType `json:"type"`
	ProductID *uuid.UUID       `json:"productId,omitempty"`
	VendorID  *uuid.UUID       `json:"vendorId,omitempty"`
	Rating    int              `json:"rating"`
	Comment   string           `json:"comment"`
	User      AuthorDTO        `json:"user"`
	CreatedAt time.Time        `json:"createdAt"`
}

// FromRow maps a listing row.
func FromRow(row Row) ReviewDTO {
	dto := fromModel(&row.Review)
	dto.User.FirstName = row.AuthorFirstName
	dto.User.LastName = row.AuthorLastName
	return dto
}

func fromModel(r *models.Review) ReviewDTO {
	return ReviewDTO{
		ID:        r.ID,
		Type:      r.Type,
		ProductID: r.ProductID,
		VendorID:  r.VendorID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		User:      AuthorDTO{ID: r.UserID},
		CreatedAt: r.CreatedAt,
	}
}
