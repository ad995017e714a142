package vendors

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/koumale-backend/pkg/db/models"
	"github.com/angelmondragon/koumale-backend/pkg/enums"
	"github.com/angelmondragon/koumale-backend/pkg/ratings"
	"github.com/angelmondragon/koumale-backend/pkg/types"
)

// Row is a vendor annotated with its owner and catalog aggregates.
type Row struct {
	models.Vendor  `gorm:"embedded"`
	OwnerEmail     string           `gorm:"column:owner_email"`
	OwnerStatus    enums.UserStatus `gorm:"column:owner_status"`
	OwnerFirstName string           `gorm:"column:owner_first_name"`
	OwnerLastName  string           `gorm:"column:owner_last_name"`
	AverageRating  float64          `gorm:"column:average_rating"`
	ReviewCount    int64            `gorm:"column:review_count"`
	ProductCount   int64            `gorm:"column:product_count"`
}

// OwnerDTO is the public slice of the owning account.
type OwnerDTO struct {
	Email     string           `json:"email"`
	Status    enums.UserStatus `json:"status"`
	FirstName string           `json:"firstName,omitempty"`
	LastName  string           `json:"lastName,omitempty"`
}

// VendorDTO is a vendor with its rating summary and product count. Ratings are
// derived from the reviews of the vendor's products.
type VendorDTO struct {
	models.Vendor
	ratings.Summary
	ProductCount int64     `json:"productCount"`
	User         *OwnerDTO `json:"user,omitempty"`
}

// FromRow maps an aggregated row to its transport shape.
func FromRow(row Row) VendorDTO {
	return VendorDTO{
		Vendor: row.Vendor,
		Summary: ratings.Summary{
			AverageRating: ratings.Round(row.AverageRating),
			ReviewCount:   row.ReviewCount,
		},
		ProductCount: row.ProductCount,
		User: &OwnerDTO{
			Email:     row.OwnerEmail,
			Status:    row.OwnerStatus,
			FirstName: row.OwnerFirstName,
			LastName:  row.OwnerLastName,
		},
	}
}

// ProfileInput carries the vendor profile fields set at registration.
type ProfileInput struct {
	BusinessName string
	Description  string
	ContactPhone string
	WhatsappLink *string
	TelegramLink *string
	Address      *string
	Latitude     *float64
	Longitude    *float64
	Logo         *string
	CoverImage   *string
	Documents    []string
}

// UpdateInput captures the profile fields a partial update may change.
type UpdateInput struct {
	BusinessName *string
	Description  *string
	ContactPhone *string
	WhatsappLink *string
	TelegramLink *string
	Address      *string
	Latitude     *float64
	Longitude    *float64
	Logo         *string
	CoverImage   *string
	Documents    *[]string
}

// TopProduct is one entry of the vendor dashboard's most viewed list.
type TopProduct struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Views  int64     `json:"views"`
	Clicks int64     `json:"clicks"`
}

// Stats is the vendor dashboard summary.
type Stats struct {
	TotalProducts int64        `json:"totalProducts"`
	TotalViews    int64        `json:"totalViews"`
	TotalClicks   int64        `json:"totalClicks"`
	TopProducts   []TopProduct `json:"topProducts"`
}

// ProductCount pairs a vendor with the size of its catalog.
type ProductCount struct {
	VendorID     uuid.UUID `gorm:"column:vendor_id"`
	UserID       uuid.UUID `gorm:"column:user_id"`
	BusinessName string    `gorm:"column:business_name"`
	Count        int64     `gorm:"column:product_count"`
}

func cloneDocuments(docs []string) types.StringList {
	out := make(types.StringList, 0, len(docs))
	for _, d := range docs {
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}
