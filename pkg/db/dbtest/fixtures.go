package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/koumale-backend/pkg/db/models"
	"github.com/angelmondragon/koumale-backend/pkg/enums"
	"github.com/angelmondragon/koumale-backend/pkg/slug"
	"github.com/angelmondragon/koumale-backend/pkg/textmatch"
)

// MustUser inserts a verified user with the given role and status.
func MustUser(t testing.TB, conn *gorm.DB, role enums.UserRole, status enums.UserStatus) *models.User {
	t.Helper()
	user := &models.User{
		Email:         fmt.Sprintf("km_test_%s@example.com", uuid.NewString()),
		FirstName:     "Test",
		LastName:      "User",
		Role:          role,
		Status:        status,
		EmailVerified: true,
	}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// MustVendor inserts a vendor profile for owner, slugged from name.
func MustVendor(t testing.TB, conn *gorm.DB, owner *models.User, name string) *models.Vendor {
	t.Helper()
	address := "Cocody, Abidjan"
	vendor := &models.Vendor{
		UserID:             owner.ID,
		Slug:               slug.Slugify(name),
		BusinessName:       name,
		BusinessNameSearch: textmatch.Normalize(name),
		Description:        name + " storefront",
		ContactPhone:       "+2250700000000",
		Address:            &address,
	}
	if err := conn.Create(vendor).Error; err != nil {
		t.Fatalf("create vendor: %v", err)
	}
	return vendor
}

// MustApprovedVendor inserts an approved vendor owner and its profile.
func MustApprovedVendor(t testing.TB, conn *gorm.DB, name string) (*models.User, *models.Vendor) {
	t.Helper()
	owner := MustUser(t, conn, enums.UserRoleVendor, enums.UserStatusApproved)
	return owner, MustVendor(t, conn, owner, name)
}

// MustProduct inserts an active product.
func MustProduct(t testing.TB, conn *gorm.DB, vendorID uuid.UUID, name, category string, price int64) *models.Product {
	t.Helper()
	product := &models.Product{
		VendorID:    vendorID,
		Name:        name,
		NameSearch:  textmatch.Normalize(name),
		Description: name + " description",
		Price:       decimal.NewFromInt(price),
		Category:    category,
		IsActive:    true,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

// MustProductReview inserts a product review.
func MustProductReview(t testing.TB, conn *gorm.DB, authorID, productID uuid.UUID, rating int) *models.Review {
	t.Helper()
	review := &models.Review{
		UserID:    authorID,
		Type:      enums.ReviewTypeProduct,
		ProductID: &productID,
		Rating:    rating,
		Comment:   "review",
	}
	if err := conn.Create(review).Error; err != nil {
		t.Fatalf("create review: %v", err)
	}
	return review
}
