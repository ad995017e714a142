// Package visibility gates vendors and their products behind owner approval.
package visibility

import (
	"gorm.io/gorm"

	"github.com/angelmondragon/koumale-backend/pkg/db/models"
	"github.com/angelmondragon/koumale-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/koumale-backend/pkg/errors"
)

// VendorVisible reports whether a vendor owned by a user with the given
// status may appear on public surfaces.
func VendorVisible(ownerStatus enums.UserStatus) bool {
	return ownerStatus == enums.UserStatusApproved
}

// EnsureVendorVisible enforces the gate for a single vendor lookup. A missing
// vendor is NotFound; a vendor whose owner awaits approval is Forbidden.
func EnsureVendorVisible(vendor *models.Vendor, owner *models.User) error {
	if vendor == nil || owner == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
	}
	if !VendorVisible(owner.Status) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "vendor pending approval")
	}
	return nil
}

// ApprovedOwners restricts a query that joins users under ownerAlias to
// approved owners.
func ApprovedOwners(ownerAlias string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(ownerAlias+".status = ?", enums.UserStatusApproved)
	}
}

// PublicProducts restricts a product query to active products of approved
// vendors.
func PublicProducts(productAlias, ownerAlias string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Scopes(ApprovedOwners(ownerAlias)).Where(productAlias+".is_active = ?", true)
	}
}
