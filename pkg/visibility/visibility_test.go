package visibility

import (
	"testing"

	"github.com/angelmondragon/koumale-backend/pkg/db/models"
	"github.com/angelmondragon/koumale-backend/pkg/enums"
	"github.com/angelmondragon/koumale-backend/pkg/errors"
)

func TestEnsureVendorVisible(t *testing.T) {
	vendor := &models.Vendor{Slug: "acme"}

	t.Run("vendor missing", func(t *testing.T) {
		err := EnsureVendorVisible(nil, nil)
		if err == nil || errors.As(err).Code() != errors.CodeNotFound {
			t.Fatalf("expected not found, got %v", err)
		}
	})
	t.Run("owner missing", func(t *testing.T) {
		err := EnsureVendorVisible(vendor, nil)
		if err == nil || errors.As(err).Code() != errors.CodeNotFound {
			t.Fatalf("expected not found, got %v", err)
		}
	})
	t.Run("owner pending", func(t *testing.T) {
		owner := &models.User{Role: enums.UserRoleVendor, Status: enums.UserStatusPending}
		err := EnsureVendorVisible(vendor, owner)
		if err == nil || errors.As(err).Code() != errors.CodeForbidden {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})
	t.Run("owner approved", func(t *testing.T) {
		owner := &models.User{Role: enums.UserRoleVendor, Status: enums.UserStatusApproved}
		if err := EnsureVendorVisible(vendor, owner); err != nil {
			t.Fatalf("expected visible vendor, got %v", err)
		}
	})
}

func TestVendorVisible(t *testing.T) {
	if VendorVisible(enums.UserStatusPending) {
		t.Fatal("pending owner must hide vendor")
	}
	if !VendorVisible(enums.UserStatusApproved) {
		t.Fatal("approved owner must show vendor")
	}
}
