package enums

import (
	"testing"
	"time"
)

func TestParseUserRole(t *testing.T) {
	role, err := ParseUserRole("super_admin")
	if err != nil || role != UserRoleSuperAdmin {
		t.Fatalf("expected super_admin, got %q err=%v", role, err)
	}
	if _, err := ParseUserRole("admin"); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}

func TestParseNewWindowFallsBackToOneMonth(t *testing.T) {
	if got := ParseNewWindow("3months"); got != NewWindowThreeMonths {
		t.Fatalf("expected 3months, got %q", got)
	}
	if got := ParseNewWindow("forever"); got != NewWindowOneMonth {
		t.Fatalf("expected fallback to 1month, got %q", got)
	}
}

func TestNewWindowSince(t *testing.T) {
	now := time.Date(2024, time.May, 31, 12, 0, 0, 0, time.UTC)
	if got := NewWindowOneWeek.Since(now); !got.Equal(now.AddDate(0, 0, -7)) {
		t.Fatalf("unexpected week boundary %v", got)
	}
	if got := NewWindowSixMonths.Since(now); got.After(now.AddDate(0, 0, -180)) {
		t.Fatalf("six month window too short: %v", got)
	}
}

func TestParseSortMode(t *testing.T) {
	if ParseSortMode("popular") != SortModePopular {
		t.Fatalf("expected popular")
	}
	if ParseSortMode("") != SortModeNewest || ParseSortMode("rating") != SortModeNewest {
		t.Fatalf("expected newest default")
	}
}
