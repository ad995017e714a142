package enums

import "time"

// SortMode selects the ordering of a listing.
type SortMode string

const (
	SortModeNewest  SortMode = "newest"
	SortModePopular SortMode = "popular"
)

// ParseSortMode maps raw input to a SortMode, defaulting to newest.
func ParseSortMode(value string) SortMode {
	if SortMode(value) == SortModePopular {
		return SortModePopular
	}
	return SortModeNewest
}

// NewWindow is the recency filter accepted by product listings.
type NewWindow string

const (
	NewWindowOneWeek     NewWindow = "1week"
	NewWindowOneMonth    NewWindow = "1month"
	NewWindowThreeMonths NewWindow = "3months"
	NewWindowSixMonths   NewWindow = "6months"
)

// ParseNewWindow maps raw input to a window. Unknown values fall back to one month.
func ParseNewWindow(value string) NewWindow {
	switch w := NewWindow(value); w {
	case NewWindowOneWeek, NewWindowOneMonth, NewWindowThreeMonths, NewWindowSixMonths:
		return w
	default:
		return NewWindowOneMonth
	}
}

// Since returns the earliest creation time inside the window.
func (w NewWindow) Since(now time.Time) time.Time {
	switch w {
	case NewWindowOneWeek:
		return now.AddDate(0, 0, -7)
	case NewWindowThreeMonths:
		return now.AddDate(0, -3, 0)
	case NewWindowSixMonths:
		return now.AddDate(0, -6, 0)
	default:
		return now.AddDate(0, -1, 0)
	}
}

// String implements fmt.Stringer.
func (w NewWindow) String() string {
	return string(w)
}
