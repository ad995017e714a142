package enums

import "fmt"

// ReviewType identifies what a review is attached to.
type ReviewType string

const (
	ReviewTypeProduct ReviewType = "product"
	ReviewTypeVendor  ReviewType = "vendor"
	ReviewTypeApp     ReviewType = "app"
)

var validReviewTypes = []ReviewType{
	ReviewTypeProduct,
	ReviewTypeVendor,
	ReviewTypeApp,
}

// String implements fmt.Stringer.
func (r ReviewType) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReviewType.
func (r ReviewType) IsValid() bool {
	for _, candidate := range validReviewTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReviewType converts raw input into a ReviewType.
func ParseReviewType(value string) (ReviewType, error) {
	for _, candidate := range validReviewTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid review type %q", value)
}
