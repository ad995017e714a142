// Package ratings aggregates review scores for products and vendors.
package ratings

import (
	"fmt"
	"math"
)

// Summary is the aggregate of a set of reviews. A set without reviews
// summarizes to zero for both fields.
type Summary struct {
	AverageRating float64 `json:"averageRating"`
	ReviewCount   int64   `json:"reviewCount"`
}

// Summarize averages the given ratings, rounded to two decimals.
func Summarize(ratings []int) Summary {
	if len(ratings) == 0 {
		return Summary{}
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return Summary{
		AverageRating: Round(float64(sum) / float64(len(ratings))),
		ReviewCount:   int64(len(ratings)),
	}
}

// Round rounds an average to two decimals.
func Round(avg float64) float64 {
	return math.Round(avg*100) / 100
}

// AverageExpr is the SQL aggregate of a rating column. Rows without reviews
// produce 0.
func AverageExpr(col string) string {
	return fmt.Sprintf("COALESCE(CAST(AVG(%s) AS DOUBLE PRECISION), 0)", col)
}

// CountExpr counts joined review rows.
func CountExpr(col string) string {
	return fmt.Sprintf("COUNT(%s)", col)
}
