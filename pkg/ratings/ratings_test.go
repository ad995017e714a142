package ratings

import "testing"

func TestSummarize(t *testing.T) {
	cases := []struct {
		name    string
		ratings []int
		want    Summary
	}{
		{"no reviews", nil, Summary{}},
		{"three reviews", []int{5, 3, 4}, Summary{AverageRating: 4, ReviewCount: 3}},
		{"rounds to two decimals", []int{5, 4, 4}, Summary{AverageRating: 4.33, ReviewCount: 3}},
		{"single", []int{1}, Summary{AverageRating: 1, ReviewCount: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Summarize(tc.ratings); got != tc.want {
				t.Fatalf("Summarize(%v) = %+v, want %+v", tc.ratings, got, tc.want)
			}
		})
	}
}

func TestExpressions(t *testing.T) {
	if got := AverageExpr("r.rating"); got != "COALESCE(CAST(AVG(r.rating) AS DOUBLE PRECISION), 0)" {
		t.Fatalf("unexpected average expr %q", got)
	}
	if got := CountExpr("r.id"); got != "COUNT(r.id)" {
		t.Fatalf("unexpected count expr %q", got)
	}
}
