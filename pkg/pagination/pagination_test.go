package pagination

import (
	"net/url"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	cases := []struct {
		name  string
		query string
		page  int
		limit int
	}{
		{name: "missing", query: "", page: 1, limit: 10},
		{name: "non numeric", query: "page=abc&limit=xyz", page: 1, limit: 10},
		{name: "zero and negative", query: "page=0&limit=-4", page: 1, limit: 10},
		{name: "explicit", query: "page=3&limit=25", page: 3, limit: 25},
		{name: "capped", query: "page=2&limit=1000", page: 2, limit: MaxLimit},
	}
	for _, tc := range cases {
		values, err := url.ParseQuery(tc.query)
		if err != nil {
			t.Fatalf("%s: parse query: %v", tc.name, err)
		}
		got := Parse(values)
		if got.Page != tc.page || got.Limit != tc.limit {
			t.Fatalf("%s: expected page=%d limit=%d, got %+v", tc.name, tc.page, tc.limit, got)
		}
	}
}

func TestOffset(t *testing.T) {
	if got := (Params{Page: 3, Limit: 20}).Offset(); got != 40 {
		t.Fatalf("expected offset 40, got %d", got)
	}
	if got := (Params{}).Offset(); got != 0 {
		t.Fatalf("expected offset 0 for defaults, got %d", got)
	}
}

func TestTotalPagesIsCeiling(t *testing.T) {
	cases := map[int64]int{0: 0, 1: 1, 10: 1, 11: 2, 25: 3}
	for total, want := range cases {
		if got := TotalPages(total, 10); got != want {
			t.Fatalf("total %d: expected %d pages, got %d", total, want, got)
		}
	}
}

func TestInfoForNormalizesParams(t *testing.T) {
	info := InfoFor(Params{Page: 0, Limit: 500}, 250)
	if info.Page != 1 || info.Limit != MaxLimit || info.TotalPages != 3 {
		t.Fatalf("unexpected info %+v", info)
	}
}
