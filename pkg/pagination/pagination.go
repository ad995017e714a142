package pagination

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultPage is used when the page parameter is missing or invalid.
	DefaultPage = 1
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 10
	// MaxLimit caps how many rows any listing can request.
	MaxLimit = 100
)

// Params holds offset pagination inputs from controllers or services.
type Params struct {
	Page  int
	Limit int
}

// Info is the pagination block returned alongside list payloads.
type Info struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// Parse reads page and limit from query values, applying defaults for
// missing, non-numeric or non-positive values.
func Parse(values url.Values) Params {
	return Normalize(Params{
		Page:  parsePositive(values.Get("page")),
		Limit: parsePositive(values.Get("limit")),
	})
}

// Normalize enforces the defaults and the maximum limit.
func Normalize(p Params) Params {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Offset returns the number of rows to skip.
func (p Params) Offset() int {
	n := Normalize(p)
	return (n.Page - 1) * n.Limit
}

// TotalPages returns ceil(total/limit).
func TotalPages(total int64, limit int) int {
	if limit < 1 || total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// InfoFor builds the response block for a page of a result with the given total.
func InfoFor(p Params, total int64) Info {
	n := Normalize(p)
	return Info{Page: n.Page, Limit: n.Limit, TotalPages: TotalPages(total, n.Limit)}
}

func parsePositive(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0
	}
	return v
}
