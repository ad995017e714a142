package product

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/koumale-backend/pkg/db/models"
	"github.com/angelmondragon/koumale-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/koumale-backend/pkg/errors"
	"github.com/angelmondragon/koumale-backend/pkg/pagination"
	"github.com/angelmondragon/koumale-backend/pkg/query"
)

const (
	paramCategory   = "category"
	paramVendorSlug = "vendorSlug"
	paramMinPrice   = "minPrice"
	paramMaxPrice   = "maxPrice"
	paramQuery      = "q"
	paramPromotion  = "promotion"
	paramIsNew      = "isNew"
	paramMinRating  = "minRating"
	paramAddress    = "address"
	paramPage       = "page"
	paramLimit      = "limit"
	paramSortBy     = "sortBy"
)

var reservedParams = map[string]struct{}{
	paramCategory:   {},
	paramVendorSlug: {},
	paramMinPrice:   {},
	paramMaxPrice:   {},
	paramQuery:      {},
	paramPromotion:  {},
	paramIsNew:      {},
	paramMinRating:  {},
	paramAddress:    {},
	paramPage:       {},
	paramLimit:      {},
	paramSortBy:     {},
}

// IsReservedParam reports whether name is a listing parameter rather than an
// attribute filter.
func IsReservedParam(name string) bool {
	_, ok := reservedParams[name]
	return ok
}

// VendorResolver maps a public vendor slug to its approved vendor.
type VendorResolver interface {
	ResolveVisible(ctx context.Context, slug string) (*models.Vendor, error)
}

// BuildPlan compiles the product listing parameters. A vendorSlug that is
// unknown or whose owner is pending yields NotFound.
func BuildPlan(ctx context.Context, values url.Values, now time.Time, vendors VendorResolver) (query.Plan, error) {
	plan := query.NewPlan()

	if category := strings.TrimSpace(values.Get(paramCategory)); category != "" {
		plan.Where(query.Eq(query.FieldCategory, category))
	}

	if vendorSlug := strings.TrimSpace(values.Get(paramVendorSlug)); vendorSlug != "" {
		vendor, err := vendors.ResolveVisible(ctx, vendorSlug)
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil &&
				(typed.Code() == pkgerrors.CodeNotFound || typed.Code() == pkgerrors.CodeForbidden) {
				return query.Plan{}, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
			}
			return query.Plan{}, err
		}
		plan.Where(query.Eq(query.FieldVendorID, vendor.ID))
	}

	for _, bound := range []struct {
		param string
		build func(string, any) query.Predicate
	}{
		{paramMinPrice, query.Gte},
		{paramMaxPrice, query.Lte},
	} {
		raw := strings.TrimSpace(values.Get(bound.param))
		if raw == "" {
			continue
		}
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return query.Plan{}, pkgerrors.New(pkgerrors.CodeValidation, bound.param+" must be numeric").
				WithDetails(map[string]string{bound.param: raw})
		}
		plan.Where(bound.build(query.FieldPrice, price))
	}

	if values.Get(paramPromotion) == "true" {
		plan.Where(query.Positive(query.FieldPromotionalPrice))
	}

	if raw := strings.TrimSpace(values.Get(paramIsNew)); raw != "" {
		plan.Where(query.Gte(query.FieldCreatedAt, enums.ParseNewWindow(raw).Since(now)))
	}

	if q := strings.TrimSpace(values.Get(paramQuery)); q != "" {
		plan.Where(query.Fuzzy(query.FieldNameSearch, q))
	}

	if address := strings.TrimSpace(values.Get(paramAddress)); address != "" {
		plan.Where(query.ContainsFold(query.FieldAddress, address))
	}

	if raw := strings.TrimSpace(values.Get(paramMinRating)); raw != "" {
		minRating, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return query.Plan{}, pkgerrors.New(pkgerrors.CodeValidation, "minRating must be numeric").
				WithDetails(map[string]string{paramMinRating: raw})
		}
		plan.Having(query.Gte(query.FieldAverageRating, minRating))
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		if !IsReservedParam(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		if value := values.Get(key); value != "" {
			plan.Where(query.AttrEq(key, value))
		}
	}

	plan.Page = pagination.Parse(values)
	return plan, nil
}
