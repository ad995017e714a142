// Package query holds the store-independent listing plan shared by the
// product and vendor searches and compiles it to gorm SQL. Package querytest
// evaluates the same plan in memory.
package query

import (
	"github.com/angelmondragon/koumale-backend/pkg/enums"
	"github.com/angelmondragon/koumale-backend/pkg/pagination"
)

// Op is a predicate operator.
type Op string

const (
	// OpEq matches values equal to the operand.
	OpEq Op = "eq"
	// OpGte matches values greater than or equal to the operand.
	OpGte Op = "gte"
	// OpLte matches values less than or equal to the operand.
	OpLte Op = "lte"
	// OpPositive matches present values strictly greater than zero.
	OpPositive Op = "positive"
	// OpContainsFold is a case-insensitive substring match.
	OpContainsFold Op = "contains_fold"
	// OpFuzzy matches a normalized search column against a free-text query.
	OpFuzzy Op = "fuzzy"
	// OpAttrEq matches a typed attribute by its canonical string form.
	// Field holds the attribute key.
	OpAttrEq Op = "attr_eq"
)

// Logical field names understood by both backends.
const (
	FieldID               = "id"
	FieldCategory         = "category"
	FieldVendorID         = "vendorId"
	FieldPrice            = "price"
	FieldPromotionalPrice = "promotionalPrice"
	FieldCreatedAt        = "createdAt"
	FieldNameSearch       = "nameSearch"
	FieldAddress          = "address"
	FieldIsActive         = "isActive"
	FieldAverageRating    = "averageRating"
	FieldReviewCount      = "reviewCount"
	FieldProductCount     = "productCount"
	FieldViews            = "views"
	FieldClicks           = "clicks"
)

// Predicate is one typed condition of a plan.
type Predicate struct {
	Field string
	Op    Op
	Value any
}

// Eq builds an equality predicate.
func Eq(field string, value any) Predicate { return Predicate{Field: field, Op: OpEq, Value: value} }

// Gte builds a lower-bound predicate.
func Gte(field string, value any) Predicate { return Predicate{Field: field, Op: OpGte, Value: value} }

// Lte builds an upper-bound predicate.
func Lte(field string, value any) Predicate { return Predicate{Field: field, Op: OpLte, Value: value} }

// Positive builds a present-and-positive predicate.
func Positive(field string) Predicate { return Predicate{Field: field, Op: OpPositive} }

// ContainsFold builds a case-insensitive substring predicate.
func ContainsFold(field, needle string) Predicate {
	return Predicate{Field: field, Op: OpContainsFold, Value: needle}
}

// Fuzzy builds a free-text predicate over a normalized search column.
func Fuzzy(field, q string) Predicate { return Predicate{Field: field, Op: OpFuzzy, Value: q} }

// AttrEq builds an attribute filter.
func AttrEq(key, canonical string) Predicate {
	return Predicate{Field: key, Op: OpAttrEq, Value: canonical}
}

// Order is one sort key.
type Order struct {
	Field string
	Desc  bool
}

// Sort is an ordered list of sort keys.
type Sort []Order

// NewestSort orders by creation time, newest first, with id as tie-breaker.
func NewestSort() Sort {
	return Sort{{Field: FieldCreatedAt, Desc: true}, {Field: FieldID}}
}

// PopularSort ranks vendors by review volume, then rating, then catalog size.
func PopularSort() Sort {
	return Sort{
		{Field: FieldReviewCount, Desc: true},
		{Field: FieldAverageRating, Desc: true},
		{Field: FieldProductCount, Desc: true},
		{Field: FieldCreatedAt, Desc: true},
		{Field: FieldID},
	}
}

// TrendingSort ranks products by audience, views first.
func TrendingSort() Sort {
	return Sort{
		{Field: FieldViews, Desc: true},
		{Field: FieldClicks, Desc: true},
		{Field: FieldCreatedAt, Desc: true},
		{Field: FieldID},
	}
}

// SortFor maps a sort mode to its keys.
func SortFor(mode enums.SortMode) Sort {
	if mode == enums.SortModePopular {
		return PopularSort()
	}
	return NewestSort()
}

// Plan is a compiled listing request. Base predicates apply to stored
// columns; Post predicates apply after rating aggregation.
type Plan struct {
	Base []Predicate
	Post []Predicate
	Sort Sort
	Page pagination.Params
}

// NewPlan returns an empty plan with the default sort and page.
func NewPlan() Plan {
	return Plan{Sort: NewestSort(), Page: pagination.Normalize(pagination.Params{})}
}

// Where appends base predicates.
func (p *Plan) Where(preds ...Predicate) {
	p.Base = append(p.Base, preds...)
}

// Having appends post-aggregation predicates.
func (p *Plan) Having(preds ...Predicate) {
	p.Post = append(p.Post, preds...)
}
