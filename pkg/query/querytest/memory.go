// Package querytest evaluates listing plans over in-memory records, so filter
// and sort semantics can be checked without a database.
package querytest

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/koumale-backend/pkg/pagination"
	"github.com/angelmondragon/koumale-backend/pkg/query"
	"github.com/angelmondragon/koumale-backend/pkg/textmatch"
)

// Record is a row the in-memory evaluator can inspect.
type Record interface {
	Field(name string) (any, bool)
	Attribute(key string) (string, bool)
}

// Row is a map-backed Record.
type Row struct {
	Fields map[string]any
	Attrs  map[string]string
}

func (r Row) Field(name string) (any, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

func (r Row) Attribute(key string) (string, bool) {
	v, ok := r.Attrs[key]
	return v, ok
}

// Evaluate runs a plan against records and returns the requested page plus the
// total number of matches.
func Evaluate[R Record](records []R, plan query.Plan) ([]R, int64, error) {
	matched := make([]R, 0, len(records))
	for _, rec := range records {
		ok, err := matchesAll(rec, plan.Base)
		if err != nil {
			return nil, 0, err
		}
		if !ok {
			continue
		}
		ok, err = matchesAll(rec, plan.Post)
		if err != nil {
			return nil, 0, err
		}
		if ok {
			matched = append(matched, rec)
		}
	}

	var sortErr error
	sort.SliceStable(matched, func(i, j int) bool {
		less, err := lessBy(matched[i], matched[j], plan.Sort)
		if err != nil && sortErr == nil {
			sortErr = err
		}
		return less
	})
	if sortErr != nil {
		return nil, 0, sortErr
	}

	total := int64(len(matched))
	page := pagination.Normalize(plan.Page)
	start := page.Offset()
	if start >= len(matched) {
		return []R{}, total, nil
	}
	end := start + page.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func matchesAll(rec Record, preds []query.Predicate) (bool, error) {
	for _, pred := range preds {
		ok, err := matches(rec, pred)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matches(rec Record, pred query.Predicate) (bool, error) {
	if pred.Op == query.OpAttrEq {
		got, ok := rec.Attribute(pred.Field)
		return ok && got == fmt.Sprint(pred.Value), nil
	}

	value, ok := rec.Field(pred.Field)
	if !ok {
		return false, nil
	}

	switch pred.Op {
	case query.OpEq:
		c, err := compare(value, pred.Value)
		return err == nil && c == 0, nil
	case query.OpGte:
		c, err := compare(value, pred.Value)
		if err != nil {
			return false, err
		}
		return c >= 0, nil
	case query.OpLte:
		c, err := compare(value, pred.Value)
		if err != nil {
			return false, err
		}
		return c <= 0, nil
	case query.OpPositive:
		d, ok := toDecimal(value)
		return ok && d.IsPositive(), nil
	case query.OpContainsFold:
		s, ok := toString(value)
		needle, _ := pred.Value.(string)
		return ok && strings.Contains(strings.ToLower(s), strings.ToLower(needle)), nil
	case query.OpFuzzy:
		s, ok := toString(value)
		q, _ := pred.Value.(string)
		if textmatch.Normalize(q) == "" {
			return true, nil
		}
		return ok && textmatch.Match(q, s), nil
	default:
		return false, fmt.Errorf("querytest: unsupported operator %q", pred.Op)
	}
}

func lessBy(a, b Record, keys query.Sort) (bool, error) {
	for _, key := range keys {
		av, _ := a.Field(key.Field)
		bv, _ := b.Field(key.Field)
		c, err := compare(av, bv)
		if err != nil {
			return false, err
		}
		if c == 0 {
			continue
		}
		if key.Desc {
			return c > 0, nil
		}
		return c < 0, nil
	}
	return false, nil
}

// compare orders two values of compatible kinds. Nil sorts first.
func compare(a, b any) (int, error) {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0, nil
		case a == nil:
			return -1, nil
		default:
			return 1, nil
		}
	}

	if ad, ok := toDecimal(a); ok {
		bd, ok := toDecimal(b)
		if !ok {
			return 0, fmt.Errorf("querytest: cannot compare %T with %T", a, b)
		}
		return ad.Cmp(bd), nil
	}

	switch av := a.(type) {
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, fmt.Errorf("querytest: cannot compare %T with %T", a, b)
		}
		return av.Compare(bv), nil
	case uuid.UUID:
		bv, ok := b.(uuid.UUID)
		if !ok {
			return 0, fmt.Errorf("querytest: cannot compare %T with %T", a, b)
		}
		return strings.Compare(av.String(), bv.String()), nil
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, fmt.Errorf("querytest: cannot compare %T with %T", a, b)
		}
		switch {
		case av == bv:
			return 0, nil
		case !av:
			return -1, nil
		default:
			return 1, nil
		}
	}

	as, aok := toString(a)
	bs, bok := toString(b)
	if !aok || !bok {
		return 0, fmt.Errorf("querytest: cannot compare %T with %T", a, b)
	}
	return strings.Compare(as, bs), nil
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case *decimal.Decimal:
		if n == nil {
			return decimal.Zero, false
		}
		return *n, true
	case decimal.NullDecimal:
		return n.Decimal, n.Valid
	case float64:
		return decimal.NewFromFloat(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	default:
		return decimal.Zero, false
	}
}

func toString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case *string:
		if s == nil {
			return "", false
		}
		return *s, true
	default:
		return "", false
	}
}
