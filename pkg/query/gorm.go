package query

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/koumale-backend/pkg/pagination"
	"github.com/angelmondragon/koumale-backend/pkg/textmatch"
)

// Columns maps logical fields to SQL expressions for one query level.
type Columns struct {
	Fields map[string]string
	// AttributeOwner is the expression matched against
	// product_attributes.product_id by attribute predicates.
	AttributeOwner string
}

func (c Columns) column(field string) (string, error) {
	col, ok := c.Fields[field]
	if !ok || col == "" {
		return "", fmt.Errorf("query: no column mapped for field %q", field)
	}
	return col, nil
}

// ApplyWhere adds every predicate to db as a WHERE condition.
func ApplyWhere(db *gorm.DB, preds []Predicate, cols Columns) (*gorm.DB, error) {
	for _, pred := range preds {
		clause, args, err := compile(pred, cols)
		if err != nil {
			return nil, err
		}
		if clause == "" {
			continue
		}
		db = db.Where(clause, args...)
	}
	return db, nil
}

// ApplyOrder adds the sort keys to db.
func ApplyOrder(db *gorm.DB, sort Sort, cols Columns) (*gorm.DB, error) {
	for _, order := range sort {
		col, err := cols.column(order.Field)
		if err != nil {
			return nil, err
		}
		if order.Desc {
			col += " DESC"
		} else {
			col += " ASC"
		}
		db = db.Order(col)
	}
	return db, nil
}

// ApplyPage adds offset and limit to db.
func ApplyPage(db *gorm.DB, page pagination.Params) *gorm.DB {
	page = pagination.Normalize(page)
	return db.Offset(page.Offset()).Limit(page.Limit)
}

func compile(pred Predicate, cols Columns) (string, []any, error) {
	if pred.Op == OpAttrEq {
		if cols.AttributeOwner == "" {
			return "", nil, fmt.Errorf("query: attribute filter %q has no owner column", pred.Field)
		}
		clause := fmt.Sprintf(
			"EXISTS (SELECT 1 FROM product_attributes pa WHERE pa.product_id = %s AND pa.attr_key = ? AND pa.attr_value = ?)",
			cols.AttributeOwner,
		)
		return clause, []any{pred.Field, pred.Value}, nil
	}

	col, err := cols.column(pred.Field)
	if err != nil {
		return "", nil, err
	}

	switch pred.Op {
	case OpEq:
		return col + " = ?", []any{pred.Value}, nil
	case OpGte:
		return col + " >= ?", []any{pred.Value}, nil
	case OpLte:
		return col + " <= ?", []any{pred.Value}, nil
	case OpPositive:
		return fmt.Sprintf("%s IS NOT NULL AND %s > 0", col, col), nil, nil
	case OpContainsFold:
		needle, _ := pred.Value.(string)
		pattern := "%" + escapeLike(strings.ToLower(needle)) + "%"
		return fmt.Sprintf("LOWER(%s) LIKE ? ESCAPE '\\'", col), []any{pattern}, nil
	case OpFuzzy:
		q, _ := pred.Value.(string)
		patterns := textmatch.Patterns(q)
		if len(patterns) == 0 {
			return "", nil, nil
		}
		parts := make([]string, len(patterns))
		args := make([]any, len(patterns))
		for i, p := range patterns {
			parts[i] = col + " LIKE ?"
			args[i] = p
		}
		return "(" + strings.Join(parts, " OR ") + ")", args, nil
	default:
		return "", nil, fmt.Errorf("query: unsupported operator %q", pred.Op)
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
