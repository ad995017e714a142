// Package repo holds the plumbing shared by the gorm-backed repositories.
package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base is embedded by repositories that query a single connection or
// transaction.
type Base struct {
	conn *gorm.DB
}

func NewBase(conn *gorm.DB) Base {
	return Base{conn: conn}
}

// DB returns the connection scoped to ctx. A nil ctx yields the bare
// connection.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.conn
	}
	return b.conn.WithContext(ctx)
}

// Bound returns a Base running on tx, or b itself when tx is nil.
func (b Base) Bound(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{conn: tx}
}

// Exists reports whether any row of model satisfies the condition.
func (b Base) Exists(ctx context.Context, model any, query string, args ...any) (bool, error) {
	var found int
	err := b.DB(ctx).Model(model).Select("1").Where(query, args...).Limit(1).Scan(&found).Error
	return found == 1, err
}
