package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether the error is a unique constraint violation.
// When constraintHint is provided, the constraint name or failing column must
// contain it.
func IsUniqueViolation(err error, constraintHint string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return constraintHint == "" || strings.Contains(err.Error(), constraintHint)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolation {
			return false
		}
		return constraintHint == "" || strings.Contains(pgErr.ConstraintName, constraintHint) || strings.Contains(pgErr.Message, constraintHint)
	}
	msg := err.Error()
	if !strings.Contains(msg, "duplicate key value") && !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	return constraintHint == "" || strings.Contains(msg, constraintHint)
}

// IsNotFound reports whether a gorm lookup found no rows.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
