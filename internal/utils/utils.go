package utils

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// IsPGUniqueViolation reports whether error is PostgreSQL unique constraint violation.
func IsPGUniqueViolation(err error) bool {
	_, ok := UniqueViolationConstraint(err)
	return ok
}

// UniqueViolationConstraint returns the violated constraint name for a unique violation.
func UniqueViolationConstraint(err error) (string, bool) {
	var pge *pgconn.PgError
	if errors.As(err, &pge) && pge.Code == pgerrcode.UniqueViolation {
		return pge.ConstraintName, true
	}
	return "", false
}

// IsPGForeignKeyViolation reports whether err references a missing row.
func IsPGForeignKeyViolation(err error) bool {
	var pge *pgconn.PgError
	return errors.As(err, &pge) && pge.Code == pgerrcode.ForeignKeyViolation
}

// ClampPage normalizes limit/offset query values.
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
