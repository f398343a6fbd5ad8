package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestUniqueViolationConstraint(t *testing.T) {
	err := fmt.Errorf("insert user: %w", &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"})
	name, ok := UniqueViolationConstraint(err)
	require.True(t, ok)
	require.Equal(t, "users_email_key", name)
	require.True(t, IsPGUniqueViolation(err))

	require.False(t, IsPGUniqueViolation(errors.New("boom")))
	require.False(t, IsPGUniqueViolation(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}))
	require.True(t, IsPGForeignKeyViolation(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}))
}

func TestClampPage(t *testing.T) {
	l, o := ClampPage(0, -3)
	require.Equal(t, DefaultLimit, l)
	require.Equal(t, 0, o)

	l, o = ClampPage(1000, 20)
	require.Equal(t, MaxLimit, l)
	require.Equal(t, 20, o)

	l, _ = ClampPage(10, 0)
	require.Equal(t, 10, l)
}
