package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
)

func TestClassifyPGErrors(t *testing.T) {
	fk := &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, Detail: `Key (gig_id)=(404) is not present in table "gigs".`}
	unique := &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "applications_gig_id_user_id_key"}
	conn := &pgconn.PgError{Code: pgerrcode.AdminShutdown}

	wrappedFK := oops.Tags("db").Wrap(ErrorDetails(fk))
	wrappedUnique := fmt.Errorf("insert: %w", ErrorDetails(unique))

	assert.True(t, IsForeignKeyError(wrappedFK))
	assert.False(t, IsUniqueViolation(wrappedFK))
	assert.True(t, IsDBError(wrappedFK))

	assert.True(t, IsUniqueViolation(wrappedUnique))
	assert.False(t, IsForeignKeyError(wrappedUnique))
	assert.False(t, IsDBError(wrappedUnique))

	assert.True(t, IsUnavailable(conn))
	assert.False(t, IsUnavailable(fk))
}

func TestIsUnavailable(t *testing.T) {
	assert.True(t, IsUnavailable(fmt.Errorf("query: %w", context.DeadlineExceeded)))
	assert.True(t, IsUnavailable(oops.Wrap(context.Canceled)))
	assert.False(t, IsUnavailable(errors.New("syntax error")))
	assert.False(t, IsUnavailable(nil))
}

func TestErrorDetails(t *testing.T) {
	err := ErrorDetails(&pgconn.PgError{Code: pgerrcode.UniqueViolation, Message: "duplicate key", Detail: "Key exists", ConstraintName: "uniq"})
	assert.Contains(t, err.Error(), "detail: Key exists")
	assert.Contains(t, err.Error(), "constraint: uniq")
	assert.Nil(t, ErrorDetails(nil))
}
