package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

func ErrorDetails(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		var errString []string
		if pgErr.Detail != "" {
			errString = append(errString, fmt.Sprintf("detail: %s", pgErr.Detail))
		}
		if pgErr.Hint != "" {
			errString = append(errString, fmt.Sprintf("hint: %s", pgErr.Hint))
		}
		if pgErr.ConstraintName != "" {
			errString = append(errString, fmt.Sprintf("constraint: %s", pgErr.ConstraintName))
		}
		if pgErr.Position != 0 {
			errString = append(errString, fmt.Sprintf("position: %d", pgErr.Position))
		}
		if len(errString) > 0 {
			return fmt.Errorf("%w: %s", err, strings.Join(errString, ", "))
		}
	}
	return err
}

func IsDBError(err error) bool {
	if oe, ok := oops.AsOops(err); ok {
		if lo.Contains(oe.Tags(), "db") {
			return true
		}
	}

	return false
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func IsForeignKeyError(err error) bool {
	return pgErrorCode(err) == pgerrcode.ForeignKeyViolation
}

func IsUniqueViolation(err error) bool {
	return pgErrorCode(err) == pgerrcode.UniqueViolation
}

// IsUnavailable reports whether err is caused by the database being
// unreachable, overloaded or too slow rather than by the statement itself.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}

	if pgconn.Timeout(err) {
		return true
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	if code := pgErrorCode(err); code != "" {
		return pgerrcode.IsConnectionException(code) ||
			pgerrcode.IsInsufficientResources(code) ||
			pgerrcode.IsOperatorIntervention(code) ||
			code == pgerrcode.SerializationFailure ||
			code == pgerrcode.DeadlockDetected
	}

	return false
}
