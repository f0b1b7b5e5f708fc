package query

import (
	"github.com/flanksource/gigs/api"
	"github.com/flanksource/gigs/context"
	"github.com/flanksource/gigs/db"
)

// translateError maps a PostgreSQL failure onto the application error taxonomy.
// referenceMsg is returned to the client on a foreign key violation; it never
// names the missing row.
func translateError(ctx context.Context, err error, operation, referenceMsg string) error {
	if err == nil {
		return nil
	}

	builder := ctx.Oops().With("operation", operation)
	switch {
	case db.IsUniqueViolation(err):
		return builder.Code(api.EDUPLICATE).Errorf("application already exists")
	case db.IsForeignKeyError(err):
		ctx.Debugf("%s: %v", operation, db.ErrorDetails(err))
		return builder.Code(api.EREFERENCE).Errorf("%s", referenceMsg)
	case db.IsUnavailable(err):
		return builder.Code(api.EUNAVAILABLE).Wrap(err)
	default:
		return builder.Code(api.EINTERNAL).Wrap(err)
	}
}

// recodeUnavailable turns an already coded error into an unavailable one.
// Wrapping would not work, the innermost oops code wins.
func recodeUnavailable(ctx context.Context, err error, operation string) error {
	return ctx.Oops().
		With("operation", operation, "cause", err.Error()).
		Code(api.EUNAVAILABLE).
		Errorf("%s: %v", operation, err)
}
