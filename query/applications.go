package query

import (
	"github.com/Masterminds/squirrel"

	"github.com/flanksource/gigs/api"
	"github.com/flanksource/gigs/context"
	"github.com/flanksource/gigs/db"
	"github.com/flanksource/gigs/models"
)

const applicationColumns = "application_id, gig_id, user_id, status, applied_at"

// Applications is the PostgreSQL backed application store.
type Applications struct{}

// Insert persists a new application in the applied state.
func (Applications) Insert(ctx context.Context, gigID, userID int64) (*models.Application, error) {
	var app models.Application
	tx := ctx.DB().Raw(`INSERT INTO applications (gig_id, user_id, status)
		VALUES (?, ?, ?)
		RETURNING `+applicationColumns, gigID, userID, models.ApplicationStatusApplied).Scan(&app)
	if tx.Error != nil {
		return nil, translateError(ctx, tx.Error, "application.insert", "application failed")
	}
	if tx.RowsAffected == 0 {
		return nil, ctx.Oops().Code(api.EINTERNAL).Errorf("insert returned no row")
	}
	return &app, nil
}

// GetForUpdate loads an application joined with the owner of its gig and locks
// both rows until the surrounding transaction ends.
func (Applications) GetForUpdate(ctx context.Context, applicationID int64) (*models.ApplicationOwnership, error) {
	var row models.ApplicationOwnership
	tx := ctx.DB().Raw(`SELECT a.application_id, a.gig_id, a.user_id, a.status, a.applied_at, g.posted_by_user_id
		FROM applications a
		JOIN gigs g ON a.gig_id = g.gig_id
		WHERE a.application_id = ?
		FOR UPDATE`, applicationID).Scan(&row)
	if tx.Error != nil {
		return nil, translateError(ctx, tx.Error, "application.get", "application not found")
	}
	if tx.RowsAffected == 0 {
		return nil, ctx.Oops().Code(api.ENOTFOUND).Errorf("application not found")
	}
	return &row, nil
}

// viewQuery selects application views newest first. The employer view also
// joins the applicant's contact details.
func viewQuery(where squirrel.Eq, withApplicant bool) (string, []any, error) {
	columns := []string{
		"a.application_id", "a.user_id", "a.gig_id", "a.status", "a.applied_at",
		"g.gig_name", "g.gig_date", "g.type_name", "g.gig_details",
	}
	if withApplicant {
		columns = append(columns, "u.user_name AS applicant_name", "u.email AS applicant_email")
	}

	q := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question).
		Select(columns...).
		From("applications a").
		Join("gigs g ON a.gig_id = g.gig_id")
	if withApplicant {
		q = q.Join("users u ON a.user_id = u.user_id")
	}
	return q.Where(where).OrderBy("a.applied_at DESC", "a.application_id DESC").ToSql()
}

func listViews(ctx context.Context, operation string, where squirrel.Eq, withApplicant bool) ([]models.ApplicationView, error) {
	sql, args, err := viewQuery(where, withApplicant)
	if err != nil {
		return nil, ctx.Oops().Code(api.EINTERNAL).Wrap(err)
	}

	views := []models.ApplicationView{}
	if err := ctx.DB().Raw(sql, args...).Scan(&views).Error; err != nil {
		return nil, translateError(ctx, err, operation, "applications not found")
	}
	return views, nil
}

// ListByUser returns the caller's own applications, newest first.
func (Applications) ListByUser(ctx context.Context, userID int64) ([]models.ApplicationView, error) {
	return listViews(ctx, "application.list_by_user", squirrel.Eq{"a.user_id": userID}, false)
}

// ListByGig returns every application to a gig with the applicant's contact details, newest first.
func (Applications) ListByGig(ctx context.Context, gigID int64) ([]models.ApplicationView, error) {
	return listViews(ctx, "application.list_by_gig", squirrel.Eq{"a.gig_id": gigID}, true)
}

// UpdateStatus writes a new status and returns the updated row.
func (Applications) UpdateStatus(ctx context.Context, applicationID int64, status models.ApplicationStatus) (*models.Application, error) {
	var app models.Application
	tx := ctx.DB().Raw(`UPDATE applications SET status = ?
		WHERE application_id = ?
		RETURNING `+applicationColumns, status, applicationID).Scan(&app)
	if tx.Error != nil {
		return nil, translateError(ctx, tx.Error, "application.update_status", "unknown application status")
	}
	if tx.RowsAffected == 0 {
		return nil, ctx.Oops().Code(api.ENOTFOUND).Errorf("application not found")
	}
	return &app, nil
}

// DeleteByPair removes the caller's application to a gig and reports how many rows went away.
func (Applications) DeleteByPair(ctx context.Context, userID, gigID int64) (int64, error) {
	tx := ctx.DB().Exec("DELETE FROM applications WHERE user_id = ? AND gig_id = ?", userID, gigID)
	if tx.Error != nil {
		return 0, translateError(ctx, tx.Error, "application.delete", "application not found")
	}
	return tx.RowsAffected, nil
}

// Transaction runs fn against a single transaction; any error rolls back every write made through fn's context.
func (Applications) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	err := ctx.Transaction(fn)
	if err != nil && api.ErrorCode(err) == api.EINTERNAL && db.IsUnavailable(err) {
		return recodeUnavailable(ctx, err, "application.transaction")
	}
	return err
}
