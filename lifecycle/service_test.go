package lifecycle

import (
	"errors"
	"testing"

	"github.com/samber/lo"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flanksource/gigs/api"
	"github.com/flanksource/gigs/context"
	"github.com/flanksource/gigs/fixtures/dummy"
	"github.com/flanksource/gigs/models"
	"github.com/flanksource/gigs/rbac"
	"github.com/flanksource/gigs/testutils"
)

func newService(t *testing.T, options Options) (*Service, *testutils.MemoryStore) {
	t.Helper()
	store := testutils.NewMemoryStore().
		AddUser(dummy.AllDummyUsers...).
		AddGig(dummy.AllDummyGigs...)
	enforcer, err := rbac.Default()
	require.NoError(t, err)
	return NewService(store, store, enforcer, options), store
}

func as(user models.User) context.Context {
	return context.New().WithUser(user.ID)
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, api.ErrorCode(err), "error: %v", err)
}

func TestCreate(t *testing.T) {
	svc, store := newService(t, Options{})

	app, err := svc.Create(as(dummy.Applicant), dummy.GigFestival.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusApplied, app.Status)
	assert.Equal(t, dummy.Applicant.ID, app.UserID)
	assert.Equal(t, dummy.GigFestival.ID, app.GigID)

	_, err = svc.Create(as(dummy.Applicant), dummy.GigFestival.ID)
	assertCode(t, err, api.EDUPLICATE)
	assert.Equal(t, "application already exists", api.ErrorMessage(err))

	_, err = svc.Create(as(dummy.Applicant), 404)
	assertCode(t, err, api.EREFERENCE)
	assert.Equal(t, "application failed", api.ErrorMessage(err))

	calls := store.Calls("insert")
	_, err = svc.Create(as(dummy.Applicant), 0)
	assertCode(t, err, api.EMISSINGFIELD)
	assert.Equal(t, calls, store.Calls("insert"), "missing gig_id must not reach the store")

	_, err = svc.Create(context.New(), dummy.GigFestival.ID)
	assertCode(t, err, api.EUNAUTHENTICATED)
}

func TestListViews(t *testing.T) {
	svc, _ := newService(t, Options{})

	mine, err := svc.List(as(dummy.Applicant), ListFilter{})
	require.NoError(t, err)
	assert.NotNil(t, mine)
	assert.Empty(t, mine)

	_, err = svc.Create(as(dummy.Applicant), dummy.GigFestival.ID)
	require.NoError(t, err)
	_, err = svc.Create(as(dummy.Applicant), dummy.GigWedding.ID)
	require.NoError(t, err)
	_, err = svc.Create(as(dummy.Outsider), dummy.GigFestival.ID)
	require.NoError(t, err)

	mine, err = svc.List(as(dummy.Applicant), ListFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, dummy.GigWedding.ID, mine[0].GigID, "newest first")
	assert.Equal(t, dummy.GigWedding.Name, mine[0].GigName)
	assert.Empty(t, mine[0].ApplicantEmail)

	applicants, err := svc.List(as(dummy.Employer), ListFilter{GigID: lo.ToPtr(dummy.GigFestival.ID)})
	require.NoError(t, err)
	require.Len(t, applicants, 2)
	assert.Equal(t, dummy.Outsider.Email, applicants[0].ApplicantEmail)
	assert.Equal(t, dummy.Applicant.Name, applicants[1].ApplicantName)

	_, err = svc.List(as(dummy.Outsider), ListFilter{GigID: lo.ToPtr(dummy.GigFestival.ID)})
	assertCode(t, err, api.EUNAUTHORIZED)

	_, err = svc.List(as(dummy.Employer), ListFilter{GigID: lo.ToPtr(int64(404))})
	assertCode(t, err, api.EUNAUTHORIZED)
}

func TestListReadFailureIsUnavailable(t *testing.T) {
	svc, store := newService(t, Options{})

	store.Fail("list_by_user", oops.Code(api.EINTERNAL).Wrap(errors.New("syntax error at or near \"FROM\"")))
	_, err := svc.List(as(dummy.Applicant), ListFilter{})
	assertCode(t, err, api.EUNAVAILABLE)
	assert.Equal(t, "temporarily unavailable, please retry", api.ErrorMessage(err))
	assert.Contains(t, api.ErrorDebugInfo(err), "syntax error")

	store.Fail("list_by_user", errors.New("connection reset by peer"))
	_, err = svc.List(as(dummy.Applicant), ListFilter{})
	assertCode(t, err, api.EUNAVAILABLE)

	store.Fail("owner", oops.Code(api.EINTERNAL).Wrap(errors.New("connection reset by peer")))
	_, err = svc.List(as(dummy.Employer), ListFilter{GigID: lo.ToPtr(dummy.GigFestival.ID)})
	assertCode(t, err, api.EUNAVAILABLE)
}

func TestUpdateStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		caller  models.User
		status  models.ApplicationStatus
		code    string
		message string
	}{
		{name: "employer shortlists", caller: dummy.Employer, status: models.ApplicationStatusShortlisted},
		{name: "employer accepts", caller: dummy.Employer, status: models.ApplicationStatusAccepted},
		{name: "employer rejects", caller: dummy.Employer, status: models.ApplicationStatusRejected},
		{name: "applicant withdraws", caller: dummy.Applicant, status: models.ApplicationStatusWithdrawn},
		{
			name: "employer cannot withdraw", caller: dummy.Employer, status: models.ApplicationStatusWithdrawn,
			code: api.EFORBIDDEN, message: "employers cannot set status 'withdrawn' (allowed: accepted, rejected, shortlisted)",
		},
		{
			name: "applicant cannot accept", caller: dummy.Applicant, status: models.ApplicationStatusAccepted,
			code: api.EFORBIDDEN, message: "applicants cannot set status 'accepted' (allowed: withdrawn)",
		},
		{
			name: "nobody sets applied", caller: dummy.Employer, status: models.ApplicationStatusApplied,
			code: api.EFORBIDDEN, message: "employers cannot set status 'applied' (allowed: accepted, rejected, shortlisted)",
		},
		{
			name: "unknown status", caller: dummy.Employer, status: "archived",
			code: api.EFORBIDDEN, message: "employers cannot set status 'archived' (allowed: accepted, rejected, shortlisted)",
		},
		{
			name: "unrelated user", caller: dummy.Outsider, status: models.ApplicationStatusAccepted,
			code: api.EUNAUTHORIZED,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newService(t, Options{})
			app, err := svc.Create(as(dummy.Applicant), dummy.GigFestival.ID)
			require.NoError(t, err)

			updated, err := svc.UpdateStatus(as(tt.caller), app.ID, tt.status)
			stored, _ := store.Get(app.ID)
			if tt.code != "" {
				assertCode(t, err, tt.code)
				if tt.message != "" {
					assert.Equal(t, tt.message, api.ErrorMessage(err))
				}
				assert.Equal(t, models.ApplicationStatusApplied, stored.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.status, updated.Status)
			assert.Equal(t, tt.status, stored.Status)
			assert.Equal(t, app.AppliedAt, updated.AppliedAt)
		})
	}
}

func TestUpdateStatusValidation(t *testing.T) {
	svc, store := newService(t, Options{})

	_, err := svc.UpdateStatus(as(dummy.Employer), 1, "")
	assertCode(t, err, api.EMISSINGFIELD)
	assert.Zero(t, store.Calls("get"), "missing status must not reach the store")

	_, err = svc.UpdateStatus(as(dummy.Employer), 999, models.ApplicationStatusAccepted)
	assertCode(t, err, api.ENOTFOUND)
}

type unlistablePolicy struct {
	*rbac.Enforcer
}

func (unlistablePolicy) AllowedStatuses(rbac.Actor) ([]models.ApplicationStatus, error) {
	return nil, errors.New("policy store offline")
}

func TestForbiddenWithoutAllowedList(t *testing.T) {
	store := testutils.NewMemoryStore().
		AddUser(dummy.AllDummyUsers...).
		AddGig(dummy.AllDummyGigs...)
	enforcer, err := rbac.Default()
	require.NoError(t, err)
	svc := NewService(store, store, unlistablePolicy{enforcer}, Options{})

	app, err := svc.Create(as(dummy.Applicant), dummy.GigFestival.ID)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(as(dummy.Employer), app.ID, models.ApplicationStatusWithdrawn)
	assertCode(t, err, api.EFORBIDDEN)
	assert.Equal(t, "employers cannot set status 'withdrawn'", api.ErrorMessage(err))
}

func TestUpdateStatusDualRole(t *testing.T) {
	for _, tc := range []struct {
		precedence api.DualRolePrecedence
		allowed    models.ApplicationStatus
		denied     models.ApplicationStatus
	}{
		{api.PrecedenceEmployer, models.ApplicationStatusShortlisted, models.ApplicationStatusWithdrawn},
		{api.PrecedenceApplicant, models.ApplicationStatusWithdrawn, models.ApplicationStatusShortlisted},
	} {
		t.Run(string(tc.precedence), func(t *testing.T) {
			svc, _ := newService(t, Options{Precedence: tc.precedence})
			app, err := svc.Create(as(dummy.DualRole), dummy.GigGala.ID)
			require.NoError(t, err)

			_, err = svc.UpdateStatus(as(dummy.DualRole), app.ID, tc.denied)
			assertCode(t, err, api.EFORBIDDEN)

			updated, err := svc.UpdateStatus(as(dummy.DualRole), app.ID, tc.allowed)
			require.NoError(t, err)
			assert.Equal(t, tc.allowed, updated.Status)
		})
	}
}

func TestUpdateStatusIsAtomic(t *testing.T) {
	svc, store := newService(t, Options{})
	app, err := svc.Create(as(dummy.Applicant), dummy.GigFestival.ID)
	require.NoError(t, err)

	store.RemoveStatus(models.ApplicationStatusShortlisted)
	_, err = svc.UpdateStatus(as(dummy.Employer), app.ID, models.ApplicationStatusShortlisted)
	assertCode(t, err, api.EREFERENCE)

	stored, ok := store.Get(app.ID)
	require.True(t, ok)
	assert.Equal(t, models.ApplicationStatusApplied, stored.Status)
}

func TestDelete(t *testing.T) {
	svc, store := newService(t, Options{})
	app, err := svc.Create(as(dummy.Applicant), dummy.GigFestival.ID)
	require.NoError(t, err)

	err = svc.Delete(as(dummy.Employer), dummy.GigFestival.ID)
	require.NoError(t, err)
	_, ok := store.Get(app.ID)
	assert.True(t, ok, "deletes only the caller's own application")

	require.NoError(t, svc.Delete(as(dummy.Applicant), dummy.GigFestival.ID))
	_, ok = store.Get(app.ID)
	assert.False(t, ok)

	require.NoError(t, svc.Delete(as(dummy.Applicant), dummy.GigFestival.ID), "idempotent by default")

	assertCode(t, svc.Delete(as(dummy.Applicant), 0), api.EMISSINGFIELD)
}

func TestStrictDelete(t *testing.T) {
	svc, _ := newService(t, Options{StrictDelete: true})
	assertCode(t, svc.Delete(as(dummy.Applicant), dummy.GigFestival.ID), api.ENOTFOUND)
}

func TestScenario(t *testing.T) {
	svc, _ := newService(t, Options{})
	applicant, employer, outsider := as(dummy.Applicant), as(dummy.Employer), as(dummy.Outsider)

	app, err := svc.Create(applicant, 42)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusApplied, app.Status)

	_, err = svc.Create(applicant, 42)
	assertCode(t, err, api.EDUPLICATE)

	views, err := svc.List(employer, ListFilter{GigID: lo.ToPtr(int64(42))})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, dummy.Applicant.Name, views[0].ApplicantName)

	_, err = svc.UpdateStatus(applicant, app.ID, models.ApplicationStatusAccepted)
	assertCode(t, err, api.EFORBIDDEN)

	updated, err := svc.UpdateStatus(employer, app.ID, models.ApplicationStatusShortlisted)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusShortlisted, updated.Status)

	withdrawn, err := svc.UpdateStatus(applicant, app.ID, models.ApplicationStatusWithdrawn)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusWithdrawn, withdrawn.Status)

	_, err = svc.List(outsider, ListFilter{GigID: lo.ToPtr(int64(42))})
	assertCode(t, err, api.EUNAUTHORIZED)
}
