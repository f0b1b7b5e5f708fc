package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/flanksource/commons/properties"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"

	"github.com/flanksource/gigs/api"
	"github.com/flanksource/gigs/context"
	"github.com/flanksource/gigs/models"
	"github.com/flanksource/gigs/rbac"
)

// Store persists applications. Implementations translate storage failures
// into api error codes.
type Store interface {
	Insert(ctx context.Context, gigID, userID int64) (*models.Application, error)
	GetForUpdate(ctx context.Context, applicationID int64) (*models.ApplicationOwnership, error)
	ListByUser(ctx context.Context, userID int64) ([]models.ApplicationView, error)
	ListByGig(ctx context.Context, gigID int64) ([]models.ApplicationView, error)
	UpdateStatus(ctx context.Context, applicationID int64, status models.ApplicationStatus) (*models.Application, error)
	DeleteByPair(ctx context.Context, userID, gigID int64) (int64, error)
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type OwnerResolver interface {
	OwnerOf(ctx context.Context, gigID int64) (int64, error)
}

type TransitionPolicy interface {
	CanTransition(ctx context.Context, actor rbac.Actor, status models.ApplicationStatus) bool
	AllowedStatuses(actor rbac.Actor) ([]models.ApplicationStatus, error)
}

type Options struct {
	Precedence   api.DualRolePrecedence
	StrictDelete bool
}

// ListFilter selects the employer view when GigID is set, the caller's own applications otherwise.
type ListFilter struct {
	GigID *int64
}

type Service struct {
	store   Store
	owners  OwnerResolver
	policy  TransitionPolicy
	options Options
}

func NewService(store Store, owners OwnerResolver, policy TransitionPolicy, options Options) *Service {
	if options.Precedence == "" {
		options.Precedence = api.PrecedenceEmployer
	}
	return &Service{store: store, owners: owners, policy: policy, options: options}
}

func (s *Service) precedence() api.DualRolePrecedence {
	return api.DualRolePrecedence(properties.String(string(s.options.Precedence), "lifecycle.dual_role.precedence"))
}

func (s *Service) strictDelete() bool {
	return properties.On(s.options.StrictDelete, "applications.delete.strict")
}

func caller(ctx context.Context) (int64, error) {
	id, ok := ctx.User()
	if !ok {
		return 0, ctx.Oops().Code(api.EUNAUTHENTICATED).Errorf("authentication required")
	}
	return id, nil
}

func observe(ctx context.Context, operation string, start time.Time) {
	ctx.Histogram("gig_application_operation_duration", context.LatencyBuckets, "operation", operation).Since(start)
}

// Create applies the caller to a gig. The application starts in the applied state.
func (s *Service) Create(ctx context.Context, gigID int64) (*models.Application, error) {
	ctx, span := ctx.StartSpan("lifecycle.Create")
	defer span.End()
	defer observe(ctx, "create", time.Now())

	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if gigID == 0 {
		return nil, ctx.Oops().Code(api.EMISSINGFIELD).Errorf("gig_id is required")
	}
	span.SetAttributes(attribute.Int64("gig-id", gigID))

	app, err := s.store.Insert(ctx, gigID, userID)
	if err != nil {
		return nil, err
	}

	ctx.Counter("gig_application_transitions_total", "actor", string(rbac.ActorApplicant), "status", string(app.Status)).Add(1)
	ctx.Debugf("user %d applied to gig %d (application %d)", userID, gigID, app.ID)
	return app, nil
}

// List returns the employer view of a gig's applicants, or the caller's own applications.
// Never returns nil on success.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]models.ApplicationView, error) {
	ctx, span := ctx.StartSpan("lifecycle.List")
	defer span.End()
	defer observe(ctx, "list", time.Now())

	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	var views []models.ApplicationView
	if filter.GigID != nil {
		gigID := *filter.GigID
		span.SetAttributes(attribute.Int64("gig-id", gigID))

		owner, err := s.owners.OwnerOf(ctx, gigID)
		switch {
		case api.ErrorCode(err) == api.ENOTFOUND:
			return nil, ctx.Oops().Code(api.EUNAUTHORIZED).Errorf("not authorized")
		case err != nil:
			return nil, readFailure(ctx, err)
		case owner != userID:
			return nil, ctx.Oops().Code(api.EUNAUTHORIZED).Errorf("not authorized")
		}
		views, err = s.store.ListByGig(ctx, gigID)
		if err != nil {
			return nil, readFailure(ctx, err)
		}
	} else {
		views, err = s.store.ListByUser(ctx, userID)
		if err != nil {
			return nil, readFailure(ctx, err)
		}
	}

	if views == nil {
		views = []models.ApplicationView{}
	}
	return views, nil
}

// readFailure reports a failed read as unavailable rather than an empty result.
// The error is rebuilt instead of wrapped: the innermost oops code wins, so a
// wrapped internal error would keep reporting internal.
func readFailure(ctx context.Context, err error) error {
	if api.ErrorCode(err) != api.EINTERNAL {
		return err
	}
	return ctx.Oops().Code(api.EUNAVAILABLE).With("cause", err.Error()).Errorf("read failed: %v", err)
}

// UpdateStatus moves an application to status. The ownership check and the write
// happen in one transaction with the application row locked.
func (s *Service) UpdateStatus(ctx context.Context, applicationID int64, status models.ApplicationStatus) (*models.Application, error) {
	ctx, span := ctx.StartSpan("lifecycle.UpdateStatus")
	defer span.End()
	defer observe(ctx, "update_status", time.Now())

	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return nil, ctx.Oops().Code(api.EMISSINGFIELD).Errorf("status is required")
	}
	span.SetAttributes(attribute.Int64("application-id", applicationID), attribute.String("status", string(status)))

	var (
		updated *models.Application
		actor   rbac.Actor
		from    models.ApplicationStatus
	)
	err = s.store.Transaction(ctx, func(tx context.Context) error {
		row, err := s.store.GetForUpdate(tx, applicationID)
		if err != nil {
			return err
		}

		var ok bool
		if actor, ok = ClassifyActor(*row, userID, s.precedence()); !ok {
			return tx.Oops().Code(api.EUNAUTHORIZED).Errorf("not authorized")
		}

		if !s.policy.CanTransition(tx, actor, status) {
			return s.forbidden(tx, actor, status)
		}

		from = row.Status
		updated, err = s.store.UpdateStatus(tx, applicationID, status)
		return err
	})
	if err != nil {
		return nil, err
	}

	ctx.Counter("gig_application_transitions_total", "actor", string(actor), "status", string(status)).Add(1)
	ctx.Debugf("application %d: %s -> %s by %s %d", applicationID, from, status, actor, userID)
	return updated, nil
}

// Delete withdraws the caller's application to gigID by removing it.
func (s *Service) Delete(ctx context.Context, gigID int64) error {
	ctx, span := ctx.StartSpan("lifecycle.Delete")
	defer span.End()
	defer observe(ctx, "delete", time.Now())

	userID, err := caller(ctx)
	if err != nil {
		return err
	}
	if gigID == 0 {
		return ctx.Oops().Code(api.EMISSINGFIELD).Errorf("gig_id is required")
	}
	span.SetAttributes(attribute.Int64("gig-id", gigID))

	deleted, err := s.store.DeleteByPair(ctx, userID, gigID)
	if err != nil {
		return err
	}
	if deleted == 0 && s.strictDelete() {
		return ctx.Oops().Code(api.ENOTFOUND).Errorf("application not found")
	}
	return nil
}

// forbidden names the rejected status and the ones actor may set instead.
func (s *Service) forbidden(ctx context.Context, actor rbac.Actor, status models.ApplicationStatus) error {
	msg := fmt.Sprintf("%s cannot set status '%s'", actorPlural(actor), status)
	allowed, err := s.policy.AllowedStatuses(actor)
	if err != nil {
		ctx.Warnf("failed to list allowed statuses for %s: %v", actor, err)
	} else if len(allowed) > 0 {
		msg += " (allowed: " + strings.Join(lo.Map(allowed, func(st models.ApplicationStatus, _ int) string { return string(st) }), ", ") + ")"
	}
	return ctx.Oops().Code(api.EFORBIDDEN).Errorf("%s", msg)
}
