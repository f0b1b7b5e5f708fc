package context

import (
	gocontext "context"
	"strconv"
	"time"

	commons "github.com/flanksource/commons/context"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

type Poolable interface {
	Pool() *pgxpool.Pool
}

type Gormable interface {
	DB() *gorm.DB
}

// Context is the request (or job) scoped context passed through every layer.
// It carries the database handles and, once authenticated, the caller's user id.
type Context struct {
	commons.Context
}

func NewContext(baseCtx gocontext.Context, opts ...commons.ContextOptions) Context {
	return Context{
		Context: commons.NewContext(baseCtx, opts...),
	}
}

func New(opts ...commons.ContextOptions) Context {
	return NewContext(gocontext.Background(), opts...)
}

func (k Context) WithTimeout(timeout time.Duration) (Context, gocontext.CancelFunc) {
	ctx, cancelFunc := k.Context.WithTimeout(timeout)
	return Context{
		Context: ctx,
	}, cancelFunc
}

// WithUser records the authenticated identity of the caller.
func (k Context) WithUser(userID int64) Context {
	k.GetSpan().SetAttributes(attribute.Int64("user-id", userID))
	return Context{
		Context: k.WithValue("user", userID),
	}
}

// User returns the authenticated caller, if any.
func (k Context) User() (int64, bool) {
	v, ok := k.Value("user").(int64)
	return v, ok
}

func (k Context) UserString() string {
	if id, ok := k.User(); ok {
		return strconv.FormatInt(id, 10)
	}
	return ""
}

func (k Context) WithDB(db *gorm.DB, pool *pgxpool.Pool) Context {
	return Context{
		Context: k.WithValue("db", db).WithValue("pgxpool", pool),
	}
}

func (k Context) DB() *gorm.DB {
	val := k.Value("db")
	if val == nil {
		return nil
	}

	v, ok := val.(*gorm.DB)
	if !ok || v == nil {
		return nil
	}
	return v.WithContext(k)
}

func (k Context) Pool() *pgxpool.Pool {
	v, _ := k.Value("pgxpool").(*pgxpool.Pool)
	return v
}

// Transaction runs fn inside a single database transaction. The Context handed
// to fn is bound to the transaction, so every statement issued through it
// commits or rolls back together.
func (k Context) Transaction(fn func(ctx Context) error) error {
	db := k.DB()
	if db == nil {
		return k.Oops().Errorf("no database connection in context")
	}
	return db.Transaction(func(tx *gorm.DB) error {
		return fn(k.WithDB(tx, k.Pool()))
	})
}

func (k Context) StartSpan(name string) (Context, trace.Span) {
	ctx, span := k.Context.StartSpan(name)
	if user := k.UserString(); user != "" {
		span.SetAttributes(attribute.String("user-id", user))
	}

	return Context{
		Context: ctx,
	}, span
}

// Wrap carries the database handles and caller identity of k over to ctx.
func (k Context) Wrap(ctx gocontext.Context) Context {
	wrapped := NewContext(ctx, commons.WithTracer(k.GetTracer())).
		WithDB(k.DB(), k.Pool())
	if user, ok := k.User(); ok {
		wrapped = wrapped.WithUser(user)
	}
	return wrapped
}
