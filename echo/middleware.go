package echo

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/flanksource/commons/logger"
	"github.com/google/uuid"
	echov4 "github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/flanksource/gigs/api"
	"github.com/flanksource/gigs/auth"
	"github.com/flanksource/gigs/context"
)

// requestContext returns the request scoped context installed by ContextMiddleware.
func requestContext(c echov4.Context) context.Context {
	if ctx, ok := c.Request().Context().(context.Context); ok {
		return ctx
	}
	return context.NewContext(c.Request().Context())
}

func setRequestContext(c echov4.Context, ctx context.Context) {
	c.SetRequest(c.Request().WithContext(ctx))
}

// ContextMiddleware derives a request context from base, carrying its database
// handles and bounded by timeout so store waits cannot outlive the request.
func ContextMiddleware(base context.Context, timeout time.Duration) echov4.MiddlewareFunc {
	return func(next echov4.HandlerFunc) echov4.HandlerFunc {
		return func(c echov4.Context) error {
			ctx := base.Wrap(c.Request().Context())
			if timeout > 0 {
				var cancel func()
				ctx, cancel = ctx.WithTimeout(timeout)
				defer cancel()
			}
			setRequestContext(c, ctx)
			return next(c)
		}
	}
}

// Authenticate resolves the caller from the bearer token and stores it on the request context.
func Authenticate(verifier *auth.Verifier) echov4.MiddlewareFunc {
	return func(next echov4.HandlerFunc) echov4.HandlerFunc {
		return func(c echov4.Context) error {
			token, ok := auth.BearerToken(c.Request().Header.Get(echov4.HeaderAuthorization))
			if !ok {
				return api.WriteError(c, api.Errorf(api.EUNAUTHENTICATED, "missing bearer token"))
			}

			userID, err := verifier.Verify(token)
			if err != nil {
				return api.WriteError(c, err)
			}

			setRequestContext(c, requestContext(c).WithUser(userID))
			return next(c)
		}
	}
}

func RequestID() echov4.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	})
}

// RequestLogger logs every request on the "http" logger.
func RequestLogger() echov4.MiddlewareFunc {
	log := logger.GetLogger("http")
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echov4.Context, v middleware.RequestLoggerValues) error {
			l := log.WithValues("request_id", v.RequestID, "status", v.Status, "latency", v.Latency.String())
			if user := requestContext(c).UserString(); user != "" {
				l = l.WithValues("user", user)
			}
			if v.Status >= http.StatusInternalServerError {
				l.Errorf("%s %s", v.Method, v.URIPath)
			} else {
				l.V(3).Infof("%s %s", v.Method, v.URIPath)
			}
			return nil
		},
	})
}

// ErrorHandler renders errors that escape handlers, such as unknown routes, in the api error format.
func ErrorHandler(err error, c echov4.Context) {
	if c.Response().Committed {
		return
	}

	var he *echov4.HTTPError
	if errors.As(err, &he) {
		code := strings.ToLower(strings.ReplaceAll(http.StatusText(he.Code), " ", "_"))
		_ = c.JSON(he.Code, &api.HTTPError{Err: code, Message: fmt.Sprint(he.Message)})
		return
	}

	_ = api.WriteError(c, err)
}
