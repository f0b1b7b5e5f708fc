package echo

import (
	gocontext "context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/flanksource/commons/logger"
	echov4 "github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flanksource/gigs/api"
	"github.com/flanksource/gigs/auth"
	"github.com/flanksource/gigs/context"
	"github.com/flanksource/gigs/lifecycle"
	"github.com/flanksource/gigs/shutdown"
)

type Options struct {
	Service  *lifecycle.Service
	Verifier *auth.Verifier

	// RequestTimeout bounds every request, including time spent waiting on row locks.
	RequestTimeout time.Duration

	Metrics bool
	Debug   bool
}

// New builds the HTTP server. ctx carries the database handles shared by every request.
func New(ctx context.Context, opts Options) *echov4.Echo {
	e := echov4.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler
	e.JSONSerializer = strictJSONSerializer{}

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(RequestID())
	e.Use(middleware.Recover())
	e.Use(ContextMiddleware(ctx, opts.RequestTimeout))
	e.Use(RequestLogger())

	e.GET("/health", func(c echov4.Context) error {
		if pool := requestContext(c).Pool(); pool != nil {
			if err := pool.Ping(c.Request().Context()); err != nil {
				return api.WriteError(c, api.Errorf(api.EUNAVAILABLE, "database unreachable").WithDebugInfo("%v", err))
			}
		}
		return api.WriteStatus(c, "ok")
	})

	if opts.Metrics {
		e.GET("/metrics", echov4.WrapHandler(promhttp.Handler()))
	}

	if opts.Debug {
		AddDebugHandlers(e)
	}

	RegisterApplicationRoutes(e, opts.Service, Authenticate(opts.Verifier))
	return e
}

// Start serves on port until shutdown, draining in-flight requests first.
func Start(e *echov4.Echo, port int) error {
	shutdown.AddHookWithPriority("http server", shutdown.PriorityIngress, func() {
		ctx, cancel := gocontext.WithTimeout(gocontext.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(ctx); err != nil {
			logger.Errorf("error shutting down http server: %v", err)
		}
	})

	listenAddr := fmt.Sprintf(":%d", port)
	logger.Infof("listening on %s", listenAddr)
	if err := e.Start(listenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
