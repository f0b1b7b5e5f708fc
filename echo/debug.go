package echo

import (
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/flanksource/commons/logger"
	"github.com/flanksource/commons/properties"
	"github.com/flanksource/commons/timer"
	"github.com/labstack/echo/v4"

	"github.com/flanksource/gigs/shutdown"
)

// RestrictToLocalhost is a middleware that restricts access to localhost
func RestrictToLocalhost(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		remoteIP := net.ParseIP(c.RealIP())
		if remoteIP == nil {
			return echo.NewHTTPError(http.StatusForbidden, "Invalid IP address")
		}

		if !remoteIP.IsLoopback() {
			return echo.NewHTTPError(http.StatusForbidden, "Access restricted to localhost")
		}

		return next(c)
	}
}

// AddDebugHandlers mounts profiling and runtime tuning endpoints. All of them are loopback only.
func AddDebugHandlers(e *echo.Echo) {
	pprofGroup := e.Group("/debug/pprof", RestrictToLocalhost)
	pprofGroup.GET("/*", echo.WrapHandler(http.HandlerFunc(pprof.Index)))
	pprofGroup.GET("/cmdline*", echo.WrapHandler(http.HandlerFunc(pprof.Cmdline)))
	pprofGroup.GET("/profile*", echo.WrapHandler(http.HandlerFunc(pprof.Profile)))
	pprofGroup.GET("/symbol*", echo.WrapHandler(http.HandlerFunc(pprof.Symbol)))
	pprofGroup.GET("/trace*", echo.WrapHandler(http.HandlerFunc(pprof.Trace)))

	debug := e.Group("/debug", RestrictToLocalhost)

	debug.GET("/routes", func(c echo.Context) error {
		return c.JSON(http.StatusOK, e.Routes())
	})

	debug.GET("/loggers", func(c echo.Context) error {
		return c.JSON(http.StatusOK, logger.GetNamedLoggingLevels())
	})

	debug.POST("/loggers", setLogLevel)

	debug.GET("/properties", Properties)

	debug.POST("/property", func(c echo.Context) error {
		name := c.Request().FormValue("name")
		value := c.Request().FormValue("value")
		if name == "" || value == "" {
			return c.String(http.StatusBadRequest, "property name or value is missing")
		}
		properties.Set(name, value)
		return c.NoContent(http.StatusOK)
	})

	if period := properties.Duration(0, "memory.stats"); period > 0 {
		ticker := time.NewTicker(period)
		shutdown.AddHook(ticker.Stop)
		memory := timer.NewMemoryTimer()
		go func() {
			for range ticker.C {
				logger.GetLogger("memory").Infof("%s", memory.End())
			}
		}()
	}
}

// setLogLevel changes a named logger's level, optionally reverting it after duration.
func setLogLevel(c echo.Context) error {
	logName := c.Request().FormValue("logger")
	logLevel := c.Request().FormValue("level")
	if logName == "" || logLevel == "" {
		return c.String(http.StatusBadRequest, "logger name or level is missing")
	}

	currentLevel := logger.GetLogger(logName).GetLevel()
	if duration := c.Request().FormValue("duration"); duration != "" {
		revertAfter, err := time.ParseDuration(duration)
		if err != nil {
			return c.String(http.StatusBadRequest, fmt.Sprintf("invalid duration: %v", err))
		}
		logger.Infof("Setting logger %s level to %s for %v", logName, logLevel, revertAfter)
		time.AfterFunc(revertAfter, func() {
			logger.GetLogger(logName).SetLogLevel(currentLevel)
		})
	} else {
		logger.Infof("Setting logger %s level to %s", logName, logLevel)
	}

	logger.GetLogger(logName).SetLogLevel(logLevel)
	return c.String(http.StatusOK, fmt.Sprintf("Changed %s from %s to %s", logName, currentLevel, logLevel))
}
