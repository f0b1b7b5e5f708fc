package gorm

import (
	"context"
	"errors"
	"time"

	"github.com/flanksource/commons/logger"
	gLogger "gorm.io/gorm/logger"
)

const (
	Silent = "silent"
	Error  = "error"
	Warn   = "warn"
	Info   = "info"
	Debug  = "debug"
	Trace  = "trace"
)

type gormLogger struct {
	logger                    logger.Logger
	LogLevel                  gLogger.LogLevel
	SlowThreshold             time.Duration
	IgnoreRecordNotFoundError bool
	parameterized             bool
}

// NewGormLogger routes gorm's SQL logging through the "db" logger.
// debug logs statements with placeholders, trace logs them with bound values.
func NewGormLogger(level string) gLogger.Interface {
	l := &gormLogger{
		logger:                    logger.GetLogger("db"),
		SlowThreshold:             time.Second,
		IgnoreRecordNotFoundError: true,
		parameterized:             level != Trace,
	}
	return l.LogMode(ParseLevel(level))
}

func ParseLevel(level string) gLogger.LogLevel {
	switch level {
	case Silent:
		return gLogger.Silent
	case Warn:
		return gLogger.Warn
	case Info, Debug, Trace:
		return gLogger.Info
	default:
		return gLogger.Error
	}
}

func (l *gormLogger) LogMode(level gLogger.LogLevel) gLogger.Interface {
	clone := *l
	clone.LogLevel = level
	return &clone
}

// ParamsFilter hides bound values unless trace logging was requested.
func (l *gormLogger) ParamsFilter(ctx context.Context, sql string, params ...interface{}) (string, []interface{}) {
	if l.parameterized {
		return sql, nil
	}
	return sql, params
}

func (l *gormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gLogger.Info {
		l.logger.Infof(msg, data...)
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gLogger.Warn {
		l.logger.Warnf(msg, data...)
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gLogger.Error {
		l.logger.Errorf(msg, data...)
	}
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.LogLevel <= gLogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && l.LogLevel >= gLogger.Error && (!errors.Is(err, gLogger.ErrRecordNotFound) || !l.IgnoreRecordNotFoundError):
		sql, rows := fc()
		l.logger.WithValues("rows", rows, "elapsed", elapsed.String()).Errorf("%s: %v", sql, err)
	case elapsed > l.SlowThreshold && l.SlowThreshold != 0 && l.LogLevel >= gLogger.Warn:
		sql, rows := fc()
		l.logger.WithValues("slow", l.SlowThreshold.String(), "rows", rows, "elapsed", elapsed.String()).Warnf("%s", sql)
	case l.LogLevel == gLogger.Info:
		sql, rows := fc()
		l.logger.WithValues("rows", rows, "elapsed", elapsed.String()).Infof("%s", sql)
	}
}
