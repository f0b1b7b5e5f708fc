package gigs

import (
	gocontext "context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/flanksource/commons/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/sethvargo/go-retry"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/prometheus"

	"github.com/flanksource/gigs/api"
	"github.com/flanksource/gigs/context"
	"github.com/flanksource/gigs/db"
	gigsgorm "github.com/flanksource/gigs/gorm"
	"github.com/flanksource/gigs/migrate"
)

func DefaultGormConfig(logLevel string) *gorm.Config {
	return &gorm.Config{
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		Logger: gigsgorm.NewGormLogger(logLevel),
	}
}

// NewPgxPool opens the process-wide pool, retrying the first ping while the database starts up.
func NewPgxPool(config api.Config) (*pgxpool.Pool, error) {
	pgUrl, err := url.Parse(config.ConnectionString)
	if err != nil {
		return nil, err
	}
	logger.Infof("Connecting to %s", pgUrl.Redacted())

	poolConfig, err := pgxpool.ParseConfig(config.ConnectionString)
	if err != nil {
		return nil, err
	}
	if config.DB.MaxConns > 0 {
		poolConfig.MaxConns = config.DB.MaxConns
	}
	if config.DB.MinConns > 0 {
		poolConfig.MinConns = config.DB.MinConns
	}
	poolConfig.ConnConfig.Tracer = otelpgx.NewTracer()

	pool, err := pgxpool.NewWithConfig(gocontext.Background(), poolConfig)
	if err != nil {
		return nil, err
	}

	backoff := retry.WithMaxRetries(5, retry.NewExponential(500*time.Millisecond))
	if err := retry.Do(gocontext.Background(), backoff, func(ctx gocontext.Context) error {
		if err := pool.Ping(ctx); err != nil {
			logger.Warnf("database not ready: %v", err)
			return retry.RetryableError(err)
		}
		return nil
	}); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	var size string
	if err := pool.QueryRow(gocontext.Background(), "SELECT pg_size_pretty(pg_database_size($1))", poolConfig.ConnConfig.Database).Scan(&size); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Infof("Initialized DB: %s (%s, pool=%d-%d)", poolConfig.ConnConfig.Host, size, poolConfig.MinConns, poolConfig.MaxConns)
	return pool, nil
}

// NewGorm shares pool with gorm so both draw from the same connection limit.
func NewGorm(pool *pgxpool.Pool, config api.Config) (*gorm.DB, error) {
	gormDB, err := gorm.Open(
		gormpostgres.New(gormpostgres.Config{Conn: stdlib.OpenDBFromPool(pool)}),
		DefaultGormConfig(config.LogLevel),
	)
	if err != nil {
		return nil, err
	}

	if err := gormDB.Use(db.NewOopsPlugin()); err != nil {
		return nil, err
	}

	if config.Metrics {
		if err := gormDB.Use(prometheus.New(prometheus.Config{
			DBName:      pool.Config().ConnConfig.Database,
			StartServer: false,
			MetricsCollector: []prometheus.MetricsCollector{
				&prometheus.Postgres{},
			},
		})); err != nil {
			return nil, fmt.Errorf("failed to register prometheus metrics: %w", err)
		}
	}

	return gormDB, nil
}

// Migrate applies the embedded schema over a dedicated connection.
func Migrate(config api.Config, opts ...migrate.MigrateOptions) error {
	conn, err := sql.Open("pgx", config.ConnectionString)
	if err != nil {
		return err
	}
	defer conn.Close()

	return migrate.RunMigrations(conn, config, opts...)
}

// InitDB connects, migrates and returns a context carrying both database handles.
func InitDB(config api.Config) (*context.Context, error) {
	pool, err := NewPgxPool(config)
	if err != nil {
		return nil, err
	}

	if err := Migrate(config); err != nil {
		pool.Close()
		return nil, err
	}

	gormDB, err := NewGorm(pool, config)
	if err != nil {
		pool.Close()
		return nil, err
	}

	ctx := context.New().WithDB(gormDB, pool)
	return &ctx, nil
}
