package migrate

import (
	"crypto/sha1"
	"database/sql"
	"errors"
	"fmt"

	"github.com/flanksource/commons/collections"
	"github.com/flanksource/commons/logger"
	"github.com/flanksource/commons/properties"
	"github.com/samber/oops"

	"github.com/flanksource/gigs/api"
	"github.com/flanksource/gigs/db"
	"github.com/flanksource/gigs/schema"
)

type MigrateOptions struct {
	Skip        bool // Skip running migrations
	IgnoreFiles []string
}

func RunMigrations(pool *sql.DB, config api.Config, opts ...MigrateOptions) error {
	l := logger.GetLogger("migrate")

	var options MigrateOptions
	for _, o := range opts {
		options.Skip = options.Skip || o.Skip
		options.IgnoreFiles = append(options.IgnoreFiles, o.IgnoreFiles...)
	}

	if options.Skip || config.SkipMigrations || properties.On(false, "db.migrate.skip") {
		l.Debugf("skipping migrations")
		return nil
	}

	if pool == nil {
		return errors.New("pool is nil")
	}

	var name string
	if err := pool.QueryRow("SELECT current_database();").Scan(&name); err != nil {
		return fmt.Errorf("failed to get current database: %w", err)
	}
	l.Infof("Migrating database %s", name)

	if err := createMigrationLogTable(pool); err != nil {
		return fmt.Errorf("failed to create migration log table: %w", err)
	}

	scripts, err := schema.GetScripts()
	if err != nil {
		return fmt.Errorf("failed to get schema scripts: %w", err)
	}

	executed, err := runScripts(pool, scripts, options.IgnoreFiles)
	if err != nil {
		return oops.Tags("migrate").Wrapf(err, "failed to run scripts")
	}
	l.V(3).Infof("Ran %d scripts", len(executed))

	return nil
}

// runScripts runs the given scripts in dependency order & returns the ones that were ran.
// A script is skipped when its hash matches the last recorded run, unless it is marked
// with "-- runs: always".
func runScripts(pool *sql.DB, scripts map[string]string, ignoreFiles []string) ([]string, error) {
	l := logger.GetLogger("migrate")

	filtered := make(map[string]string, len(scripts))
	for name, content := range scripts {
		if collections.Contains(ignoreFiles, name) {
			continue
		}
		filtered[name] = content
	}

	filenames, err := orderScripts(filtered)
	if err != nil {
		return nil, err
	}

	var executed []string
	for _, file := range filenames {
		content := filtered[file]
		hash := sha1.Sum([]byte(content))

		if !isMarkedForAlwaysRun(content) {
			var currentHash []byte
			if err := pool.QueryRow("SELECT hash FROM migration_logs WHERE path = $1", file).Scan(&currentHash); err != nil && !errors.Is(err, sql.ErrNoRows) {
				return nil, err
			}

			if string(hash[:]) == string(currentHash) {
				l.V(3).Infof("Skipping script %s", file)
				continue
			}
		}

		l.Tracef("running script %s", file)
		executed = append(executed, file)

		if _, err := pool.Exec(content); err != nil {
			return nil, fmt.Errorf("failed to run script %s: %w", file, db.ErrorDetails(err))
		}

		if _, err := pool.Exec("INSERT INTO migration_logs(path, hash) VALUES($1, $2) ON CONFLICT (path) DO UPDATE SET hash = $2, updated_at = NOW()", file, hash[:]); err != nil {
			return nil, fmt.Errorf("failed to save migration log %s: %w", file, err)
		}
	}

	return executed, nil
}

func createMigrationLogTable(pool *sql.DB) error {
	query := `CREATE TABLE IF NOT EXISTS migration_logs (
		path VARCHAR(255) NOT NULL,
		hash bytea NOT NULL,
		updated_at TIMESTAMPTZ DEFAULT NOW() NOT NULL,
		PRIMARY KEY (path)
	)`
	_, err := pool.Exec(query)
	return err
}
