package migration

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed sql/*.sql
var embedded embed.FS

// Migrations returns the versioned schema of the catalog store.
func Migrations() fs.FS {
	sub, err := fs.Sub(embedded, "sql")
	if err != nil {
		// embedded path is fixed at compile time
		panic(err)
	}
	return sub
}

// Up brings the schema to the latest version. Already applied versions are skipped,
// so running it against an up-to-date database is a no-op.
func Up(ctx context.Context, db *sql.DB, log *zap.Logger) error {
	start := time.Now()
	log = log.With(zap.String("component", "database"))

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, Migrations())
	if err != nil {
		log.Error("db_migration_failed",
			zap.String("status", "error"),
			zap.Error(err),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return fmt.Errorf("create migration provider: %w", err)
	}

	pending, err := provider.HasPending(ctx)
	if err != nil {
		log.Error("db_migration_failed",
			zap.String("status", "error"),
			zap.Error(err),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return fmt.Errorf("check pending migrations: %w", err)
	}
	if !pending {
		log.Debug("db_migration_skip",
			zap.String("status", "success"),
			zap.String("msg", "schema is up to date"),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil
	}

	log.Info("db_migration_start", zap.String("status", "in_progress"))

	results, err := provider.Up(ctx)
	if err != nil {
		var partial *goose.PartialError
		if errors.As(err, &partial) {
			logSteps(log, partial.Applied)
			if partial.Failed != nil && partial.Failed.Source != nil {
				log.Error("db_migration_failed",
					zap.String("status", "error"),
					zap.String("migration_step", partial.Failed.Source.Path),
					zap.Error(partial.Err),
					zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				)
				return fmt.Errorf("migration step %s failed: %w", partial.Failed.Source.Path, partial.Err)
			}
		}
		log.Error("db_migration_failed",
			zap.String("status", "error"),
			zap.Error(err),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return fmt.Errorf("apply migrations: %w", err)
	}
	logSteps(log, results)

	log.Info("db_migration_success",
		zap.String("status", "success"),
		zap.Int("applied", len(results)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return nil
}

// Version reports the schema version currently recorded in the database.
func Version(ctx context.Context, db *sql.DB) (int64, error) {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, Migrations())
	if err != nil {
		return 0, fmt.Errorf("create migration provider: %w", err)
	}
	return provider.GetDBVersion(ctx)
}

func logSteps(log *zap.Logger, results []*goose.MigrationResult) {
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		log.Info("db_migration_step",
			zap.String("status", "success"),
			zap.String("migration_step", r.Source.Path),
			zap.Int64("version", r.Source.Version),
			zap.Int64("step_duration_ms", r.Duration.Milliseconds()),
		)
	}
}
