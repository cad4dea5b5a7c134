package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bookbuddy/internal/logging"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_renditions",
		SQL: `CREATE TABLE IF NOT EXISTS renditions (
  id           UUID        PRIMARY KEY,
  filename     TEXT        NOT NULL,
  title        TEXT        NOT NULL DEFAULT '',
  author       TEXT        NOT NULL DEFAULT '',
  format       TEXT        NOT NULL CHECK (format IN ('pdf', 'epub')),
  style        TEXT        NOT NULL,
  storage_path TEXT        NOT NULL UNIQUE,
  size         BIGINT      NOT NULL CHECK (size >= 0),
  content_type TEXT        NOT NULL,
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_renditions_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_renditions_created_at ON renditions (created_at);`,
	},
	{
		Name: "create_table_deliveries",
		SQL: `CREATE TABLE IF NOT EXISTS deliveries (
  id               UUID        PRIMARY KEY,
  session_id       TEXT        NOT NULL,
  source           TEXT        NOT NULL,
  destination      TEXT        NOT NULL,
  success          BOOLEAN     NOT NULL,
  status_code      INTEGER,
  response_excerpt TEXT        NOT NULL DEFAULT '',
  error            TEXT        NOT NULL DEFAULT '',
  payload_size     INTEGER     NOT NULL CHECK (payload_size >= 0),
  created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_deliveries_session_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_deliveries_session_created_at ON deliveries (session_id, created_at DESC);`,
	},
}

const sentinelQuery = "SELECT to_regclass('public.renditions') IS NOT NULL AND to_regclass('public.deliveries') IS NOT NULL"

// EnsureMigrated creates the schema unless both sentinel tables already exist.
func EnsureMigrated(ctx context.Context, db *sql.DB, log logging.Logger, dbHost string) error {
	start := time.Now()
	log = log.With("component", "database", "db_host", dbHost)

	log.Info(ctx, "db_migration_check", "status", "starting")

	var exists bool
	if err := db.QueryRowContext(ctx, sentinelQuery).Scan(&exists); err != nil {
		log.Error(ctx, "db_migration_failed",
			"status", "error",
			"error_message", fmt.Sprintf("failed to check sentinel tables: %v", err),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return fmt.Errorf("failed to check sentinel tables: %w", err)
	}

	if exists {
		log.Info(ctx, "db_migration_skip",
			"status", "success",
			"detail", "schema already exists, skipping migration",
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}

	log.Info(ctx, "db_migration_start", "status", "in_progress")

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error(ctx, "db_migration_failed",
				"status", "error",
				"migration_step", step.Name,
				"error_message", err.Error(),
				"duration_ms", time.Since(start).Milliseconds(),
				"step_duration_ms", time.Since(stepStart).Milliseconds(),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		log.Info(ctx, "db_migration_step",
			"status", "success",
			"migration_step", step.Name,
			"step_duration_ms", time.Since(stepStart).Milliseconds(),
		)
	}

	log.Info(ctx, "db_migration_success",
		"status", "success",
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
