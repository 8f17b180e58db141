package store

import (
	"context"
	"database/sql"
)

// schema contains the DDL for all ledger tables.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS batches (
		id           TEXT PRIMARY KEY,
		dir          TEXT NOT NULL,
		workspace    TEXT NOT NULL,
		report_path  TEXT NOT NULL,
		analyzer     TEXT NOT NULL DEFAULT '',
		parallelism  INTEGER NOT NULL,
		state        TEXT NOT NULL DEFAULT 'RUNNING',
		total        INTEGER NOT NULL DEFAULT 0,
		succeeded    INTEGER NOT NULL DEFAULT 0,
		failed       INTEGER NOT NULL DEFAULT 0,
		created_at   TEXT NOT NULL,
		completed_at TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS runs (
		batch_id    TEXT NOT NULL REFERENCES batches(id),
		run_index   INTEGER NOT NULL,
		config_path TEXT NOT NULL,
		log_path    TEXT NOT NULL,
		modified    TEXT NOT NULL DEFAULT '{}',
		output      TEXT NOT NULL DEFAULT '',
		exit_status INTEGER NOT NULL,
		succeeded   INTEGER NOT NULL DEFAULT 0,
		reason      TEXT NOT NULL DEFAULT '',
		started_at  TEXT,
		finished_at TEXT,
		PRIMARY KEY (batch_id, run_index)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_batches_state ON batches(state)`,
	`CREATE INDEX IF NOT EXISTS idx_batches_created_at ON batches(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_succeeded ON runs(batch_id, succeeded)`,
}

// migrate executes all schema DDL statements.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
