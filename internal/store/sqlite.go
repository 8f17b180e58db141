package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/me/gosweep/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	// Runs finish concurrently; one connection serializes their writes.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// --- Batch operations ---

func (s *SQLiteStore) CreateBatch(ctx context.Context, b *model.Batch) error {
	s.logger.Debug("sql", "op", "insert", "table", "batches", "id", b.ID)

	state := b.State
	if state == "" {
		state = model.BatchStateRunning
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO batches (id, dir, workspace, report_path, analyzer, parallelism, state, total, succeeded, failed, created_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Dir, b.Workspace, b.ReportPath, b.Analyzer, b.Parallelism, string(state),
		b.Total, b.Succeeded, b.Failed,
		b.CreatedAt.UTC().Format(timeFormat), formatTime(b.CompletedAt),
	)
	return err
}

func (s *SQLiteStore) GetBatch(ctx context.Context, id string) (*model.Batch, error) {
	s.logger.Debug("sql", "op", "select", "table", "batches", "id", id)

	row := s.db.QueryRowContext(ctx,
		`SELECT id, dir, workspace, report_path, analyzer, parallelism, state, total, succeeded, failed, created_at, completed_at
		 FROM batches WHERE id = ?`, id)
	b, err := scanBatch(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *SQLiteStore) ListBatches(ctx context.Context, opts model.ListOptions) ([]*model.Batch, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "batches", "limit", opts.Limit, "offset", opts.Offset)
	opts.Clamp()

	var whereClauses []string
	var countArgs []any
	if opts.State != "" {
		whereClauses = append(whereClauses, "state = ?")
		countArgs = append(countArgs, opts.State)
	}
	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM batches`+whereSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := `SELECT id, dir, workspace, report_path, analyzer, parallelism, state, total, succeeded, failed, created_at, completed_at
		FROM batches` + whereSQL + ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	listArgs := append(countArgs, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var batches []*model.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, 0, err
		}
		batches = append(batches, b)
	}
	return batches, total, rows.Err()
}

func (s *SQLiteStore) UpdateBatch(ctx context.Context, b *model.Batch) error {
	s.logger.Debug("sql", "op", "update", "table", "batches", "id", b.ID)

	result, err := s.db.ExecContext(ctx,
		`UPDATE batches SET state=?, total=?, succeeded=?, failed=?, completed_at=? WHERE id=?`,
		string(b.State), b.Total, b.Succeeded, b.Failed, formatTime(b.CompletedAt), b.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("batch %s not found", b.ID)
	}
	return nil
}

// --- Run operations ---

// RecordRun inserts rec, replacing an earlier record of the same run.
func (s *SQLiteStore) RecordRun(ctx context.Context, rec *model.RunRecord) error {
	s.logger.Debug("sql", "op", "upsert", "table", "runs", "batch", rec.BatchID, "index", rec.Index)

	modifiedJSON, err := json.Marshal(rec.Modified)
	if err != nil {
		return fmt.Errorf("marshal modified: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (batch_id, run_index, config_path, log_path, modified, output, exit_status, succeeded, reason, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (batch_id, run_index) DO UPDATE SET
		   output=excluded.output, exit_status=excluded.exit_status, succeeded=excluded.succeeded,
		   reason=excluded.reason, started_at=excluded.started_at, finished_at=excluded.finished_at`,
		rec.BatchID, rec.Index, rec.ConfigPath, rec.LogPath, string(modifiedJSON),
		rec.Output, rec.ExitStatus, rec.Succeeded, string(rec.Reason),
		formatTime(rec.StartedAt), formatTime(rec.FinishedAt),
	)
	return err
}

// ListRuns returns the runs of a batch ordered by index.
func (s *SQLiteStore) ListRuns(ctx context.Context, batchID string) ([]*model.RunRecord, error) {
	s.logger.Debug("sql", "op", "list", "table", "runs", "batch", batchID)

	rows, err := s.db.QueryContext(ctx,
		`SELECT batch_id, run_index, config_path, log_path, modified, output, exit_status, succeeded, reason, started_at, finished_at
		 FROM runs WHERE batch_id = ? ORDER BY run_index`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*model.RunRecord
	for rows.Next() {
		var rec model.RunRecord
		var modifiedJSON, reason string
		var startedAt, finishedAt *string
		if err := rows.Scan(&rec.BatchID, &rec.Index, &rec.ConfigPath, &rec.LogPath, &modifiedJSON,
			&rec.Output, &rec.ExitStatus, &rec.Succeeded, &reason, &startedAt, &finishedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(modifiedJSON), &rec.Modified); err != nil {
			return nil, fmt.Errorf("unmarshal modified: %w", err)
		}
		rec.Reason = model.FailureReason(reason)
		rec.StartedAt = parseTime(startedAt)
		rec.FinishedAt = parseTime(finishedAt)
		runs = append(runs, &rec)
	}
	return runs, rows.Err()
}

// --- helpers ---

// timeFormat keeps a fixed-width fraction so stored timestamps sort as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

type scanner interface {
	Scan(dest ...any) error
}

func scanBatch(row scanner) (*model.Batch, error) {
	var b model.Batch
	var state, createdAt string
	var completedAt *string
	if err := row.Scan(&b.ID, &b.Dir, &b.Workspace, &b.ReportPath, &b.Analyzer, &b.Parallelism,
		&state, &b.Total, &b.Succeeded, &b.Failed, &createdAt, &completedAt); err != nil {
		return nil, err
	}
	b.State = model.BatchState(state)
	b.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	b.CompletedAt = parseTime(completedAt)
	return &b, nil
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(timeFormat)
	return &s
}

func parseTime(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, *s)
	if err != nil {
		return nil
	}
	return &t
}
