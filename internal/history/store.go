package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists job history in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}

	db, err := sql.Open("sqlite", dataSourceName(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Batch workers record jobs concurrently; one connection serializes them
	// inside the process and busy_timeout covers other ffkit processes.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// dataSourceName applies the pragmas on every connection the pool opens.
func dataSourceName(path string) string {
	query := url.Values{}
	query.Add("_pragma", "busy_timeout(5000)")
	query.Add("_pragma", "journal_mode(WAL)")
	return "file:" + path + "?" + query.Encode()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Start inserts job in the running state and returns its ID.
func (s *Store) Start(ctx context.Context, job Job) (int64, error) {
	if strings.TrimSpace(job.InputPath) == "" {
		return 0, errors.New("job input path is required")
	}
	if job.Kind == "" {
		return 0, errors.New("job kind is required")
	}
	if job.StartedAt.IsZero() {
		job.StartedAt = time.Now()
	}
	argsJSON, err := marshalArgs(job.Args)
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (
            run_id, kind, input_path, output_path, status, profile,
            args_json, input_bytes, started_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableString(job.RunID),
		string(job.Kind),
		job.InputPath,
		nullableString(job.OutputPath),
		StatusRunning,
		nullableString(job.Profile),
		argsJSON,
		job.InputBytes,
		formatTime(job.StartedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// Finish records the outcome of a started job.
func (s *Store) Finish(ctx context.Context, id int64, outcome Outcome) error {
	if outcome.Status == "" || outcome.Status == StatusRunning {
		return fmt.Errorf("finish job %d: terminal status required, got %q", id, outcome.Status)
	}
	argsJSON, err := marshalArgs(outcome.Args)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs
         SET status = ?, output_path = COALESCE(?, output_path), error_kind = ?, error_message = ?,
             output_bytes = ?, duration_ms = ?, args_json = COALESCE(?, args_json), finished_at = ?
         WHERE id = ?`,
		outcome.Status,
		nullableString(outcome.OutputPath),
		nullableString(outcome.ErrorKind),
		nullableString(outcome.ErrorMessage),
		outcome.OutputBytes,
		outcome.Duration.Milliseconds(),
		argsJSON,
		formatTime(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("finish job %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish job %d: %w", id, sql.ErrNoRows)
	}
	return nil
}

// Get fetches a job by identifier. A missing job returns nil, nil.
func (s *Store) Get(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns jobs matching filter, newest first.
func (s *Store) List(ctx context.Context, filter Filter) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	var (
		clauses []string
		args    []any
	)
	if filter.RunID != "" {
		clauses = append(clauses, "run_id = ?")
		args = append(args, filter.RunID)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Input != "" {
		clauses = append(clauses, "input_path = ?")
		args = append(args, filter.Input)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY started_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("history stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Runs summarizes the most recent batch runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT run_id, COUNT(1),
               SUM(CASE WHEN status = ? THEN 1 ELSE 0 END),
               SUM(CASE WHEN status = ? THEN 1 ELSE 0 END),
               SUM(input_bytes), SUM(output_bytes), SUM(duration_ms), MIN(started_at)
        FROM jobs
        WHERE run_id IS NOT NULL
        GROUP BY run_id
        ORDER BY MIN(started_at) DESC
        LIMIT ?`,
		StatusSucceeded, StatusFailed, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			summary    RunSummary
			durationMS int64
			startedRaw string
		)
		if err := rows.Scan(&summary.RunID, &summary.Jobs, &summary.Succeeded, &summary.Failed,
			&summary.InputBytes, &summary.OutputBytes, &durationMS, &startedRaw); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		summary.Duration = time.Duration(durationMS) * time.Millisecond
		if ts, err := parseTimeString(startedRaw); err == nil {
			summary.StartedAt = ts
		}
		runs = append(runs, summary)
	}
	return runs, rows.Err()
}

// ResetRunning marks jobs left running by an interrupted process as failed.
func (s *Store) ResetRunning(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET status = ?, error_kind = ?, error_message = ?, finished_at = ? WHERE status = ?`,
		StatusFailed, "interrupted", "process exited before the job finished", formatTime(time.Now()), StatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("reset running jobs: %w", err)
	}
	return res.RowsAffected()
}

// Prune deletes finished jobs that started before cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM jobs WHERE status != ? AND started_at < ?`,
		StatusRunning, formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("prune jobs: %w", err)
	}
	return res.RowsAffected()
}

func marshalArgs(args []string) (any, error) {
	if len(args) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal args: %w", err)
	}
	return string(data), nil
}
