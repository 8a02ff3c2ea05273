package runledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"remake/internal/config"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Run is one ledger row.
type Run struct {
	ID            string
	SourceLocator string
	SourceID      string
	Goal          string
	TargetSeconds float64
	Status        string
	CurrentStage  string
	QAScore       int
	QAPassed      bool
	OutputPath    string
	WorkDir       string
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	FinishedAt    time.Time
}

// Store manages run history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    source_locator TEXT NOT NULL,
    source_id TEXT NOT NULL DEFAULT '',
    goal TEXT NOT NULL DEFAULT '',
    target_seconds REAL NOT NULL DEFAULT 0,
    status TEXT NOT NULL,
    current_stage TEXT NOT NULL DEFAULT '',
    qa_score INTEGER NOT NULL DEFAULT 0,
    qa_passed INTEGER NOT NULL DEFAULT 0,
    output_path TEXT NOT NULL DEFAULT '',
    work_dir TEXT NOT NULL DEFAULT '',
    error_message TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    finished_at TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

// Open initializes or connects to the ledger database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.DataDir, "runs.db"))
}

// OpenPath connects to the ledger database at an explicit path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// StartRun inserts a new running entry.
func (s *Store) StartRun(ctx context.Context, run Run) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (
            id, source_locator, source_id, goal, target_seconds, status,
            current_stage, work_dir, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.SourceLocator,
		run.SourceID,
		run.Goal,
		run.TargetSeconds,
		StatusRunning,
		run.CurrentStage,
		run.WorkDir,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// UpdateStage records stage progress for a running entry.
func (s *Store) UpdateStage(ctx context.Context, runID, stage string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE runs SET current_stage = ?, updated_at = ? WHERE id = ?`,
		stage, now, runID,
	)
	if err != nil {
		return fmt.Errorf("update stage: %w", err)
	}
	return nil
}

// FinishRun marks a run as succeeded with its verification outcome.
func (s *Store) FinishRun(ctx context.Context, runID string, qaScore int, qaPassed bool, outputPath string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE runs SET status = ?, qa_score = ?, qa_passed = ?, output_path = ?,
            updated_at = ?, finished_at = ? WHERE id = ?`,
		StatusSucceeded, qaScore, boolToInt(qaPassed), outputPath, now, now, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// FailRun marks a run as failed with the terminal error.
func (s *Store) FailRun(ctx context.Context, runID, stage, message string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE runs SET status = ?, current_stage = ?, error_message = ?,
            updated_at = ?, finished_at = ? WHERE id = ?`,
		StatusFailed, stage, strings.TrimSpace(message), now, now, runID,
	)
	if err != nil {
		return fmt.Errorf("fail run: %w", err)
	}
	return nil
}

// GetRun fetches a single entry by id.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRecent returns the most recent entries, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

const selectColumns = `SELECT id, source_locator, source_id, goal, target_seconds, status,
    current_stage, qa_score, qa_passed, output_path, work_dir, error_message,
    created_at, updated_at, finished_at FROM runs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var qaPassed int
	var createdAt, updatedAt, finishedAt string
	err := row.Scan(
		&run.ID,
		&run.SourceLocator,
		&run.SourceID,
		&run.Goal,
		&run.TargetSeconds,
		&run.Status,
		&run.CurrentStage,
		&run.QAScore,
		&qaPassed,
		&run.OutputPath,
		&run.WorkDir,
		&run.ErrorMessage,
		&createdAt,
		&updatedAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}
	run.QAPassed = qaPassed != 0
	run.CreatedAt = parseTimestamp(createdAt)
	run.UpdatedAt = parseTimestamp(updatedAt)
	run.FinishedAt = parseTimestamp(finishedAt)
	return &run, nil
}

func parseTimestamp(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
