// Package storage archives completed research runs in SQLite.
//
// Information Hiding:
// - SQLite connection management hidden behind the Archive type
// - Schema details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/richinex/delver/model"
)

// RunSummary is one archived run as listed by List.
type RunSummary struct {
	RunID       string
	Question    string
	Status      model.Status
	Iterations  int
	Sources     int
	CompletedAt time.Time
}

// Archive stores completed research runs. The research loop itself runs
// entirely in memory; the archive only records terminal results.
type Archive struct {
	db *sql.DB
}

// Open opens or creates an archive database at the given path.
// Creates parent directories if they don't exist.
func Open(path string) (*Archive, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	archive := &Archive{db: db}
	if err := archive.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return archive, nil
}

// OpenInMemory creates an in-memory archive (useful for testing).
func OpenInMemory() (*Archive, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}

	archive := &Archive{db: db}
	if err := archive.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return archive, nil
}

// Close closes the database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

func (a *Archive) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			question TEXT NOT NULL,
			status TEXT NOT NULL,
			iterations INTEGER NOT NULL,
			sources INTEGER NOT NULL,
			completed_at INTEGER NOT NULL,
			result TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_runs_completed
		ON runs(completed_at DESC);
	`

	_, err := a.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save archives a terminal research result. The full result is stored as
// JSON alongside indexed summary columns.
func (a *Archive) Save(ctx context.Context, result model.Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to serialize result: %w", err)
	}

	_, err = a.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
		(run_id, question, status, iterations, sources, completed_at, result)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.RunID,
		result.Question,
		result.Status.String(),
		result.Iterations,
		result.TotalSources,
		result.CompletedAt.Unix(),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to store run: %w", err)
	}
	return nil
}

// Get loads an archived run by id. Returns nil, nil if not found.
func (a *Archive) Get(ctx context.Context, runID string) (*model.Result, error) {
	var payload string
	err := a.db.QueryRowContext(ctx,
		"SELECT result FROM runs WHERE run_id = ?", runID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var result model.Result
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("invalid run payload in database: %w", err)
	}
	return &result, nil
}

// List returns archived run summaries, most recent first.
func (a *Archive) List(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT run_id, question, status, iterations, sources, completed_at
		FROM runs
		ORDER BY completed_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	summaries := []RunSummary{} // Start with empty slice, not nil
	for rows.Next() {
		var s RunSummary
		var statusStr string
		var completedAt int64
		if err := rows.Scan(&s.RunID, &s.Question, &statusStr, &s.Iterations, &s.Sources, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		status, err := model.ParseStatus(statusStr)
		if err != nil {
			// Invalid status in database indicates data corruption or
			// schema mismatch. Return error rather than silently defaulting.
			return nil, fmt.Errorf("invalid status %q in database: %w", statusStr, err)
		}
		s.Status = status
		s.CompletedAt = time.Unix(completedAt, 0)
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return summaries, nil
}

// Delete removes an archived run.
func (a *Archive) Delete(ctx context.Context, runID string) error {
	_, err := a.db.ExecContext(ctx, "DELETE FROM runs WHERE run_id = ?", runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}
