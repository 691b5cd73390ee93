package core

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hychen/redspot/pkg/api"
)

// Store is the SQLite-backed run-history ledger. Recording lives in the
// CLI dispatcher, never in the runner.
type Store struct{ db *sql.DB }

//go:embed migrations/*.sql
var migrationFS embed.FS

func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema, err := migrationFS.ReadFile("migrations/0001_init.sql")
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(string(schema)); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return errors.New("db not initialized")
	}
	return s.db.PingContext(ctx)
}

// RecordStart inserts a running row for a task invocation.
func (s *Store) RecordStart(ctx context.Context, id, task, network string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO task_runs (id, task, network, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, task, network, string(api.RunRunning), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record start: %w", err)
	}
	return nil
}

// RecordFinish closes a row with the final status and optional error text.
func (s *Store) RecordFinish(ctx context.Context, id string, status api.RunStatus, errMsg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE task_runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(status), errMsg, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("record finish: %w", err)
	}
	return nil
}

// Recent returns the most recent runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]api.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task, network, status, error, started_at, finished_at
		 FROM task_runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []api.RunRecord
	for rows.Next() {
		var r api.RunRecord
		var status string
		if err := rows.Scan(&r.ID, &r.Task, &r.Network, &status, &r.Error, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		r.Status = api.RunStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
