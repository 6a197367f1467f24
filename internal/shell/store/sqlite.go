package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeLayout sorts lexically in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// =============================================================================
// Executor Interface - Shared by DB and Transaction
// =============================================================================

// executor abstracts database operations that can be performed on both
// a database connection and a transaction.
type executor interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore creates a new SQLite store and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to open database", ErrConnectionFailed)
	}
	// one connection keeps ":memory:" databases and writers consistent
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) RecordRun(ctx context.Context, run *Run) error {
	return recordRun(ctx, s.db, run)
}

func (s *SQLiteStore) FinishRun(ctx context.Context, id string, status RunStatus, message string, containers []RunContainer, finishedAt time.Time) error {
	return s.WithTx(ctx, func(tx Store) error {
		return tx.FinishRun(ctx, id, status, message, containers, finishedAt)
	})
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	return getRun(ctx, s.db, id)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, group string, opts ListOptions) ([]Run, error) {
	return listRuns(ctx, s.db, group, opts)
}

// =============================================================================
// Transaction Support
// =============================================================================

func (s *SQLiteStore) WithTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return NewStoreError("WithTx", "", "", "failed to begin transaction", ErrTxFailed)
	}

	txS := &txSQLiteStore{tx: tx}

	if err := fn(txS); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return NewStoreError("WithTx", "", "", fmt.Sprintf("rollback failed after error: %v", err), ErrTxFailed)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return NewStoreError("WithTx", "", "", "failed to commit transaction", ErrTxFailed)
	}

	return nil
}

// =============================================================================
// Transaction Store
// =============================================================================

// txSQLiteStore implements Store within a transaction.
type txSQLiteStore struct {
	tx *sqlx.Tx
}

func (s *txSQLiteStore) RecordRun(ctx context.Context, run *Run) error {
	return recordRun(ctx, s.tx, run)
}

func (s *txSQLiteStore) FinishRun(ctx context.Context, id string, status RunStatus, message string, containers []RunContainer, finishedAt time.Time) error {
	return finishRun(ctx, s.tx, id, status, message, containers, finishedAt)
}

func (s *txSQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	return getRun(ctx, s.tx, id)
}

func (s *txSQLiteStore) ListRuns(ctx context.Context, group string, opts ListOptions) ([]Run, error) {
	return listRuns(ctx, s.tx, group, opts)
}

// WithTx runs fn in the current transaction.
func (s *txSQLiteStore) WithTx(_ context.Context, fn func(Store) error) error {
	return fn(s)
}

func (s *txSQLiteStore) Close() error {
	return nil
}

// =============================================================================
// Run Operations
// =============================================================================

// runRow represents a run row in the database.
type runRow struct {
	ID         string  `db:"id"`
	Group      string  `db:"group_name"`
	Backend    string  `db:"backend"`
	Action     string  `db:"action"`
	Status     string  `db:"status"`
	Message    string  `db:"message"`
	StartedAt  string  `db:"started_at"`
	FinishedAt *string `db:"finished_at"`
}

// runContainerRow represents a run container row in the database.
type runContainerRow struct {
	RunID       string `db:"run_id"`
	Name        string `db:"name"`
	ContainerID string `db:"container_id"`
	Outcome     string `db:"outcome"`
}

func recordRun(ctx context.Context, exec executor, run *Run) error {
	if run == nil || run.ID == "" || run.Group == "" {
		return NewStoreError("RecordRun", "run", "", "run needs an ID and a group", ErrInvalidRun)
	}
	if run.Status == "" {
		run.Status = RunStatusRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	query := `
		INSERT INTO apply_runs (id, group_name, backend, action, status, message, started_at)
		VALUES (:id, :group_name, :backend, :action, :status, :message, :started_at)`

	row := map[string]any{
		"id":         run.ID,
		"group_name": run.Group,
		"backend":    run.Backend,
		"action":     string(run.Action),
		"status":     string(run.Status),
		"message":    run.Message,
		"started_at": run.StartedAt.UTC().Format(timeLayout),
	}

	_, err := exec.NamedExecContext(ctx, query, row)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: apply_runs.id") {
			return NewStoreError("RecordRun", "run", run.ID, "run with this ID already exists", ErrDuplicateID)
		}
		if strings.Contains(err.Error(), "CHECK constraint failed") {
			return NewStoreError("RecordRun", "run", run.ID, err.Error(), ErrInvalidRun)
		}
		return NewStoreError("RecordRun", "run", run.ID, err.Error(), err)
	}

	return nil
}

func finishRun(ctx context.Context, exec executor, id string, status RunStatus, message string, containers []RunContainer, finishedAt time.Time) error {
	if status == RunStatusRunning {
		return NewStoreError("FinishRun", "run", id, "final status must not be running", ErrInvalidRun)
	}

	current, err := getRun(ctx, exec, id)
	if err != nil {
		return NewStoreError("FinishRun", "run", id, err.Error(), err)
	}
	if current.Status != RunStatusRunning {
		return NewStoreError("FinishRun", "run", id, "run is "+string(current.Status), ErrAlreadyFinished)
	}

	query := `UPDATE apply_runs SET status = ?, message = ?, finished_at = ? WHERE id = ?`
	if _, err := exec.ExecContext(ctx, query, string(status), message, finishedAt.UTC().Format(timeLayout), id); err != nil {
		if strings.Contains(err.Error(), "CHECK constraint failed") {
			return NewStoreError("FinishRun", "run", id, err.Error(), ErrInvalidRun)
		}
		return NewStoreError("FinishRun", "run", id, err.Error(), err)
	}

	for _, c := range containers {
		row := map[string]any{
			"run_id":       id,
			"name":         c.Name,
			"container_id": c.ContainerID,
			"outcome":      c.Outcome,
		}
		_, err := exec.NamedExecContext(ctx, `
			INSERT INTO apply_run_containers (run_id, name, container_id, outcome)
			VALUES (:run_id, :name, :container_id, :outcome)`, row)
		if err != nil {
			return NewStoreError("FinishRun", "run", id, fmt.Sprintf("failed to record container %s: %v", c.Name, err), err)
		}
	}

	return nil
}

func getRun(ctx context.Context, exec executor, id string) (*Run, error) {
	var row runRow
	err := exec.GetContext(ctx, &row, `SELECT * FROM apply_runs WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetRun", "run", id, "run not found", ErrNotFound)
		}
		return nil, NewStoreError("GetRun", "run", id, err.Error(), err)
	}

	run, err := rowToRun(&row)
	if err != nil {
		return nil, err
	}

	var containers []runContainerRow
	err = exec.SelectContext(ctx, &containers,
		`SELECT * FROM apply_run_containers WHERE run_id = ? ORDER BY name`, id)
	if err != nil {
		return nil, NewStoreError("GetRun", "run", id, err.Error(), err)
	}
	for _, c := range containers {
		run.Containers = append(run.Containers, RunContainer{
			Name:        c.Name,
			ContainerID: c.ContainerID,
			Outcome:     c.Outcome,
		})
	}

	return run, nil
}

func listRuns(ctx context.Context, exec executor, group string, opts ListOptions) ([]Run, error) {
	opts = opts.Normalize()

	var (
		rows []runRow
		err  error
	)
	if group == "" {
		err = exec.SelectContext(ctx, &rows,
			`SELECT * FROM apply_runs ORDER BY started_at DESC, rowid DESC LIMIT ? OFFSET ?`,
			opts.Limit, opts.Offset)
	} else {
		err = exec.SelectContext(ctx, &rows,
			`SELECT * FROM apply_runs WHERE group_name = ? ORDER BY started_at DESC, rowid DESC LIMIT ? OFFSET ?`,
			group, opts.Limit, opts.Offset)
	}
	if err != nil {
		return nil, NewStoreError("ListRuns", "run", group, err.Error(), err)
	}

	runs := make([]Run, 0, len(rows))
	for i := range rows {
		run, err := rowToRun(&rows[i])
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, nil
}

func rowToRun(row *runRow) (*Run, error) {
	startedAt, err := time.Parse(timeLayout, row.StartedAt)
	if err != nil {
		return nil, NewStoreError("rowToRun", "run", row.ID, "invalid started_at", err)
	}
	run := &Run{
		ID:        row.ID,
		Group:     row.Group,
		Backend:   row.Backend,
		Action:    Action(row.Action),
		Status:    RunStatus(row.Status),
		Message:   row.Message,
		StartedAt: startedAt,
	}
	if row.FinishedAt != nil {
		finishedAt, err := time.Parse(timeLayout, *row.FinishedAt)
		if err != nil {
			return nil, NewStoreError("rowToRun", "run", row.ID, "invalid finished_at", err)
		}
		run.FinishedAt = &finishedAt
	}
	return run, nil
}
