package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrDuplicateCheckIn is returned when a worker already checked in that day.
	ErrDuplicateCheckIn = errors.New("worker already checked in for this date")
	// ErrPlanNotFound is returned for unknown plan ids.
	ErrPlanNotFound = errors.New("rehabilitation plan not found")
	// ErrPlanNotActive is returned when a terminal plan is asked to transition.
	ErrPlanNotActive = errors.New("rehabilitation plan is not active")
	// ErrActivePlanExists is returned when a worker already has an active plan.
	ErrActivePlanExists = errors.New("worker already has an active rehabilitation plan")
)

const (
	instantLayout = "2006-01-02T15:04:05Z07:00"
)

type Database struct {
	db *sql.DB
}

func New(path string) (*Database, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	database := &Database{db: db}
	if err := database.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	return database, nil
}

func (d *Database) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS schedules (
			worker_id TEXT NOT NULL,
			date TEXT NOT NULL,
			shift_type TEXT NOT NULL,
			shift_start TEXT NOT NULL,
			shift_end TEXT NOT NULL,
			PRIMARY KEY (worker_id, date)
		)`,
		`CREATE TABLE IF NOT EXISTS exceptions (
			id TEXT PRIMARY KEY,
			worker_id TEXT NOT NULL,
			exception_type TEXT NOT NULL,
			start_date TEXT NOT NULL,
			end_date TEXT,
			reason TEXT,
			case_status TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS check_ins (
			id TEXT PRIMARY KEY,
			worker_id TEXT NOT NULL,
			date TEXT NOT NULL,
			checked_in_at TEXT NOT NULL,
			predicted_readiness TEXT NOT NULL,
			shift_type TEXT,
			UNIQUE (worker_id, date)
		)`,
		`CREATE TABLE IF NOT EXISTS rehab_plans (
			id TEXT PRIMARY KEY,
			worker_id TEXT NOT NULL,
			start_date TEXT NOT NULL,
			duration_days INTEGER NOT NULL,
			status TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS plan_exercises (
			plan_id TEXT NOT NULL REFERENCES rehab_plans(id) ON DELETE CASCADE,
			id TEXT NOT NULL,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			repetitions INTEGER DEFAULT 0,
			instructions TEXT,
			PRIMARY KEY (plan_id, id)
		)`,
		`CREATE TABLE IF NOT EXISTS exercise_completions (
			plan_id TEXT NOT NULL REFERENCES rehab_plans(id) ON DELETE CASCADE,
			date TEXT NOT NULL,
			exercise_id TEXT NOT NULL,
			PRIMARY KEY (plan_id, date, exercise_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_exceptions_worker ON exceptions(worker_id, start_date)`,
		`CREATE INDEX IF NOT EXISTS idx_check_ins_worker_date ON check_ins(worker_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_rehab_plans_worker ON rehab_plans(worker_id, status)`,
	}

	for _, query := range queries {
		if _, err := d.db.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// withTx runs fn inside a transaction, rolling back on error.
func (d *Database) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: commit: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
