package migration

import (
	"context"

	"jtpadensity/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Statements returns the DDL in execution order. Every statement is idempotent.
func (r *MigrationRunner) Statements() []string {
	return []string{
		createRunsTable,
		createSummaryCellsTable,
		createDensityRecordsTable,
		createIndexes,
	}
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range r.Statements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "migration failed"))
		}
	}
	return nil
}

const createRunsTable = `
	CREATE TABLE IF NOT EXISTS runs (
		run_id UUID PRIMARY KEY,
		input_file TEXT NOT NULL,
		input_hash VARCHAR(64) NOT NULL,
		seed BIGINT NOT NULL,
		bwselect VARCHAR(16) NOT NULL,
		kernel VARCHAR(32) NOT NULL,
		poly_order INTEGER NOT NULL,
		grid_min DOUBLE PRECISION NOT NULL,
		grid_max DOUBLE PRECISION NOT NULL,
		grid_points INTEGER NOT NULL,
		ci_level DOUBLE PRECISION NOT NULL,
		ci_reps INTEGER NOT NULL,
		uniform BOOLEAN NOT NULL DEFAULT true,
		code_version VARCHAR(32) NOT NULL,
		fingerprint VARCHAR(64) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)
`

const createSummaryCellsTable = `
	CREATE TABLE IF NOT EXISTS summary_cells (
		run_id UUID NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
		row_index INTEGER NOT NULL,
		row_name VARCHAR(64) NOT NULL,
		subset VARCHAR(32) NOT NULL,
		value DOUBLE PRECISION,
		PRIMARY KEY (run_id, row_index, subset)
	)
`

const createDensityRecordsTable = `
	CREATE TABLE IF NOT EXISTS density_records (
		run_id UUID NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
		subset VARCHAR(32) NOT NULL,
		point_index INTEGER NOT NULL,
		grid DOUBLE PRECISION NOT NULL,
		f_p DOUBLE PRECISION,
		f_q DOUBLE PRECISION,
		se_p DOUBLE PRECISION,
		se_q DOUBLE PRECISION,
		ci_l DOUBLE PRECISION,
		ci_r DOUBLE PRECISION,
		PRIMARY KEY (run_id, subset, point_index)
	)
`

const createIndexes = `
	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_runs_fingerprint ON runs(fingerprint)
`
