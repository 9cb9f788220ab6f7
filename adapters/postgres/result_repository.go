package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"jtpadensity/domain/core"
	"jtpadensity/domain/density"
	"jtpadensity/domain/run"
	"jtpadensity/domain/summary"
	"jtpadensity/internal/errors"
	"jtpadensity/ports"

	"github.com/jmoiron/sqlx"
)

// ResultRepositoryImpl implements ResultRepository for PostgreSQL
type ResultRepositoryImpl struct {
	db *sqlx.DB
}

// NewResultRepository creates a new PostgreSQL result repository
func NewResultRepository(db *sqlx.DB) ports.ResultRepository {
	return &ResultRepositoryImpl{db: db}
}

const insertRun = `
	INSERT INTO runs (run_id, input_file, input_hash, seed, bwselect, kernel, poly_order,
		grid_min, grid_max, grid_points, ci_level, ci_reps, uniform, code_version, fingerprint, created_at)
	VALUES (:run_id, :input_file, :input_hash, :seed, :bwselect, :kernel, :poly_order,
		:grid_min, :grid_max, :grid_points, :ci_level, :ci_reps, :uniform, :code_version, :fingerprint, :created_at)
`

const selectRun = `
	SELECT run_id, input_file, input_hash, seed, bwselect, kernel, poly_order, grid_min, grid_max,
		grid_points, ci_level, ci_reps, uniform, code_version, fingerprint, created_at
	FROM runs
`

type summaryCellRow struct {
	RunID    core.RunID `db:"run_id"`
	RowIndex int        `db:"row_index"`
	RowName  string     `db:"row_name"`
	Subset   string     `db:"subset"`
	Value    float64    `db:"value"`
}

type densityRow struct {
	RunID      core.RunID `db:"run_id"`
	Subset     string     `db:"subset"`
	PointIndex int        `db:"point_index"`
	Grid       float64    `db:"grid"`
	FP         float64    `db:"f_p"`
	FQ         float64    `db:"f_q"`
	SEP        float64    `db:"se_p"`
	SEQ        float64    `db:"se_q"`
	CIL        float64    `db:"ci_l"`
	CIR        float64    `db:"ci_r"`
}

// SaveRun stores the manifest, summary cells and density records in one transaction
func (r *ResultRepositoryImpl) SaveRun(ctx context.Context, manifest *run.Manifest, table *summary.Table, densities map[string][]density.Record) error {
	if manifest == nil {
		return errors.InvalidInput("manifest is required")
	}
	if err := manifest.Validate(); err != nil {
		return errors.WithCode(errors.CodeInvalidInput, err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to begin transaction"))
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, insertRun, manifest); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to insert run"))
	}

	if cells := summaryRows(manifest.RunID, table); len(cells) > 0 {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO summary_cells (run_id, row_index, row_name, subset, value)
			VALUES (:run_id, :row_index, :row_name, :subset, :value)
		`, cells); err != nil {
			return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to insert summary cells"))
		}
	}

	if records := densityRows(manifest.RunID, densities); len(records) > 0 {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO density_records (run_id, subset, point_index, grid, f_p, f_q, se_p, se_q, ci_l, ci_r)
			VALUES (:run_id, :subset, :point_index, :grid, :f_p, :f_q, :se_p, :se_q, :ci_l, :ci_r)
		`, records); err != nil {
			return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to insert density records"))
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to commit run"))
	}
	return nil
}

// GetRun retrieves a run manifest by id
func (r *ResultRepositoryImpl) GetRun(ctx context.Context, id core.RunID) (*run.Manifest, error) {
	var m run.Manifest
	err := r.db.GetContext(ctx, &m, selectRun+` WHERE run_id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound(fmt.Sprintf("run %s", id))
	}
	if err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to get run"))
	}
	return &m, nil
}

// ListRuns returns the most recent runs, optionally limited
func (r *ResultRepositoryImpl) ListRuns(ctx context.Context, limit int) ([]run.Manifest, error) {
	query := selectRun + ` ORDER BY created_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	var runs []run.Manifest
	if err := r.db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to list runs"))
	}
	return runs, nil
}

// GetDensity returns the records of one subset ordered by grid point
func (r *ResultRepositoryImpl) GetDensity(ctx context.Context, id core.RunID, subset string) ([]density.Record, error) {
	var rows []densityRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT run_id, subset, point_index, grid, f_p, f_q, se_p, se_q, ci_l, ci_r
		FROM density_records
		WHERE run_id = $1 AND subset = $2
		ORDER BY point_index
	`, id, subset)
	if err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to get density records"))
	}
	if len(rows) == 0 {
		return nil, errors.NotFound(fmt.Sprintf("density %s of run %s", subset, id))
	}

	records := make([]density.Record, len(rows))
	for i, row := range rows {
		records[i] = density.Record{
			Grid: row.Grid, FP: row.FP, FQ: row.FQ, SEP: row.SEP, SEQ: row.SEQ, CIL: row.CIL, CIR: row.CIR,
		}
	}
	return records, nil
}

func summaryRows(id core.RunID, table *summary.Table) []summaryCellRow {
	if table == nil {
		return nil
	}
	var rows []summaryCellRow
	for i, name := range table.Rows {
		for j, subset := range table.Subsets {
			rows = append(rows, summaryCellRow{RunID: id, RowIndex: i, RowName: name, Subset: subset.Key, Value: table.Cells[i][j]})
		}
	}
	return rows
}

func densityRows(id core.RunID, densities map[string][]density.Record) []densityRow {
	var rows []densityRow
	for subset, records := range densities {
		for i, rec := range records {
			rows = append(rows, densityRow{
				RunID: id, Subset: subset, PointIndex: i, Grid: rec.Grid,
				FP: rec.FP, FQ: rec.FQ, SEP: rec.SEP, SEQ: rec.SEQ, CIL: rec.CIL, CIR: rec.CIR,
			})
		}
	}
	return rows
}
