package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/spv-planning/pkg/db"
)

const runColumns = `id, period_start, period_end, mode, created_at, score, average_coverage,
	shortage_count, assignment_count, improvement_complete`

// InsertRun stores a run and its assignments in one transaction
func (d *DB) InsertRun(ctx context.Context, run *db.Run, assignments []db.Assignment) error {
	createdAt, err := time.Parse(time.RFC3339, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("invalid run created_at %q: %w", run.CreatedAt, err)
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO optimization_run (`+runColumns+`, report)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, run.ID, run.PeriodStart, run.PeriodEnd, run.Mode, createdAt, run.Score, run.AverageCoverage,
		run.ShortageCount, run.AssignmentCount, run.ImprovementComplete, string(run.Report))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, a := range assignments {
		var vehicle *string
		if a.Vehicle != "" {
			vehicle = &a.Vehicle
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO assignment (id, run_id, date, slot, vehicle, role, firefighter_id, firefighter_name, on_call)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, a.ID, a.RunID, a.Date, a.Slot, vehicle, a.Role, a.FirefighterID, a.FirefighterName, a.OnCall)
		if err != nil {
			return fmt.Errorf("failed to insert assignment: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetRuns retrieves run summaries, latest first. Reports are not loaded.
func (d *DB) GetRuns(ctx context.Context) ([]db.Run, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+runColumns+`
		FROM optimization_run
		ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []db.Run
	for rows.Next() {
		run, err := scanRun(rows, false)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// GetRun retrieves a run with its report. Returns db.ErrNotFound if it does not exist.
func (d *DB) GetRun(ctx context.Context, id string) (*db.Run, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT `+runColumns+`, report
		FROM optimization_run
		WHERE id = $1
	`, id)

	run, err := scanRun(row, true)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// GetAssignments retrieves the assignments of a run in date, slot order
func (d *DB) GetAssignments(ctx context.Context, runID string) ([]db.Assignment, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, run_id, date, slot, vehicle, role, firefighter_id, firefighter_name, on_call
		FROM assignment
		WHERE run_id = $1
		ORDER BY date, slot, vehicle NULLS FIRST, role, firefighter_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var assignments []db.Assignment
	for rows.Next() {
		var a db.Assignment
		var date time.Time
		var vehicle *string
		if err := rows.Scan(&a.ID, &a.RunID, &date, &a.Slot, &vehicle, &a.Role, &a.FirefighterID, &a.FirefighterName, &a.OnCall); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		a.Date = date.Format("2006-01-02")
		if vehicle != nil {
			a.Vehicle = *vehicle
		}
		assignments = append(assignments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignments: %w", err)
	}

	return assignments, nil
}

// scanRun scans the run columns, followed by the report when withReport is set
func scanRun(row pgx.Row, withReport bool) (*db.Run, error) {
	var run db.Run
	var periodStart, periodEnd, createdAt time.Time
	var report []byte

	dest := []any{&run.ID, &periodStart, &periodEnd, &run.Mode, &createdAt, &run.Score, &run.AverageCoverage,
		&run.ShortageCount, &run.AssignmentCount, &run.ImprovementComplete}
	if withReport {
		dest = append(dest, &report)
	}

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.PeriodStart = periodStart.Format("2006-01-02")
	run.PeriodEnd = periodEnd.Format("2006-01-02")
	run.CreatedAt = createdAt.UTC().Format(db.TimestampLayout)
	run.Report = report
	return &run, nil
}
