package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO optimization_run (`+runColumns+`, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.PeriodStart, run.PeriodEnd, run.Mode, createdAt.UTC().Format(db.TimestampLayout), run.Score,
		run.AverageCoverage, run.ShortageCount, run.AssignmentCount, run.ImprovementComplete, string(run.Report))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, a := range assignments {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO assignment (id, run_id, date, slot, vehicle, role, firefighter_id, firefighter_name, on_call)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, a.ID, a.RunID, a.Date, a.Slot, a.Vehicle, a.Role, a.FirefighterID, a.FirefighterName, a.OnCall)
		if err != nil {
			return fmt.Errorf("failed to insert assignment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetRuns retrieves run summaries, latest first. Reports are not loaded.
func (d *DB) GetRuns(ctx context.Context) ([]db.Run, error) {
	rows, err := d.db.QueryContext(ctx, `
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
		var run db.Run
		if err := rows.Scan(runDest(&run)...); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// GetRun retrieves a run with its report. Returns db.ErrNotFound if it does not exist.
func (d *DB) GetRun(ctx context.Context, id string) (*db.Run, error) {
	var run db.Run
	var report string
	err := d.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`, report
		FROM optimization_run
		WHERE id = ?
	`, id).Scan(append(runDest(&run), &report)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.Report = []byte(report)
	return &run, nil
}

// GetAssignments retrieves the assignments of a run in date, slot order
func (d *DB) GetAssignments(ctx context.Context, runID string) ([]db.Assignment, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, run_id, date, slot, vehicle, role, firefighter_id, firefighter_name, on_call
		FROM assignment
		WHERE run_id = ?
		ORDER BY date, slot, vehicle, role, firefighter_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var assignments []db.Assignment
	for rows.Next() {
		var a db.Assignment
		if err := rows.Scan(&a.ID, &a.RunID, &a.Date, &a.Slot, &a.Vehicle, &a.Role, &a.FirefighterID, &a.FirefighterName, &a.OnCall); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignments: %w", err)
	}

	return assignments, nil
}

func runDest(run *db.Run) []any {
	return []any{&run.ID, &run.PeriodStart, &run.PeriodEnd, &run.Mode, &run.CreatedAt, &run.Score,
		&run.AverageCoverage, &run.ShortageCount, &run.AssignmentCount, &run.ImprovementComplete}
}
