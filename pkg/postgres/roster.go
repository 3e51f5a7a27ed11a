package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/spv-planning/pkg/db"
)

// ListFirefighters retrieves all active firefighters ordered by id
func (d *DB) ListFirefighters(ctx context.Context) ([]db.Firefighter, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, first_name, last_name, grade, employment_type, qualifications,
		       preferred_slots, preferred_vehicles, preference_weight, active
		FROM firefighter
		WHERE active
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query firefighters: %w", err)
	}
	defer rows.Close()

	var firefighters []db.Firefighter
	for rows.Next() {
		var f db.Firefighter
		if err := rows.Scan(&f.ID, &f.FirstName, &f.LastName, &f.Grade, &f.EmploymentType, &f.Qualifications,
			&f.PreferredSlots, &f.PreferredVehicles, &f.PreferenceWeight, &f.Active); err != nil {
			return nil, fmt.Errorf("failed to scan firefighter: %w", err)
		}
		firefighters = append(firefighters, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating firefighters: %w", err)
	}

	return firefighters, nil
}

// ListAvailability retrieves the declared availability between start and end inclusive
func (d *DB) ListAvailability(ctx context.Context, start, end string) ([]db.Availability, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT firefighter_id, date, slot, available
		FROM availability
		WHERE date BETWEEN $1 AND $2
		ORDER BY date, slot, firefighter_id
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query availability: %w", err)
	}
	defer rows.Close()

	var availability []db.Availability
	for rows.Next() {
		var a db.Availability
		var date time.Time
		if err := rows.Scan(&a.FirefighterID, &date, &a.Slot, &a.Available); err != nil {
			return nil, fmt.Errorf("failed to scan availability: %w", err)
		}
		a.Date = date.Format("2006-01-02")
		availability = append(availability, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating availability: %w", err)
	}

	return availability, nil
}

// UpsertFirefighters inserts or updates firefighter records
func (d *DB) UpsertFirefighters(ctx context.Context, firefighters []db.Firefighter) error {
	if len(firefighters) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, f := range firefighters {
		batch.Queue(`
			INSERT INTO firefighter (id, first_name, last_name, grade, employment_type, qualifications,
			                         preferred_slots, preferred_vehicles, preference_weight, active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO UPDATE SET
				first_name = EXCLUDED.first_name,
				last_name = EXCLUDED.last_name,
				grade = EXCLUDED.grade,
				employment_type = EXCLUDED.employment_type,
				qualifications = EXCLUDED.qualifications,
				preferred_slots = EXCLUDED.preferred_slots,
				preferred_vehicles = EXCLUDED.preferred_vehicles,
				preference_weight = EXCLUDED.preference_weight,
				active = EXCLUDED.active
		`, f.ID, f.FirstName, f.LastName, f.Grade, f.EmploymentType, nonNil(f.Qualifications),
			nonNil(f.PreferredSlots), nonNil(f.PreferredVehicles), f.PreferenceWeight, f.Active)
	}

	if err := d.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to upsert firefighters: %w", err)
	}
	return nil
}

// UpsertAvailability inserts or updates availability records
func (d *DB) UpsertAvailability(ctx context.Context, availability []db.Availability) error {
	if len(availability) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, a := range availability {
		batch.Queue(`
			INSERT INTO availability (firefighter_id, date, slot, available)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (firefighter_id, date, slot) DO UPDATE SET available = EXCLUDED.available
		`, a.FirefighterID, a.Date, a.Slot, a.Available)
	}

	if err := d.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to upsert availability: %w", err)
	}
	return nil
}

// nonNil maps nil slices to empty arrays for NOT NULL array columns
func nonNil[T any](values []T) []T {
	if values == nil {
		return []T{}
	}
	return values
}
