package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jakechorley/spv-planning/pkg/db"
)

// ListFirefighters retrieves all active firefighters ordered by id
func (d *DB) ListFirefighters(ctx context.Context) ([]db.Firefighter, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, first_name, last_name, grade, employment_type, qualifications,
		       preferred_slots, preferred_vehicles, preference_weight, active
		FROM firefighter
		WHERE active = 1
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query firefighters: %w", err)
	}
	defer rows.Close()

	var firefighters []db.Firefighter
	for rows.Next() {
		var f db.Firefighter
		var qualifications, slots, vehicles string
		if err := rows.Scan(&f.ID, &f.FirstName, &f.LastName, &f.Grade, &f.EmploymentType, &qualifications,
			&slots, &vehicles, &f.PreferenceWeight, &f.Active); err != nil {
			return nil, fmt.Errorf("failed to scan firefighter: %w", err)
		}
		if err := decodeList(qualifications, &f.Qualifications); err != nil {
			return nil, fmt.Errorf("invalid qualifications for firefighter %d: %w", f.ID, err)
		}
		if err := decodeList(slots, &f.PreferredSlots); err != nil {
			return nil, fmt.Errorf("invalid preferred slots for firefighter %d: %w", f.ID, err)
		}
		if err := decodeList(vehicles, &f.PreferredVehicles); err != nil {
			return nil, fmt.Errorf("invalid preferred vehicles for firefighter %d: %w", f.ID, err)
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
	rows, err := d.db.QueryContext(ctx, `
		SELECT firefighter_id, date, slot, available
		FROM availability
		WHERE date BETWEEN ? AND ?
		ORDER BY date, slot, firefighter_id
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query availability: %w", err)
	}
	defer rows.Close()

	var availability []db.Availability
	for rows.Next() {
		var a db.Availability
		if err := rows.Scan(&a.FirefighterID, &a.Date, &a.Slot, &a.Available); err != nil {
			return nil, fmt.Errorf("failed to scan availability: %w", err)
		}
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

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, f := range firefighters {
		qualifications, err := encodeList(f.Qualifications)
		if err != nil {
			return err
		}
		slots, err := encodeList(f.PreferredSlots)
		if err != nil {
			return err
		}
		vehicles, err := encodeList(f.PreferredVehicles)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO firefighter (id, first_name, last_name, grade, employment_type, qualifications,
			                         preferred_slots, preferred_vehicles, preference_weight, active)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				first_name = excluded.first_name,
				last_name = excluded.last_name,
				grade = excluded.grade,
				employment_type = excluded.employment_type,
				qualifications = excluded.qualifications,
				preferred_slots = excluded.preferred_slots,
				preferred_vehicles = excluded.preferred_vehicles,
				preference_weight = excluded.preference_weight,
				active = excluded.active
		`, f.ID, f.FirstName, f.LastName, f.Grade, f.EmploymentType, qualifications, slots, vehicles,
			f.PreferenceWeight, f.Active)
		if err != nil {
			return fmt.Errorf("failed to upsert firefighter %d: %w", f.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpsertAvailability inserts or updates availability records
func (d *DB) UpsertAvailability(ctx context.Context, availability []db.Availability) error {
	if len(availability) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, a := range availability {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO availability (firefighter_id, date, slot, available)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (firefighter_id, date, slot) DO UPDATE SET available = excluded.available
		`, a.FirefighterID, a.Date, a.Slot, a.Available)
		if err != nil {
			return fmt.Errorf("failed to upsert availability: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// encodeList stores list columns as JSON arrays
func encodeList[T any](values []T) (string, error) {
	if values == nil {
		values = []T{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to encode list: %w", err)
	}
	return string(data), nil
}

func decodeList[T any](data string, out *[]T) error {
	if data == "" {
		*out = nil
		return nil
	}
	var values []T
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return err
	}
	if len(values) == 0 {
		values = nil
	}
	*out = values
	return nil
}
