package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/jakechorley/spv-planning/pkg/db"
)

// Snapshot is a roster and availability export read from a JSON file.
// It serves offline runs in place of the roster tables.
type Snapshot struct {
	Firefighters []db.Firefighter  `json:"firefighters"`
	Availability []db.Availability `json:"availability"`
}

// snapshotFile is the file layout. Firefighters without an "active" field are active.
type snapshotFile struct {
	Firefighters []struct {
		db.Firefighter
		Active *bool `json:"active"`
	} `json:"firefighters"`
	Availability []db.Availability `json:"availability"`
}

// Load reads a snapshot file
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	var file snapshotFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot file: %w", err)
	}

	snap := &Snapshot{Availability: file.Availability}
	seen := make(map[int64]bool, len(file.Firefighters))
	for _, entry := range file.Firefighters {
		if seen[entry.ID] {
			return nil, fmt.Errorf("duplicate firefighter id %d in snapshot", entry.ID)
		}
		seen[entry.ID] = true

		f := entry.Firefighter
		f.Active = entry.Active == nil || *entry.Active
		snap.Firefighters = append(snap.Firefighters, f)
	}

	return snap, nil
}

// ListFirefighters returns the active firefighters ordered by id
func (s *Snapshot) ListFirefighters(ctx context.Context) ([]db.Firefighter, error) {
	var firefighters []db.Firefighter
	for _, f := range s.Firefighters {
		if f.Active {
			firefighters = append(firefighters, f)
		}
	}
	sort.Slice(firefighters, func(i, j int) bool {
		return firefighters[i].ID < firefighters[j].ID
	})
	return firefighters, nil
}

// ListAvailability returns the availability between start and end inclusive
func (s *Snapshot) ListAvailability(ctx context.Context, start, end string) ([]db.Availability, error) {
	var availability []db.Availability
	for _, a := range s.Availability {
		if a.Date >= start && a.Date <= end {
			availability = append(availability, a)
		}
	}
	return availability, nil
}

// Seed writes the snapshot into a roster store
func (s *Snapshot) Seed(ctx context.Context, writer db.RosterWriter) error {
	if err := writer.UpsertFirefighters(ctx, s.Firefighters); err != nil {
		return err
	}
	return writer.UpsertAvailability(ctx, s.Availability)
}
