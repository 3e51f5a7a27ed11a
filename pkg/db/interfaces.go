package db

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// RosterStore defines the read operations on the roster, which is owned by the roster management collaborator
type RosterStore interface {
	ListFirefighters(ctx context.Context) ([]Firefighter, error)
	ListAvailability(ctx context.Context, start, end string) ([]Availability, error)
}

// RosterWriter seeds the roster tables, e.g. from a snapshot file
type RosterWriter interface {
	UpsertFirefighters(ctx context.Context, firefighters []Firefighter) error
	UpsertAvailability(ctx context.Context, availability []Availability) error
}

// RunStore defines the operations on stored optimization runs
type RunStore interface {
	InsertRun(ctx context.Context, run *Run, assignments []Assignment) error
	GetRuns(ctx context.Context) ([]Run, error)
	GetRun(ctx context.Context, id string) (*Run, error)
	GetAssignments(ctx context.Context, runID string) ([]Assignment, error)
}

// Database defines the interface for all database operations.
// Both postgres.DB and sqlite.DB implement this interface.
type Database interface {
	RosterStore
	RosterWriter
	RunStore
	RunMigrations(ctx context.Context) error
	Close() error
}
