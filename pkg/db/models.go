package db

import "encoding/json"

// Firefighter represents a database firefighter record
type Firefighter struct {
	ID                int64    `json:"id"`
	FirstName         string   `json:"firstName"`
	LastName          string   `json:"lastName"`
	Grade             string   `json:"grade"`
	EmploymentType    string   `json:"employmentType"`
	Qualifications    []string `json:"qualifications"`
	PreferredSlots    []int    `json:"preferredSlots,omitempty"`
	PreferredVehicles []string `json:"preferredVehicles,omitempty"`
	PreferenceWeight  float64  `json:"preferenceWeight,omitempty"`
	Active            bool     `json:"active"`
}

// Availability represents a declared availability for one (firefighter, date, slot)
type Availability struct {
	FirefighterID int64  `json:"firefighterId"`
	Date          string `json:"date"`
	Slot          int    `json:"slot"`
	Available     bool   `json:"available"`
}

// TimestampLayout formats run creation times in UTC. The fixed width keeps text columns in chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// Run represents a stored optimization run
type Run struct {
	ID                  string
	PeriodStart         string
	PeriodEnd           string
	Mode                string
	CreatedAt           string
	Score               float64
	AverageCoverage     float64
	ShortageCount       int
	AssignmentCount     int
	ImprovementComplete bool
	// Report is the JSON encoded plan
	Report json.RawMessage
}

// Assignment represents a database assignment record
type Assignment struct {
	ID              string
	RunID           string
	Date            string
	Slot            int
	Vehicle         string
	Role            string
	FirefighterID   int64
	FirefighterName string
	OnCall          bool
}
