package allocator

import (
	"github.com/jakechorley/spv-planning/pkg/core/model"
	"github.com/jakechorley/spv-planning/pkg/core/requirements"
)

// Reason explains why a candidate cannot take a seat
type Reason int

const (
	ReasonNone Reason = iota
	ReasonNotAvailable
	ReasonMissingQualification
	ReasonAlreadyAssignedThatDay
	ReasonQuotaExceeded
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonNotAvailable:
		return "not-available"
	case ReasonMissingQualification:
		return "missing-qualification"
	case ReasonAlreadyAssignedThatDay:
		return "already-assigned-that-day"
	case ReasonQuotaExceeded:
		return "quota-exceeded"
	default:
		return "unknown"
	}
}

// Verdict is the result of evaluating a candidate
type Verdict struct {
	Feasible  bool
	Reason    Reason
	Criterion string
}

// Seat is one unit of a need: a need with Count 3 has three seats
type Seat struct {
	Need    *requirements.Need
	Ordinal int

	index         int
	firefighterID int64
	filled        bool
}

// Date returns the date of the seat
func (s *Seat) Date() string {
	return s.Need.Date
}

// Slot returns the slot of the seat
func (s *Seat) Slot() model.Slot {
	return s.Need.Slot
}

// Holder returns the firefighter holding the seat, if any
func (s *Seat) Holder() (int64, bool) {
	return s.firefighterID, s.filled
}

// IsFilled reports whether the seat has a holder
func (s *Seat) IsFilled() bool {
	return s.filled
}

// Candidate is a firefighter considered for a seat
type Candidate struct {
	Firefighter *model.Firefighter
	Seat        *Seat
}

// Quota bounds the number of assignments of a firefighter over the period
type Quota struct {
	Min *int
	Max *int
}

// Quotas holds the default quota and per-firefighter overrides
type Quotas struct {
	Default        Quota
	PerFirefighter map[int64]Quota
}

// For returns the effective quota of a firefighter. Per-firefighter bounds override the default one by one.
func (q Quotas) For(firefighterID int64) Quota {
	quota := q.Default
	if override, ok := q.PerFirefighter[firefighterID]; ok {
		if override.Min != nil {
			quota.Min = override.Min
		}
		if override.Max != nil {
			quota.Max = override.Max
		}
	}
	return quota
}

// Shortage is an unmet part of a need
type Shortage struct {
	Date     string     `json:"date"`
	Slot     model.Slot `json:"slot"`
	Vehicle  string     `json:"vehicle,omitempty"`
	Role     string     `json:"role"`
	Key      string     `json:"key"`
	Required int        `json:"required"`
	Missing  int        `json:"missing"`
}

// ValidationError represents a constraint violation found in a final plan
type ValidationError struct {
	Date          string
	Slot          model.Slot
	FirefighterID int64
	CriterionName string
	Description   string
}
