package criteria

import (
	"fmt"

	"github.com/jakechorley/spv-planning/pkg/core/allocator"
)

// DailyExclusivityCriterion allows at most one seat per firefighter per date, across all slots and vehicles
type DailyExclusivityCriterion struct{}

// NewDailyExclusivityCriterion creates a new DailyExclusivityCriterion
func NewDailyExclusivityCriterion() *DailyExclusivityCriterion {
	return &DailyExclusivityCriterion{}
}

func (c *DailyExclusivityCriterion) Name() string {
	return "DailyExclusivity"
}

func (c *DailyExclusivityCriterion) Reason() allocator.Reason {
	return allocator.ReasonAlreadyAssignedThatDay
}

func (c *DailyExclusivityCriterion) IsFeasible(state *allocator.PlanState, candidate allocator.Candidate) bool {
	existing := state.SeatOn(candidate.Seat.Date(), candidate.Firefighter.ID)
	// Re-evaluating the seat already held is fine
	return existing == nil || existing == candidate.Seat
}

func (c *DailyExclusivityCriterion) ValidatePlanState(state *allocator.PlanState) []allocator.ValidationError {
	var errors []allocator.ValidationError

	seen := make(map[string]map[int64]bool)
	for _, seat := range state.FilledSeats() {
		id, _ := seat.Holder()
		byID, ok := seen[seat.Date()]
		if !ok {
			byID = make(map[int64]bool)
			seen[seat.Date()] = byID
		}
		if byID[id] {
			errors = append(errors, allocator.ValidationError{
				Date:          seat.Date(),
				Slot:          seat.Slot(),
				FirefighterID: id,
				CriterionName: c.Name(),
				Description:   fmt.Sprintf("Firefighter %d holds more than one seat on %s", id, seat.Date()),
			})
		}
		byID[id] = true
	}

	return errors
}
