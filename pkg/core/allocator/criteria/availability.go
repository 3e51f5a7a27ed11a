package criteria

import (
	"fmt"

	"github.com/jakechorley/spv-planning/pkg/core/allocator"
	"github.com/jakechorley/spv-planning/pkg/core/model"
)

// AvailabilityCriterion only lets firefighters take seats on slots they declared available.
// Missing declarations count as unavailable.
type AvailabilityCriterion struct {
	availability *model.Availability
}

// NewAvailabilityCriterion creates a new AvailabilityCriterion
func NewAvailabilityCriterion(availability *model.Availability) *AvailabilityCriterion {
	return &AvailabilityCriterion{availability: availability}
}

func (c *AvailabilityCriterion) Name() string {
	return "Availability"
}

func (c *AvailabilityCriterion) Reason() allocator.Reason {
	return allocator.ReasonNotAvailable
}

func (c *AvailabilityCriterion) IsFeasible(state *allocator.PlanState, candidate allocator.Candidate) bool {
	return c.availability.IsAvailable(candidate.Firefighter.ID, candidate.Seat.Date(), candidate.Seat.Slot())
}

func (c *AvailabilityCriterion) ValidatePlanState(state *allocator.PlanState) []allocator.ValidationError {
	var errors []allocator.ValidationError

	for _, seat := range state.FilledSeats() {
		id, _ := seat.Holder()
		if !c.availability.IsAvailable(id, seat.Date(), seat.Slot()) {
			errors = append(errors, allocator.ValidationError{
				Date:          seat.Date(),
				Slot:          seat.Slot(),
				FirefighterID: id,
				CriterionName: c.Name(),
				Description:   fmt.Sprintf("Firefighter %d is assigned to %s without being available", id, seat.Need.Key()),
			})
		}
	}

	return errors
}
