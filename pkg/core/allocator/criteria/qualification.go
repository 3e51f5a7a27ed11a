package criteria

import (
	"fmt"

	"github.com/jakechorley/spv-planning/pkg/core/allocator"
)

// QualificationCriterion requires the firefighter to hold every qualification the role demands
type QualificationCriterion struct{}

// NewQualificationCriterion creates a new QualificationCriterion
func NewQualificationCriterion() *QualificationCriterion {
	return &QualificationCriterion{}
}

func (c *QualificationCriterion) Name() string {
	return "Qualification"
}

func (c *QualificationCriterion) Reason() allocator.Reason {
	return allocator.ReasonMissingQualification
}

func (c *QualificationCriterion) IsFeasible(state *allocator.PlanState, candidate allocator.Candidate) bool {
	return candidate.Seat.Need.Role.IsQualified(candidate.Firefighter)
}

func (c *QualificationCriterion) ValidatePlanState(state *allocator.PlanState) []allocator.ValidationError {
	var errors []allocator.ValidationError

	for _, seat := range state.FilledSeats() {
		id, _ := seat.Holder()
		firefighter, ok := state.Roster.Get(id)
		if ok && seat.Need.Role.IsQualified(firefighter) {
			continue
		}
		errors = append(errors, allocator.ValidationError{
			Date:          seat.Date(),
			Slot:          seat.Slot(),
			FirefighterID: id,
			CriterionName: c.Name(),
			Description:   fmt.Sprintf("Firefighter %d is not qualified for role %s", id, seat.Need.Role.Name),
		})
	}

	return errors
}
