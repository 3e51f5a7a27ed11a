package criteria

import (
	"fmt"
	"sort"

	"github.com/jakechorley/spv-planning/pkg/core/allocator"
)

// QuotaCriterion caps the number of seats a firefighter holds over the period.
// The minimum quota is soft and is handled by the scorer.
type QuotaCriterion struct {
	quotas allocator.Quotas
}

// NewQuotaCriterion creates a new QuotaCriterion
func NewQuotaCriterion(quotas allocator.Quotas) *QuotaCriterion {
	return &QuotaCriterion{quotas: quotas}
}

func (c *QuotaCriterion) Name() string {
	return "Quota"
}

func (c *QuotaCriterion) Reason() allocator.Reason {
	return allocator.ReasonQuotaExceeded
}

func (c *QuotaCriterion) IsFeasible(state *allocator.PlanState, candidate allocator.Candidate) bool {
	max := c.quotas.For(candidate.Firefighter.ID).Max
	if max == nil {
		return true
	}

	count := state.Count(candidate.Firefighter.ID)
	if id, filled := candidate.Seat.Holder(); filled && id == candidate.Firefighter.ID {
		count--
	}
	return count < *max
}

func (c *QuotaCriterion) ValidatePlanState(state *allocator.PlanState) []allocator.ValidationError {
	var errors []allocator.ValidationError

	counts := state.Counts()
	ids := make([]int64, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		max := c.quotas.For(id).Max
		if max == nil || counts[id] <= *max {
			continue
		}
		errors = append(errors, allocator.ValidationError{
			FirefighterID: id,
			CriterionName: c.Name(),
			Description:   fmt.Sprintf("Firefighter %d holds %d seats but the maximum is %d", id, counts[id], *max),
		})
	}

	return errors
}
