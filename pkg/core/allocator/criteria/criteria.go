package criteria

import (
	"github.com/jakechorley/spv-planning/pkg/core/allocator"
	"github.com/jakechorley/spv-planning/pkg/core/model"
)

// Default returns the hard constraints in evaluation order
func Default(availability *model.Availability, quotas allocator.Quotas) []allocator.Criterion {
	return []allocator.Criterion{
		NewAvailabilityCriterion(availability),
		NewQualificationCriterion(),
		NewDailyExclusivityCriterion(),
		NewQuotaCriterion(quotas),
	}
}
