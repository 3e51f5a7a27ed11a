package services

import (
	"github.com/jakechorley/spv-planning/pkg/core/allocator"
	"github.com/jakechorley/spv-planning/pkg/core/coverage"
	"github.com/jakechorley/spv-planning/pkg/core/model"
	"github.com/jakechorley/spv-planning/pkg/core/optimizer"
)

// Plan is the published result of a run, as stored in run reports and the plan cache
type Plan struct {
	RunID       string `json:"runId"`
	PeriodStart string `json:"periodStart"`
	PeriodEnd   string `json:"periodEnd"`
	Mode        string `json:"mode"`
	CreatedAt   string `json:"createdAt"`

	Assignments  []model.Assignment                      `json:"assignments"`
	Shortages    []allocator.Shortage                    `json:"shortages"`
	Calendar     map[string]map[model.Slot]coverage.Cell `json:"calendar"`
	KPIs         map[string]float64                      `json:"kpis"`
	Firefighters []coverage.FirefighterLoad              `json:"firefighters"`
	Score        allocator.Score                         `json:"score"`

	ImprovementComplete bool `json:"improvementComplete"`
}

func newPlan(runID, createdAt string, result *optimizer.Result) *Plan {
	plan := &Plan{
		RunID:               runID,
		PeriodStart:         result.Period.Start.Format(model.DateLayout),
		PeriodEnd:           result.Period.End.Format(model.DateLayout),
		Mode:                string(result.Mode),
		CreatedAt:           createdAt,
		Assignments:         result.Assignments,
		Shortages:           result.Shortages,
		Score:               result.Score,
		ImprovementComplete: result.ImprovementComplete,
	}
	if result.Report != nil {
		plan.Calendar = result.Report.Calendar
		plan.KPIs = result.Report.KPIs
		plan.Firefighters = result.Report.Firefighters
	}
	if plan.Assignments == nil {
		plan.Assignments = []model.Assignment{}
	}
	if plan.Shortages == nil {
		plan.Shortages = []allocator.Shortage{}
	}
	return plan
}

// AverageCoverage returns the average coverage KPI of the plan
func (p *Plan) AverageCoverage() float64 {
	return p.KPIs[coverage.KPIAverageCoverage]
}

// ShortageCount returns the number of missing seats of the plan
func (p *Plan) ShortageCount() int {
	return int(p.KPIs[coverage.KPIShortages])
}
