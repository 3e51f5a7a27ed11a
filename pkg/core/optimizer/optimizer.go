package optimizer

import (
	"context"
	"fmt"

	"github.com/jakechorley/spv-planning/pkg/core/allocator"
	"github.com/jakechorley/spv-planning/pkg/core/allocator/criteria"
	"github.com/jakechorley/spv-planning/pkg/core/coverage"
	"github.com/jakechorley/spv-planning/pkg/core/model"
	"github.com/jakechorley/spv-planning/pkg/core/requirements"
)

// Result is the outcome of an optimization run
type Result struct {
	Period       model.Period
	Mode         requirements.Mode
	Requirements *requirements.Set

	Assignments []model.Assignment
	Shortages   []allocator.Shortage
	Report      *coverage.Report
	Score       allocator.Score

	Iterations          int
	Passes              int
	ImprovementComplete bool
	FillInterrupted     bool
	ValidationErrors    []allocator.ValidationError
}

// Complete reports whether every required seat was filled
func (r *Result) Complete() bool {
	return len(r.Shortages) == 0
}

// Run validates the configuration, builds the requirements, assigns firefighters and computes the coverage report.
// The only error returned for bad input is a *ConfigError. Unfillable seats are reported as shortages.
func Run(ctx context.Context, roster *model.Roster, availability *model.Availability, cfg RunConfig) (*Result, error) {
	period, set, err := prepare(roster, cfg)
	if err != nil {
		return nil, err
	}

	outcome, err := allocator.Allocate(ctx, allocator.Config{
		Roster:       roster,
		Availability: availability,
		Requirements: set,
		Catalog:      cfg.Catalog,
		Criteria:     criteria.Default(availability, cfg.Quotas),
		Quotas:       cfg.Quotas,
		Coefficients: cfg.coefficients(),
		SlotOrder:    cfg.SlotOrder,
		RankOrder:    cfg.RankOrder,
		Budget:       cfg.Budget,
		Workers:      cfg.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("allocation failed: %w", err)
	}

	return &Result{
		Period:              period,
		Mode:                cfg.Mode,
		Requirements:        set,
		Assignments:         outcome.Assignments,
		Shortages:           outcome.Shortages,
		Report:              coverage.Build(outcome.Assignments, set, roster, cfg.Coverage),
		Score:               outcome.Score,
		Iterations:          outcome.Iterations,
		Passes:              outcome.Passes,
		ImprovementComplete: outcome.ImprovementComplete,
		FillInterrupted:     outcome.FillInterrupted,
		ValidationErrors:    outcome.ValidationErrors,
	}, nil
}

// Diagnose reports the (date, slot) pairs that cannot be fully covered with the declared availability
func Diagnose(roster *model.Roster, availability *model.Availability, cfg RunConfig) ([]allocator.FeasibilityWarning, error) {
	_, set, err := prepare(roster, cfg)
	if err != nil {
		return nil, err
	}
	return allocator.Diagnose(roster, availability, set), nil
}

func prepare(roster *model.Roster, cfg RunConfig) (model.Period, *requirements.Set, error) {
	if roster == nil {
		return model.Period{}, nil, configErrorf("roster", "is required")
	}
	if err := cfg.Validate(); err != nil {
		return model.Period{}, nil, err
	}

	period, err := cfg.Period()
	if err != nil {
		return model.Period{}, nil, configErrorf("start", "%s", err.Error())
	}

	set, err := requirements.Build(cfg.requirementsConfig(), period.Dates())
	if err != nil {
		return model.Period{}, nil, configErrorf("requirements", "%s", err.Error())
	}

	return period, set, nil
}
