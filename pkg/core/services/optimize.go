package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/spv-planning/internal/config"
	"github.com/jakechorley/spv-planning/pkg/core/model"
	"github.com/jakechorley/spv-planning/pkg/core/optimizer"
	"github.com/jakechorley/spv-planning/pkg/db"
	"github.com/jakechorley/spv-planning/pkg/events"
)

// OptimizeStore defines the database operations needed for an optimization run
type OptimizeStore interface {
	db.RosterStore
	InsertRun(ctx context.Context, run *db.Run, assignments []db.Assignment) error
}

// Recorder records run metrics
type Recorder interface {
	RecordRun(mode string, elapsed time.Duration, shortages int, averageCoverage float64)
	RecordFailure(mode string, configError bool)
}

// PlanCache stores serialized plans. Getters return nil data on a miss.
type PlanCache interface {
	SetPlan(ctx context.Context, runID string, data []byte) error
	GetPlan(ctx context.Context, runID string) ([]byte, error)
	GetLatestPlan(ctx context.Context) ([]byte, error)
}

// EventPublisher announces computed plans
type EventPublisher interface {
	PublishPlanComputed(ctx context.Context, event events.PlanComputed) error
}

// Hooks are the optional side effects of a run. Nil hooks are skipped.
type Hooks struct {
	Recorder  Recorder
	Cache     PlanCache
	Publisher EventPublisher
}

// OptimizeResult contains the optimization results
type OptimizeResult struct {
	RunID     string
	Result    *optimizer.Result
	Plan      *Plan
	Persisted bool
}

// Optimize loads the roster and availability of the period, runs the optimizer and stores the plan.
// If params.DryRun is true, the plan is neither stored, cached nor published.
// Invalid configurations are returned as a *optimizer.ConfigError.
func Optimize(
	ctx context.Context,
	database OptimizeStore,
	hooks Hooks,
	cfg *config.Config,
	params OptimizeParams,
	logger *zap.Logger,
) (*OptimizeResult, error) {
	logger.Debug("Starting optimize",
		zap.String("start", params.Start),
		zap.String("end", params.End),
		zap.String("mode", params.Mode),
		zap.Bool("dry_run", params.DryRun))

	// Step 1: Build and validate the run configuration
	runCfg, err := BuildRunConfig(optimizerConfig(cfg), params, logger)
	if err != nil {
		recordFailure(hooks, string(runCfg.Mode), false)
		return nil, fmt.Errorf("failed to build run configuration: %w", err)
	}
	if err := runCfg.Validate(); err != nil {
		recordFailure(hooks, string(runCfg.Mode), true)
		return nil, err
	}
	mode := string(runCfg.Mode)
	logger.Debug("Run configuration", zap.String("mode", mode), zap.Int("override_count", len(runCfg.Overrides)))

	// Step 2: Load roster and availability
	roster, availability, err := loadRoster(ctx, database, runCfg.Start, runCfg.End, logger)
	if err != nil {
		recordFailure(hooks, mode, false)
		return nil, err
	}

	// Step 3: Run the optimizer
	started := time.Now()
	result, err := optimizer.Run(ctx, roster, availability, runCfg)
	if err != nil {
		recordFailure(hooks, mode, optimizer.IsConfigError(err))
		return nil, err
	}
	elapsed := time.Since(started)

	logger.Debug("Optimizer finished",
		zap.Duration("elapsed", elapsed),
		zap.Int("iterations", result.Iterations),
		zap.Int("passes", result.Passes),
		zap.Bool("improvement_complete", result.ImprovementComplete),
		zap.Bool("fill_interrupted", result.FillInterrupted))

	for _, shortage := range result.Shortages {
		logger.Warn("Unfilled requirement",
			zap.String("date", shortage.Date),
			zap.Int("slot", int(shortage.Slot)),
			zap.String("need", shortage.Key),
			zap.Int("missing", shortage.Missing),
			zap.Int("required", shortage.Required))
	}
	for _, validationErr := range result.ValidationErrors {
		logger.Warn("Plan validation error",
			zap.String("date", validationErr.Date),
			zap.Int("slot", int(validationErr.Slot)),
			zap.Int64("firefighter_id", validationErr.FirefighterID),
			zap.String("criterion", validationErr.CriterionName),
			zap.String("description", validationErr.Description))
	}

	// Step 4: Build the plan
	runID := uuid.New().String()
	createdAt := time.Now().UTC().Format(db.TimestampLayout)
	plan := newPlan(runID, createdAt, result)

	optimizeResult := &OptimizeResult{RunID: runID, Result: result, Plan: plan}

	if hooks.Recorder != nil {
		hooks.Recorder.RecordRun(mode, elapsed, plan.ShortageCount(), plan.AverageCoverage())
	}

	logger.Info("Optimization complete",
		zap.String("run_id", runID),
		zap.String("mode", mode),
		zap.Int("assignments", len(result.Assignments)),
		zap.Int("shortages", plan.ShortageCount()),
		zap.Float64("average_coverage", plan.AverageCoverage()))

	if params.DryRun {
		logger.Debug("Dry run, plan not saved")
		return optimizeResult, nil
	}

	// Step 5: Persist the run and its assignments
	report, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("failed to encode plan: %w", err)
	}

	run := &db.Run{
		ID:                  runID,
		PeriodStart:         plan.PeriodStart,
		PeriodEnd:           plan.PeriodEnd,
		Mode:                mode,
		CreatedAt:           createdAt,
		Score:               result.Score.Total,
		AverageCoverage:     plan.AverageCoverage(),
		ShortageCount:       plan.ShortageCount(),
		AssignmentCount:     len(result.Assignments),
		ImprovementComplete: result.ImprovementComplete,
		Report:              report,
	}
	rows := convertToAssignmentRows(runID, result.Assignments, func() string { return uuid.New().String() })

	logger.Debug("Saving run", zap.String("run_id", runID), zap.Int("assignment_count", len(rows)))
	if err := database.InsertRun(ctx, run, rows); err != nil {
		return nil, fmt.Errorf("failed to save run: %w", err)
	}
	optimizeResult.Persisted = true

	// Step 6: Cache and announce the plan. Failures here do not fail the run.
	if hooks.Cache != nil {
		if err := hooks.Cache.SetPlan(ctx, runID, report); err != nil {
			logger.Warn("Failed to cache plan", zap.String("run_id", runID), zap.Error(err))
		}
	}
	if hooks.Publisher != nil {
		event := events.PlanComputed{
			RunID:           runID,
			PeriodStart:     plan.PeriodStart,
			PeriodEnd:       plan.PeriodEnd,
			Mode:            mode,
			Assignments:     len(result.Assignments),
			Shortages:       plan.ShortageCount(),
			AverageCoverage: plan.AverageCoverage(),
			CreatedAt:       createdAt,
		}
		if err := hooks.Publisher.PublishPlanComputed(ctx, event); err != nil {
			logger.Warn("Failed to publish plan event", zap.String("run_id", runID), zap.Error(err))
		}
	}

	return optimizeResult, nil
}

// loadRoster fetches firefighters and the period's availability and converts them to the roster model
func loadRoster(ctx context.Context, database db.RosterStore, start, end string, logger *zap.Logger) (*model.Roster, *model.Availability, error) {
	logger.Debug("Fetching firefighters")
	firefighters, err := database.ListFirefighters(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch firefighters: %w", err)
	}
	logger.Debug("Found firefighters", zap.Int("count", len(firefighters)))

	logger.Debug("Fetching availability", zap.String("start", start), zap.String("end", end))
	entries, err := database.ListAvailability(ctx, start, end)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch availability: %w", err)
	}
	logger.Debug("Found availability", zap.Int("count", len(entries)))

	roster, err := convertToRoster(firefighters, logger)
	if err != nil {
		return nil, nil, err
	}
	return roster, convertToAvailability(entries, logger), nil
}

func optimizerConfig(cfg *config.Config) *config.OptimizerConfig {
	if cfg == nil {
		return nil
	}
	return &cfg.Optimizer
}

func recordFailure(hooks Hooks, mode string, configError bool) {
	if hooks.Recorder != nil {
		hooks.Recorder.RecordFailure(mode, configError)
	}
}
