package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/spv-planning/pkg/db"
)

// RunReader defines the database operations needed to read past runs
type RunReader interface {
	GetRuns(ctx context.Context) ([]db.Run, error)
	GetRun(ctx context.Context, id string) (*db.Run, error)
	GetAssignments(ctx context.Context, runID string) ([]db.Assignment, error)
}

// RunDetail is a stored run with its assignments
type RunDetail struct {
	Run         *db.Run
	Assignments []db.Assignment
}

// ListRuns returns the stored runs, latest first
func ListRuns(ctx context.Context, database RunReader, logger *zap.Logger) ([]db.Run, error) {
	logger.Debug("Fetching runs")
	runs, err := database.GetRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch runs: %w", err)
	}
	logger.Debug("Found runs", zap.Int("count", len(runs)))
	return runs, nil
}

// GetRun returns a stored run and its assignments. Returns db.ErrNotFound if the run does not exist.
func GetRun(ctx context.Context, database RunReader, runID string, logger *zap.Logger) (*RunDetail, error) {
	logger.Debug("Fetching run", zap.String("run_id", runID))
	run, err := database.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch run %s: %w", runID, err)
	}

	assignments, err := database.GetAssignments(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch assignments for run %s: %w", runID, err)
	}
	logger.Debug("Found assignments", zap.String("run_id", runID), zap.Int("count", len(assignments)))

	return &RunDetail{Run: run, Assignments: assignments}, nil
}

// GetPlan returns the plan of a run, from the cache when possible. cache may be nil.
// Returns db.ErrNotFound if the run does not exist.
func GetPlan(ctx context.Context, database RunReader, cache PlanCache, runID string, logger *zap.Logger) (*Plan, error) {
	if cache != nil {
		data, err := cache.GetPlan(ctx, runID)
		if err != nil {
			logger.Warn("Failed to read plan from cache", zap.String("run_id", runID), zap.Error(err))
		} else if data != nil {
			if plan, err := decodePlan(data); err == nil {
				logger.Debug("Plan served from cache", zap.String("run_id", runID))
				return plan, nil
			}
			logger.Warn("Ignoring invalid cached plan", zap.String("run_id", runID))
		}
	}

	run, err := database.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch run %s: %w", runID, err)
	}
	plan, err := decodePlan(run.Report)
	if err != nil {
		return nil, fmt.Errorf("failed to decode report of run %s: %w", runID, err)
	}
	return plan, nil
}

// GetLatestPlan returns the plan of the latest run. The cache is tried first and filled on a miss. cache may be nil.
// Returns db.ErrNotFound if no run has been stored.
func GetLatestPlan(ctx context.Context, database RunReader, cache PlanCache, logger *zap.Logger) (*Plan, error) {
	if cache != nil {
		data, err := cache.GetLatestPlan(ctx)
		if err != nil {
			logger.Warn("Failed to read latest plan from cache", zap.Error(err))
		} else if data != nil {
			if plan, err := decodePlan(data); err == nil {
				logger.Debug("Latest plan served from cache", zap.String("run_id", plan.RunID))
				return plan, nil
			}
			logger.Warn("Ignoring invalid cached latest plan")
		}
	}

	runs, err := database.GetRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch runs: %w", err)
	}
	if len(runs) == 0 {
		return nil, db.ErrNotFound
	}

	latest, err := database.GetRun(ctx, runs[0].ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch run %s: %w", runs[0].ID, err)
	}
	plan, err := decodePlan(latest.Report)
	if err != nil {
		return nil, fmt.Errorf("failed to decode report of run %s: %w", latest.ID, err)
	}

	if cache != nil {
		if err := cache.SetPlan(ctx, latest.ID, latest.Report); err != nil {
			logger.Warn("Failed to fill plan cache", zap.String("run_id", latest.ID), zap.Error(err))
		}
	}

	return plan, nil
}

func decodePlan(data []byte) (*Plan, error) {
	if len(data) == 0 {
		return nil, errors.New("empty plan")
	}
	var plan Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}
