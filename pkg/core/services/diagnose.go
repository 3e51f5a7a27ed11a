package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/spv-planning/internal/config"
	"github.com/jakechorley/spv-planning/pkg/core/allocator"
	"github.com/jakechorley/spv-planning/pkg/core/optimizer"
	"github.com/jakechorley/spv-planning/pkg/db"
)

// DiagnoseResult lists the requirements the declared availability cannot cover
type DiagnoseResult struct {
	Start    string
	End      string
	Mode     string
	Warnings []allocator.FeasibilityWarning
}

// Diagnose checks, before any assignment, which (date, slot) requirements cannot be met with the declared availability
func Diagnose(
	ctx context.Context,
	database db.RosterStore,
	cfg *config.Config,
	params OptimizeParams,
	logger *zap.Logger,
) (*DiagnoseResult, error) {
	logger.Debug("Starting diagnose",
		zap.String("start", params.Start),
		zap.String("end", params.End),
		zap.String("mode", params.Mode))

	runCfg, err := BuildRunConfig(optimizerConfig(cfg), params, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build run configuration: %w", err)
	}
	if err := runCfg.Validate(); err != nil {
		return nil, err
	}

	roster, availability, err := loadRoster(ctx, database, runCfg.Start, runCfg.End, logger)
	if err != nil {
		return nil, err
	}

	warnings, err := optimizer.Diagnose(roster, availability, runCfg)
	if err != nil {
		return nil, err
	}

	for _, w := range warnings {
		logger.Debug("Feasibility warning", zap.String("warning", w.String()))
	}
	logger.Info("Diagnosis complete",
		zap.String("mode", string(runCfg.Mode)),
		zap.Int("warnings", len(warnings)))

	return &DiagnoseResult{
		Start:    runCfg.Start,
		End:      runCfg.End,
		Mode:     string(runCfg.Mode),
		Warnings: warnings,
	}, nil
}

// ValidateParams checks a run configuration without loading any data.
// Returns a *optimizer.ConfigError naming the invalid field.
func ValidateParams(cfg *config.Config, params OptimizeParams, logger *zap.Logger) error {
	runCfg, err := BuildRunConfig(optimizerConfig(cfg), params, logger)
	if err != nil {
		return err
	}
	return runCfg.Validate()
}
