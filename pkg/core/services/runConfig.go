package services

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/jakechorley/spv-planning/internal/config"
	"github.com/jakechorley/spv-planning/pkg/core/allocator"
	"github.com/jakechorley/spv-planning/pkg/core/coverage"
	"github.com/jakechorley/spv-planning/pkg/core/model"
	"github.com/jakechorley/spv-planning/pkg/core/optimizer"
	"github.com/jakechorley/spv-planning/pkg/core/requirements"
)

// OptimizeParams are the per-request settings of a run. Unset fields keep the configured defaults.
type OptimizeParams struct {
	Start string
	End   string
	Mode  string

	VehicleWeights        map[string]float64
	FairnessCoefficient   *float64
	PreferenceCoefficient *float64

	QuotaMin *int
	QuotaMax *int

	// OnCallNeeds sets the general on-call need of slots 2 to 4 in simplified mode
	OnCallNeeds map[model.Slot]int

	DryRun bool
}

// BuildRunConfig layers the configured optimizer defaults and the request parameters over the built-in defaults.
// The result is not validated; optimizer.Run reports invalid fields as a *optimizer.ConfigError.
func BuildRunConfig(cfg *config.OptimizerConfig, params OptimizeParams, logger *zap.Logger) (optimizer.RunConfig, error) {
	runCfg := optimizer.DefaultRunConfig(params.Start, params.End)

	if cfg != nil {
		if err := applyOptimizerConfig(&runCfg, cfg, logger); err != nil {
			return optimizer.RunConfig{}, err
		}
	}

	if params.Mode != "" {
		runCfg.Mode = requirements.Mode(strings.ToUpper(strings.TrimSpace(params.Mode)))
	}
	for name, weight := range params.VehicleWeights {
		runCfg.VehicleWeights[name] = weight
	}
	if params.FairnessCoefficient != nil {
		runCfg.FairnessCoefficient = *params.FairnessCoefficient
	}
	if params.PreferenceCoefficient != nil {
		runCfg.PreferenceCoefficient = *params.PreferenceCoefficient
	}
	if params.QuotaMin != nil {
		runCfg.Quotas.Default.Min = params.QuotaMin
	}
	if params.QuotaMax != nil {
		runCfg.Quotas.Default.Max = params.QuotaMax
	}
	for slot, count := range params.OnCallNeeds {
		runCfg.OnCallNeeds[slot] = map[string]int{requirements.RoleGeneral: count}
	}

	return runCfg, nil
}

func applyOptimizerConfig(runCfg *optimizer.RunConfig, cfg *config.OptimizerConfig, logger *zap.Logger) error {
	if cfg.Mode != "" {
		runCfg.Mode = requirements.Mode(cfg.Mode)
	}
	for name, weight := range cfg.VehicleWeights {
		runCfg.VehicleWeights[name] = weight
	}
	if len(cfg.CrewSlots) > 0 {
		runCfg.CrewSlots = toSlots(cfg.CrewSlots)
	}
	if cfg.PrimaryHeadcount != nil {
		runCfg.PrimaryHeadcount = *cfg.PrimaryHeadcount
	}
	if len(cfg.OnCallNeeds) > 0 {
		runCfg.OnCallNeeds = toSlotNeeds(cfg.OnCallNeeds)
	}

	if cfg.FairnessCoefficient != nil {
		runCfg.FairnessCoefficient = *cfg.FairnessCoefficient
	}
	if cfg.PreferenceCoefficient != nil {
		runCfg.PreferenceCoefficient = *cfg.PreferenceCoefficient
	}
	if cfg.QuotaMinCoefficient != nil {
		runCfg.QuotaMinCoefficient = *cfg.QuotaMinCoefficient
	}
	if cfg.RestCoefficient != nil {
		runCfg.RestCoefficient = *cfg.RestCoefficient
	}
	if cfg.MaxConsecutiveOnCall != nil {
		runCfg.MaxConsecutiveOnCall = *cfg.MaxConsecutiveOnCall
	}
	if cfg.PriorityCoefficient != nil {
		runCfg.PriorityCoefficient = *cfg.PriorityCoefficient
	}
	if cfg.FairnessMetric != "" {
		runCfg.FairnessMetric = allocator.FairnessMetric(cfg.FairnessMetric)
	}
	if len(cfg.RolePriorities) > 0 {
		priorities, err := toRolePriorities(cfg.RolePriorities)
		if err != nil {
			return err
		}
		runCfg.RolePriorities = priorities
	}

	runCfg.Quotas.Default = allocator.Quota{Min: cfg.QuotaMin, Max: cfg.QuotaMax}

	if len(cfg.SlotOrder) > 0 {
		runCfg.SlotOrder = toSlots(cfg.SlotOrder)
	}
	if len(cfg.RankOrder) > 0 {
		runCfg.RankOrder = make([]allocator.RankKey, len(cfg.RankOrder))
		for i, key := range cfg.RankOrder {
			runCfg.RankOrder[i] = allocator.RankKey(key)
		}
	}

	applyCoverageConfig(&runCfg.Coverage, cfg.Coverage)

	if cfg.MaxIterations != nil {
		runCfg.Budget.MaxIterations = *cfg.MaxIterations
	}
	if cfg.MaxPasses != nil {
		runCfg.Budget.MaxPasses = *cfg.MaxPasses
	}
	if cfg.Timeout > 0 {
		runCfg.Budget.MaxDuration = cfg.Timeout
	}
	if cfg.Workers > 0 {
		runCfg.Workers = cfg.Workers
	}
	if cfg.MaxPeriodDays > 0 {
		runCfg.MaxPeriodDays = cfg.MaxPeriodDays
	}

	if len(cfg.Overrides) > 0 {
		period, err := runCfg.Period()
		if err != nil {
			// The period is reported by validation
			logger.Debug("Skipping requirement overrides for invalid period", zap.Error(err))
			return nil
		}
		overrides, err := convertRequirementOverrides(cfg.Overrides, period, logger)
		if err != nil {
			return err
		}
		runCfg.Overrides = overrides
	}

	return nil
}

func applyCoverageConfig(policy *coverage.Policy, cfg config.CoverageConfig) {
	if cfg.Role != nil {
		policy.Role = coverage.Thresholds{High: cfg.Role.High, Mid: cfg.Role.Mid}
	}
	if cfg.Headcount != nil {
		policy.Headcount = coverage.Thresholds{High: cfg.Headcount.High, Mid: cfg.Headcount.Mid}
	}
	if cfg.Precision != nil {
		policy.Precision = *cfg.Precision
	}
	for slot, hours := range cfg.SlotHours {
		policy.SlotHours[model.Slot(slot)] = hours
	}
}

// convertRequirementOverrides resolves each override's rrule to the set of matching dates of the period
func toRolePriorities(labels map[string]map[string]int) (allocator.RolePriorities, error) {
	priorities := make(allocator.RolePriorities, len(labels))
	for label, roles := range labels {
		grade, err := model.ParseGrade(label)
		if err != nil {
			return nil, fmt.Errorf("failed to parse role priorities: %w", err)
		}
		if priorities[grade] == nil {
			priorities[grade] = make(map[string]int, len(roles))
		}
		for role, priority := range roles {
			priorities[grade][role] = priority
		}
	}
	return priorities, nil
}

func convertRequirementOverrides(configOverrides []config.RequirementOverride, period model.Period, logger *zap.Logger) ([]requirements.Override, error) {
	result := make([]requirements.Override, 0, len(configOverrides))

	// Search one week either side of the period so weekly rules anchor correctly
	searchStart := period.Start.AddDate(0, 0, -7)
	searchEnd := period.End.AddDate(0, 0, 7)

	for i, override := range configOverrides {
		rule, err := rrule.StrToRRule(override.RRule)
		if err != nil {
			return nil, fmt.Errorf("failed to parse rrule for override %d: %w", i, err)
		}
		rule.DTStart(searchStart)

		dates := make(map[string]bool)
		for _, occurrence := range rule.Between(searchStart, searchEnd, true) {
			dates[occurrence.Format(model.DateLayout)] = true
		}

		var headcounts map[model.Slot]int
		if len(override.Headcounts) > 0 {
			headcounts = make(map[model.Slot]int, len(override.Headcounts))
			for slot, count := range override.Headcounts {
				headcounts[model.Slot(slot)] = count
			}
		}

		var onCallNeeds map[model.Slot]map[string]int
		if len(override.OnCallNeeds) > 0 {
			onCallNeeds = toSlotNeeds(override.OnCallNeeds)
		}

		result = append(result, requirements.Override{
			AppliesTo:   func(date string) bool { return dates[date] },
			Headcounts:  headcounts,
			OnCallNeeds: onCallNeeds,
			Vehicles:    slices.Clone(override.Vehicles),
		})

		logger.Debug("Converted requirement override",
			zap.Int("index", i),
			zap.String("rrule", override.RRule),
			zap.Int("matching_dates", len(dates)),
			zap.Bool("has_headcounts", headcounts != nil),
			zap.Int("vehicle_count", len(override.Vehicles)))
	}

	return result, nil
}

func toSlots(values []int) []model.Slot {
	slots := make([]model.Slot, len(values))
	for i, v := range values {
		slots[i] = model.Slot(v)
	}
	return slots
}

func toSlotNeeds(needs map[int]map[string]int) map[model.Slot]map[string]int {
	result := make(map[model.Slot]map[string]int, len(needs))
	for slot, roles := range needs {
		counts := make(map[string]int, len(roles))
		for role, count := range roles {
			counts[role] = count
		}
		result[model.Slot(slot)] = counts
	}
	return result
}

// NextMonthPeriod returns the first and last day of the calendar month after now
func NextMonthPeriod(now time.Time) (string, string) {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	last := first.AddDate(0, 1, -1)
	return first.Format(model.DateLayout), last.Format(model.DateLayout)
}
