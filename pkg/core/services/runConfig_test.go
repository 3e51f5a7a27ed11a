package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/spv-planning/internal/config"
	"github.com/jakechorley/spv-planning/pkg/core/allocator"
	"github.com/jakechorley/spv-planning/pkg/core/coverage"
	"github.com/jakechorley/spv-planning/pkg/core/model"
	"github.com/jakechorley/spv-planning/pkg/core/optimizer"
	"github.com/jakechorley/spv-planning/pkg/core/requirements"
)

func TestBuildRunConfig_Defaults(t *testing.T) {
	runCfg, err := BuildRunConfig(nil, oneDay(), zap.NewNop())
	require.NoError(t, err)

	expected := optimizer.DefaultRunConfig("2025-03-01", "2025-03-01")
	assert.Equal(t, expected.Mode, runCfg.Mode)
	assert.Equal(t, expected.VehicleWeights, runCfg.VehicleWeights)
	assert.Equal(t, expected.FairnessCoefficient, runCfg.FairnessCoefficient)
	assert.Equal(t, expected.Budget, runCfg.Budget)
	assert.NoError(t, runCfg.Validate())
}

func TestBuildRunConfig_ConfigThenParams(t *testing.T) {
	cfg := &config.OptimizerConfig{
		Mode:                "SIMPLIFIE",
		VehicleWeights:      map[string]float64{"F1": 2},
		PrimaryHeadcount:    intPtr(4),
		OnCallNeeds:         map[int]map[string]int{3: {"general": 1, "driver": 1}},
		FairnessCoefficient: float64Ptr(0.5),
		RestCoefficient:     float64Ptr(0),
		FairnessMetric:      "range",
		QuotaMin:            intPtr(1),
		QuotaMax:            intPtr(8),
		SlotOrder:           []int{3, 1, 2, 4},
		RankOrder:           []string{"load", "qualification"},
		Coverage: config.CoverageConfig{
			Headcount: &config.Thresholds{High: 80, Mid: 50},
			Precision: intPtr(0),
			SlotHours: map[int]float64{3: 24},
		},
		MaxIterations: intPtr(10),
		Timeout:       2 * time.Second,
		Workers:       4,
	}

	params := OptimizeParams{
		Start:                 "2025-03-01",
		End:                   "2025-03-31",
		Mode:                  " vehicules ",
		VehicleWeights:        map[string]float64{"A1": 3},
		PreferenceCoefficient: float64Ptr(0.2),
		QuotaMax:              intPtr(6),
		OnCallNeeds:           map[model.Slot]int{model.SlotEvening: 3},
	}

	runCfg, err := BuildRunConfig(cfg, params, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, requirements.ModeVehicles, runCfg.Mode)
	assert.Equal(t, map[string]float64{"A1": 3, "A2": 1, "F1": 2}, runCfg.VehicleWeights)
	assert.Equal(t, 4, runCfg.PrimaryHeadcount)
	assert.Equal(t, map[model.Slot]map[string]int{
		model.SlotOnCall:  {"general": 1, "driver": 1},
		model.SlotEvening: {"general": 3},
	}, runCfg.OnCallNeeds)
	assert.Equal(t, 0.5, runCfg.FairnessCoefficient)
	assert.Equal(t, 0.2, runCfg.PreferenceCoefficient)
	assert.Equal(t, 0.0, runCfg.RestCoefficient)
	assert.Equal(t, allocator.FairnessRange, runCfg.FairnessMetric)
	assert.Equal(t, 1, *runCfg.Quotas.Default.Min)
	assert.Equal(t, 6, *runCfg.Quotas.Default.Max)
	assert.Equal(t, []model.Slot{3, 1, 2, 4}, runCfg.SlotOrder)
	assert.Equal(t, []allocator.RankKey{allocator.RankLoad, allocator.RankQualificationFit}, runCfg.RankOrder)
	assert.Equal(t, coverage.Thresholds{High: 80, Mid: 50}, runCfg.Coverage.Headcount)
	assert.Equal(t, coverage.Thresholds{High: 100, Mid: 50}, runCfg.Coverage.Role)
	assert.Equal(t, 0, runCfg.Coverage.Precision)
	assert.Equal(t, 24.0, runCfg.Coverage.SlotHours[model.SlotOnCall])
	assert.Equal(t, 10, runCfg.Budget.MaxIterations)
	assert.Equal(t, 2*time.Second, runCfg.Budget.MaxDuration)
	assert.Equal(t, 4, runCfg.Workers)
	assert.NoError(t, runCfg.Validate())
}

func TestBuildRunConfig_DoesNotShareDefaults(t *testing.T) {
	cfg := &config.OptimizerConfig{Coverage: config.CoverageConfig{SlotHours: map[int]float64{1: 8}}}

	first, err := BuildRunConfig(cfg, oneDay(), zap.NewNop())
	require.NoError(t, err)
	second, err := BuildRunConfig(nil, oneDay(), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 8.0, first.Coverage.SlotHours[model.SlotPrimary])
	assert.Equal(t, 6.0, second.Coverage.SlotHours[model.SlotPrimary])
}

func TestBuildRunConfig_Overrides(t *testing.T) {
	cfg := &config.OptimizerConfig{
		Overrides: []config.RequirementOverride{
			{RRule: "FREQ=WEEKLY;BYDAY=SA,SU", Headcounts: map[int]int{1: 5}},
			{RRule: "FREQ=MONTHLY;BYMONTHDAY=15", Vehicles: []string{"A1"}},
		},
	}
	params := OptimizeParams{Start: "2025-03-01", End: "2025-03-31"}

	runCfg, err := BuildRunConfig(cfg, params, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, runCfg.Overrides, 2)

	weekend := runCfg.Overrides[0]
	assert.True(t, weekend.AppliesTo("2025-03-01"))  // Saturday
	assert.True(t, weekend.AppliesTo("2025-03-09"))  // Sunday
	assert.False(t, weekend.AppliesTo("2025-03-03")) // Monday
	assert.True(t, weekend.AppliesTo("2025-03-30"))
	assert.Equal(t, map[model.Slot]int{model.SlotPrimary: 5}, weekend.Headcounts)
	assert.Nil(t, weekend.OnCallNeeds)

	monthly := runCfg.Overrides[1]
	assert.True(t, monthly.AppliesTo("2025-03-15"))
	assert.False(t, monthly.AppliesTo("2025-03-16"))
	assert.Equal(t, []string{"A1"}, monthly.Vehicles)
	assert.Nil(t, monthly.Headcounts)
}

func TestBuildRunConfig_InvalidRRule(t *testing.T) {
	cfg := &config.OptimizerConfig{
		Overrides: []config.RequirementOverride{{RRule: "FREQ=SOMETIMES"}},
	}

	_, err := BuildRunConfig(cfg, oneDay(), zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse rrule for override 0")
}

func TestBuildRunConfig_RolePriorities(t *testing.T) {
	cfg := &config.OptimizerConfig{
		PriorityCoefficient: float64Ptr(2),
		RolePriorities: map[string]map[string]int{
			"sap":       {requirements.RoleAmbChef: 3, requirements.RoleAmbEquiSUAP: 1},
			"Sergent":   {requirements.RoleAmbChef: 1},
			"adjudant ": {requirements.RoleFptChef: 1},
		},
	}

	runCfg, err := BuildRunConfig(cfg, oneDay(), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, runCfg.Validate())

	assert.Equal(t, 2.0, runCfg.PriorityCoefficient)
	assert.Equal(t, allocator.RolePriorities{
		model.GradeSapeur:   {requirements.RoleAmbChef: 3, requirements.RoleAmbEquiSUAP: 1},
		model.GradeSergent:  {requirements.RoleAmbChef: 1},
		model.GradeAdjudant: {requirements.RoleFptChef: 1},
	}, runCfg.RolePriorities)
}

func TestBuildRunConfig_RolePrioritiesUnknownGrade(t *testing.T) {
	cfg := &config.OptimizerConfig{
		RolePriorities: map[string]map[string]int{"general": {requirements.RoleAmbChef: 1}},
	}

	_, err := BuildRunConfig(cfg, oneDay(), zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse role priorities")
}

func TestBuildRunConfig_OverridesSkippedForInvalidPeriod(t *testing.T) {
	cfg := &config.OptimizerConfig{
		Overrides: []config.RequirementOverride{{RRule: "FREQ=DAILY"}},
	}

	runCfg, err := BuildRunConfig(cfg, OptimizeParams{Start: "March", End: "2025-03-31"}, zap.NewNop())
	require.NoError(t, err)
	assert.Empty(t, runCfg.Overrides)

	var configErr *optimizer.ConfigError
	require.ErrorAs(t, runCfg.Validate(), &configErr)
	assert.Equal(t, "start", configErr.Field)
}

func TestNextMonthPeriod(t *testing.T) {
	tests := []struct {
		now   time.Time
		start string
		end   string
	}{
		{time.Date(2025, 1, 31, 18, 0, 0, 0, time.UTC), "2025-02-01", "2025-02-28"},
		{time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC), "2025-01-01", "2025-01-31"},
		{time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), "2024-02-01", "2024-02-29"},
	}

	for _, tt := range tests {
		start, end := NextMonthPeriod(tt.now)
		assert.Equal(t, tt.start, start)
		assert.Equal(t, tt.end, end)
	}
}
