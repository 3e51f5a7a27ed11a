package optimizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/spv-planning/pkg/core/allocator"
	"github.com/jakechorley/spv-planning/pkg/core/coverage"
	"github.com/jakechorley/spv-planning/pkg/core/model"
	"github.com/jakechorley/spv-planning/pkg/core/requirements"
)

func intPtr(i int) *int {
	return &i
}

func TestDefaultRunConfig_IsValid(t *testing.T) {
	cfg := DefaultRunConfig("2025-03-01", "2025-03-31")
	assert.NoError(t, cfg.Validate())

	cfg.Mode = requirements.ModeSimplified
	assert.NoError(t, cfg.Validate())
}

func TestValidate_ConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *RunConfig)
		field  string
	}{
		{"missing start", func(c *RunConfig) { c.Start = "" }, "start"},
		{"malformed end", func(c *RunConfig) { c.End = "31/03/2025" }, "end"},
		{"end before start", func(c *RunConfig) { c.End = "2025-02-01" }, "end"},
		{"period too long", func(c *RunConfig) { c.MaxPeriodDays = 10 }, "end"},
		{"unknown mode", func(c *RunConfig) { c.Mode = "AUTRE" }, "mode"},
		{"negative vehicle weight", func(c *RunConfig) { c.VehicleWeights["A1"] = -1 }, "vehicleWeights[A1]"},
		{"weight for unknown vehicle", func(c *RunConfig) { c.VehicleWeights["B7"] = 1 }, "vehicleWeights"},
		{"no vehicles", func(c *RunConfig) { c.Vehicles = nil }, "vehicles"},
		{"negative fairness", func(c *RunConfig) { c.FairnessCoefficient = -0.1 }, "fairnessCoefficient"},
		{"negative preference", func(c *RunConfig) { c.PreferenceCoefficient = -1 }, "preferenceCoefficient"},
		{"negative headcount", func(c *RunConfig) { c.PrimaryHeadcount = -3 }, "primaryHeadcount"},
		{"invalid crew slot", func(c *RunConfig) { c.CrewSlots = []model.Slot{5} }, "crewSlots[0]"},
		{"negative priority", func(c *RunConfig) { c.PriorityCoefficient = -1 }, "priorityCoefficient"},
		{"unknown fairness metric", func(c *RunConfig) { c.FairnessMetric = "gini" }, "fairnessMetric"},
		{"role priority for unknown grade", func(c *RunConfig) {
			c.RolePriorities = allocator.RolePriorities{model.GradeUnknown: {"amb_chef": 1}}
		}, "rolePriorities"},
		{"negative role priority", func(c *RunConfig) {
			c.RolePriorities = allocator.RolePriorities{model.GradeSapeur: {"amb_chef": -1}}
		}, "rolePriorities"},
		{"too many workers", func(c *RunConfig) { c.Workers = 100 }, "workers"},
		{"on-call need on slot 1", func(c *RunConfig) { c.OnCallNeeds[model.SlotPrimary] = map[string]int{"general": 1} }, "onCallNeeds"},
		{"negative on-call need", func(c *RunConfig) { c.OnCallNeeds[model.SlotEvening]["general"] = -2 }, "onCallNeeds"},
		{"quota min above max", func(c *RunConfig) { c.Quotas.Default = allocator.Quota{Min: intPtr(5), Max: intPtr(2)} }, "quotas"},
		{"negative firefighter quota", func(c *RunConfig) {
			c.Quotas.PerFirefighter = map[int64]allocator.Quota{4: {Max: intPtr(-1)}}
		}, "quotas"},
		{"duplicate slot order", func(c *RunConfig) { c.SlotOrder = []model.Slot{3, 3} }, "slotOrder"},
		{"unknown rank key", func(c *RunConfig) { c.RankOrder = []allocator.RankKey{"seniority"} }, "rankOrder"},
		{"threshold above 100", func(c *RunConfig) { c.Coverage.Role.High = 150 }, "coverage"},
		{"negative budget", func(c *RunConfig) { c.Budget.MaxPasses = -1 }, "budget"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultRunConfig("2025-03-01", "2025-03-31")
			tt.modify(&cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var configErr *ConfigError
			require.True(t, errors.As(err, &configErr), "got %T", err)
			assert.Equal(t, tt.field, configErr.Field)
			assert.NotEmpty(t, configErr.Reason)
		})
	}
}

func TestIsConfigError(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &ConfigError{Field: "mode", Reason: "unknown"})
	assert.True(t, IsConfigError(err))
	assert.False(t, IsConfigError(errors.New("boom")))
	assert.Equal(t, "invalid run configuration: mode: unknown", (&ConfigError{Field: "mode", Reason: "unknown"}).Error())
}

func TestRequirementsConfig(t *testing.T) {
	cfg := DefaultRunConfig("2025-03-01", "2025-03-02")
	cfg.VehicleWeights["F1"] = 3

	vehicles := cfg.requirementsConfig()
	assert.Empty(t, vehicles.Headcounts)
	assert.Empty(t, vehicles.OnCallNeeds)
	require.Len(t, vehicles.Vehicles, 3)
	assert.Equal(t, 3.0, vehicles.Vehicles[2].Weight)
	// The defaults are not modified
	assert.Equal(t, 1.0, cfg.Vehicles[2].Weight)

	cfg.Mode = requirements.ModeSimplified
	simplified := cfg.requirementsConfig()
	assert.Equal(t, map[model.Slot]int{model.SlotPrimary: 3}, simplified.Headcounts)
	assert.Len(t, simplified.OnCallNeeds, 3)
}

// exampleInputs has five firefighters, only the first of whom drives, over three days.
// Everyone is available on slots 1 and 2 for the first two days; on the third day only
// two firefighters are available for slot 1.
func exampleInputs(t *testing.T) (*model.Roster, *model.Availability, RunConfig) {
	t.Helper()

	firefighters := []model.Firefighter{
		{ID: 1, FirstName: "Alice", LastName: "Martin", Grade: model.GradeCaporal, Qualifications: []model.Qualification{model.QualB, model.QualCOD0}},
		{ID: 2, FirstName: "Bruno", LastName: "Petit", Grade: model.GradeSapeur},
		{ID: 3, FirstName: "Chloe", LastName: "Roux", Grade: model.GradeSapeur},
		{ID: 4, FirstName: "David", LastName: "Leroy", Grade: model.GradeSapeur},
		{ID: 5, FirstName: "Emma", LastName: "Faure", Grade: model.GradeSapeur},
	}
	model.ComputeDisplayNames(firefighters)
	roster, err := model.NewRoster(firefighters)
	require.NoError(t, err)

	var entries []model.AvailabilityEntry
	for _, f := range firefighters {
		for _, date := range []string{"2025-03-01", "2025-03-02"} {
			entries = append(entries,
				model.AvailabilityEntry{FirefighterID: f.ID, Date: date, Slot: model.SlotPrimary, Available: true},
				model.AvailabilityEntry{FirefighterID: f.ID, Date: date, Slot: model.SlotSecondary, Available: true},
			)
		}
	}
	entries = append(entries,
		model.AvailabilityEntry{FirefighterID: 1, Date: "2025-03-03", Slot: model.SlotSecondary, Available: true},
		model.AvailabilityEntry{FirefighterID: 2, Date: "2025-03-03", Slot: model.SlotPrimary, Available: true},
		model.AvailabilityEntry{FirefighterID: 3, Date: "2025-03-03", Slot: model.SlotPrimary, Available: true},
	)

	cfg := DefaultRunConfig("2025-03-01", "2025-03-03")
	cfg.Mode = requirements.ModeSimplified
	cfg.PrimaryHeadcount = 3
	cfg.OnCallNeeds = map[model.Slot]map[string]int{model.SlotSecondary: {requirements.RoleDriver: 1}}

	return roster, model.NewAvailability(entries), cfg
}

func TestRun_ExampleScenario(t *testing.T) {
	roster, availability, cfg := exampleInputs(t)

	result, err := Run(context.Background(), roster, availability, cfg)
	require.NoError(t, err)
	assert.Empty(t, result.ValidationErrors)
	assert.True(t, result.ImprovementComplete)

	for _, date := range []string{"2025-03-01", "2025-03-02"} {
		primary := result.Report.Calendar[date][model.SlotPrimary]
		assert.Len(t, primary.Assigned, 3)
		assert.Empty(t, primary.Shortages)
		assert.Equal(t, coverage.ColorGreen, primary.Color)

		secondary := result.Report.Calendar[date][model.SlotSecondary]
		require.Len(t, secondary.Assigned, 1)
		assert.Equal(t, int64(1), secondary.Assigned[0].ID)
		assert.Equal(t, "Alice", secondary.Assigned[0].Name)
		assert.Equal(t, coverage.CategoryOnCall, secondary.Assigned[0].Category)
		assert.Empty(t, secondary.Shortages)
	}

	third := result.Report.Calendar["2025-03-03"][model.SlotPrimary]
	assert.Equal(t, 66.7, third.CoveragePercent)
	assert.Equal(t, coverage.ColorOrange, third.Color)
	assert.Equal(t, map[string]int{requirements.RoleGeneral: 1}, third.Shortages)
	assert.Empty(t, third.MissingRoles)

	require.Len(t, result.Shortages, 1)
	assert.False(t, result.Complete())
	assert.Equal(t, 1.0, result.Report.KPIs[coverage.KPIShortages])
}

func TestRun_Deterministic(t *testing.T) {
	roster, availability, cfg := exampleInputs(t)

	first, err := Run(context.Background(), roster, availability, cfg)
	require.NoError(t, err)
	second, err := Run(context.Background(), roster, availability, cfg)
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first.Report)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second.Report)
	require.NoError(t, err)

	assert.Equal(t, first.Assignments, second.Assignments)
	assert.JSONEq(t, string(firstJSON), string(secondJSON))
}

func TestRun_MissingRoleIsNotAnError(t *testing.T) {
	roster, availability, cfg := exampleInputs(t)
	// Nobody can lead
	cfg.OnCallNeeds[model.SlotSecondary][requirements.RoleTeamLeader] = 1

	result, err := Run(context.Background(), roster, availability, cfg)
	require.NoError(t, err)

	cell := result.Report.Calendar["2025-03-01"][model.SlotSecondary]
	assert.Contains(t, cell.MissingRoles, requirements.RoleTeamLeader)
	assert.Equal(t, 1, cell.Shortages[requirements.RoleTeamLeader])
}

func TestRun_InvalidConfig(t *testing.T) {
	roster, availability, cfg := exampleInputs(t)
	cfg.FairnessCoefficient = -1

	result, err := Run(context.Background(), roster, availability, cfg)
	assert.Nil(t, result)
	assert.True(t, IsConfigError(err))

	_, err = Run(context.Background(), nil, availability, DefaultRunConfig("2025-03-01", "2025-03-02"))
	assert.True(t, IsConfigError(err))
}

func TestRun_UnknownOnCallRoleIsConfigError(t *testing.T) {
	roster, availability, cfg := exampleInputs(t)
	cfg.OnCallNeeds[model.SlotSecondary]["pilot"] = 1

	_, err := Run(context.Background(), roster, availability, cfg)
	var configErr *ConfigError
	require.True(t, errors.As(err, &configErr))
	assert.Equal(t, "requirements", configErr.Field)
}

func TestDiagnose(t *testing.T) {
	roster, availability, cfg := exampleInputs(t)

	warnings, err := Diagnose(roster, availability, cfg)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, "2025-03-03", warnings[0].Date)
	assert.Equal(t, model.SlotPrimary, warnings[0].Slot)
	assert.Equal(t, 2, warnings[0].Available)
	assert.Equal(t, 3, warnings[0].Required)
}
