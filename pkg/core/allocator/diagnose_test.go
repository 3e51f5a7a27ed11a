package allocator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/spv-planning/pkg/core/allocator"
	"github.com/jakechorley/spv-planning/pkg/core/model"
	"github.com/jakechorley/spv-planning/pkg/core/requirements"
)

func TestDiagnose(t *testing.T) {
	date := "2025-02-03"
	roster, err := model.NewRoster([]model.Firefighter{
		firefighter(1, model.QualSUAP),
		firefighter(2),
		firefighter(3, model.QualB, model.QualCOD0, model.QualCOD1, model.QualPL),
	})
	require.NoError(t, err)

	set, err := requirements.Build(vehicleConfig(), []string{date})
	require.NoError(t, err)

	var entries []model.AvailabilityEntry
	for _, id := range []int64{1, 2, 3} {
		entries = append(entries, model.AvailabilityEntry{FirefighterID: id, Date: date, Slot: model.SlotOnCall, Available: true})
	}

	warnings := allocator.Diagnose(roster, model.NewAvailability(entries), set)
	require.NotEmpty(t, warnings)

	// Headcount warning first: 3 available for 9 seats
	assert.Equal(t, allocator.FeasibilityWarning{Date: date, Slot: model.SlotOnCall, Available: 3, Required: 9}, warnings[0])

	byRole := make(map[string]allocator.FeasibilityWarning)
	for _, w := range warnings[1:] {
		byRole[w.Role] = w
	}
	// Both ambulances need a chief and nobody has the grade
	assert.Equal(t, 0, byRole[requirements.RoleAmbChef].Available)
	assert.Equal(t, 2, byRole[requirements.RoleAmbChef].Required)
	// One SUAP holder for two ambulances
	assert.Equal(t, 1, byRole[requirements.RoleAmbEquiSUAP].Available)
	// Firefighter 3 can drive anything
	assert.NotContains(t, byRole, requirements.RoleFptCond)
	assert.Contains(t, warnings[0].String(), "3 available for 9 required")
}

func TestDiagnose_NoWarningsWhenFeasible(t *testing.T) {
	s := driverScenario(t, 2)
	config := s.config(t)

	assert.Empty(t, allocator.Diagnose(config.Roster, config.Availability, config.Requirements))
}
