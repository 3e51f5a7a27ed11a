package services

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/spv-planning/pkg/core/model"
	"github.com/jakechorley/spv-planning/pkg/db"
)

func TestConvertToRoster(t *testing.T) {
	firefighters := []db.Firefighter{
		{ID: 7, FirstName: "Alice", LastName: "Durand", Grade: "Sergent-chef", EmploymentType: "SPP",
			Qualifications: []string{"SUAP", "COD0"}, PreferredSlots: []int{3}, PreferredVehicles: []string{"A1"}, PreferenceWeight: 2},
		{ID: 3, FirstName: "Bruno", LastName: "Martin", Grade: "général", EmploymentType: "intérimaire"},
		{ID: 5, FirstName: "Bruno", LastName: "Petit"},
	}

	roster, err := convertToRoster(firefighters, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, 3, roster.Len())

	alice, ok := roster.Get(7)
	require.True(t, ok)
	assert.Equal(t, model.GradeSergent, alice.Grade)
	assert.Equal(t, model.EmploymentProfessional, alice.Type)
	assert.Equal(t, []model.Qualification{model.QualSUAP, model.QualCOD0}, alice.Qualifications)
	assert.Equal(t, []model.Slot{model.SlotOnCall}, alice.Preferences.Slots)
	assert.Equal(t, []string{"A1"}, alice.Preferences.Vehicles)
	assert.Equal(t, 2.0, alice.Preferences.Weight)
	assert.Equal(t, "Alice", alice.DisplayName)

	// Unknown labels fall back to defaults
	bruno, ok := roster.Get(3)
	require.True(t, ok)
	assert.Equal(t, model.GradeUnknown, bruno.Grade)
	assert.Equal(t, model.EmploymentVolunteer, bruno.Type)
	assert.Equal(t, "Bruno M.", bruno.DisplayName)

	petit, ok := roster.Get(5)
	require.True(t, ok)
	assert.Equal(t, model.GradeUnknown, petit.Grade)
	assert.Equal(t, "Bruno P.", petit.DisplayName)
}

func TestConvertToRoster_DuplicateID(t *testing.T) {
	_, err := convertToRoster([]db.Firefighter{{ID: 1}, {ID: 1}}, zap.NewNop())
	assert.ErrorContains(t, err, "duplicate firefighter id: 1")
}

func TestConvertToAvailability(t *testing.T) {
	availability := convertToAvailability([]db.Availability{
		{FirefighterID: 1, Date: "2025-03-01", Slot: 3, Available: true},
		{FirefighterID: 1, Date: "2025-03-01", Slot: 1, Available: false},
		{FirefighterID: 2, Date: "2025-03-01", Slot: 7, Available: true},
	}, zap.NewNop())

	assert.True(t, availability.IsAvailable(1, "2025-03-01", model.SlotOnCall))
	assert.False(t, availability.IsAvailable(1, "2025-03-01", model.SlotPrimary))
	assert.False(t, availability.HasAnyAvailability(2))
}

func TestConvertToAssignmentRows(t *testing.T) {
	next := 0
	newID := func() string {
		next++
		return "row-" + strconv.Itoa(next)
	}

	rows := convertToAssignmentRows("run-1", []model.Assignment{
		{Date: "2025-03-01", Slot: model.SlotOnCall, Vehicle: "A1", Role: "amb_chef", FirefighterID: 4, FirefighterName: "Alice", OnCall: true},
		{Date: "2025-03-01", Slot: model.SlotPrimary, Role: "general", FirefighterID: 2, FirefighterName: "Bruno"},
	}, newID)

	assert.Equal(t, []db.Assignment{
		{ID: "row-1", RunID: "run-1", Date: "2025-03-01", Slot: 3, Vehicle: "A1", Role: "amb_chef", FirefighterID: 4, FirefighterName: "Alice", OnCall: true},
		{ID: "row-2", RunID: "run-1", Date: "2025-03-01", Slot: 1, Role: "general", FirefighterID: 2, FirefighterName: "Bruno"},
	}, rows)
}

func TestDiagnose(t *testing.T) {
	store := rosterStore(2)
	// Nobody is available on slot 2
	var slotOne []db.Availability
	for _, a := range store.availability {
		if a.Slot == 1 {
			slotOne = append(slotOne, a)
		}
	}
	store.availability = slotOne

	result, err := Diagnose(context.Background(), store, simplifiedConfig(), oneDay(), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "SIMPLIFIE", result.Mode)
	require.Len(t, result.Warnings, 2)
	assert.Equal(t, model.SlotPrimary, result.Warnings[0].Slot)
	assert.Equal(t, 2, result.Warnings[0].Available)
	assert.Equal(t, 3, result.Warnings[0].Required)
	assert.Equal(t, model.SlotSecondary, result.Warnings[1].Slot)
	assert.Equal(t, 0, result.Warnings[1].Available)
}

func TestDiagnose_ConfigError(t *testing.T) {
	_, err := Diagnose(context.Background(), rosterStore(2), nil, OptimizeParams{Start: "2025-03-01"}, zap.NewNop())

	assert.ErrorContains(t, err, "end")
}
