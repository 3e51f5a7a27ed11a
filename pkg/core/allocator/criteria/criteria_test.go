package criteria

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/spv-planning/pkg/core/allocator"
	"github.com/jakechorley/spv-planning/pkg/core/model"
	"github.com/jakechorley/spv-planning/pkg/core/requirements"
)

const testDate = "2025-03-10"

func intPtr(i int) *int {
	return &i
}

// newState builds one day with a slot 1 headcount of 2 and a slot 3 on-call team leader
func newState(t *testing.T) *allocator.PlanState {
	t.Helper()

	roster, err := model.NewRoster([]model.Firefighter{
		{ID: 1, Grade: model.GradeSapeur},
		{ID: 2, Grade: model.GradeSergent},
	})
	require.NoError(t, err)

	set, err := requirements.Build(requirements.Config{
		Mode:        requirements.ModeSimplified,
		Headcounts:  map[model.Slot]int{model.SlotPrimary: 2},
		OnCallNeeds: map[model.Slot]map[string]int{model.SlotOnCall: {requirements.RoleTeamLeader: 1}},
	}, []string{testDate})
	require.NoError(t, err)

	return allocator.NewPlanState(roster, set)
}

func candidate(state *allocator.PlanState, id int64, seat int) allocator.Candidate {
	f, _ := state.Roster.Get(id)
	return allocator.Candidate{Firefighter: f, Seat: state.Seats[seat]}
}

func TestDefault_Order(t *testing.T) {
	names := make([]string, 0, 4)
	for _, c := range Default(nil, allocator.Quotas{}) {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"Availability", "Qualification", "DailyExclusivity", "Quota"}, names)
}

func TestAvailabilityCriterion(t *testing.T) {
	state := newState(t)
	criterion := NewAvailabilityCriterion(model.NewAvailability([]model.AvailabilityEntry{
		{FirefighterID: 1, Date: testDate, Slot: model.SlotPrimary, Available: true},
		{FirefighterID: 2, Date: testDate, Slot: model.SlotPrimary, Available: false},
	}))

	assert.Equal(t, allocator.ReasonNotAvailable, criterion.Reason())
	assert.True(t, criterion.IsFeasible(state, candidate(state, 1, 0)))
	assert.False(t, criterion.IsFeasible(state, candidate(state, 2, 0)), "declared unavailable")
	assert.False(t, criterion.IsFeasible(state, candidate(state, 1, 2)), "not declared")

	state.Assign(state.Seats[0], 1)
	state.Assign(state.Seats[1], 2)
	errors := criterion.ValidatePlanState(state)
	require.Len(t, errors, 1)
	assert.Equal(t, int64(2), errors[0].FirefighterID)
	assert.Equal(t, "Availability", errors[0].CriterionName)
}

func TestQualificationCriterion(t *testing.T) {
	state := newState(t)
	criterion := NewQualificationCriterion()

	assert.Equal(t, allocator.ReasonMissingQualification, criterion.Reason())
	assert.True(t, criterion.IsFeasible(state, candidate(state, 1, 0)))
	assert.False(t, criterion.IsFeasible(state, candidate(state, 1, 2)), "team leader needs a sergeant")
	assert.True(t, criterion.IsFeasible(state, candidate(state, 2, 2)))

	state.Assign(state.Seats[2], 1)
	errors := criterion.ValidatePlanState(state)
	require.Len(t, errors, 1)
	assert.Contains(t, errors[0].Description, requirements.RoleTeamLeader)
}

func TestDailyExclusivityCriterion(t *testing.T) {
	state := newState(t)
	criterion := NewDailyExclusivityCriterion()

	assert.Equal(t, allocator.ReasonAlreadyAssignedThatDay, criterion.Reason())
	assert.True(t, criterion.IsFeasible(state, candidate(state, 2, 2)))

	state.Assign(state.Seats[0], 2)
	assert.False(t, criterion.IsFeasible(state, candidate(state, 2, 2)))
	assert.False(t, criterion.IsFeasible(state, candidate(state, 2, 1)), "same slot, other seat")
	assert.True(t, criterion.IsFeasible(state, candidate(state, 2, 0)), "seat already held")
	assert.Empty(t, criterion.ValidatePlanState(state))
}

func TestQuotaCriterion(t *testing.T) {
	state := newState(t)
	criterion := NewQuotaCriterion(allocator.Quotas{
		Default:        allocator.Quota{Max: intPtr(1)},
		PerFirefighter: map[int64]allocator.Quota{2: {Min: intPtr(1)}},
	})

	assert.Equal(t, allocator.ReasonQuotaExceeded, criterion.Reason())
	assert.True(t, criterion.IsFeasible(state, candidate(state, 1, 0)))

	state.Assign(state.Seats[0], 1)
	assert.False(t, criterion.IsFeasible(state, candidate(state, 1, 2)))
	assert.True(t, criterion.IsFeasible(state, candidate(state, 1, 0)), "seat already held")
	// Per-firefighter min keeps the default max
	assert.True(t, criterion.IsFeasible(state, candidate(state, 2, 2)))
	assert.Empty(t, criterion.ValidatePlanState(state))

	state.Assign(state.Seats[2], 1)
	errors := criterion.ValidatePlanState(state)
	require.Len(t, errors, 1)
	assert.Contains(t, errors[0].Description, "maximum is 1")
}
