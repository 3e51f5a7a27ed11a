package allocator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/spv-planning/pkg/core/allocator"
	"github.com/jakechorley/spv-planning/pkg/core/allocator/criteria"
	"github.com/jakechorley/spv-planning/pkg/core/model"
	"github.com/jakechorley/spv-planning/pkg/core/requirements"
)

type evaluatorFixture struct {
	state     *allocator.PlanState
	evaluator *allocator.Evaluator
	general   *model.Firefighter
	driver    *model.Firefighter
}

// newEvaluatorFixture builds one day with seats [slot 1 general, slot 2 driver, slot 2 general].
// Firefighter 1 is available on slots 1 and 2, firefighter 2 is a driver available on slot 2 only
// and has a zero quota.
func newEvaluatorFixture(t *testing.T) evaluatorFixture {
	t.Helper()
	date := "2025-03-01"

	roster, err := model.NewRoster([]model.Firefighter{
		firefighter(1),
		firefighter(2, model.QualB, model.QualCOD1),
	})
	require.NoError(t, err)

	set, err := requirements.Build(simplifiedConfig(
		map[model.Slot]int{model.SlotPrimary: 1},
		map[model.Slot]map[string]int{model.SlotSecondary: {requirements.RoleGeneral: 1, requirements.RoleDriver: 1}},
	), []string{date})
	require.NoError(t, err)

	availability := model.NewAvailability([]model.AvailabilityEntry{
		{FirefighterID: 1, Date: date, Slot: model.SlotPrimary, Available: true},
		{FirefighterID: 1, Date: date, Slot: model.SlotSecondary, Available: true},
		{FirefighterID: 2, Date: date, Slot: model.SlotSecondary, Available: true},
	})
	quotas := allocator.Quotas{PerFirefighter: map[int64]allocator.Quota{2: {Max: intPtr(0)}}}

	state := allocator.NewPlanState(roster, set)
	require.Len(t, state.Seats, 3)

	general, _ := roster.Get(1)
	driver, _ := roster.Get(2)

	return evaluatorFixture{
		state:     state,
		evaluator: allocator.NewEvaluator(criteria.Default(availability, quotas)...),
		general:   general,
		driver:    driver,
	}
}

func TestEvaluator_ReasonPrecedence(t *testing.T) {
	f := newEvaluatorFixture(t)
	primary, driverSeat, generalSeat := f.state.Seats[0], f.state.Seats[1], f.state.Seats[2]

	// Unavailable and over quota: availability is checked first
	verdict := f.evaluator.Evaluate(f.state, allocator.Candidate{Firefighter: f.driver, Seat: primary})
	assert.False(t, verdict.Feasible)
	assert.Equal(t, allocator.ReasonNotAvailable, verdict.Reason)
	assert.Equal(t, "Availability", verdict.Criterion)

	verdict = f.evaluator.Evaluate(f.state, allocator.Candidate{Firefighter: f.general, Seat: driverSeat})
	assert.Equal(t, allocator.ReasonMissingQualification, verdict.Reason)

	verdict = f.evaluator.Evaluate(f.state, allocator.Candidate{Firefighter: f.driver, Seat: driverSeat})
	assert.Equal(t, allocator.ReasonQuotaExceeded, verdict.Reason)

	f.state.Assign(primary, f.general.ID)
	verdict = f.evaluator.Evaluate(f.state, allocator.Candidate{Firefighter: f.general, Seat: generalSeat})
	assert.Equal(t, allocator.ReasonAlreadyAssignedThatDay, verdict.Reason)

	// The seat already held stays feasible
	verdict = f.evaluator.Evaluate(f.state, allocator.Candidate{Firefighter: f.general, Seat: primary})
	assert.True(t, verdict.Feasible)
	assert.Equal(t, allocator.ReasonNone, verdict.Reason)
}

func TestEvaluator_DoesNotMutateState(t *testing.T) {
	f := newEvaluatorFixture(t)
	f.evaluator.Evaluate(f.state, allocator.Candidate{Firefighter: f.general, Seat: f.state.Seats[0]})

	assert.Empty(t, f.state.FilledSeats())
	assert.Equal(t, 0, f.state.Count(f.general.ID))
}

func TestReason_String(t *testing.T) {
	assert.Equal(t, "not-available", allocator.ReasonNotAvailable.String())
	assert.Equal(t, "missing-qualification", allocator.ReasonMissingQualification.String())
	assert.Equal(t, "already-assigned-that-day", allocator.ReasonAlreadyAssignedThatDay.String())
	assert.Equal(t, "quota-exceeded", allocator.ReasonQuotaExceeded.String())
}

func TestValidatePlanState_ReportsViolations(t *testing.T) {
	f := newEvaluatorFixture(t)
	primary, _, generalSeat := f.state.Seats[0], f.state.Seats[1], f.state.Seats[2]

	// Forced past the criteria: unavailable and over quota
	f.state.Assign(primary, f.driver.ID)
	errors := allocator.ValidatePlanState(f.state, f.evaluator.Criteria())

	names := make([]string, 0, len(errors))
	for _, e := range errors {
		names = append(names, e.CriterionName)
	}
	assert.ElementsMatch(t, []string{"Availability", "Quota"}, names)

	f.state.Unassign(primary)
	f.state.Assign(primary, f.general.ID)
	f.state.Assign(generalSeat, f.general.ID)
	errors = allocator.ValidatePlanState(f.state, f.evaluator.Criteria())
	require.Len(t, errors, 1)
	assert.Equal(t, "DailyExclusivity", errors[0].CriterionName)
	assert.Equal(t, int64(1), errors[0].FirefighterID)
}

func TestPlanState_TryAssignRespectsMax(t *testing.T) {
	f := newEvaluatorFixture(t)
	primary, _, generalSeat := f.state.Seats[0], f.state.Seats[1], f.state.Seats[2]

	assert.True(t, f.state.TryAssign(primary, f.general.ID, intPtr(1)))
	assert.False(t, f.state.TryAssign(generalSeat, f.general.ID, intPtr(5)), "same date")
	assert.Equal(t, 1, f.state.Count(f.general.ID))

	f.state.Unassign(primary)
	assert.Equal(t, 0, f.state.Count(f.general.ID))
	assert.Nil(t, f.state.SeatOn("2025-03-01", f.general.ID))
	assert.False(t, f.state.TryAssign(primary, f.general.ID, intPtr(0)))
}

func TestQuotas_For(t *testing.T) {
	quotas := allocator.Quotas{
		Default: allocator.Quota{Min: intPtr(2), Max: intPtr(10)},
		PerFirefighter: map[int64]allocator.Quota{
			7: {Max: intPtr(4)},
		},
	}

	assert.Equal(t, 2, *quotas.For(7).Min)
	assert.Equal(t, 4, *quotas.For(7).Max)
	assert.Equal(t, 10, *quotas.For(8).Max)
}
