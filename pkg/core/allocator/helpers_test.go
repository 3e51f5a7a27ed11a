package allocator_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jakechorley/spv-planning/pkg/core/allocator"
	"github.com/jakechorley/spv-planning/pkg/core/allocator/criteria"
	"github.com/jakechorley/spv-planning/pkg/core/model"
	"github.com/jakechorley/spv-planning/pkg/core/requirements"
)

func intPtr(i int) *int {
	return &i
}

func firefighter(id int64, qualifications ...model.Qualification) model.Firefighter {
	return model.Firefighter{
		ID:             id,
		FirstName:      "FF",
		LastName:       string(rune('A' + id%26)),
		Grade:          model.GradeSapeur,
		Type:           model.EmploymentVolunteer,
		Qualifications: qualifications,
	}
}

func periodDates(t *testing.T, start string, days int) []string {
	t.Helper()
	first, err := time.Parse(model.DateLayout, start)
	require.NoError(t, err)
	end := first.AddDate(0, 0, days-1).Format(model.DateLayout)
	period, err := model.NewPeriod(start, end)
	require.NoError(t, err)
	return period.Dates()
}

// availableEverywhere declares every firefighter available on every date and slot
func availableEverywhere(firefighters []model.Firefighter, dates []string) []model.AvailabilityEntry {
	var entries []model.AvailabilityEntry
	for _, f := range firefighters {
		for _, date := range dates {
			for _, slot := range model.AllSlots {
				entries = append(entries, model.AvailabilityEntry{FirefighterID: f.ID, Date: date, Slot: slot, Available: true})
			}
		}
	}
	return entries
}

type scenario struct {
	firefighters []model.Firefighter
	entries      []model.AvailabilityEntry
	requirements requirements.Config
	dates        []string
	quotas       allocator.Quotas
	coefficients allocator.Coefficients
	rankOrder    []allocator.RankKey
	budget       *allocator.Budget
	workers      int
}

func (s scenario) config(t *testing.T) allocator.Config {
	t.Helper()

	roster, err := model.NewRoster(s.firefighters)
	require.NoError(t, err)

	set, err := requirements.Build(s.requirements, s.dates)
	require.NoError(t, err)

	availability := model.NewAvailability(s.entries)

	budget := allocator.DefaultBudget()
	if s.budget != nil {
		budget = *s.budget
	}

	return allocator.Config{
		Roster:       roster,
		Availability: availability,
		Requirements: set,
		Criteria:     criteria.Default(availability, s.quotas),
		Quotas:       s.quotas,
		Coefficients: s.coefficients,
		RankOrder:    s.rankOrder,
		Budget:       budget,
		Workers:      s.workers,
	}
}

func simplifiedConfig(headcounts map[model.Slot]int, onCall map[model.Slot]map[string]int) requirements.Config {
	return requirements.Config{
		Mode:        requirements.ModeSimplified,
		Catalog:     requirements.DefaultCatalog(),
		Headcounts:  headcounts,
		OnCallNeeds: onCall,
	}
}

func vehicleConfig() requirements.Config {
	return requirements.Config{
		Mode:      requirements.ModeVehicles,
		Catalog:   requirements.DefaultCatalog(),
		Vehicles:  requirements.DefaultVehicles(),
		CrewSlots: []model.Slot{model.SlotOnCall},
	}
}

// mixedRoster builds a roster covering every vehicle role with some slack
func mixedRoster() []model.Firefighter {
	var firefighters []model.Firefighter
	for id := int64(1); id <= 16; id++ {
		f := firefighter(id)
		switch id % 4 {
		case 0:
			f.Grade = model.GradeAdjudant
			f.Qualifications = []model.Qualification{model.QualINC, model.QualSUAP}
		case 1:
			f.Qualifications = []model.Qualification{model.QualB, model.QualCOD0, model.QualCOD1, model.QualPL}
		case 2:
			f.Qualifications = []model.Qualification{model.QualSUAP}
		case 3:
			f.Grade = model.GradeSergent
			f.Qualifications = []model.Qualification{model.QualINC}
		}
		firefighters = append(firefighters, f)
	}
	return firefighters
}

// partialAvailability makes each firefighter unavailable on a rotating subset of days
func partialAvailability(firefighters []model.Firefighter, dates []string) []model.AvailabilityEntry {
	var entries []model.AvailabilityEntry
	for _, f := range firefighters {
		for i, date := range dates {
			for _, slot := range model.AllSlots {
				available := (int(f.ID)+i+int(slot))%3 != 0
				entries = append(entries, model.AvailabilityEntry{FirefighterID: f.ID, Date: date, Slot: slot, Available: available})
			}
		}
	}
	return entries
}

func maxLoad(assignments []model.Assignment) int {
	counts := make(map[int64]int)
	max := 0
	for _, a := range assignments {
		counts[a.FirefighterID]++
		if counts[a.FirefighterID] > max {
			max = counts[a.FirefighterID]
		}
	}
	return max
}
