package allocator

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/jakechorley/spv-planning/pkg/core/model"
	"github.com/jakechorley/spv-planning/pkg/core/requirements"
)

// FairnessMetric selects how load imbalance is measured
type FairnessMetric string

const (
	FairnessVariance FairnessMetric = "variance"
	FairnessRange    FairnessMetric = "range"
)

// ParseFairnessMetric converts a configuration value to a FairnessMetric. Empty means variance.
func ParseFairnessMetric(s string) (FairnessMetric, error) {
	switch FairnessMetric(s) {
	case "", FairnessVariance:
		return FairnessVariance, nil
	case FairnessRange:
		return FairnessRange, nil
	default:
		return "", fmt.Errorf("unknown fairness metric: %q", s)
	}
}

// DefaultMaxConsecutiveOnCall is the number of consecutive on-call days allowed before a rest penalty applies
const DefaultMaxConsecutiveOnCall = 2

// Coefficients weight the soft terms of the objective.
// Coverage always has weight 1 and dominates the other terms when they are kept small.
type Coefficients struct {
	// Fairness (lambda) penalises load imbalance. Zero disables fairness transfers.
	Fairness float64

	// Preference rewards assignments matching stated preferences
	Preference float64

	// QuotaMin penalises each assignment missing to reach a minimum quota
	QuotaMin float64

	// Rest penalises each on-call day beyond MaxConsecutiveOnCall in a row
	Rest float64

	// Priority penalises on-call role assignments by RolePriorities
	Priority float64

	FairnessMetric       FairnessMetric
	MaxConsecutiveOnCall int
	RolePriorities       RolePriorities
}

// RolePriorities rank how suitable each grade is for each role, 1 being the most suitable.
// An assignment costs its priority minus one; missing entries cost nothing.
type RolePriorities map[model.Grade]map[string]int

// Malus returns the penalty of holding role with grade
func (p RolePriorities) Malus(grade model.Grade, role string) int {
	if priority := p[grade][role]; priority > 1 {
		return priority - 1
	}
	return 0
}

// Score is the breakdown of the objective for a plan state
type Score struct {
	Coverage          float64 `json:"coverage"`
	Imbalance         float64 `json:"imbalance"`
	PreferenceMatches float64 `json:"preferenceMatches"`
	QuotaShortfall    int     `json:"quotaShortfall"`
	RestOverruns      int     `json:"restOverruns"`
	PriorityPenalty   int     `json:"priorityPenalty"`
	Total             float64 `json:"total"`
}

// Scorer computes the objective of a plan state
type Scorer struct {
	coefficients Coefficients
	quotas       Quotas
	roster       *model.Roster

	// population is the set of firefighters whose load takes part in the fairness term
	population []int64
	dateIndex  map[string]int
}

// NewScorer creates a scorer for a run. Only firefighters with at least one availability in the period
// take part in the fairness term.
func NewScorer(roster *model.Roster, availability *model.Availability, set *requirements.Set, quotas Quotas, coefficients Coefficients) *Scorer {
	if coefficients.FairnessMetric == "" {
		coefficients.FairnessMetric = FairnessVariance
	}
	if coefficients.MaxConsecutiveOnCall <= 0 {
		coefficients.MaxConsecutiveOnCall = DefaultMaxConsecutiveOnCall
	}

	dates := set.Dates()
	dateIndex := make(map[string]int, len(dates))
	for i, date := range dates {
		dateIndex[date] = i
	}

	var population []int64
	for _, f := range roster.All() {
		if availability.HasAvailabilityWithin(f.ID, dates) {
			population = append(population, f.ID)
		}
	}

	return &Scorer{
		coefficients: coefficients,
		quotas:       quotas,
		roster:       roster,
		population:   population,
		dateIndex:    dateIndex,
	}
}

// Coefficients returns the effective coefficients
func (s *Scorer) Coefficients() Coefficients {
	return s.coefficients
}

// Population returns the firefighters taking part in the fairness term
func (s *Scorer) Population() []int64 {
	return s.population
}

// Score computes the objective of the state:
//
//	coverage - fairness*imbalance + preference*matches - quotaMin*shortfall - rest*overruns - priority*malus
func (s *Scorer) Score(state *PlanState) Score {
	var score Score

	onCallDays := make(map[int64][]int)
	for _, seat := range state.FilledSeats() {
		score.Coverage += seat.Need.Weight

		id, _ := seat.Holder()
		f, ok := s.roster.Get(id)
		if ok && f.MatchesPreference(seat.Slot(), seat.Need.Vehicle) {
			score.PreferenceMatches += f.PreferenceWeight()
		}
		if seat.Need.OnCall || seat.Slot().IsOnCall() {
			onCallDays[id] = append(onCallDays[id], s.dateIndex[seat.Date()])
			if ok {
				score.PriorityPenalty += s.coefficients.RolePriorities.Malus(f.Grade, seat.Need.Role.Name)
			}
		}
	}

	counts := state.Counts()
	loads := make([]float64, len(s.population))
	for i, id := range s.population {
		loads[i] = float64(counts[id])

		if min := s.quotas.For(id).Min; min != nil && counts[id] < *min {
			score.QuotaShortfall += *min - counts[id]
		}
	}
	score.Imbalance = imbalance(loads, s.coefficients.FairnessMetric)

	for _, days := range onCallDays {
		score.RestOverruns += restOverruns(days, s.coefficients.MaxConsecutiveOnCall)
	}

	c := s.coefficients
	score.Total = score.Coverage -
		c.Fairness*score.Imbalance +
		c.Preference*score.PreferenceMatches -
		c.QuotaMin*float64(score.QuotaShortfall) -
		c.Rest*float64(score.RestOverruns) -
		c.Priority*float64(score.PriorityPenalty)

	return score
}

func imbalance(loads []float64, metric FairnessMetric) float64 {
	if len(loads) < 2 {
		return 0
	}
	if metric == FairnessRange {
		return floats.Max(loads) - floats.Min(loads)
	}
	_, variance := stat.PopMeanVariance(loads, nil)
	return variance
}

// restOverruns counts the days beyond max in every run of consecutive on-call days
func restOverruns(days []int, max int) int {
	if len(days) <= max {
		return 0
	}
	sort.Ints(days)

	overruns := 0
	run := 1
	for i := 1; i < len(days); i++ {
		switch {
		case days[i] == days[i-1]:
			continue
		case days[i] == days[i-1]+1:
			run++
		default:
			run = 1
		}
		if run > max {
			overruns++
		}
	}
	return overruns
}
