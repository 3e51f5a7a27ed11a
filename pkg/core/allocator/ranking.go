package allocator

import (
	"fmt"
	"sort"

	"github.com/jakechorley/spv-planning/pkg/core/model"
	"github.com/jakechorley/spv-planning/pkg/core/requirements"
)

// RankKey is one tie-break level used to order feasible candidates
type RankKey string

const (
	// RankQualificationFit prefers candidates holding fewer scarce qualifications the role does not use
	RankQualificationFit RankKey = "qualification"
	// RankPreference prefers candidates whose preferences match the seat
	RankPreference RankKey = "preference"
	// RankLoad prefers candidates with fewer assignments so far
	RankLoad RankKey = "load"
	// RankID orders by firefighter ID. It is always applied last.
	RankID RankKey = "id"
)

// DefaultRankOrder is used when no rank order is configured
var DefaultRankOrder = []RankKey{RankQualificationFit, RankPreference, RankLoad, RankID}

// ParseRankOrder converts configuration values into a rank order ending with RankID
func ParseRankOrder(keys []string) ([]RankKey, error) {
	if len(keys) == 0 {
		return append([]RankKey(nil), DefaultRankOrder...), nil
	}

	seen := make(map[RankKey]bool)
	order := make([]RankKey, 0, len(keys)+1)
	for _, k := range keys {
		key := RankKey(k)
		switch key {
		case RankQualificationFit, RankPreference, RankLoad, RankID:
		default:
			return nil, fmt.Errorf("unknown rank key: %q", k)
		}
		if seen[key] {
			return nil, fmt.Errorf("duplicate rank key: %q", k)
		}
		seen[key] = true
		order = append(order, key)
	}
	if !seen[RankID] {
		order = append(order, RankID)
	}
	return order, nil
}

// ranker orders feasible candidates for a seat
type ranker struct {
	order       []RankKey
	scarce      map[model.Qualification]bool
	leaderGrade model.Grade
}

func newRanker(order []RankKey, catalog requirements.Catalog) *ranker {
	if len(order) == 0 {
		order = DefaultRankOrder
	}
	if order[len(order)-1] != RankID {
		order = append(append([]RankKey(nil), order...), RankID)
	}

	// Lowest grade any role asks for: holding it is a surplus for roles without a grade requirement
	leaderGrade := model.GradeUnknown
	for _, role := range catalog {
		if role.MinGrade > model.GradeUnknown && (leaderGrade == model.GradeUnknown || role.MinGrade < leaderGrade) {
			leaderGrade = role.MinGrade
		}
	}

	return &ranker{order: order, scarce: catalog.ScarceTags(), leaderGrade: leaderGrade}
}

type rankedCandidate struct {
	firefighter *model.Firefighter
	surplus     int
	preferred   bool
	load        int
}

// surplus counts the scarce capabilities the firefighter would waste on this role
func (r *ranker) surplus(f *model.Firefighter, role requirements.Role) int {
	used := make(map[model.Qualification]bool)
	for _, q := range role.Tags() {
		used[q] = true
	}

	surplus := 0
	for _, q := range f.Qualifications {
		if r.scarce[q] && !used[q] {
			surplus++
		}
	}
	if r.leaderGrade > model.GradeUnknown && role.MinGrade == model.GradeUnknown && f.Grade >= r.leaderGrade {
		surplus++
	}
	return surplus
}

// rank sorts candidates best first. Keys are computed once so the order is stable under concurrent updates.
func (r *ranker) rank(state *PlanState, seat *Seat, candidates []*model.Firefighter) {
	ranked := make([]rankedCandidate, len(candidates))
	for i, f := range candidates {
		ranked[i] = rankedCandidate{
			firefighter: f,
			surplus:     r.surplus(f, seat.Need.Role),
			preferred:   f.MatchesPreference(seat.Slot(), seat.Need.Vehicle),
			load:        state.Count(f.ID),
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		return r.less(ranked[i], ranked[j])
	})

	for i := range ranked {
		candidates[i] = ranked[i].firefighter
	}
}

func (r *ranker) less(a, b rankedCandidate) bool {
	for _, key := range r.order {
		switch key {
		case RankQualificationFit:
			if a.surplus != b.surplus {
				return a.surplus < b.surplus
			}
		case RankPreference:
			if a.preferred != b.preferred {
				return a.preferred
			}
		case RankLoad:
			if a.load != b.load {
				return a.load < b.load
			}
		case RankID:
			return a.firefighter.ID < b.firefighter.ID
		}
	}
	return a.firefighter.ID < b.firefighter.ID
}
