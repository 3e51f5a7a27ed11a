package allocator

import (
	"context"

	"github.com/jakechorley/spv-planning/pkg/core/model"
)

// scoreEpsilon absorbs floating point noise when comparing objectives
const scoreEpsilon = 1e-9

// improve runs improvement passes until a pass changes nothing or the budget runs out.
//
// Each pass runs three phases:
//   - repair: fill empty seats, moving a holder to the empty seat when someone else can replace them.
//     Accepted on coverage gain only.
//   - fairness: hand a seat from a firefighter to one with at least two fewer seats when the objective improves.
//     Only runs when the fairness coefficient is positive and never raises the highest load.
//   - exchange: swap the holders of two seats when the objective improves. Loads are unchanged.
func (a *Allocator) improve(ctx context.Context) {
	budget := a.config.Budget
	if budget.MaxIterations == 0 || budget.MaxPasses == 0 {
		return
	}

	for a.passes < budget.MaxPasses {
		improved := a.repairPass(ctx)

		if !a.budgetExhausted && a.scorer.Coefficients().Fairness > 0 {
			improved = a.fairnessPass(ctx) || improved
		}

		if !a.budgetExhausted {
			improved = a.exchangePass(ctx) || improved
		}

		if a.budgetExhausted {
			return
		}

		a.passes++
		if !improved {
			a.improvementComplete = true
			return
		}
	}
}

// spend consumes one iteration. Returns false once the budget, the deadline or the context is exhausted.
func (a *Allocator) spend(ctx context.Context) bool {
	if a.budgetExhausted {
		return false
	}
	if a.iterations >= a.config.Budget.MaxIterations || a.expired(ctx) {
		a.budgetExhausted = true
		return false
	}
	a.iterations++
	return true
}

func (a *Allocator) repairPass(ctx context.Context) bool {
	improved := false

	for _, empty := range a.state.Seats {
		if empty.IsFilled() || empty.Need.Weight <= 0 {
			continue
		}

		if !a.spend(ctx) {
			return improved
		}
		if a.fillSeat(empty, nil) {
			improved = true
			continue
		}

		if a.relocateInto(ctx, empty) {
			improved = true
		}
		if a.budgetExhausted {
			return improved
		}
	}

	return improved
}

// relocateInto moves the holder of another seat into the empty seat if the vacated seat can be refilled
func (a *Allocator) relocateInto(ctx context.Context, empty *Seat) bool {
	for _, seat := range a.state.Seats {
		if seat == empty || !seat.IsFilled() {
			continue
		}
		holderID, _ := seat.Holder()
		holder, ok := a.config.Roster.Get(holderID)
		if !ok {
			continue
		}

		// Cheap prefilter before touching the state
		if !empty.Need.Role.IsQualified(holder) || !a.config.Availability.IsAvailable(holderID, empty.Date(), empty.Slot()) {
			continue
		}

		if !a.spend(ctx) {
			return false
		}

		a.state.Unassign(seat)
		if !a.evaluator.IsFeasible(a.state, Candidate{Firefighter: holder, Seat: empty}) {
			a.state.Assign(seat, holderID)
			continue
		}
		a.state.Assign(empty, holderID)

		if a.fillSeat(seat, map[int64]bool{holderID: true}) {
			return true
		}

		a.state.Unassign(empty)
		a.state.Assign(seat, holderID)
	}
	return false
}

func (a *Allocator) fairnessPass(ctx context.Context) bool {
	improved := false
	current := a.scorer.Score(a.state)

	for _, seat := range a.state.FilledSeats() {
		holderID, filled := seat.Holder()
		if !filled {
			continue
		}
		holderCount := a.state.Count(holderID)
		if holderCount < 2 {
			continue
		}

		candidates := a.feasibleCandidates(seat, map[int64]bool{holderID: true})
		a.ranker.rank(a.state, seat, candidates)

		for _, f := range candidates {
			if a.state.Count(f.ID) >= holderCount-1 {
				continue
			}
			if !a.spend(ctx) {
				return improved
			}

			a.state.Assign(seat, f.ID)
			next := a.scorer.Score(a.state)
			if next.Total > current.Total+scoreEpsilon {
				current = next
				improved = true
				break
			}
			a.state.Assign(seat, holderID)
		}
	}

	return improved
}

func (a *Allocator) exchangePass(ctx context.Context) bool {
	coefficients := a.scorer.Coefficients()
	if coefficients.Preference <= 0 && coefficients.Rest <= 0 && coefficients.Priority <= 0 {
		return false
	}

	improved := false
	current := a.scorer.Score(a.state)
	filled := a.state.FilledSeats()

	for i := 0; i < len(filled); i++ {
		for j := i + 1; j < len(filled); j++ {
			s1, s2 := filled[i], filled[j]
			xID, _ := s1.Holder()
			yID, _ := s2.Holder()
			if xID == yID {
				continue
			}
			x, okX := a.config.Roster.Get(xID)
			y, okY := a.config.Roster.Get(yID)
			if !okX || !okY {
				continue
			}

			// Without on-call seats involved only preferences can change
			onCall := s1.Need.OnCall || s2.Need.OnCall || s1.Slot().IsOnCall() || s2.Slot().IsOnCall()
			if !onCall || (coefficients.Rest <= 0 && coefficients.Priority <= 0) {
				delta := preferenceGain(x, s2) + preferenceGain(y, s1) - preferenceGain(x, s1) - preferenceGain(y, s2)
				if coefficients.Preference*delta <= scoreEpsilon {
					continue
				}
			}

			if !a.spend(ctx) {
				return improved
			}
			if !a.swap(s1, s2, x, y) {
				continue
			}

			next := a.scorer.Score(a.state)
			if next.Total > current.Total+scoreEpsilon {
				current = next
				improved = true
				continue
			}
			a.state.Assign(s1, xID)
			a.state.Assign(s2, yID)
		}
	}

	return improved
}

// swap exchanges the holders of two seats if both moves are feasible. The state is unchanged otherwise.
func (a *Allocator) swap(s1, s2 *Seat, x, y *model.Firefighter) bool {
	a.state.Unassign(s1)
	a.state.Unassign(s2)

	if a.evaluator.IsFeasible(a.state, Candidate{Firefighter: x, Seat: s2}) {
		a.state.Assign(s2, x.ID)
		if a.evaluator.IsFeasible(a.state, Candidate{Firefighter: y, Seat: s1}) {
			a.state.Assign(s1, y.ID)
			return true
		}
		a.state.Unassign(s2)
	}

	a.state.Assign(s1, x.ID)
	a.state.Assign(s2, y.ID)
	return false
}

func preferenceGain(f *model.Firefighter, seat *Seat) float64 {
	if f.MatchesPreference(seat.Slot(), seat.Need.Vehicle) {
		return f.PreferenceWeight()
	}
	return 0
}
