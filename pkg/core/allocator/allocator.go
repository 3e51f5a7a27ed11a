package allocator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jakechorley/spv-planning/pkg/core/model"
	"github.com/jakechorley/spv-planning/pkg/core/requirements"
)

// DefaultSlotOrder processes the on-call slot first and the primary day slot last,
// so qualified profiles are not used up by flat headcount needs
var DefaultSlotOrder = []model.Slot{model.SlotOnCall, model.SlotSecondary, model.SlotEvening, model.SlotPrimary}

// Budget bounds the improvement phase. The first bound reached stops it.
type Budget struct {
	// MaxIterations is the number of candidate moves that may be tried. Zero disables improvement.
	MaxIterations int

	// MaxPasses is the number of full improvement passes
	MaxPasses int

	// MaxDuration bounds the whole run, greedy pass included. Zero means no time limit.
	MaxDuration time.Duration
}

// DefaultBudget returns the budget used when none is configured
func DefaultBudget() Budget {
	return Budget{MaxIterations: 50000, MaxPasses: 10, MaxDuration: 5 * time.Second}
}

// Config contains the configuration for creating a new Allocator
type Config struct {
	Roster       *model.Roster
	Availability *model.Availability
	Requirements *requirements.Set

	// Catalog is used to rank candidates by qualification fit. Defaults to the SPV catalog.
	Catalog requirements.Catalog

	// Criteria are the hard constraints, in evaluation order
	Criteria []Criterion

	Quotas       Quotas
	Coefficients Coefficients

	// SlotOrder is the order slots are filled within a day. Missing slots are appended in chronological order.
	SlotOrder []model.Slot

	// RankOrder is the tie-break order for candidates. RankID is always applied last.
	RankOrder []RankKey

	Budget Budget

	// Workers > 1 fills dates concurrently. Results are only reproducible with a single worker.
	Workers int
}

// AllocationOutcome represents the result of a run
type AllocationOutcome struct {
	// State is the final plan state
	State *PlanState

	Assignments []model.Assignment
	Shortages   []Shortage
	Score       Score

	// Iterations is the number of improvement moves tried
	Iterations int
	Passes     int

	// ImprovementComplete is false when the budget or the context stopped improvement early
	ImprovementComplete bool

	// FillInterrupted is true when the greedy pass did not reach every date
	FillInterrupted bool

	// ValidationErrors contains any hard constraint violation found in the final state
	ValidationErrors []ValidationError

	// Success indicates that every seat is filled and no constraint is violated
	Success bool
}

// Allocator runs the greedy pass and the improvement phase over a plan state
type Allocator struct {
	config    Config
	state     *PlanState
	evaluator *Evaluator
	scorer    *Scorer
	ranker    *ranker
	slotOrder []model.Slot

	deadline            time.Time
	iterations          int
	passes              int
	budgetExhausted     bool
	improvementComplete bool
	fillInterrupted     atomic.Bool
}

// InitAllocation validates the configuration and builds an empty plan
func InitAllocation(config Config) (*Allocator, error) {
	if config.Roster == nil {
		return nil, errors.New("roster is required")
	}
	if config.Requirements == nil {
		return nil, errors.New("requirements are required")
	}
	if len(config.Criteria) == 0 {
		return nil, errors.New("at least one criterion is required")
	}
	if config.Budget.MaxIterations < 0 || config.Budget.MaxPasses < 0 || config.Budget.MaxDuration < 0 {
		return nil, errors.New("budget bounds must not be negative")
	}

	slotOrder, err := normaliseSlotOrder(config.SlotOrder)
	if err != nil {
		return nil, err
	}

	catalog := config.Catalog
	if catalog == nil {
		catalog = requirements.DefaultCatalog()
	}

	return &Allocator{
		config:    config,
		state:     NewPlanState(config.Roster, config.Requirements),
		evaluator: NewEvaluator(config.Criteria...),
		scorer:    NewScorer(config.Roster, config.Availability, config.Requirements, config.Quotas, config.Coefficients),
		ranker:    newRanker(config.RankOrder, catalog),
		slotOrder: slotOrder,
	}, nil
}

func normaliseSlotOrder(order []model.Slot) ([]model.Slot, error) {
	if len(order) == 0 {
		return slices.Clone(DefaultSlotOrder), nil
	}

	result := make([]model.Slot, 0, len(model.AllSlots))
	for _, slot := range order {
		if !slot.Valid() {
			return nil, fmt.Errorf("invalid slot in slot order: %d", int(slot))
		}
		if slices.Contains(result, slot) {
			return nil, fmt.Errorf("duplicate slot in slot order: %d", int(slot))
		}
		result = append(result, slot)
	}
	for _, slot := range model.AllSlots {
		if !slices.Contains(result, slot) {
			result = append(result, slot)
		}
	}
	return result, nil
}

// Allocate runs the greedy pass then the bounded improvement phase.
// When the context is cancelled or the budget runs out, the best plan found so far is returned.
func Allocate(ctx context.Context, config Config) (*AllocationOutcome, error) {

	// Initialise allocator
	allocator, err := InitAllocation(config)
	if err != nil {
		return nil, err
	}

	if config.Budget.MaxDuration > 0 {
		allocator.deadline = time.Now().Add(config.Budget.MaxDuration)
	}

	// Greedy pass
	allocator.fill(ctx)

	// Local improvement, skipped if the greedy pass did not complete
	if !allocator.fillInterrupted.Load() {
		allocator.improve(ctx)
	}

	// Build outcome report
	return allocator.buildOutcome(), nil
}

func (a *Allocator) expired(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	return !a.deadline.IsZero() && time.Now().After(a.deadline)
}

// fill assigns every date chronologically
func (a *Allocator) fill(ctx context.Context) {
	if a.config.Workers > 1 {
		a.fillConcurrently(ctx)
		return
	}

	for _, date := range a.state.Requirements.Dates() {
		if a.expired(ctx) {
			a.fillInterrupted.Store(true)
			return
		}
		a.fillDate(date)
	}
}

// fillConcurrently fills dates on a worker pool. Daily exclusivity is per date so dates only
// contend on the per-firefighter counters, which the plan state guards.
func (a *Allocator) fillConcurrently(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.config.Workers)

	for _, date := range a.state.Requirements.Dates() {
		g.Go(func() error {
			if a.expired(gctx) {
				a.fillInterrupted.Store(true)
				return nil
			}
			a.fillDate(date)
			return nil
		})
	}

	_ = g.Wait()
}

// fillDate fills the slots of a date in slot order, scarcest needs first
func (a *Allocator) fillDate(date string) {
	for _, slot := range a.slotOrder {
		for _, need := range a.orderNeeds(date, slot) {
			for _, seat := range a.state.SeatsForNeed(need) {
				if !seat.IsFilled() {
					a.fillSeat(seat, nil)
				}
			}
		}
	}
}

// orderNeeds sorts the needs of a slot by slack (feasible candidates minus seats), then weight descending.
// Declaration order breaks ties.
func (a *Allocator) orderNeeds(date string, slot model.Slot) []*requirements.Need {
	needs := slices.Clone(a.state.Requirements.Needs(date, slot))
	if len(needs) < 2 {
		return needs
	}

	slack := make(map[*requirements.Need]int, len(needs))
	for _, need := range needs {
		seats := a.state.SeatsForNeed(need)
		if len(seats) == 0 {
			continue
		}
		slack[need] = len(a.feasibleCandidates(seats[0], nil)) - need.Count
	}

	sort.SliceStable(needs, func(i, j int) bool {
		if slack[needs[i]] != slack[needs[j]] {
			return slack[needs[i]] < slack[needs[j]]
		}
		return needs[i].Weight > needs[j].Weight
	})

	return needs
}

// feasibleCandidates returns the roster members that may take the seat, in roster order
func (a *Allocator) feasibleCandidates(seat *Seat, excluded map[int64]bool) []*model.Firefighter {
	all := a.config.Roster.All()
	candidates := make([]*model.Firefighter, 0, len(all))
	for i := range all {
		f := &all[i]
		if excluded[f.ID] {
			continue
		}
		if a.evaluator.IsFeasible(a.state, Candidate{Firefighter: f, Seat: seat}) {
			candidates = append(candidates, f)
		}
	}
	return candidates
}

// fillSeat gives the seat to the best ranked feasible candidate.
// Returns false if nobody can take it.
func (a *Allocator) fillSeat(seat *Seat, excluded map[int64]bool) bool {
	candidates := a.feasibleCandidates(seat, excluded)
	a.ranker.rank(a.state, seat, candidates)

	for _, f := range candidates {
		// Re-checked atomically: another date may have used up the quota meanwhile
		if a.state.TryAssign(seat, f.ID, a.config.Quotas.For(f.ID).Max) {
			return true
		}
	}
	return false
}

// buildOutcome creates the final allocation outcome report
func (a *Allocator) buildOutcome() *AllocationOutcome {
	outcome := &AllocationOutcome{
		State:               a.state,
		Assignments:         a.state.Assignments(),
		Shortages:           a.state.Shortages(),
		Score:               a.scorer.Score(a.state),
		Iterations:          a.iterations,
		Passes:              a.passes,
		ImprovementComplete: a.improvementComplete,
		FillInterrupted:     a.fillInterrupted.Load(),
	}

	// Run validation
	outcome.ValidationErrors = ValidatePlanState(a.state, a.evaluator.Criteria())

	// Success if all seats filled and no validation errors
	outcome.Success = len(outcome.Shortages) == 0 && len(outcome.ValidationErrors) == 0

	return outcome
}
