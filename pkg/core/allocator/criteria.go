package allocator

// Criterion defines a hard constraint on who may take a seat
type Criterion interface {
	// Name returns a human-readable identifier for this criterion
	Name() string

	// Reason is reported when this criterion rejects a candidate
	Reason() Reason

	// IsFeasible determines if the candidate may take the seat in the current state
	// This acts as a veto - if ANY criterion returns false, the seat cannot be given to the candidate
	IsFeasible(state *PlanState, candidate Candidate) bool

	// ValidatePlanState checks if the final plan meets this criterion's requirements
	// Returns a slice of validation errors (empty if all valid)
	ValidatePlanState(state *PlanState) []ValidationError
}

// Evaluator applies criteria in order and reports the first failure
type Evaluator struct {
	criteria []Criterion
}

// NewEvaluator creates an evaluator over the given criteria. Order matters: the first rejecting criterion gives the reason.
func NewEvaluator(criteria ...Criterion) *Evaluator {
	return &Evaluator{criteria: criteria}
}

// Criteria returns the evaluator's criteria in evaluation order
func (e *Evaluator) Criteria() []Criterion {
	return e.criteria
}

// Evaluate returns the verdict for a candidate. It never mutates the state.
func (e *Evaluator) Evaluate(state *PlanState, candidate Candidate) Verdict {
	for _, criterion := range e.criteria {
		if !criterion.IsFeasible(state, candidate) {
			return Verdict{Feasible: false, Reason: criterion.Reason(), Criterion: criterion.Name()}
		}
	}
	return Verdict{Feasible: true, Reason: ReasonNone}
}

// IsFeasible is a shorthand for Evaluate(...).Feasible
func (e *Evaluator) IsFeasible(state *PlanState, candidate Candidate) bool {
	return e.Evaluate(state, candidate).Feasible
}

// ValidatePlanState runs all criteria validations on the final plan
func ValidatePlanState(state *PlanState, criteria []Criterion) []ValidationError {
	var allErrors []ValidationError

	for _, criterion := range criteria {
		errors := criterion.ValidatePlanState(state)
		allErrors = append(allErrors, errors...)
	}

	return allErrors
}
