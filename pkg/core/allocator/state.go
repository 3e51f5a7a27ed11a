package allocator

import (
	"sort"
	"sync"

	"github.com/jakechorley/spv-planning/pkg/core/model"
	"github.com/jakechorley/spv-planning/pkg/core/requirements"
)

// PlanState holds the seats of a run and the running per-firefighter counters.
// Counter and seat updates are guarded by a mutex so dates can be filled concurrently.
type PlanState struct {
	Roster       *model.Roster
	Requirements *requirements.Set

	// Seats are ordered by date, slot and need declaration order
	Seats []*Seat

	seatsByNeed map[*requirements.Need][]*Seat

	mu     sync.Mutex
	counts map[int64]int
	onDate map[string]map[int64]*Seat
}

// NewPlanState creates an empty plan with one seat per required position
func NewPlanState(roster *model.Roster, set *requirements.Set) *PlanState {
	state := &PlanState{
		Roster:       roster,
		Requirements: set,
		seatsByNeed:  make(map[*requirements.Need][]*Seat),
		counts:       make(map[int64]int),
		onDate:       make(map[string]map[int64]*Seat),
	}

	for _, date := range set.Dates() {
		state.onDate[date] = make(map[int64]*Seat)
	}

	for _, need := range set.All() {
		for ordinal := 0; ordinal < need.Count; ordinal++ {
			seat := &Seat{Need: need, Ordinal: ordinal, index: len(state.Seats)}
			state.Seats = append(state.Seats, seat)
			state.seatsByNeed[need] = append(state.seatsByNeed[need], seat)
		}
	}

	return state
}

// SeatsForNeed returns the seats of a need
func (s *PlanState) SeatsForNeed(need *requirements.Need) []*Seat {
	return s.seatsByNeed[need]
}

// Count returns the number of seats held by the firefighter
func (s *PlanState) Count(firefighterID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[firefighterID]
}

// Counts returns a copy of the per-firefighter counters
func (s *PlanState) Counts() map[int64]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[int64]int, len(s.counts))
	for id, count := range s.counts {
		counts[id] = count
	}
	return counts
}

// SeatOn returns the seat held by the firefighter on date, or nil
func (s *PlanState) SeatOn(date string, firefighterID int64) *Seat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onDate[date][firefighterID]
}

// Assign gives the seat to the firefighter, replacing any previous holder
func (s *PlanState) Assign(seat *Seat, firefighterID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignLocked(seat, firefighterID)
}

// TryAssign gives the seat to the firefighter unless it would exceed max.
// The check and the update are atomic.
func (s *PlanState) TryAssign(seat *Seat, firefighterID int64, max *int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if max != nil && s.counts[firefighterID] >= *max {
		return false
	}
	if existing := s.onDate[seat.Date()][firefighterID]; existing != nil && existing != seat {
		return false
	}
	s.assignLocked(seat, firefighterID)
	return true
}

// Unassign empties the seat
func (s *PlanState) Unassign(seat *Seat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unassignLocked(seat)
}

func (s *PlanState) assignLocked(seat *Seat, firefighterID int64) {
	if seat.filled {
		s.unassignLocked(seat)
	}
	seat.firefighterID = firefighterID
	seat.filled = true
	s.counts[firefighterID]++

	byID, ok := s.onDate[seat.Date()]
	if !ok {
		byID = make(map[int64]*Seat)
		s.onDate[seat.Date()] = byID
	}
	byID[firefighterID] = seat
}

func (s *PlanState) unassignLocked(seat *Seat) {
	if !seat.filled {
		return
	}
	id := seat.firefighterID
	s.counts[id]--
	if s.counts[id] == 0 {
		delete(s.counts, id)
	}
	if s.onDate[seat.Date()][id] == seat {
		delete(s.onDate[seat.Date()], id)
	}
	seat.firefighterID = 0
	seat.filled = false
}

// FilledSeats returns the filled seats in seat order
func (s *PlanState) FilledSeats() []*Seat {
	filled := make([]*Seat, 0, len(s.Seats))
	for _, seat := range s.Seats {
		if seat.filled {
			filled = append(filled, seat)
		}
	}
	return filled
}

// Assignments converts the filled seats to assignment records
func (s *PlanState) Assignments() []model.Assignment {
	assignments := make([]model.Assignment, 0, len(s.Seats))
	for _, seat := range s.FilledSeats() {
		name := ""
		if f, ok := s.Roster.Get(seat.firefighterID); ok {
			name = f.Name()
		}
		assignments = append(assignments, model.Assignment{
			Date:            seat.Date(),
			Slot:            seat.Slot(),
			Vehicle:         seat.Need.Vehicle,
			Role:            seat.Need.Role.Name,
			FirefighterID:   seat.firefighterID,
			FirefighterName: name,
			OnCall:          seat.Need.OnCall,
		})
	}
	model.SortAssignments(assignments)
	return assignments
}

// Shortages lists the unmet part of every need
func (s *PlanState) Shortages() []Shortage {
	var shortages []Shortage
	for _, need := range s.Requirements.All() {
		missing := 0
		for _, seat := range s.seatsByNeed[need] {
			if !seat.filled {
				missing++
			}
		}
		if missing == 0 {
			continue
		}
		shortages = append(shortages, Shortage{
			Date:     need.Date,
			Slot:     need.Slot,
			Vehicle:  need.Vehicle,
			Role:     need.Role.Name,
			Key:      need.Key(),
			Required: need.Count,
			Missing:  missing,
		})
	}

	sort.SliceStable(shortages, func(i, j int) bool {
		if shortages[i].Date != shortages[j].Date {
			return shortages[i].Date < shortages[j].Date
		}
		return shortages[i].Slot < shortages[j].Slot
	})

	return shortages
}
