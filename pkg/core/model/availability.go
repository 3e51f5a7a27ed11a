package model

// AvailabilityEntry is one declared (firefighter, date, slot) availability
type AvailabilityEntry struct {
	FirefighterID int64
	Date          string
	Slot          Slot
	Available     bool
}

type availabilityKey struct {
	firefighterID int64
	date          string
	slot          Slot
}

// Availability is an immutable availability snapshot.
// Undeclared (firefighter, date, slot) entries are unavailable.
type Availability struct {
	entries map[availabilityKey]bool
	// declared counts available slots per firefighter
	declared map[int64]int
}

// NewAvailability builds a snapshot from declared entries. Later entries win over earlier ones.
func NewAvailability(entries []AvailabilityEntry) *Availability {
	a := &Availability{
		entries:  make(map[availabilityKey]bool, len(entries)),
		declared: make(map[int64]int),
	}
	for _, e := range entries {
		a.entries[availabilityKey{e.FirefighterID, e.Date, e.Slot}] = e.Available
	}
	for key, available := range a.entries {
		if available {
			a.declared[key.firefighterID]++
		}
	}
	return a
}

// IsAvailable reports whether the firefighter declared availability for (date, slot)
func (a *Availability) IsAvailable(firefighterID int64, date string, slot Slot) bool {
	if a == nil {
		return false
	}
	return a.entries[availabilityKey{firefighterID, date, slot}]
}

// HasAnyAvailability reports whether the firefighter declared at least one available slot
func (a *Availability) HasAnyAvailability(firefighterID int64) bool {
	if a == nil {
		return false
	}
	return a.declared[firefighterID] > 0
}

// HasAvailabilityWithin reports whether the firefighter is available for any slot on any of the dates
func (a *Availability) HasAvailabilityWithin(firefighterID int64, dates []string) bool {
	if !a.HasAnyAvailability(firefighterID) {
		return false
	}
	for _, date := range dates {
		for _, slot := range AllSlots {
			if a.IsAvailable(firefighterID, date, slot) {
				return true
			}
		}
	}
	return false
}

// AvailableFirefighters returns the roster members available for (date, slot) in roster order
func (a *Availability) AvailableFirefighters(roster *Roster, date string, slot Slot) []*Firefighter {
	var available []*Firefighter
	all := roster.All()
	for i := range all {
		if a.IsAvailable(all[i].ID, date, slot) {
			available = append(available, &all[i])
		}
	}
	return available
}
