package model

import (
	"fmt"
	"time"
)

// DateLayout is the layout used for every date key handled by the planner
const DateLayout = "2006-01-02"

// Slot is one of the four fixed daily duty windows (créneaux)
type Slot int

const (
	SlotPrimary   Slot = 1
	SlotSecondary Slot = 2
	SlotOnCall    Slot = 3 // astreinte
	SlotEvening   Slot = 4
)

// AllSlots lists the daily slots in chronological order
var AllSlots = []Slot{SlotPrimary, SlotSecondary, SlotOnCall, SlotEvening}

// Valid reports whether s is one of the four daily slots
func (s Slot) Valid() bool {
	return s >= SlotPrimary && s <= SlotEvening
}

// IsOnCall reports whether s is the on-call slot
func (s Slot) IsOnCall() bool {
	return s == SlotOnCall
}

func (s Slot) String() string {
	return fmt.Sprintf("C%d", int(s))
}

// Period is an inclusive date range
type Period struct {
	Start time.Time
	End   time.Time
}

// NewPeriod parses an inclusive period from two "2006-01-02" dates
func NewPeriod(start, end string) (Period, error) {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return Period{}, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return Period{}, fmt.Errorf("invalid end date %q: %w", end, err)
	}
	return Period{Start: s, End: e}, nil
}

// Days returns the number of days in the period, 0 if End is before Start
func (p Period) Days() int {
	start := truncateDay(p.Start)
	end := truncateDay(p.End)
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// Dates returns every date of the period in chronological order
func (p Period) Dates() []string {
	days := p.Days()
	dates := make([]string, 0, days)
	current := truncateDay(p.Start)
	for i := 0; i < days; i++ {
		dates = append(dates, current.Format(DateLayout))
		current = current.AddDate(0, 0, 1)
	}
	return dates
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
