package allocator

import (
	"fmt"
	"sort"

	"github.com/jakechorley/spv-planning/pkg/core/model"
	"github.com/jakechorley/spv-planning/pkg/core/requirements"
)

// FeasibilityWarning reports a (date, slot) that cannot be fully covered whatever the assignment
type FeasibilityWarning struct {
	Date string     `json:"date"`
	Slot model.Slot `json:"slot"`
	// Role is empty when the warning is about the slot headcount as a whole
	Role      string `json:"role,omitempty"`
	Available int    `json:"available"`
	Required  int    `json:"required"`
}

func (w FeasibilityWarning) String() string {
	if w.Role == "" {
		return fmt.Sprintf("%s %s: %d available for %d required", w.Date, w.Slot, w.Available, w.Required)
	}
	return fmt.Sprintf("%s %s: %d available %s for %d required", w.Date, w.Slot, w.Available, w.Role, w.Required)
}

// Diagnose checks, before solving, whether each (date, slot) has enough available firefighters,
// overall and for every restricted role
func Diagnose(roster *model.Roster, availability *model.Availability, set *requirements.Set) []FeasibilityWarning {
	var warnings []FeasibilityWarning

	for _, date := range set.Dates() {
		for _, slot := range model.AllSlots {
			needs := set.Needs(date, slot)
			if len(needs) == 0 {
				continue
			}

			available := availability.AvailableFirefighters(roster, date, slot)

			required := set.Required(date, slot)
			if len(available) < required {
				warnings = append(warnings, FeasibilityWarning{Date: date, Slot: slot, Available: len(available), Required: required})
			}

			// Aggregate by role: the same role may be needed on several vehicles
			roles := make(map[string]requirements.Role)
			roleRequired := make(map[string]int)
			for _, need := range needs {
				if !need.Role.IsRestricted() {
					continue
				}
				roles[need.Role.Name] = need.Role
				roleRequired[need.Role.Name] += need.Count
			}

			names := make([]string, 0, len(roles))
			for name := range roles {
				names = append(names, name)
			}
			sort.Strings(names)

			for _, name := range names {
				qualified := 0
				for _, f := range available {
					if roles[name].IsQualified(f) {
						qualified++
					}
				}
				if qualified < roleRequired[name] {
					warnings = append(warnings, FeasibilityWarning{
						Date: date, Slot: slot, Role: name, Available: qualified, Required: roleRequired[name],
					})
				}
			}
		}
	}

	return warnings
}
