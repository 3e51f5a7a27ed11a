package model

import "sort"

// Assignment is one filled (date, slot, role) seat of a plan
type Assignment struct {
	Date            string `json:"date"`
	Slot            Slot   `json:"slot"`
	Vehicle         string `json:"vehicle,omitempty"`
	Role            string `json:"role"`
	FirefighterID   int64  `json:"firefighterId"`
	FirefighterName string `json:"firefighterName"`
	OnCall          bool   `json:"onCall"`
}

// SortAssignments orders assignments by date, slot, vehicle, role and firefighter ID
func SortAssignments(assignments []Assignment) {
	sort.SliceStable(assignments, func(i, j int) bool {
		a, b := assignments[i], assignments[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Slot != b.Slot {
			return a.Slot < b.Slot
		}
		if a.Vehicle != b.Vehicle {
			return a.Vehicle < b.Vehicle
		}
		if a.Role != b.Role {
			return a.Role < b.Role
		}
		return a.FirefighterID < b.FirefighterID
	})
}
