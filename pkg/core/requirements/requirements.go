package requirements

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jakechorley/spv-planning/pkg/core/model"
)

// Mode selects how requirements are expressed
type Mode string

const (
	// ModeVehicles staffs full vehicle crews
	ModeVehicles Mode = "VEHICULES"
	// ModeSimplified uses a primary-slot headcount and on-call role counts
	ModeSimplified Mode = "SIMPLIFIE"
)

// ParseMode converts a mode name, case-insensitively
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToUpper(strings.TrimSpace(s))) {
	case ModeVehicles:
		return ModeVehicles, nil
	case ModeSimplified:
		return ModeSimplified, nil
	default:
		return "", fmt.Errorf("unknown mode: %q", s)
	}
}

// Need is a requirement of Count seats for one role on one (date, slot)
type Need struct {
	Date    string
	Slot    model.Slot
	Vehicle string
	Role    Role
	Count   int
	Weight  float64
	OnCall  bool
	// Headcount marks flat headcount needs with no role distinction
	Headcount bool
}

// Key identifies the need within its (date, slot), e.g. "A1/amb_chef" or "general"
func (n *Need) Key() string {
	if n.Vehicle != "" {
		return n.Vehicle + "/" + n.Role.Name
	}
	return n.Role.Name
}

// Override adjusts requirements on the dates it applies to
type Override struct {
	AppliesTo func(date string) bool

	// Headcounts replaces the headcount of the listed slots
	Headcounts map[model.Slot]int

	// OnCallNeeds replaces the role counts of the listed slots (simplified mode)
	OnCallNeeds map[model.Slot]map[string]int

	// Vehicles restricts the staffed vehicles (vehicle mode), nil keeps them all
	Vehicles []string
}

// Config describes the requirements of a run
type Config struct {
	Mode    Mode
	Catalog Catalog

	// Vehicles and CrewSlots are used in vehicle mode
	Vehicles  []Vehicle
	CrewSlots []model.Slot

	// Headcounts are flat headcount needs per slot (both modes)
	Headcounts map[model.Slot]int

	// OnCallNeeds are role counts for slots 2-4 (simplified mode)
	OnCallNeeds map[model.Slot]map[string]int

	Overrides []Override
}

type dateSlot struct {
	date string
	slot model.Slot
}

// Set is the compiled list of needs for every (date, slot) of a period
type Set struct {
	mode  Mode
	dates []string
	needs map[dateSlot][]*Need
	all   []*Need
}

// Build compiles the requirement config for the given chronological dates
func Build(cfg Config, dates []string) (*Set, error) {
	if cfg.Catalog == nil {
		cfg.Catalog = DefaultCatalog()
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	set := &Set{
		mode:  cfg.Mode,
		dates: append([]string(nil), dates...),
		needs: make(map[dateSlot][]*Need),
	}

	for _, date := range dates {
		headcounts, onCallNeeds, vehicles := resolveForDate(cfg, date)

		for _, slot := range model.AllSlots {
			var needs []*Need

			if cfg.Mode == ModeVehicles {
				for _, crewSlot := range cfg.CrewSlots {
					if crewSlot != slot {
						continue
					}
					for _, vehicle := range vehicles {
						for _, roleName := range vehicle.Crew {
							role, _ := cfg.Catalog.Lookup(roleName)
							needs = appendNeed(needs, &Need{
								Date:    date,
								Slot:    slot,
								Vehicle: vehicle.Name,
								Role:    role,
								Count:   1,
								Weight:  vehicle.Weight,
							})
						}
					}
				}
			}

			if count := headcounts[slot]; count > 0 {
				needs = appendNeed(needs, &Need{
					Date:      date,
					Slot:      slot,
					Role:      generalRole(cfg.Catalog),
					Count:     count,
					Weight:    1,
					Headcount: true,
				})
			}

			if cfg.Mode == ModeSimplified {
				roleNames := make([]string, 0, len(onCallNeeds[slot]))
				for name := range onCallNeeds[slot] {
					roleNames = append(roleNames, name)
				}
				sort.Strings(roleNames)

				for _, name := range roleNames {
					count := onCallNeeds[slot][name]
					if count <= 0 {
						continue
					}
					role, _ := cfg.Catalog.Lookup(name)
					needs = appendNeed(needs, &Need{
						Date:   date,
						Slot:   slot,
						Role:   role,
						Count:  count,
						Weight: 1,
						OnCall: true,
					})
				}
			}

			if slot.IsOnCall() {
				for _, need := range needs {
					need.OnCall = true
				}
			}
			if len(needs) > 0 {
				set.needs[dateSlot{date, slot}] = needs
				set.all = append(set.all, needs...)
			}
		}
	}

	return set, nil
}

// appendNeed merges needs sharing a vehicle and role within the same (date, slot)
func appendNeed(needs []*Need, need *Need) []*Need {
	for _, existing := range needs {
		if existing.Vehicle == need.Vehicle && existing.Role.Name == need.Role.Name && existing.Headcount == need.Headcount {
			existing.Count += need.Count
			return needs
		}
	}
	return append(needs, need)
}

func generalRole(catalog Catalog) Role {
	if role, err := catalog.Lookup(RoleGeneral); err == nil {
		return role
	}
	return Role{Name: RoleGeneral}
}

// resolveForDate applies matching overrides in order, later overrides win
func resolveForDate(cfg Config, date string) (map[model.Slot]int, map[model.Slot]map[string]int, []Vehicle) {
	headcounts := make(map[model.Slot]int, len(cfg.Headcounts))
	for slot, count := range cfg.Headcounts {
		headcounts[slot] = count
	}
	onCallNeeds := make(map[model.Slot]map[string]int, len(cfg.OnCallNeeds))
	for slot, roles := range cfg.OnCallNeeds {
		onCallNeeds[slot] = roles
	}
	vehicles := cfg.Vehicles

	for _, override := range cfg.Overrides {
		if override.AppliesTo == nil || !override.AppliesTo(date) {
			continue
		}
		for slot, count := range override.Headcounts {
			headcounts[slot] = count
		}
		for slot, roles := range override.OnCallNeeds {
			onCallNeeds[slot] = roles
		}
		if override.Vehicles != nil {
			vehicles = filterVehicles(cfg.Vehicles, override.Vehicles)
		}
	}

	return headcounts, onCallNeeds, vehicles
}

func filterVehicles(vehicles []Vehicle, names []string) []Vehicle {
	active := make(map[string]bool, len(names))
	for _, name := range names {
		active[name] = true
	}

	filtered := make([]Vehicle, 0, len(names))
	for _, vehicle := range vehicles {
		if active[vehicle.Name] {
			filtered = append(filtered, vehicle)
		}
	}
	return filtered
}

func validateConfig(cfg Config) error {
	if cfg.Mode != ModeVehicles && cfg.Mode != ModeSimplified {
		return fmt.Errorf("unknown mode: %q", cfg.Mode)
	}

	knownVehicles := make(map[string]bool)
	for _, vehicle := range cfg.Vehicles {
		if vehicle.Name == "" {
			return fmt.Errorf("vehicle name must not be empty")
		}
		if knownVehicles[vehicle.Name] {
			return fmt.Errorf("duplicate vehicle: %q", vehicle.Name)
		}
		knownVehicles[vehicle.Name] = true

		if vehicle.Weight < 0 {
			return fmt.Errorf("vehicle %s: weight must not be negative", vehicle.Name)
		}
		for _, roleName := range vehicle.Crew {
			if _, err := cfg.Catalog.Lookup(roleName); err != nil {
				return fmt.Errorf("vehicle %s: %w", vehicle.Name, err)
			}
		}
	}

	for _, slot := range cfg.CrewSlots {
		if !slot.Valid() {
			return fmt.Errorf("invalid crew slot: %d", slot)
		}
	}

	if err := validateHeadcounts(cfg.Headcounts); err != nil {
		return err
	}
	if err := validateOnCallNeeds(cfg.OnCallNeeds, cfg.Catalog); err != nil {
		return err
	}

	for i, override := range cfg.Overrides {
		if err := validateHeadcounts(override.Headcounts); err != nil {
			return fmt.Errorf("override %d: %w", i, err)
		}
		if err := validateOnCallNeeds(override.OnCallNeeds, cfg.Catalog); err != nil {
			return fmt.Errorf("override %d: %w", i, err)
		}
		for _, name := range override.Vehicles {
			if !knownVehicles[name] {
				return fmt.Errorf("override %d: unknown vehicle: %q", i, name)
			}
		}
	}

	return nil
}

func validateHeadcounts(headcounts map[model.Slot]int) error {
	for slot, count := range headcounts {
		if !slot.Valid() {
			return fmt.Errorf("invalid headcount slot: %d", slot)
		}
		if count < 0 {
			return fmt.Errorf("headcount for slot %d must not be negative", slot)
		}
	}
	return nil
}

func validateOnCallNeeds(needs map[model.Slot]map[string]int, catalog Catalog) error {
	for slot, roles := range needs {
		if slot < model.SlotSecondary || slot > model.SlotEvening {
			return fmt.Errorf("on-call needs only apply to slots 2-4, got %d", slot)
		}
		for name, count := range roles {
			if _, err := catalog.Lookup(name); err != nil {
				return fmt.Errorf("slot %d: %w", slot, err)
			}
			if count < 0 {
				return fmt.Errorf("slot %d: need for %s must not be negative", slot, name)
			}
		}
	}
	return nil
}

// Mode returns the requirement mode
func (s *Set) Mode() Mode {
	return s.mode
}

// Dates returns the dates covered by the set in chronological order
func (s *Set) Dates() []string {
	return s.dates
}

// Needs returns the needs of (date, slot) in processing order
func (s *Set) Needs(date string, slot model.Slot) []*Need {
	return s.needs[dateSlot{date, slot}]
}

// All returns every need ordered by date, slot and declaration order
func (s *Set) All() []*Need {
	return s.all
}

// Required returns the number of seats required on (date, slot)
func (s *Set) Required(date string, slot model.Slot) int {
	total := 0
	for _, need := range s.Needs(date, slot) {
		total += need.Count
	}
	return total
}

// TotalRequired returns the number of seats required over the whole period
func (s *Set) TotalRequired() int {
	total := 0
	for _, need := range s.all {
		total += need.Count
	}
	return total
}

// IsHeadcountSlot reports whether (date, slot) only carries flat headcount needs
func (s *Set) IsHeadcountSlot(date string, slot model.Slot) bool {
	needs := s.Needs(date, slot)
	if len(needs) == 0 {
		return false
	}
	for _, need := range needs {
		if !need.Headcount {
			return false
		}
	}
	return true
}
