package coverage

import (
	"sort"

	"github.com/jakechorley/spv-planning/pkg/core/model"
	"github.com/jakechorley/spv-planning/pkg/core/requirements"
)

// Category tells active duty from on-call duty
type Category string

const (
	CategoryActive Category = "ACTIF"
	CategoryOnCall Category = "ASTREINTE"
)

// AssignedFirefighter is a firefighter as shown in a coverage cell
type AssignedFirefighter struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Role     string   `json:"role"`
	Vehicle  string   `json:"vehicle,omitempty"`
	Category Category `json:"category"`
}

// Cell is the coverage of one (date, slot)
type Cell struct {
	Date            string                `json:"date"`
	Slot            model.Slot            `json:"slot"`
	Assigned        []AssignedFirefighter `json:"assigned"`
	Required        int                   `json:"required"`
	Filled          int                   `json:"filled"`
	CoveragePercent float64               `json:"coverage_percent"`
	Color           Color                 `json:"color"`
	PompiersCount   int                   `json:"pompiers_count"`
	// Shortages maps a need key ("general", "A1/amb_chef") to the seats still missing
	Shortages map[string]int `json:"shortages"`
	// MissingRoles lists the need keys without a single holder
	MissingRoles []string `json:"missing_roles"`
}

// IsComplete reports whether every required seat is filled
func (c Cell) IsComplete() bool {
	return c.Filled >= c.Required
}

// FirefighterLoad is the workload of one firefighter over the period
type FirefighterLoad struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Assignments int     `json:"assignments"`
	OnCall      int     `json:"onCall"`
	Hours       float64 `json:"hours"`
}

// Report is the coverage report of a plan
type Report struct {
	Cells        []Cell                         `json:"cells"`
	Calendar     map[string]map[model.Slot]Cell `json:"calendar"`
	Firefighters []FirefighterLoad              `json:"firefighters"`
	KPIs         map[string]float64             `json:"kpis"`
}

// AverageCoverage returns the mean coverage of the cells with requirements
func (r *Report) AverageCoverage() float64 {
	return r.KPIs[KPIAverageCoverage]
}

// ShortageCount returns the number of missing seats over the period
func (r *Report) ShortageCount() int {
	return int(r.KPIs[KPIShortages])
}

type cellKey struct {
	date string
	slot model.Slot
}

// Build computes the coverage report. It only reads its inputs, so the same inputs give the same report.
// roster may be nil, in which case preference KPIs are zero.
func Build(assignments []model.Assignment, set *requirements.Set, roster *model.Roster, policy Policy) *Report {
	byCell := make(map[cellKey][]model.Assignment)
	for _, a := range assignments {
		key := cellKey{a.Date, a.Slot}
		byCell[key] = append(byCell[key], a)
	}

	report := &Report{
		Cells:    []Cell{},
		Calendar: make(map[string]map[model.Slot]Cell),
	}

	for _, date := range set.Dates() {
		for _, slot := range model.AllSlots {
			needs := set.Needs(date, slot)
			cellAssignments := byCell[cellKey{date, slot}]
			if len(needs) == 0 && len(cellAssignments) == 0 {
				continue
			}

			cell := buildCell(date, slot, needs, cellAssignments, set.IsHeadcountSlot(date, slot), policy)
			report.Cells = append(report.Cells, cell)

			if report.Calendar[date] == nil {
				report.Calendar[date] = make(map[model.Slot]Cell)
			}
			report.Calendar[date][slot] = cell
		}
	}

	report.Firefighters = buildLoads(assignments, policy)
	report.KPIs = buildKPIs(report, assignments, roster, policy)

	return report
}

func buildCell(date string, slot model.Slot, needs []*requirements.Need, assignments []model.Assignment, headcount bool, policy Policy) Cell {
	cell := Cell{
		Date:         date,
		Slot:         slot,
		Assigned:     make([]AssignedFirefighter, 0, len(assignments)),
		Shortages:    make(map[string]int),
		MissingRoles: []string{},
	}

	held := make(map[string]int)
	people := make(map[int64]bool)
	for _, a := range assignments {
		category := CategoryActive
		if a.OnCall {
			category = CategoryOnCall
		}
		cell.Assigned = append(cell.Assigned, AssignedFirefighter{
			ID:       a.FirefighterID,
			Name:     a.FirefighterName,
			Role:     a.Role,
			Vehicle:  a.Vehicle,
			Category: category,
		})
		held[needKey(a.Vehicle, a.Role)]++
		people[a.FirefighterID] = true
	}
	cell.PompiersCount = len(people)

	// Needs sharing a key (a headcount and an on-call count of the same role) are pooled
	required := make(map[string]int)
	var keys []string
	for _, need := range needs {
		key := need.Key()
		if _, seen := required[key]; !seen {
			keys = append(keys, key)
		}
		required[key] += need.Count
	}

	for _, key := range keys {
		filled := min(held[key], required[key])
		cell.Required += required[key]
		cell.Filled += filled

		if missing := required[key] - filled; missing > 0 {
			cell.Shortages[key] = missing
		}
		if filled == 0 && required[key] > 0 {
			cell.MissingRoles = append(cell.MissingRoles, key)
		}
	}
	sort.Strings(cell.MissingRoles)

	cell.CoveragePercent = policy.Percent(cell.Filled, cell.Required)
	thresholds := policy.Role
	if headcount {
		thresholds = policy.Headcount
	}
	cell.Color = thresholds.Classify(cell.CoveragePercent)

	return cell
}

func needKey(vehicle, role string) string {
	if vehicle != "" {
		return vehicle + "/" + role
	}
	return role
}

func buildLoads(assignments []model.Assignment, policy Policy) []FirefighterLoad {
	byID := make(map[int64]*FirefighterLoad)
	for _, a := range assignments {
		load, ok := byID[a.FirefighterID]
		if !ok {
			load = &FirefighterLoad{ID: a.FirefighterID, Name: a.FirefighterName}
			byID[a.FirefighterID] = load
		}
		load.Assignments++
		if a.OnCall {
			load.OnCall++
		}
		load.Hours += policy.SlotHours[a.Slot]
	}

	loads := make([]FirefighterLoad, 0, len(byID))
	for _, load := range byID {
		loads = append(loads, *load)
	}
	sort.Slice(loads, func(i, j int) bool {
		return loads[i].ID < loads[j].ID
	})
	return loads
}
