package model

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"
)

// Grade is the ordered operational rank of a firefighter
type Grade int

const (
	GradeUnknown    Grade = 0
	GradeSapeur     Grade = 1
	GradeCaporal    Grade = 2
	GradeSergent    Grade = 3
	GradeAdjudant   Grade = 4
	GradeLieutenant Grade = 5
	GradeCapitaine  Grade = 6
)

var gradeLabels = map[string]Grade{
	"1CL": GradeSapeur, "2CL": GradeSapeur, "SAP": GradeSapeur, "SAPEUR": GradeSapeur,
	"SAPEUR 1CL": GradeSapeur, "SAPEUR 2CL": GradeSapeur,
	"CPL": GradeCaporal, "CCH": GradeCaporal, "CAPORAL": GradeCaporal,
	"CAPORAL CHEF": GradeCaporal, "CAPORAL-CHEF": GradeCaporal,
	"SGT": GradeSergent, "SCH": GradeSergent, "SERGENT": GradeSergent,
	"SERGENT CHEF": GradeSergent, "SERGENT-CHEF": GradeSergent,
	"ADJ": GradeAdjudant, "ADC": GradeAdjudant, "ADJUDANT": GradeAdjudant,
	"ADJUDANT CHEF": GradeAdjudant, "ADJUDANT-CHEF": GradeAdjudant,
	"LTN": GradeLieutenant, "LIEUTENANT": GradeLieutenant,
	"CNE": GradeCapitaine, "CAPITAINE": GradeCapitaine,
}

var gradeNames = map[Grade]string{
	GradeSapeur:     "SAP",
	GradeCaporal:    "CPL",
	GradeSergent:    "SGT",
	GradeAdjudant:   "ADJ",
	GradeLieutenant: "LTN",
	GradeCapitaine:  "CNE",
}

var whitespace = regexp.MustCompile(`\s+`)

// ParseGrade converts a grade label (e.g. "2CL", "Sergent-chef", "ltn") to a Grade
func ParseGrade(label string) (Grade, error) {
	canon := whitespace.ReplaceAllString(strings.ToUpper(strings.TrimSpace(label)), " ")
	if grade, ok := gradeLabels[canon]; ok {
		return grade, nil
	}
	return GradeUnknown, fmt.Errorf("unknown grade: %q", label)
}

func (g Grade) String() string {
	if name, ok := gradeNames[g]; ok {
		return name
	}
	return "UNKNOWN"
}

// EmploymentType distinguishes volunteer (SPV) and professional (SPP) firefighters
type EmploymentType string

const (
	EmploymentVolunteer    EmploymentType = "volunteer"
	EmploymentProfessional EmploymentType = "professional"
)

// ParseEmploymentType accepts "volunteer"/"professional" as well as the SPV/SPP abbreviations
func ParseEmploymentType(s string) (EmploymentType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "volunteer", "volontaire", "spv", "":
		return EmploymentVolunteer, nil
	case "professional", "professionnel", "spp":
		return EmploymentProfessional, nil
	default:
		return "", fmt.Errorf("unknown employment type: %q", s)
	}
}

// Qualification is a capability tag (habilitation) held by a firefighter
type Qualification string

// Well-known qualification tags
const (
	QualSUAP Qualification = "SUAP" // secours d'urgence aux personnes
	QualINC  Qualification = "INC"  // incendie
	QualCOD0 Qualification = "COD0" // light vehicle driver
	QualCOD1 Qualification = "COD1" // heavy vehicle driver
	QualPL   Qualification = "PL"   // heavy goods licence
	QualB    Qualification = "B"    // car licence
)

// Preferences holds the slots and vehicles a firefighter would rather be assigned to
type Preferences struct {
	Slots    []Slot
	Vehicles []string
	// Weight scales the preference bonus for this firefighter, 0 means 1
	Weight float64
}

// Firefighter is a read-only roster entry
type Firefighter struct {
	ID             int64
	FirstName      string
	LastName       string
	DisplayName    string
	Grade          Grade
	Type           EmploymentType
	Qualifications []Qualification
	Preferences    Preferences
}

// HasQualification reports whether the firefighter holds the given tag
func (f *Firefighter) HasQualification(q Qualification) bool {
	return slices.Contains(f.Qualifications, q)
}

// Name returns the display name, falling back to the full name
func (f *Firefighter) Name() string {
	if f.DisplayName != "" {
		return f.DisplayName
	}
	if name := strings.TrimSpace(f.FirstName + " " + f.LastName); name != "" {
		return name
	}
	return fmt.Sprintf("#%d", f.ID)
}

// PreferenceWeight returns the weight of a single preference match
func (f *Firefighter) PreferenceWeight() float64 {
	if f.Preferences.Weight <= 0 {
		return 1
	}
	return f.Preferences.Weight
}

// MatchesPreference reports whether an assignment to slot/vehicle matches a stated preference
func (f *Firefighter) MatchesPreference(slot Slot, vehicle string) bool {
	if slices.Contains(f.Preferences.Slots, slot) {
		return true
	}
	return vehicle != "" && slices.Contains(f.Preferences.Vehicles, vehicle)
}

// Roster is an immutable snapshot of firefighters ordered by ID
type Roster struct {
	firefighters []Firefighter
	index        map[int64]int
}

// NewRoster copies the given firefighters into a roster sorted by ID.
// Returns an error if two firefighters share an ID.
func NewRoster(firefighters []Firefighter) (*Roster, error) {
	sorted := make([]Firefighter, len(firefighters))
	copy(sorted, firefighters)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})

	index := make(map[int64]int, len(sorted))
	for i, f := range sorted {
		if _, exists := index[f.ID]; exists {
			return nil, fmt.Errorf("duplicate firefighter id: %d", f.ID)
		}
		sorted[i].Qualifications = slices.Clone(f.Qualifications)
		index[f.ID] = i
	}

	return &Roster{firefighters: sorted, index: index}, nil
}

// Len returns the number of firefighters
func (r *Roster) Len() int {
	return len(r.firefighters)
}

// All returns the firefighters ordered by ID. Callers must not modify the result.
func (r *Roster) All() []Firefighter {
	return r.firefighters
}

// Get returns the firefighter with the given ID
func (r *Roster) Get(id int64) (*Firefighter, bool) {
	i, ok := r.index[id]
	if !ok {
		return nil, false
	}
	return &r.firefighters[i], true
}

// ComputeDisplayNames calculates display names for a list of firefighters based on uniqueness:
// - If first name is unique: use first name only
// - If first name + first letter of surname is unique: use "FirstName L."
// - Otherwise: use full name "FirstName LastName"
// Entries that already carry a display name are left untouched.
func ComputeDisplayNames(firefighters []Firefighter) {
	firstNameCounts := make(map[string]int)
	initialCounts := make(map[string]int)
	for _, f := range firefighters {
		firstNameCounts[f.FirstName]++
		if f.LastName != "" {
			initialCounts[withInitial(f)]++
		}
	}

	for i := range firefighters {
		f := &firefighters[i]
		if f.DisplayName != "" {
			continue
		}

		if f.FirstName != "" && firstNameCounts[f.FirstName] == 1 {
			f.DisplayName = f.FirstName
			continue
		}

		if f.LastName != "" && initialCounts[withInitial(*f)] == 1 {
			f.DisplayName = withInitial(*f)
			continue
		}

		f.DisplayName = strings.TrimSpace(f.FirstName + " " + f.LastName)
	}
}

func withInitial(f Firefighter) string {
	initial := []rune(f.LastName)[0]
	return f.FirstName + " " + string(initial) + "."
}
