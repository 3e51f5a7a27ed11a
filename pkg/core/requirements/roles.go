package requirements

import (
	"fmt"
	"slices"
	"sort"

	"github.com/jakechorley/spv-planning/pkg/core/model"
)

// Role names of the default catalog
const (
	RoleGeneral     = "general"
	RoleDriver      = "driver"
	RoleTeamLeader  = "team_leader"
	RoleAmbChef     = "amb_chef"
	RoleAmbCond     = "amb_cond"
	RoleAmbEquiSUAP = "amb_equi_suap"
	RoleFptChef     = "fpt_chef"
	RoleFptCond     = "fpt_cond"
	RoleFptEquiINC  = "fpt_equi_inc"
)

// Role describes what a firefighter must hold to fill a seat.
//
// A firefighter is qualified when they hold every AllOf tag, at least one AnyOf tag
// (if any are listed) and a grade of at least MinGrade.
type Role struct {
	Name     string
	AllOf    []model.Qualification
	AnyOf    []model.Qualification
	MinGrade model.Grade
}

// IsQualified reports whether the firefighter satisfies the role requirements
func (r Role) IsQualified(f *model.Firefighter) bool {
	for _, q := range r.AllOf {
		if !f.HasQualification(q) {
			return false
		}
	}

	if len(r.AnyOf) > 0 {
		found := false
		for _, q := range r.AnyOf {
			if f.HasQualification(q) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return f.Grade >= r.MinGrade
}

// IsRestricted reports whether the role requires anything at all
func (r Role) IsRestricted() bool {
	return len(r.AllOf) > 0 || len(r.AnyOf) > 0 || r.MinGrade > model.GradeUnknown
}

// Tags returns every qualification tag mentioned by the role
func (r Role) Tags() []model.Qualification {
	tags := slices.Clone(r.AllOf)
	for _, q := range r.AnyOf {
		if !slices.Contains(tags, q) {
			tags = append(tags, q)
		}
	}
	return tags
}

// Catalog maps role names to their requirements
type Catalog map[string]Role

// DefaultCatalog returns the SPV role catalog
func DefaultCatalog() Catalog {
	drivers := []model.Qualification{model.QualCOD0, model.QualCOD1}

	return Catalog{
		RoleGeneral:    {Name: RoleGeneral},
		RoleDriver:     {Name: RoleDriver, AllOf: []model.Qualification{model.QualB}, AnyOf: drivers},
		RoleTeamLeader: {Name: RoleTeamLeader, MinGrade: model.GradeSergent},

		RoleAmbChef:     {Name: RoleAmbChef, MinGrade: model.GradeSergent},
		RoleAmbCond:     {Name: RoleAmbCond, AllOf: []model.Qualification{model.QualB}, AnyOf: drivers},
		RoleAmbEquiSUAP: {Name: RoleAmbEquiSUAP, AllOf: []model.Qualification{model.QualSUAP}},

		RoleFptChef:    {Name: RoleFptChef, AllOf: []model.Qualification{model.QualINC}, MinGrade: model.GradeAdjudant},
		RoleFptCond:    {Name: RoleFptCond, AllOf: []model.Qualification{model.QualPL, model.QualCOD1}},
		RoleFptEquiINC: {Name: RoleFptEquiINC, AllOf: []model.Qualification{model.QualINC}},
	}
}

// Lookup returns the named role
func (c Catalog) Lookup(name string) (Role, error) {
	role, ok := c[name]
	if !ok {
		return Role{}, fmt.Errorf("unknown role: %q", name)
	}
	if role.Name == "" {
		role.Name = name
	}
	return role, nil
}

// Names returns the role names in alphabetical order
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ScarceTags returns the qualification tags required by at least one restricted role
func (c Catalog) ScarceTags() map[model.Qualification]bool {
	tags := make(map[model.Qualification]bool)
	for _, role := range c {
		for _, q := range role.Tags() {
			tags[q] = true
		}
	}
	return tags
}

// Vehicle is an emergency vehicle and the crew it needs
type Vehicle struct {
	Name   string
	Weight float64
	Crew   []string
}

// DefaultVehicles returns the two ambulances (VSAV) and the fire engine (FPT)
func DefaultVehicles() []Vehicle {
	ambulanceCrew := []string{RoleAmbChef, RoleAmbCond, RoleAmbEquiSUAP}
	return []Vehicle{
		{Name: "A1", Weight: 1, Crew: slices.Clone(ambulanceCrew)},
		{Name: "A2", Weight: 1, Crew: slices.Clone(ambulanceCrew)},
		{Name: "F1", Weight: 1, Crew: []string{RoleFptChef, RoleFptCond, RoleFptEquiINC}},
	}
}
