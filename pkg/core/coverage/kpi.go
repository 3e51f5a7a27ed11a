package coverage

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/jakechorley/spv-planning/pkg/core/model"
)

// KPI keys, displayed as-is by the web client
const (
	KPIAverageCoverage      = "taux_couverture_moyen"
	KPIAssignments          = "nombre_affectations"
	KPIShortages            = "nombre_manques"
	KPICompleteSlots        = "creneaux_complets"
	KPIShortSlots           = "creneaux_en_manque"
	KPIMobilised            = "pompiers_mobilises"
	KPIMaxLoad              = "charge_max"
	KPIAverageLoad          = "charge_moyenne"
	KPITotalHours           = "heures_totales"
	KPIPreferencesRespected = "taux_preferences_respectees"
)

func buildKPIs(report *Report, assignments []model.Assignment, roster *model.Roster, policy Policy) map[string]float64 {
	kpis := map[string]float64{
		KPIAssignments: float64(len(assignments)),
		KPIMobilised:   float64(len(report.Firefighters)),
	}

	var percents []float64
	shortages, complete, short := 0, 0, 0
	for _, cell := range report.Cells {
		if cell.Required == 0 {
			continue
		}
		percents = append(percents, cell.CoveragePercent)
		for _, missing := range cell.Shortages {
			shortages += missing
		}
		if cell.IsComplete() {
			complete++
		} else {
			short++
		}
	}

	kpis[KPIAverageCoverage] = 100
	if len(percents) > 0 {
		kpis[KPIAverageCoverage] = policy.round(stat.Mean(percents, nil))
	}
	kpis[KPIShortages] = float64(shortages)
	kpis[KPICompleteSlots] = float64(complete)
	kpis[KPIShortSlots] = float64(short)

	loads := make([]float64, len(report.Firefighters))
	hours := make([]float64, len(report.Firefighters))
	for i, load := range report.Firefighters {
		loads[i] = float64(load.Assignments)
		hours[i] = load.Hours
	}
	kpis[KPIMaxLoad] = 0
	kpis[KPIAverageLoad] = 0
	if len(loads) > 0 {
		kpis[KPIMaxLoad] = floats.Max(loads)
		kpis[KPIAverageLoad] = policy.round(stat.Mean(loads, nil))
	}
	kpis[KPITotalHours] = floats.Sum(hours)

	kpis[KPIPreferencesRespected] = preferenceRate(assignments, roster, policy)

	return kpis
}

// preferenceRate is the share of assignments, among firefighters stating preferences, that match one
func preferenceRate(assignments []model.Assignment, roster *model.Roster, policy Policy) float64 {
	if roster == nil {
		return 0
	}

	withPreferences, matched := 0, 0
	for _, a := range assignments {
		f, ok := roster.Get(a.FirefighterID)
		if !ok || (len(f.Preferences.Slots) == 0 && len(f.Preferences.Vehicles) == 0) {
			continue
		}
		withPreferences++
		if f.MatchesPreference(a.Slot, a.Vehicle) {
			matched++
		}
	}

	if withPreferences == 0 {
		return 0
	}
	return policy.round(float64(matched) / float64(withPreferences) * 100)
}
