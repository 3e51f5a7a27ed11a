package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jakechorley/spv-planning/pkg/core/coverage"
	"github.com/jakechorley/spv-planning/pkg/core/model"
	"github.com/jakechorley/spv-planning/pkg/core/services"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorDim    = "\033[2m"
)

const (
	dateColWidth = 16
	slotColWidth = 10
)

// kpiOrder is the display order of the plan KPIs
var kpiOrder = []struct {
	key   string
	label string
}{
	{coverage.KPIAverageCoverage, "Average coverage (%)"},
	{coverage.KPIAssignments, "Assignments"},
	{coverage.KPIShortages, "Missing seats"},
	{coverage.KPICompleteSlots, "Complete slots"},
	{coverage.KPIShortSlots, "Short slots"},
	{coverage.KPIMobilised, "Firefighters mobilised"},
	{coverage.KPIMaxLoad, "Max load"},
	{coverage.KPIAverageLoad, "Average load"},
	{coverage.KPITotalHours, "Total hours"},
	{coverage.KPIPreferencesRespected, "Preferences respected (%)"},
}

// colorCode maps a coverage color to its terminal color
func colorCode(color coverage.Color) string {
	switch color {
	case coverage.ColorGreen:
		return colorGreen
	case coverage.ColorOrange:
		return colorYellow
	case coverage.ColorRed:
		return colorRed
	default:
		return colorDim
	}
}

// cellLabel shows filled over required seats, or the headcount for slots without needs
func cellLabel(cell coverage.Cell) string {
	if cell.Required == 0 {
		return fmt.Sprintf("+%d", cell.PompiersCount)
	}
	return fmt.Sprintf("%d/%d", cell.Filled, cell.Required)
}

// renderPlan prints the coverage calendar, the KPIs and the shortages of a plan
func renderPlan(w io.Writer, plan *services.Plan) {
	fmt.Fprintf(w, "\nPlan %s (%s) from %s to %s\n\n", displayRunID(plan.RunID), plan.Mode, plan.PeriodStart, plan.PeriodEnd)

	renderCalendar(w, plan.Calendar)

	fmt.Fprintln(w, "\nKPIs:")
	for _, kpi := range kpiOrder {
		if value, ok := plan.KPIs[kpi.key]; ok {
			fmt.Fprintf(w, "  %-28s %g\n", kpi.label, value)
		}
	}
	fmt.Fprintf(w, "  %-28s %.3f\n", "Score", plan.Score.Total)
	if !plan.ImprovementComplete {
		fmt.Fprintf(w, "  %sImprovement stopped at its budget%s\n", colorDim, colorReset)
	}

	if len(plan.Shortages) > 0 {
		fmt.Fprintf(w, "\n%sShortages (%d):%s\n", colorRed, len(plan.Shortages), colorReset)
		for _, shortage := range plan.Shortages {
			fmt.Fprintf(w, "  %s %s %-16s %d of %d missing\n",
				shortage.Date, shortage.Slot, shortage.Key, shortage.Missing, shortage.Required)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Legend:")
	fmt.Fprintf(w, "  %sX/Y%s = X of Y seats filled, fully covered\n", colorGreen, colorReset)
	fmt.Fprintf(w, "  %sX/Y%s = partially covered\n", colorYellow, colorReset)
	fmt.Fprintf(w, "  %sX/Y%s = insufficient coverage\n", colorRed, colorReset)
	fmt.Fprintf(w, "  %s+N%s  = N firefighters on a slot without needs\n", colorDim, colorReset)
}

func renderCalendar(w io.Writer, calendar map[string]map[model.Slot]coverage.Cell) {
	dates := make([]string, 0, len(calendar))
	for date := range calendar {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	fmt.Fprintf(w, "%-*s", dateColWidth, "")
	for _, slot := range model.AllSlots {
		fmt.Fprintf(w, "%-*s", slotColWidth, slot.String())
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("-", dateColWidth+slotColWidth*len(model.AllSlots)))

	for _, date := range dates {
		fmt.Fprintf(w, "%-*s", dateColWidth, displayDate(date))
		for _, slot := range model.AllSlots {
			cell, ok := calendar[date][slot]
			if !ok {
				fmt.Fprintf(w, "%s%-*s%s", colorDim, slotColWidth, "-", colorReset)
				continue
			}
			color := colorCode(cell.Color)
			if cell.Required == 0 {
				color = colorDim
			}
			fmt.Fprintf(w, "%s%-*s%s", color, slotColWidth, cellLabel(cell), colorReset)
		}
		fmt.Fprintln(w)
	}
}

func displayDate(date string) string {
	t, err := parseDay(date)
	if err != nil {
		return date
	}
	return t.Format("Mon 02 Jan")
}

func displayRunID(runID string) string {
	if runID == "" {
		return "(not saved)"
	}
	return runID
}
