package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/spv-planning/pkg/core/model"
	"github.com/jakechorley/spv-planning/pkg/core/services"
	"github.com/jakechorley/spv-planning/pkg/db"
	"github.com/jakechorley/spv-planning/pkg/snapshot"
)

// snapshotStore reads the roster from a snapshot file and stores runs in the database
type snapshotStore struct {
	*snapshot.Snapshot
	db.RunStore
}

// periodFlags are the flags shared by optimize and diagnose
type periodFlags struct {
	start    string
	end      string
	mode     string
	snapshot string
}

func (f *periodFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.start, "start", "", "First day of the period (YYYY-MM-DD, defaults to the first day of next month)")
	cmd.Flags().StringVar(&f.end, "end", "", "Last day of the period (YYYY-MM-DD, defaults to the last day of next month)")
	cmd.Flags().StringVar(&f.mode, "mode", "", "Requirement mode: VEHICULES or SIMPLIFIE (defaults to the configured mode)")
	cmd.Flags().StringVar(&f.snapshot, "snapshot", "", "Read firefighters and availability from a JSON snapshot instead of the database")
}

// period returns the requested period, next month when neither bound is set
func (f *periodFlags) period(now time.Time) (string, string) {
	if f.start == "" && f.end == "" {
		return services.NextMonthPeriod(now)
	}
	return f.start, f.end
}

// store returns the snapshot-backed store when a snapshot file is set
func (f *periodFlags) store(app *AppContext) (services.OptimizeStore, error) {
	if f.snapshot == "" {
		return app.Database, nil
	}
	app.Logger.Info("Loading roster snapshot", zap.String("path", f.snapshot))
	snap, err := snapshot.Load(f.snapshot)
	if err != nil {
		return nil, err
	}
	app.Logger.Debug("Snapshot loaded",
		zap.Int("firefighters", len(snap.Firefighters)),
		zap.Int("availability", len(snap.Availability)))
	return snapshotStore{Snapshot: snap, RunStore: app.Database}, nil
}

// OptimizeCmd creates the optimize command
func OptimizeCmd(app *AppContext) *cobra.Command {
	var (
		period     periodFlags
		weights    map[string]string
		onCall     map[string]string
		fairness   float64
		preference float64
		quotaMin   int
		quotaMax   int
		dryRun     bool
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Build the duty plan of a period from the declared availability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end := period.period(time.Now())
			params := services.OptimizeParams{
				Start:  start,
				End:    end,
				Mode:   period.mode,
				DryRun: dryRun,
			}

			var err error
			if params.VehicleWeights, err = parseWeights(weights); err != nil {
				return err
			}
			if params.OnCallNeeds, err = parseOnCallNeeds(onCall); err != nil {
				return err
			}
			if cmd.Flags().Changed("fairness") {
				params.FairnessCoefficient = &fairness
			}
			if cmd.Flags().Changed("preference") {
				params.PreferenceCoefficient = &preference
			}
			if cmd.Flags().Changed("quota-min") {
				params.QuotaMin = &quotaMin
			}
			if cmd.Flags().Changed("quota-max") {
				params.QuotaMax = &quotaMax
			}

			app.Logger.Debug("optimize command",
				zap.String("start", start),
				zap.String("end", end),
				zap.String("mode", period.mode),
				zap.String("snapshot", period.snapshot),
				zap.Bool("dry_run", dryRun))

			store, err := period.store(app)
			if err != nil {
				return err
			}

			result, err := services.Optimize(app.Ctx, store, app.Hooks, app.Cfg, params, app.Logger)
			if err != nil {
				return err
			}

			plan := *result.Plan
			if !result.Persisted {
				plan.RunID = ""
			}

			if asJSON {
				return writeJSON(os.Stdout, plan)
			}
			renderPlan(os.Stdout, &plan)
			return nil
		},
	}

	period.register(cmd)
	cmd.Flags().StringToStringVar(&weights, "weight", nil, "Vehicle weight, e.g. --weight A1=2 (vehicle mode)")
	cmd.Flags().StringToStringVar(&onCall, "on-call", nil, "On-call need per slot, e.g. --on-call 3=2 (simplified mode)")
	cmd.Flags().Float64Var(&fairness, "fairness", 0, "Fairness coefficient")
	cmd.Flags().Float64Var(&preference, "preference", 0, "Preference coefficient")
	cmd.Flags().IntVar(&quotaMin, "quota-min", 0, "Minimum assignments per firefighter")
	cmd.Flags().IntVar(&quotaMax, "quota-max", 0, "Maximum assignments per firefighter")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Run without saving to database")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the plan as JSON")

	return cmd
}

func parseWeights(values map[string]string) (map[string]float64, error) {
	if len(values) == 0 {
		return nil, nil
	}
	weights := make(map[string]float64, len(values))
	for vehicle, value := range values {
		weight, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("weight of %s must be a number, got: %s", vehicle, value)
		}
		weights[vehicle] = weight
	}
	return weights, nil
}

func parseOnCallNeeds(values map[string]string) (map[model.Slot]int, error) {
	if len(values) == 0 {
		return nil, nil
	}
	needs := make(map[model.Slot]int, len(values))
	for slotValue, countValue := range values {
		slot, err := strconv.Atoi(slotValue)
		if err != nil {
			return nil, fmt.Errorf("on-call slot must be a number, got: %s", slotValue)
		}
		count, err := strconv.Atoi(countValue)
		if err != nil {
			return nil, fmt.Errorf("on-call need of slot %d must be a number, got: %s", slot, countValue)
		}
		needs[model.Slot(slot)] = count
	}
	return needs, nil
}

func parseDay(date string) (time.Time, error) {
	return time.Parse(model.DateLayout, date)
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
