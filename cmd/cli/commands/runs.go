package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/spv-planning/pkg/core/services"
	"github.com/jakechorley/spv-planning/pkg/db"
)

// RunsCmd creates the runs command and its subcommands
func RunsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored optimization runs, latest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Logger.Debug("runs command")

			runs, err := services.ListRuns(app.Ctx, app.Database, app.Logger)
			if err != nil {
				return err
			}

			renderRuns(os.Stdout, runs)
			return nil
		},
	}

	var asJSON bool
	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "Show the plan of a stored run (defaults to the latest run)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				plan *services.Plan
				err  error
			)
			if len(args) > 0 {
				app.Logger.Debug("runs show command", zap.String("run_id", args[0]))
				plan, err = services.GetPlan(app.Ctx, app.Database, app.Hooks.Cache, args[0], app.Logger)
			} else {
				app.Logger.Debug("runs show command (latest run)")
				plan, err = services.GetLatestPlan(app.Ctx, app.Database, app.Hooks.Cache, app.Logger)
			}
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(os.Stdout, plan)
			}
			renderPlan(os.Stdout, plan)
			return nil
		},
	}
	showCmd.Flags().BoolVar(&asJSON, "json", false, "Print the plan as JSON")

	cmd.AddCommand(showCmd)
	return cmd
}

func renderRuns(w io.Writer, runs []db.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs stored yet.")
		return
	}

	fmt.Fprintf(w, "\nFound %d runs:\n\n", len(runs))
	fmt.Fprintf(w, "%-38s %-10s %-10s %-10s %-21s %9s %8s\n", "ID", "Mode", "Start", "End", "Created", "Coverage", "Missing")
	for _, run := range runs {
		color := colorGreen
		if run.ShortageCount > 0 {
			color = colorRed
		}
		fmt.Fprintf(w, "%-38s %-10s %-10s %-10s %-21s %s%8.1f%% %8d%s\n",
			run.ID, run.Mode, run.PeriodStart, run.PeriodEnd, run.CreatedAt,
			color, run.AverageCoverage, run.ShortageCount, colorReset)
	}
	fmt.Fprintln(w)
}
