package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/spv-planning/pkg/core/services"
)

// DiagnoseCmd creates the diagnose command
func DiagnoseCmd(app *AppContext) *cobra.Command {
	var period periodFlags

	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "List the requirements the declared availability cannot cover",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end := period.period(time.Now())
			app.Logger.Debug("diagnose command",
				zap.String("start", start),
				zap.String("end", end),
				zap.String("mode", period.mode))

			store, err := period.store(app)
			if err != nil {
				return err
			}

			result, err := services.Diagnose(app.Ctx, store, app.Cfg,
				services.OptimizeParams{Start: start, End: end, Mode: period.mode}, app.Logger)
			if err != nil {
				return err
			}

			renderDiagnosis(os.Stdout, result)
			return nil
		},
	}

	period.register(cmd)

	return cmd
}

func renderDiagnosis(w io.Writer, result *services.DiagnoseResult) {
	fmt.Fprintf(w, "\nFeasibility of %s to %s (%s)\n\n", result.Start, result.End, result.Mode)

	if len(result.Warnings) == 0 {
		fmt.Fprintf(w, "%s✓ Declared availability covers every requirement%s\n\n", colorGreen, colorReset)
		return
	}

	fmt.Fprintf(w, "%s⚠️  %d requirements cannot be covered:%s\n", colorYellow, len(result.Warnings), colorReset)
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "  ✗ %s\n", warning.String())
	}
	fmt.Fprintln(w)
}
