package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/spv-planning/pkg/api"
	"github.com/jakechorley/spv-planning/pkg/metrics"
)

// ServeCmd creates the serve command
func ServeCmd(app *AppContext) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the planning API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = app.Cfg.Server.Addr
			}
			app.Logger.Debug("serve command", zap.String("addr", addr))

			recorder, err := metrics.NewPromRecorder(nil)
			if err != nil {
				return fmt.Errorf("failed to register metrics: %w", err)
			}
			hooks := app.Hooks
			hooks.Recorder = recorder

			server := api.NewServer(api.Options{
				Store:  app.Database,
				Hooks:  hooks,
				Config: app.Cfg,
				Logger: app.Logger,
			})

			ctx, stop := signal.NotifyContext(app.Ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			return server.Serve(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to the configured server address)")

	return cmd
}
