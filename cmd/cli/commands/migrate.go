package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/spv-planning/pkg/snapshot"
)

// MigrateCmd creates the migrate command
func MigrateCmd(app *AppContext) *cobra.Command {
	var seed string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations, optionally seeding the roster from a snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Logger.Info("Running database migrations")
			if err := app.Database.RunMigrations(app.Ctx); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			fmt.Printf("\n✓ Database schema is up to date\n")

			if seed == "" {
				fmt.Println()
				return nil
			}

			app.Logger.Info("Seeding roster", zap.String("snapshot", seed))
			snap, err := snapshot.Load(seed)
			if err != nil {
				return err
			}
			if err := snap.Seed(app.Ctx, app.Database); err != nil {
				return fmt.Errorf("failed to seed roster: %w", err)
			}
			fmt.Printf("✓ Seeded %d firefighters and %d availability entries\n\n",
				len(snap.Firefighters), len(snap.Availability))

			return nil
		},
	}

	cmd.Flags().StringVar(&seed, "seed", "", "Snapshot file to load into the roster tables")

	return cmd
}
