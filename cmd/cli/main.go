package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/spv-planning/cmd/cli/commands"
	"github.com/jakechorley/spv-planning/internal/config"
	"github.com/jakechorley/spv-planning/pkg/cache"
	"github.com/jakechorley/spv-planning/pkg/db"
	"github.com/jakechorley/spv-planning/pkg/events"
	"github.com/jakechorley/spv-planning/pkg/postgres"
	"github.com/jakechorley/spv-planning/pkg/sqlite"
	"github.com/jakechorley/spv-planning/pkg/utils/logging"
)

var (
	env     string
	app     = &commands.AppContext{}
	closers []func() error
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cli",
		Short: "SPV planning CLI - Optimize firefighter shift assignments",
		Long:  `A CLI tool for building firefighter duty plans from declared availability, reviewing past runs and serving the planning API.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(cmd.Name() == "serve")
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeApp()
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: dev, test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")

	rootCmd.AddCommand(commands.OptimizeCmd(app))
	rootCmd.AddCommand(commands.DiagnoseCmd(app))
	rootCmd.AddCommand(commands.RunsCmd(app))
	rootCmd.AddCommand(commands.ServeCmd(app))
	rootCmd.AddCommand(commands.MigrateCmd(app))

	if err := rootCmd.Execute(); err != nil {
		closeApp()
		os.Exit(1)
	}
}

// initApp loads the environment files, then sets up logger, config, database and plan hooks
func initApp(server bool) error {
	var err error
	app.Env = env
	app.Ctx = context.Background()

	if err := loadEnvFiles(".env."+env, ".env"); err != nil {
		return err
	}

	if server {
		app.Logger = logging.InitServerLogger(env)
	} else {
		app.Logger, err = logging.InitLogger(env)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	app.Logger.Info("Starting application", zap.String("environment", env))

	app.Logger.Info("Loading configuration")
	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully", zap.String("driver", app.Cfg.Database.Driver))

	app.Database, err = openDatabase(app.Ctx, app.Cfg.Database, app.Logger)
	if err != nil {
		return err
	}
	closers = append(closers, app.Database.Close)

	if addr := app.Cfg.Cache.RedisAddr; addr != "" {
		app.Logger.Info("Connecting to plan cache", zap.String("addr", addr))
		planCache := cache.NewPlanCache(cache.NewClient(addr, app.Cfg.Cache.Password, app.Cfg.Cache.DB), app.Cfg.Cache.TTL)
		closers = append(closers, planCache.Close)
		if err := planCache.Ping(app.Ctx); err != nil {
			// Plans are still stored and served from the database
			app.Logger.Warn("Plan cache unavailable, continuing without it", zap.Error(err))
		} else {
			app.Hooks.Cache = planCache
		}
	}

	if brokers := app.Cfg.Events.Brokers; len(brokers) > 0 {
		app.Logger.Info("Initializing event publisher", zap.Strings("brokers", brokers), zap.String("topic", app.Cfg.Events.Topic))
		publisher, err := events.NewPublisher(brokers, app.Cfg.Events.Topic)
		if err != nil {
			return fmt.Errorf("failed to create event publisher: %w", err)
		}
		closers = append(closers, publisher.Close)
		app.Hooks.Publisher = publisher
	}

	return nil
}

// loadEnvFiles loads the first-found values of each file; existing environment variables win
func loadEnvFiles(files ...string) error {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (db.Database, error) {
	switch cfg.Driver {
	case "postgres":
		logger.Info("Connecting to postgres database")
		database, err := postgres.NewDB(ctx, cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return database, nil
	default:
		logger.Info("Opening sqlite database", zap.String("path", cfg.SQLitePath))
		database, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		// Local files are migrated on open
		if err := database.RunMigrations(ctx); err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		return database, nil
	}
}

func closeApp() {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil && app.Logger != nil {
			app.Logger.Warn("Failed to close resource", zap.Error(err))
		}
	}
	closers = nil
	if app.Logger != nil {
		app.Logger.Sync()
	}
}
