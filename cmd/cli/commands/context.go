package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/jakechorley/spv-planning/internal/config"
	"github.com/jakechorley/spv-planning/pkg/core/services"
	"github.com/jakechorley/spv-planning/pkg/db"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Env      string
	Cfg      *config.Config
	Database db.Database
	// Hooks holds the plan cache and event publisher when they are configured
	Hooks  services.Hooks
	Logger *zap.Logger
	Ctx    context.Context
}
