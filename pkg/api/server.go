package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jakechorley/spv-planning/internal/config"
	"github.com/jakechorley/spv-planning/pkg/core/services"
)

const shutdownTimeout = 10 * time.Second

// Store is the persistence used by the API
type Store interface {
	services.OptimizeStore
	services.RunReader
}

// Options configures the API server
type Options struct {
	Store  Store
	Hooks  services.Hooks
	Config *config.Config
	Logger *zap.Logger
	// Gatherer serves /metrics, defaults to the prometheus default gatherer
	Gatherer prometheus.Gatherer
}

// Server serves the planning API consumed by the web client
type Server struct {
	store    Store
	hooks    services.Hooks
	cfg      *config.Config
	logger   *zap.Logger
	gatherer prometheus.Gatherer
	now      func() time.Time
}

// NewServer creates a server from its options
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		store:    opts.Store,
		hooks:    opts.Hooks,
		cfg:      opts.Config,
		logger:   logger,
		gatherer: gatherer,
		now:      time.Now,
	}
}

// Router builds the gin engine with every route registered
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(s.logger), recovery(s.logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	{
		api.POST("/optimize", s.Optimize)
		api.POST("/validate", s.Validate)

		api.GET("/planning/optimise", s.LatestPlan)
		api.POST("/planning/optimise", s.OptimiseNextMonth)
		api.GET("/planning/diagnostic", s.Diagnostic)

		api.GET("/runs", s.ListRuns)
		api.GET("/runs/:id", s.GetRun)
	}

	return r
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
