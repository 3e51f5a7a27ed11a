package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jakechorley/spv-planning/pkg/core/allocator"
	"github.com/jakechorley/spv-planning/pkg/core/optimizer"
	"github.com/jakechorley/spv-planning/pkg/core/services"
	"github.com/jakechorley/spv-planning/pkg/db"
)

// runSummary is a stored run as listed by GET /api/runs
type runSummary struct {
	ID                  string  `json:"id"`
	PeriodStart         string  `json:"periodStart"`
	PeriodEnd           string  `json:"periodEnd"`
	Mode                string  `json:"mode"`
	CreatedAt           string  `json:"createdAt"`
	Score               float64 `json:"score"`
	AverageCoverage     float64 `json:"averageCoverage"`
	ShortageCount       int     `json:"shortageCount"`
	AssignmentCount     int     `json:"assignmentCount"`
	ImprovementComplete bool    `json:"improvementComplete"`
}

// Optimize runs the optimizer for the requested period and parameters
func (s *Server) Optimize(c *gin.Context) {
	var req optimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body: " + err.Error()})
		return
	}

	params, err := req.params()
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.optimize(c, params)
}

// OptimiseNextMonth runs the optimizer for the next calendar month with the configured defaults
func (s *Server) OptimiseNextMonth(c *gin.Context) {
	start, end := services.NextMonthPeriod(s.now())
	s.optimize(c, services.OptimizeParams{Start: start, End: end})
}

func (s *Server) optimize(c *gin.Context, params services.OptimizeParams) {
	result, err := services.Optimize(c.Request.Context(), s.store, s.hooks, s.cfg, params, s.logger)
	if err != nil {
		s.writeError(c, err)
		return
	}

	plan := result.Plan
	message := "Planning optimisé avec succès"
	if plan.ShortageCount() > 0 {
		message = "Planning optimisé avec des manques"
	}

	runID := plan.RunID
	if !result.Persisted {
		runID = ""
	}

	c.JSON(http.StatusOK, gin.H{
		"message":             message,
		"runId":               runID,
		"periodStart":         plan.PeriodStart,
		"periodEnd":           plan.PeriodEnd,
		"mode":                plan.Mode,
		"kpis":                plan.KPIs,
		"assignments":         plan.Assignments,
		"calendar":            plan.Calendar,
		"shortages":           plan.Shortages,
		"firefighters":        plan.Firefighters,
		"score":               plan.Score,
		"improvementComplete": plan.ImprovementComplete,
	})
}

// Validate checks a run configuration without running it
func (s *Server) Validate(c *gin.Context) {
	var req optimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"valid": false, "error": "invalid request body: " + err.Error()})
		return
	}

	params, err := req.params()
	if err == nil {
		err = services.ValidateParams(s.cfg, params, s.logger)
	}

	var configErr *optimizer.ConfigError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"valid": true})
	case errors.As(err, &configErr):
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": configErr.Reason, "field": configErr.Field})
	default:
		s.writeError(c, err)
	}
}

// LatestPlan returns the plan of the latest stored run
func (s *Server) LatestPlan(c *gin.Context) {
	plan, err := services.GetLatestPlan(c.Request.Context(), s.store, s.hooks.Cache, s.logger)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// Diagnostic lists the requirements the declared availability cannot cover
func (s *Server) Diagnostic(c *gin.Context) {
	start, err := parseDate("start", c.Query("start"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	end, err := parseDate("end", c.Query("end"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	result, err := services.Diagnose(c.Request.Context(), s.store, s.cfg,
		services.OptimizeParams{Start: start, End: end, Mode: c.Query("mode")}, s.logger)
	if err != nil {
		s.writeError(c, err)
		return
	}

	warnings := result.Warnings
	if warnings == nil {
		warnings = []allocator.FeasibilityWarning{}
	}
	c.JSON(http.StatusOK, gin.H{
		"start":    result.Start,
		"end":      result.End,
		"mode":     result.Mode,
		"feasible": len(warnings) == 0,
		"warnings": warnings,
	})
}

// ListRuns lists the stored runs, latest first
func (s *Server) ListRuns(c *gin.Context) {
	runs, err := services.ListRuns(c.Request.Context(), s.store, s.logger)
	if err != nil {
		s.writeError(c, err)
		return
	}

	summaries := make([]runSummary, len(runs))
	for i, run := range runs {
		summaries[i] = runSummary{
			ID:                  run.ID,
			PeriodStart:         run.PeriodStart,
			PeriodEnd:           run.PeriodEnd,
			Mode:                run.Mode,
			CreatedAt:           run.CreatedAt,
			Score:               run.Score,
			AverageCoverage:     run.AverageCoverage,
			ShortageCount:       run.ShortageCount,
			AssignmentCount:     run.AssignmentCount,
			ImprovementComplete: run.ImprovementComplete,
		}
	}
	c.JSON(http.StatusOK, gin.H{"runs": summaries})
}

// GetRun returns the plan of a stored run
func (s *Server) GetRun(c *gin.Context) {
	plan, err := services.GetPlan(c.Request.Context(), s.store, s.hooks.Cache, c.Param("id"), s.logger)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// writeError maps configuration errors to 400 and missing records to 404
func (s *Server) writeError(c *gin.Context, err error) {
	var configErr *optimizer.ConfigError
	switch {
	case errors.As(err, &configErr):
		c.JSON(http.StatusBadRequest, gin.H{"detail": configErr.Error(), "field": configErr.Field})
	case errors.Is(err, db.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal error"})
	}
}
