package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"antcolony/internal/model"
	"antcolony/internal/sim"
	"antcolony/internal/stats"
	"antcolony/pkg/antcolony"
)

const maxRunsLimit = 500

// RunService is the part of the colony client the API serves.
type RunService interface {
	Run(ctx context.Context, req antcolony.RunRequest) (antcolony.RunReport, error)
	Runs(ctx context.Context, limit int) ([]model.RunSummary, error)
	LookupRun(ctx context.Context, runID string) (model.RunSummary, error)
	FitnessHistory(ctx context.Context, runID string) ([]float64, error)
}

type Handler struct {
	Service RunService
	// Base is the configuration run requests are applied on top of.
	Base sim.Config
}

func (h Handler) RegisterRoutes(s *server.Hertz) {
	runs := s.Group("/api/runs")
	runs.POST("", h.createRun)
	runs.GET("", h.listRuns)
	runs.GET("/:id", h.getRun)
	runs.GET("/:id/fitness", h.fitness)
	s.GET("/api/policies", h.policies)
}

// runRequest overrides selected fields of the base configuration.
type runRequest struct {
	Policy  string           `json:"policy"`
	Agents  *int             `json:"agents,omitempty"`
	Steps   *int             `json:"steps,omitempty"`
	Seed    *int64           `json:"seed,omitempty"`
	Workers *int             `json:"workers,omitempty"`
	Config  *json.RawMessage `json:"config,omitempty"`
}

type fitnessResponse struct {
	RunID   string            `json:"run_id"`
	History []float64         `json:"history"`
	Stats   stats.SeriesStats `json:"stats"`
}

func (h Handler) createRun(c context.Context, ctx *app.RequestContext) {
	var body runRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	cfg, err := h.configFor(body)
	if err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_config", err.Error())
		return
	}

	report, err := h.Service.Run(c, antcolony.RunRequest{Config: &cfg, Policy: body.Policy})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusCreated, report.Summary)
}

func (h Handler) listRuns(c context.Context, ctx *app.RequestContext) {
	limit := 20
	if raw := string(ctx.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeErrorBody(ctx, consts.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		limit = min(n, maxRunsLimit)
	}
	runs, err := h.Service.Runs(c, limit)
	if err != nil {
		writeError(ctx, err)
		return
	}
	// listings leave out per-ant results
	for i := range runs {
		runs[i].Results = nil
	}
	ctx.JSON(consts.StatusOK, map[string]any{"runs": runs})
}

func (h Handler) getRun(c context.Context, ctx *app.RequestContext) {
	run, err := h.Service.LookupRun(c, ctx.Param("id"))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, run)
}

func (h Handler) fitness(c context.Context, ctx *app.RequestContext) {
	runID := ctx.Param("id")
	history, err := h.Service.FitnessHistory(c, runID)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, fitnessResponse{RunID: runID, History: history, Stats: stats.Describe(history)})
}

func (h Handler) policies(_ context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, map[string]any{
		"policies":      antcolony.Policies(),
		"genome_prefix": antcolony.GenomePolicyPrefix,
	})
}

func (h Handler) configFor(body runRequest) (sim.Config, error) {
	cfg := h.Base
	if body.Config != nil {
		if err := json.Unmarshal(*body.Config, &cfg); err != nil {
			return sim.Config{}, err
		}
	}
	if body.Agents != nil {
		cfg.Agents = *body.Agents
	}
	if body.Steps != nil {
		cfg.Steps = *body.Steps
	}
	if body.Seed != nil {
		cfg.Seed = *body.Seed
	}
	if body.Workers != nil {
		cfg.Workers = *body.Workers
	}
	if err := cfg.Validate(); err != nil {
		return sim.Config{}, err
	}
	return cfg, nil
}

func decodeJSON(ctx *app.RequestContext, out any) error {
	body := ctx.Request.Body()
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func writeError(ctx *app.RequestContext, err error) {
	switch {
	case errors.Is(err, antcolony.ErrNotFound):
		writeErrorBody(ctx, consts.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, antcolony.ErrUnknownPolicy):
		writeErrorBody(ctx, consts.StatusBadRequest, "unknown_policy", err.Error())
	case errors.Is(err, sim.ErrInvalidConfiguration):
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_config", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeErrorBody(ctx, consts.StatusServiceUnavailable, "cancelled", err.Error())
	default:
		writeErrorBody(ctx, consts.StatusInternalServerError, "internal_error", err.Error())
	}
}

func writeErrorBody(ctx *app.RequestContext, status int, code, message string) {
	ctx.JSON(status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
