package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/cloudwego/hertz/pkg/route/param"

	"antcolony/internal/model"
	"antcolony/internal/sim"
	"antcolony/pkg/antcolony"
)

type fakeService struct {
	lastRun   antcolony.RunRequest
	lastLimit int
	runs      map[string]model.RunSummary
	history   map[string][]float64
	runErr    error
}

func (f *fakeService) Run(_ context.Context, req antcolony.RunRequest) (antcolony.RunReport, error) {
	f.lastRun = req
	if f.runErr != nil {
		return antcolony.RunReport{}, f.runErr
	}
	return antcolony.RunReport{Summary: model.RunSummary{ID: "r1", Policy: req.Policy, Agents: req.Config.Agents}}, nil
}

func (f *fakeService) Runs(_ context.Context, limit int) ([]model.RunSummary, error) {
	f.lastLimit = limit
	out := make([]model.RunSummary, 0, len(f.runs))
	for _, run := range f.runs {
		out = append(out, run)
	}
	return out, nil
}

func (f *fakeService) LookupRun(_ context.Context, runID string) (model.RunSummary, error) {
	run, ok := f.runs[runID]
	if !ok {
		return model.RunSummary{}, fmt.Errorf("%w: run %s", antcolony.ErrNotFound, runID)
	}
	return run, nil
}

func (f *fakeService) FitnessHistory(_ context.Context, runID string) ([]float64, error) {
	history, ok := f.history[runID]
	if !ok {
		return nil, fmt.Errorf("%w: fitness history for run %s", antcolony.ErrNotFound, runID)
	}
	return history, nil
}

func newTestHandler() (Handler, *fakeService) {
	svc := &fakeService{
		runs: map[string]model.RunSummary{
			"r1": {ID: "r1", Policy: "forager", Results: []model.AgentResult{{ID: "ant-000"}}},
		},
		history: map[string][]float64{"r1": {1, 2, 3}},
	}
	return Handler{Service: svc, Base: sim.DefaultConfig()}, svc
}

func decodeError(t *testing.T, ctx *app.RequestContext) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(ctx.Response.Body(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error.Code
}

func TestCreateRunAppliesOverrides(t *testing.T) {
	h, svc := newTestHandler()
	ctx := &app.RequestContext{}
	ctx.Request.SetBody([]byte(`{"policy":"random","agents":7,"seed":9}`))

	h.createRun(context.Background(), ctx)

	if got, want := ctx.Response.StatusCode(), consts.StatusCreated; got != want {
		t.Fatalf("status=%d want=%d body=%s", got, want, ctx.Response.Body())
	}
	if svc.lastRun.Policy != "random" || svc.lastRun.Config.Agents != 7 || svc.lastRun.Config.Seed != 9 {
		t.Fatalf("unexpected run request %+v", svc.lastRun)
	}
	if svc.lastRun.Config.Steps != sim.DefaultConfig().Steps {
		t.Fatalf("expected base steps, got %d", svc.lastRun.Config.Steps)
	}
}

func TestCreateRunRejectsBadInput(t *testing.T) {
	h, _ := newTestHandler()

	ctx := &app.RequestContext{}
	ctx.Request.SetBody([]byte(`{"policy":`))
	h.createRun(context.Background(), ctx)
	if ctx.Response.StatusCode() != consts.StatusBadRequest || decodeError(t, ctx) != "invalid_json" {
		t.Fatalf("expected invalid_json, got %d %s", ctx.Response.StatusCode(), ctx.Response.Body())
	}

	ctx = &app.RequestContext{}
	ctx.Request.SetBody([]byte(`{"agents":0}`))
	h.createRun(context.Background(), ctx)
	if ctx.Response.StatusCode() != consts.StatusBadRequest || decodeError(t, ctx) != "invalid_config" {
		t.Fatalf("expected invalid_config, got %d %s", ctx.Response.StatusCode(), ctx.Response.Body())
	}
}

func TestCreateRunUnknownPolicy(t *testing.T) {
	h, svc := newTestHandler()
	svc.runErr = fmt.Errorf("%w: %q", antcolony.ErrUnknownPolicy, "teleport")
	ctx := &app.RequestContext{}
	ctx.Request.SetBody([]byte(`{"policy":"teleport"}`))

	h.createRun(context.Background(), ctx)

	if ctx.Response.StatusCode() != consts.StatusBadRequest || decodeError(t, ctx) != "unknown_policy" {
		t.Fatalf("expected unknown_policy, got %d %s", ctx.Response.StatusCode(), ctx.Response.Body())
	}
}

func TestListRunsHonorsLimitAndDropsResults(t *testing.T) {
	h, svc := newTestHandler()
	ctx := &app.RequestContext{}
	ctx.Request.SetRequestURI("/api/runs?limit=5")

	h.listRuns(context.Background(), ctx)

	if ctx.Response.StatusCode() != consts.StatusOK {
		t.Fatalf("status=%d body=%s", ctx.Response.StatusCode(), ctx.Response.Body())
	}
	if svc.lastLimit != 5 {
		t.Fatalf("expected limit 5, got %d", svc.lastLimit)
	}
	var body struct {
		Runs []model.RunSummary `json:"runs"`
	}
	if err := json.Unmarshal(ctx.Response.Body(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Runs) != 1 || body.Runs[0].Results != nil {
		t.Fatalf("unexpected runs %+v", body.Runs)
	}

	ctx = &app.RequestContext{}
	ctx.Request.SetRequestURI("/api/runs?limit=-1")
	h.listRuns(context.Background(), ctx)
	if ctx.Response.StatusCode() != consts.StatusBadRequest {
		t.Fatalf("expected bad request for negative limit, got %d", ctx.Response.StatusCode())
	}
}

func TestGetRunAndFitness(t *testing.T) {
	h, _ := newTestHandler()

	ctx := &app.RequestContext{}
	ctx.Params = param.Params{{Key: "id", Value: "r1"}}
	h.getRun(context.Background(), ctx)
	if ctx.Response.StatusCode() != consts.StatusOK {
		t.Fatalf("status=%d body=%s", ctx.Response.StatusCode(), ctx.Response.Body())
	}

	ctx = &app.RequestContext{}
	ctx.Params = param.Params{{Key: "id", Value: "r1"}}
	h.fitness(context.Background(), ctx)
	var body fitnessResponse
	if err := json.Unmarshal(ctx.Response.Body(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.RunID != "r1" || len(body.History) != 3 || body.Stats.Mean != 2 || body.Stats.Max != 3 {
		t.Fatalf("unexpected fitness body %+v", body)
	}

	ctx = &app.RequestContext{}
	ctx.Params = param.Params{{Key: "id", Value: "missing"}}
	h.getRun(context.Background(), ctx)
	if ctx.Response.StatusCode() != consts.StatusNotFound || decodeError(t, ctx) != "not_found" {
		t.Fatalf("expected not_found, got %d %s", ctx.Response.StatusCode(), ctx.Response.Body())
	}
}
