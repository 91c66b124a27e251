package antcolony

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"antcolony/internal/agent"
	"antcolony/internal/model"
	"antcolony/internal/nn"
	"antcolony/internal/scape"
	"antcolony/internal/sim"
	"antcolony/internal/stats"
	"antcolony/internal/storage"
	"antcolony/internal/world"
)

const (
	defaultRunsDir    = "runs"
	defaultExportsDir = "exports"
	defaultDBPath     = "antcolony.db"
	defaultPolicy     = agent.PolicyForager

	// GenomePolicyPrefix selects a stored genome as the policy, as in
	// "genome:<id>".
	GenomePolicyPrefix = "genome:"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrUnknownPolicy = agent.ErrUnknownPolicy
)

type Options struct {
	StoreKind  string
	DBPath     string
	RunsDir    string
	ExportsDir string
	Logger     *log.Logger
	// NoArtifacts skips writing run directories.
	NoArtifacts bool
}

type Client struct {
	store  storage.Store
	logger *log.Logger

	runsDir     string
	exportsDir  string
	noArtifacts bool

	initMu      sync.Mutex
	initialized bool
}

type RunRequest struct {
	// Config defaults to sim.DefaultConfig when nil.
	Config    *sim.Config
	Policy    string
	Observers []sim.TickObserver
	// OnLayout sees the generated world before the first tick.
	OnLayout func(*world.Layout)
}

type RunReport struct {
	Summary      model.RunSummary
	ArtifactsDir string
	Ticks        []sim.TickStats
}

type EvaluateRequest struct {
	GenomeID string
	Config   *sim.Config
}

type EvaluateResult struct {
	GenomeID string      `json:"genome_id"`
	Fitness  float64     `json:"fitness"`
	Trace    scape.Trace `json:"trace"`
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" && storeKind == "sqlite" {
		dbPath = defaultDBPath
	}
	runsDir := opts.RunsDir
	if runsDir == "" {
		runsDir = defaultRunsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	return &Client{
		store:       store,
		logger:      logger,
		runsDir:     runsDir,
		exportsDir:  exportsDir,
		noArtifacts: opts.NoArtifacts,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	c.initialized = true
	return nil
}

// Run executes one colony run to completion, persists its summary and
// fitness history and, unless disabled, writes its artifact directory.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunReport, error) {
	if err := c.Init(ctx); err != nil {
		return RunReport{}, err
	}
	cfg := sim.DefaultConfig()
	if req.Config != nil {
		cfg = *req.Config
	}
	if req.Policy == "" {
		req.Policy = defaultPolicy
	}
	if err := cfg.Validate(); err != nil {
		return RunReport{}, err
	}
	factory, err := c.policyFactory(ctx, req.Policy, cfg)
	if err != nil {
		return RunReport{}, err
	}

	opts := []sim.Option{sim.WithLogger(c.logger)}
	for _, observer := range req.Observers {
		opts = append(opts, sim.WithObserver(observer))
	}
	colony, err := sim.New(cfg, factory, opts...)
	if err != nil {
		return RunReport{}, err
	}

	if req.OnLayout != nil {
		req.OnLayout(colony.Layout())
	}

	runID := uuid.NewString()
	started := time.Now()
	c.logger.Printf("run start id=%s policy=%s agents=%d steps=%d seed=%d", runID, req.Policy, cfg.Agents, cfg.Steps, cfg.Seed)
	result, err := colony.Run(ctx, cfg.Steps)
	if err != nil {
		return RunReport{}, err
	}
	elapsed := time.Since(started)

	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return RunReport{}, fmt.Errorf("encode config: %w", err)
	}
	summary := model.RunSummary{
		VersionedRecord: storage.CurrentVersion(),
		ID:              runID,
		CreatedAt:       started.UTC(),
		Policy:          req.Policy,
		Seed:            cfg.Seed,
		Agents:          cfg.Agents,
		Ticks:           result.Ticks,
		Stop:            string(result.Stop),
		FoodCollected:   result.Totals.FoodCollected,
		FoodReturned:    result.Totals.FoodReturned,
		Deaths:          result.Totals.Deaths,
		PolicyFailures:  result.Totals.PolicyFailures,
		Duration:        elapsed,
		Config:          configJSON,
	}
	for _, a := range colony.Agents() {
		summary.ColonyFitness += a.Fitness
		summary.Results = append(summary.Results, model.AgentResult{
			ID:           a.ID,
			Fitness:      a.Fitness,
			FoodPickedUp: a.FoodPickedUp,
			FoodReturned: a.FoodReturned,
			Alive:        a.Alive,
			RetiredAt:    a.RetiredAt,
			X:            a.Position.X,
			Y:            a.Position.Y,
		})
	}
	if n := len(summary.Results); n > 0 {
		summary.MeanFitness = summary.ColonyFitness / float64(n)
	}

	history := make([]float64, len(result.Stats))
	for i, tick := range result.Stats {
		history[i] = tick.ColonyFitness
	}
	if err := c.store.SaveRun(ctx, summary); err != nil {
		return RunReport{}, err
	}
	if err := c.store.SaveFitnessHistory(ctx, runID, history); err != nil {
		return RunReport{}, err
	}

	report := RunReport{Summary: summary, Ticks: result.Stats}
	if !c.noArtifacts {
		runDir, err := stats.WriteRunArtifacts(c.runsDir, stats.RunArtifacts{
			Config:  cfg,
			Summary: summary,
			Ticks:   result.Stats,
			Agents:  summary.Results,
		})
		if err != nil {
			return RunReport{}, err
		}
		report.ArtifactsDir = filepath.Clean(runDir)
	}
	c.logger.Printf("run done id=%s ticks=%d stop=%s food=%d returned=%d deaths=%d", runID, result.Ticks, result.Stop, result.Totals.FoodCollected, result.Totals.FoodReturned, result.Totals.Deaths)
	return report, nil
}

// Runs lists stored runs newest first. limit <= 0 lists every run. When the
// store holds nothing, as a fresh memory store does, the artifact
// directories are listed instead.
func (c *Client) Runs(ctx context.Context, limit int) ([]model.RunSummary, error) {
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	runs, err := c.store.ListRuns(ctx, limit)
	if err != nil || len(runs) > 0 {
		return runs, err
	}
	return stats.ListRunSummaries(c.runsDir, limit)
}

func (c *Client) LookupRun(ctx context.Context, runID string) (model.RunSummary, error) {
	if err := c.Init(ctx); err != nil {
		return model.RunSummary{}, err
	}
	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return model.RunSummary{}, err
	}
	if ok {
		return run, nil
	}
	run, err = stats.ReadRunSummary(c.runsDir, runID)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.RunSummary{}, fmt.Errorf("%w: run %s", ErrNotFound, runID)
		}
		return model.RunSummary{}, err
	}
	return run, nil
}

func (c *Client) FitnessHistory(ctx context.Context, runID string) ([]float64, error) {
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	history, ok, err := c.store.GetFitnessHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if ok {
		return history, nil
	}
	ticks, err := stats.ReadTicks(c.runsDir, runID)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: fitness history for run %s", ErrNotFound, runID)
		}
		return nil, err
	}
	history = make([]float64, len(ticks))
	for i, tick := range ticks {
		history[i] = tick.ColonyFitness
	}
	return history, nil
}

// ImportGenome validates genome by compiling it and stores it for use as a
// "genome:<id>" policy.
func (c *Client) ImportGenome(ctx context.Context, genome model.Genome) error {
	if genome.ID == "" {
		return errors.New("genome id is required")
	}
	if _, err := nn.Compile(genome); err != nil {
		return err
	}
	if err := c.Init(ctx); err != nil {
		return err
	}
	genome.VersionedRecord = storage.CurrentVersion()
	return c.store.SaveGenome(ctx, genome)
}

// SeedGenome stores a random genome shaped for cfg.
func (c *Client) SeedGenome(ctx context.Context, id string, cfg sim.Config, seed int64) (model.Genome, error) {
	if id == "" {
		id = uuid.NewString()
	}
	inputs := sim.NewObservationBuilder(cfg.Perception, cfg.PheromoneTypes).Size()
	outputs := cfg.Action.Width(cfg.PheromoneTypes)
	genome := agent.RandomGenome(id, inputs, outputs, rand.New(rand.NewSource(seed)))
	if err := c.ImportGenome(ctx, genome); err != nil {
		return model.Genome{}, err
	}
	genome.VersionedRecord = storage.CurrentVersion()
	return genome, nil
}

// Evaluate scores a stored genome on a fresh colony without persisting the run.
func (c *Client) Evaluate(ctx context.Context, req EvaluateRequest) (EvaluateResult, error) {
	if req.GenomeID == "" {
		return EvaluateResult{}, errors.New("genome id is required")
	}
	cfg := sim.DefaultConfig()
	if req.Config != nil {
		cfg = *req.Config
	}
	genome, err := c.genome(ctx, req.GenomeID)
	if err != nil {
		return EvaluateResult{}, err
	}
	cortex, err := agent.NewCortex(genome.ID, genome)
	if err != nil {
		return EvaluateResult{}, err
	}
	fitness, trace, err := scape.ColonyScape{Config: cfg, Logger: c.logger}.Evaluate(ctx, cortex)
	if err != nil {
		return EvaluateResult{}, err
	}
	return EvaluateResult{GenomeID: genome.ID, Fitness: float64(fitness), Trace: trace}, nil
}

func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either run id or latest")
	}
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	runID := req.RunID
	if req.Latest {
		runs, err := c.Runs(ctx, 1)
		if err != nil {
			return ExportSummary{}, err
		}
		if len(runs) == 0 {
			return ExportSummary{}, errors.New("no runs available to export")
		}
		runID = runs[0].ID
	}

	exportedDir, err := stats.ExportRunArtifacts(c.runsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

// Policies lists the built-in policy names.
func Policies() []string {
	return agent.Heuristics()
}

func (c *Client) policyFactory(ctx context.Context, name string, cfg sim.Config) (sim.PolicyFactory, error) {
	genomeID, isGenome := strings.CutPrefix(name, GenomePolicyPrefix)
	if !isGenome {
		return agent.Heuristic(name, cfg)
	}
	genome, err := c.genome(ctx, genomeID)
	if err != nil {
		return nil, err
	}
	inputs := sim.NewObservationBuilder(cfg.Perception, cfg.PheromoneTypes).Size()
	return agent.NewPolicyFactory(genome, inputs, cfg.Action.Width(cfg.PheromoneTypes))
}

func (c *Client) genome(ctx context.Context, id string) (model.Genome, error) {
	if err := c.Init(ctx); err != nil {
		return model.Genome{}, err
	}
	genome, ok, err := c.store.GetGenome(ctx, id)
	if err != nil {
		return model.Genome{}, err
	}
	if !ok {
		return model.Genome{}, fmt.Errorf("%w: genome %s", ErrNotFound, id)
	}
	return genome, nil
}
