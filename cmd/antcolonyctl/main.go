package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"antcolony/internal/agent"
	"antcolony/internal/httpapi"
	"antcolony/internal/model"
	"antcolony/internal/sim"
	"antcolony/internal/stats"
	"antcolony/internal/storage"
	"antcolony/internal/stream"
	"antcolony/internal/world"
	"antcolony/pkg/antcolony"
)

const (
	runsDir       = "runs"
	exportsDir    = "exports"
	defaultDBPath = "antcolony.db"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:])
	case "world":
		return runWorld(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "show":
		return runShow(ctx, args[1:])
	case "evaluate":
		return runEvaluate(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "genome-import":
		return runGenomeImport(ctx, args[1:])
	case "genome-seed":
		return runGenomeSeed(ctx, args[1:])
	case "policies":
		return runPolicies(ctx, args[1:])
	case "serve":
		return runServe(ctx, args[1:])
	case "watch":
		return runWatch(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

// storeFlags are shared by every command that touches persisted runs.
type storeFlags struct {
	kind    *string
	dbPath  *string
	dsn     *string
	outDir  *string
	logging *bool
}

func addStoreFlags(fs *flag.FlagSet) storeFlags {
	return storeFlags{
		kind:    fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite|postgres"),
		dbPath:  fs.String("db-path", defaultDBPath, "sqlite database path"),
		dsn:     fs.String("dsn", "", "postgres dsn (defaults to $"+storage.DSNEnv+")"),
		outDir:  fs.String("out", runsDir, "run artifacts directory"),
		logging: fs.Bool("v", false, "log simulation warnings to stderr"),
	}
}

func (f storeFlags) client(noArtifacts bool) (*antcolony.Client, error) {
	location := *f.dbPath
	if *f.kind == "postgres" {
		location = *f.dsn
	}
	opts := antcolony.Options{
		StoreKind:   *f.kind,
		DBPath:      location,
		RunsDir:     *f.outDir,
		ExportsDir:  exportsDir,
		NoArtifacts: noArtifacts,
	}
	if *f.logging {
		opts.Logger = log.New(os.Stderr, "antcolonyctl ", log.LstdFlags)
	}
	return antcolony.New(opts)
}

// simFlags registers the configuration flags and returns the values keyed by
// flag name for overrideFromFlags.
func simFlags(fs *flag.FlagSet) map[string]any {
	def := sim.DefaultConfig()
	return map[string]any{
		"policy":         fs.String("policy", agent.PolicyForager, "policy: "+strings.Join(antcolony.Policies(), "|")+"|genome:<id>"),
		"agents":         fs.Int("agents", def.Agents, "number of ants"),
		"steps":          fs.Int("steps", def.Steps, "ticks to simulate"),
		"seed":           fs.Int64("seed", def.Seed, "random seed"),
		"workers":        fs.Int("workers", def.Workers, "parallel policy workers"),
		"types":          fs.Int("types", def.PheromoneTypes, "pheromone types"),
		"decay":          fs.Float64("decay", def.Decay, "pheromone decay per tick, in (0,1)"),
		"width":          fs.Int("width", def.World.Width, "grid width"),
		"height":         fs.Int("height", def.World.Height, "grid height"),
		"walls":          fs.Int("walls", def.World.Walls, "wall regions"),
		"hazards":        fs.Int("hazards", def.World.Hazards, "hazard regions"),
		"food":           fs.Int("food", def.World.Food, "food regions"),
		"food-size":      fs.Int("food-size", def.World.FoodSize, "food region side"),
		"safe-radius":    fs.Int("safe-radius", def.World.SafeZoneRadius, "safe zone radius around the colony"),
		"radius":         fs.Int("radius", def.Perception.Radius, "pheromone sensing radius"),
		"neighbors":      fs.Int("neighbors", def.Perception.Neighbors, "nearest neighbors observed"),
		"food-radius":    fs.Int("food-radius", def.Perception.FoodSearchRadius, "food search radius"),
		"reduced":        fs.Bool("reduced", false, "position, carrying and pheromone inputs only"),
		"layout":         fs.String("layout", string(def.Action.Layout), "action layout: typed|flags"),
		"max-step":       fs.Float64("max-step", def.Action.MaxStep, "max move per axis per tick"),
		"deposit-scale":  fs.Float64("deposit-scale", def.Action.DepositScale, "typed layout deposit scale"),
		"body-radius":    fs.Float64("body-radius", def.Body.Radius, "ant body half extent"),
		"wall-jitter":    fs.Float64("wall-jitter", def.Body.WallJitter, "heading jitter after a wall bounce"),
		"return-to-base": fs.Bool("return-to-base", def.Fitness.ReturnToBase, "retire ants that bring food home"),
	}
}

func loadSettings(fs *flag.FlagSet, configPath string, values map[string]any) (runSettings, error) {
	setFlags := map[string]bool{}
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})
	settings, err := loadOrDefaultRunSettings(configPath)
	if err != nil {
		return runSettings{}, err
	}
	deref := make(map[string]any, len(values))
	for name, ptr := range values {
		switch p := ptr.(type) {
		case *string:
			deref[name] = *p
		case *int:
			deref[name] = *p
		case *int64:
			deref[name] = *p
		case *float64:
			deref[name] = *p
		case *bool:
			deref[name] = *p
		}
	}
	overrideFromFlags(&settings, setFlags, deref)
	if err := settings.Config.Validate(); err != nil {
		return runSettings{}, err
	}
	return settings, nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional run config JSON path")
	format := fs.String("format", "auto", "output format: auto|text|json")
	noArtifacts := fs.Bool("no-artifacts", false, "skip writing the run directory")
	showAgents := fs.Bool("show-agents", false, "print per-ant results")
	store := addStoreFlags(fs)
	values := simFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	asJSON, err := useJSON(*format)
	if err != nil {
		return err
	}
	settings, err := loadSettings(fs, *configPath, values)
	if err != nil {
		return err
	}

	client, err := store.client(*noArtifacts)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	report, err := client.Run(ctx, antcolony.RunRequest{Config: &settings.Config, Policy: settings.Policy})
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(report.Summary)
	}
	printSummary(report.Summary)
	if report.ArtifactsDir != "" {
		fmt.Printf("artifacts=%s\n", report.ArtifactsDir)
	}
	if *showAgents {
		printAgents(report.Summary.Results)
	}
	return nil
}

func runWorld(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("world", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional run config JSON path")
	format := fs.String("format", "auto", "output format: auto|text|json")
	values := simFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	asJSON, err := useJSON(*format)
	if err != nil {
		return err
	}
	settings, err := loadSettings(fs, *configPath, values)
	if err != nil {
		return err
	}

	factory, err := agent.Heuristic(agent.PolicyStill, settings.Config)
	if err != nil {
		return err
	}
	colony, err := sim.New(settings.Config, factory)
	if err != nil {
		return err
	}
	layout := colony.Layout()
	if asJSON {
		return writeJSON(stream.HelloFor(layout))
	}
	for _, row := range layout.Grid.Render() {
		fmt.Println(row)
	}
	fmt.Printf("width=%d height=%d walls=%d hazards=%d food=%d origin=(%g,%g) safe_zone=%+v\n",
		layout.Grid.Width(),
		layout.Grid.Height(),
		len(layout.Walls),
		len(layout.Hazards),
		len(layout.Food),
		layout.Origin.X,
		layout.Origin.Y,
		layout.SafeZone,
	)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	format := fs.String("format", "auto", "output format: auto|text|json")
	store := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}
	asJSON, err := useJSON(*format)
	if err != nil {
		return err
	}

	client, err := store.client(true)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, *limit)
	if err != nil {
		return err
	}
	if asJSON {
		for i := range runs {
			runs[i].Results = nil
		}
		return writeJSON(runs)
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("run_id=%s created=%s policy=%s seed=%d agents=%d ticks=%d stop=%s food=%s returned=%s deaths=%d colony_fitness=%s\n",
			r.ID,
			humanize.Time(r.CreatedAt),
			r.Policy,
			r.Seed,
			r.Agents,
			r.Ticks,
			r.Stop,
			humanize.Comma(int64(r.FoodCollected)),
			humanize.Comma(int64(r.FoodReturned)),
			r.Deaths,
			humanize.FtoaWithDigits(r.ColonyFitness, 4),
		)
	}
	return nil
}

func runShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show the most recent run")
	showAgents := fs.Bool("show-agents", false, "print per-ant results")
	format := fs.String("format", "auto", "output format: auto|text|json")
	store := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("show requires --run-id or --latest")
	}
	asJSON, err := useJSON(*format)
	if err != nil {
		return err
	}

	client, err := store.client(true)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	id := *runID
	if *latest {
		runs, err := client.Runs(ctx, 1)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			return errors.New("no runs available")
		}
		id = runs[0].ID
	}
	summary, err := client.LookupRun(ctx, id)
	if err != nil {
		return err
	}
	history, err := client.FitnessHistory(ctx, id)
	if err != nil && !errors.Is(err, antcolony.ErrNotFound) {
		return err
	}
	series := stats.Describe(history)

	if asJSON {
		return writeJSON(struct {
			Run     model.RunSummary  `json:"run"`
			History []float64         `json:"history"`
			Stats   stats.SeriesStats `json:"stats"`
		}{Run: summary, History: history, Stats: series})
	}
	printSummary(summary)
	fmt.Printf("colony_fitness_series ticks=%d mean=%.6f std=%.6f max=%.6f min=%.6f\n",
		series.Count, series.Mean, series.Std, series.Max, series.Min)
	if *showAgents {
		printAgents(summary.Results)
	}
	return nil
}

func runEvaluate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	genomeID := fs.String("genome", "", "stored genome id")
	genomeFile := fs.String("file", "", "genome JSON file to import before evaluating")
	configPath := fs.String("config", "", "optional run config JSON path")
	format := fs.String("format", "auto", "output format: auto|text|json")
	store := addStoreFlags(fs)
	values := simFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	asJSON, err := useJSON(*format)
	if err != nil {
		return err
	}
	settings, err := loadSettings(fs, *configPath, values)
	if err != nil {
		return err
	}

	client, err := store.client(true)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if *genomeFile != "" {
		genome, err := readGenome(*genomeFile)
		if err != nil {
			return err
		}
		if err := client.ImportGenome(ctx, genome); err != nil {
			return err
		}
		if *genomeID == "" {
			*genomeID = genome.ID
		}
	}
	if *genomeID == "" {
		return errors.New("evaluate requires --genome or --file")
	}

	result, err := client.Evaluate(ctx, antcolony.EvaluateRequest{GenomeID: *genomeID, Config: &settings.Config})
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(result)
	}
	keys := make([]string, 0, len(result.Trace))
	for k := range result.Trace {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, result.Trace[k]))
	}
	fmt.Printf("genome_id=%s fitness=%.6f %s\n", result.GenomeID, result.Fitness, strings.Join(parts, " "))
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run")
	outDir := fs.String("to", exportsDir, "export destination directory")
	store := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := store.client(true)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	exported, err := client.Export(ctx, antcolony.ExportRequest{RunID: *runID, Latest: *latest, OutDir: *outDir})
	if err != nil {
		return err
	}
	fmt.Printf("exported run_id=%s dir=%s\n", exported.RunID, exported.Directory)
	return nil
}

func runGenomeImport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("genome-import", flag.ContinueOnError)
	file := fs.String("file", "", "genome JSON file")
	store := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("genome-import requires --file")
	}

	genome, err := readGenome(*file)
	if err != nil {
		return err
	}
	client, err := store.client(true)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.ImportGenome(ctx, genome); err != nil {
		return err
	}
	fmt.Printf("imported genome_id=%s inputs=%d outputs=%d neurons=%d synapses=%d policy=%s%s\n",
		genome.ID,
		len(genome.SensorIDs),
		len(genome.ActuatorIDs),
		len(genome.Neurons),
		len(genome.Synapses),
		antcolony.GenomePolicyPrefix,
		genome.ID,
	)
	return nil
}

func runGenomeSeed(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("genome-seed", flag.ContinueOnError)
	id := fs.String("id", "", "genome id (random when empty)")
	file := fs.String("file", "", "also write the genome JSON here")
	configPath := fs.String("config", "", "optional run config JSON path")
	store := addStoreFlags(fs)
	values := simFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	settings, err := loadSettings(fs, *configPath, values)
	if err != nil {
		return err
	}

	client, err := store.client(true)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	genome, err := client.SeedGenome(ctx, *id, settings.Config, settings.Config.Seed)
	if err != nil {
		return err
	}
	if *file != "" {
		data, err := json.MarshalIndent(genome, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(*file, append(data, '\n'), 0o644); err != nil {
			return err
		}
	}
	fmt.Printf("seeded genome_id=%s inputs=%d outputs=%d synapses=%s\n",
		genome.ID, len(genome.SensorIDs), len(genome.ActuatorIDs), humanize.Comma(int64(len(genome.Synapses))))
	return nil
}

func runPolicies(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("policies", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	for _, name := range antcolony.Policies() {
		fmt.Println(name)
	}
	fmt.Printf("%s<id>\n", antcolony.GenomePolicyPrefix)
	return nil
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", ":8080", "listen address")
	configPath := fs.String("config", "", "base run config JSON path")
	store := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	settings, err := loadOrDefaultRunSettings(*configPath)
	if err != nil {
		return err
	}
	if err := settings.Config.Validate(); err != nil {
		return err
	}

	client, err := store.client(false)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	h := server.Default(server.WithHostPorts(*addr))
	httpapi.Handler{Service: client, Base: settings.Config}.RegisterRoutes(h)
	log.Printf("antcolony api listening on %s (store=%s)", *addr, *store.kind)
	h.Spin()
	return nil
}

func runWatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	addr := fs.String("addr", ":8081", "websocket listen address")
	delay := fs.Duration("delay", 100*time.Millisecond, "pause after each tick")
	waitClients := fs.Int("wait-clients", 1, "clients to wait for before the first tick")
	configPath := fs.String("config", "", "optional run config JSON path")
	store := addStoreFlags(fs)
	values := simFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	settings, err := loadSettings(fs, *configPath, values)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	logger := log.New(os.Stderr, "antcolonyctl ", log.LstdFlags)
	hub := stream.NewHub(logger)
	defer hub.Close()

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	srv := &http.Server{Handler: mux}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("watch serve: %v", err)
		}
	}()
	defer func() {
		_ = srv.Close()
	}()
	fmt.Printf("watch ws=ws://%s/ws\n", ln.Addr())

	client, err := store.client(false)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	report, err := client.Run(ctx, antcolony.RunRequest{
		Config: &settings.Config,
		Policy: settings.Policy,
		OnLayout: func(layout *world.Layout) {
			hub.SetHello(stream.HelloFor(layout))
			for hub.Len() < *waitClients && ctx.Err() == nil {
				time.Sleep(50 * time.Millisecond)
			}
		},
		Observers: []sim.TickObserver{
			hub.Observer(),
			func(sim.Frame) {
				if *delay > 0 {
					time.Sleep(*delay)
				}
			},
		},
	})
	if err != nil {
		return err
	}
	hub.Broadcast(map[string]any{"type": "done", "summary": report.Summary})
	printSummary(report.Summary)
	return nil
}

func printSummary(s model.RunSummary) {
	fmt.Printf("run_id=%s policy=%s seed=%d agents=%d ticks=%d stop=%s food_collected=%s food_returned=%s deaths=%d policy_failures=%d colony_fitness=%s mean_fitness=%.6f duration=%s\n",
		s.ID,
		s.Policy,
		s.Seed,
		s.Agents,
		s.Ticks,
		s.Stop,
		humanize.Comma(int64(s.FoodCollected)),
		humanize.Comma(int64(s.FoodReturned)),
		s.Deaths,
		s.PolicyFailures,
		humanize.FtoaWithDigits(s.ColonyFitness, 4),
		s.MeanFitness,
		s.Duration.Round(time.Microsecond),
	)
}

func printAgents(results []model.AgentResult) {
	for _, r := range results {
		retired := "active"
		if r.RetiredAt >= 0 {
			retired = fmt.Sprintf("tick %d", r.RetiredAt)
		}
		fmt.Printf("agent=%s fitness=%.6f picked_up=%d returned=%d alive=%t retired=%s pos=(%.2f,%.2f)\n",
			r.ID, r.Fitness, r.FoodPickedUp, r.FoodReturned, r.Alive, retired, r.X, r.Y)
	}
}

func readGenome(path string) (model.Genome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Genome{}, err
	}
	var genome model.Genome
	if err := json.Unmarshal(data, &genome); err != nil {
		return model.Genome{}, fmt.Errorf("decode genome %s: %w", path, err)
	}
	return genome, nil
}

// useJSON resolves -format. auto picks text for a terminal and JSON when
// stdout is piped.
func useJSON(format string) (bool, error) {
	switch format {
	case "json":
		return true, nil
	case "text":
		return false, nil
	case "", "auto":
		fd := os.Stdout.Fd()
		return !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd), nil
	default:
		return false, fmt.Errorf("unsupported format: %s", format)
	}
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: antcolonyctl <run|world|runs|show|evaluate|export|genome-import|genome-seed|policies|serve|watch> [flags]", msg)
}
