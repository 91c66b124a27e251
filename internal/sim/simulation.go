package sim

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"antcolony/internal/geom"
	"antcolony/internal/pheromone"
	"antcolony/internal/world"
)

type StopReason string

const (
	StopSteps       StopReason = "steps"
	StopEmptyRoster StopReason = "empty_roster"
)

type TickStats struct {
	Tick           int     `json:"tick"`
	Active         int     `json:"active"`
	Moved          int     `json:"moved"`
	Clamped        int     `json:"clamped"`
	Bounced        int     `json:"bounced"`
	Died           int     `json:"died"`
	PickedUp       int     `json:"picked_up"`
	Returned       int     `json:"returned"`
	PolicyFailures int     `json:"policy_failures"`
	Reward         float64 `json:"reward"`
	ColonyFitness  float64 `json:"colony_fitness"`
}

type Totals struct {
	FoodCollected  int `json:"food_collected"`
	FoodReturned   int `json:"food_returned"`
	Deaths         int `json:"deaths"`
	PolicyFailures int `json:"policy_failures"`
}

type RunResult struct {
	Ticks  int         `json:"ticks"`
	Stop   StopReason  `json:"stop"`
	Totals Totals      `json:"totals"`
	Stats  []TickStats `json:"stats"`
}

// Frame is the post-tick state handed to observers.
type Frame struct {
	Tick            int          `json:"tick"`
	Stats           TickStats    `json:"stats"`
	Totals          Totals       `json:"totals"`
	Agents          []AgentFrame `json:"agents"`
	RemainingFood   int          `json:"remaining_food"`
	PheromoneTotals []float64    `json:"pheromone_totals"`
}

type AgentFrame struct {
	ID       string    `json:"id"`
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Heading  geom.Vec2 `json:"heading"`
	Carrying bool      `json:"carrying"`
	Fitness  float64   `json:"fitness"`
}

type TickObserver func(Frame)

type Option func(*Simulation)

func WithLogger(logger *log.Logger) Option {
	return func(s *Simulation) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithObserver(observer TickObserver) Option {
	return func(s *Simulation) {
		s.observers = append(s.observers, observer)
	}
}

// Simulation owns the whole world state of one colony run.
type Simulation struct {
	cfg       Config
	layout    *world.Layout
	field     *pheromone.Field
	roster    Roster
	rng       *rand.Rand
	logger    *log.Logger
	observers []TickObserver

	builder   ObservationBuilder
	resolver  *CollisionResolver
	evaluator FitnessEvaluator

	tick   int
	totals Totals
}

func New(cfg Config, factory PolicyFactory, opts ...Option) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if factory == nil {
		return nil, fmt.Errorf("%w: policy factory is required", ErrInvalidConfiguration)
	}

	s := &Simulation{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(s)
	}

	layout, err := world.Generate(cfg.World, s.rng)
	if err != nil {
		return nil, err
	}
	field, err := pheromone.New(cfg.World.Width, cfg.World.Height, cfg.PheromoneTypes, cfg.Decay)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	s.layout = layout
	s.field = field
	s.builder = NewObservationBuilder(cfg.Perception, cfg.PheromoneTypes)
	s.resolver = NewCollisionResolver(layout, field, cfg.Body, s.rng)
	s.evaluator = NewFitnessEvaluator(cfg.Fitness)

	ox, oy := layout.Origin.Cell()
	for i := 0; i < cfg.Agents; i++ {
		id := fmt.Sprintf("ant-%03d", i)
		policy, err := factory(id)
		if err != nil {
			return nil, fmt.Errorf("bind policy for %s: %w", id, err)
		}
		if policy == nil {
			return nil, fmt.Errorf("%w: nil policy for %s", ErrInvalidConfiguration, id)
		}
		s.roster.add(newAgent(id, layout.Origin), policy)
		layout.Grid.Occupy(ox, oy)
	}
	return s, nil
}

func (s *Simulation) Config() Config          { return s.cfg }
func (s *Simulation) Layout() *world.Layout   { return s.layout }
func (s *Simulation) Field() *pheromone.Field { return s.field }
func (s *Simulation) Tick() int               { return s.tick }
func (s *Simulation) Totals() Totals          { return s.totals }
func (s *Simulation) Active() int             { return s.roster.Len() }
func (s *Simulation) Agents() []Agent         { return s.roster.All() }
func (s *Simulation) ObservationSize() int    { return s.builder.Size() }
func (s *Simulation) ActionSize() int         { return s.cfg.Action.Width(s.cfg.PheromoneTypes) }

// Run advances up to steps ticks. An empty roster ends the run early and is
// not an error. Context cancellation is only observed between ticks.
func (s *Simulation) Run(ctx context.Context, steps int) (RunResult, error) {
	result := RunResult{Stop: StopSteps}
	for i := 0; i < steps; i++ {
		if s.roster.Len() == 0 {
			result.Stop = StopEmptyRoster
			break
		}
		stats, err := s.Step(ctx)
		if err != nil {
			result.Totals = s.totals
			return result, err
		}
		result.Ticks++
		result.Stats = append(result.Stats, stats)
	}
	if result.Stop == StopSteps && s.roster.Len() == 0 {
		result.Stop = StopEmptyRoster
	}
	result.Totals = s.totals
	return result, nil
}

type decision struct {
	action Action
	err    error
}

// Step runs one tick: snapshot, observe and act for every agent, apply the
// actions in roster order, then evaporate the field once.
func (s *Simulation) Step(ctx context.Context) (TickStats, error) {
	if err := ctx.Err(); err != nil {
		return TickStats{}, err
	}

	snap := s.snapshot()
	decisions, err := s.decide(ctx, snap)
	if err != nil {
		return TickStats{}, err
	}

	stats := TickStats{Tick: s.tick, Active: snap.Len()}
	for i, h := range snap.Handles {
		d := decisions[i]
		if d.err != nil {
			stats.PolicyFailures++
			s.totals.PolicyFailures++
			s.logger.Printf("policy failure agent=%s tick=%d: %v", snap.IDs[i], s.tick, d.err)
		}
		s.apply(h, d.action, snap, &stats)
	}

	s.field.Evaporate()
	s.roster.Compact()

	for _, a := range s.roster.All() {
		stats.ColonyFitness += a.Fitness
	}
	s.tick++
	s.notify(stats)
	return stats, nil
}

func (s *Simulation) snapshot() *Snapshot {
	handles := s.roster.Active()
	snap := &Snapshot{
		Tick:       s.tick,
		Handles:    handles,
		IDs:        make([]string, len(handles)),
		Positions:  make([]geom.Vec2, len(handles)),
		Carrying:   make([]bool, len(handles)),
		Static:     s.layout.Grid.StaticLayer(),
		Origin:     s.layout.Origin,
		ColonyFood: s.totals.FoodCollected,
	}
	for i, h := range handles {
		a := s.roster.Agent(h)
		snap.IDs[i] = a.ID
		snap.Positions[i] = a.Position
		snap.Carrying[i] = a.CarryingFood
	}
	return snap
}

// decide builds every observation from the snapshot and collects the
// actions. Nothing shared is mutated here, so agents can run in parallel.
func (s *Simulation) decide(ctx context.Context, snap *Snapshot) ([]decision, error) {
	out := make([]decision, snap.Len())
	one := func(ctx context.Context, i int) {
		obs := s.builder.Build(snap, i, s.field)
		raw, err := s.roster.Policy(snap.Handles[i]).Act(ctx, obs)
		if err != nil {
			out[i] = decision{err: fmt.Errorf("%w: %v", ErrPolicyInvocation, err)}
			return
		}
		action, err := s.cfg.Action.Decode(raw, s.cfg.PheromoneTypes)
		if err != nil {
			out[i] = decision{err: err}
			return
		}
		out[i] = decision{action: action}
	}

	if s.cfg.Workers <= 1 || snap.Len() <= 1 {
		for i := range out {
			one(ctx, i)
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i := range out {
		i := i
		g.Go(func() error {
			one(gctx, i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Simulation) apply(h Handle, action Action, snap *Snapshot, stats *TickStats) {
	a := s.roster.Agent(h)
	a.PreviousPosition = a.Position

	res := s.resolver.Apply(a, action)
	switch res.Outcome {
	case OutcomeMoved:
		stats.Moved++
	case OutcomeClamped:
		stats.Clamped++
	case OutcomeBounced:
		stats.Bounced++
	case OutcomePickedUp:
		stats.Moved++
		stats.PickedUp++
		s.totals.FoodCollected++
	case OutcomeDied:
		stats.Died++
		s.totals.Deaths++
		s.roster.Retire(h, s.tick)
	}

	if a.Alive && !a.CarryingFood {
		a.IdleTicks++
	} else {
		a.IdleTicks = 0
	}

	score := s.evaluator.Evaluate(Transition{
		Previous:   a.PreviousPosition,
		Position:   a.Position,
		Carrying:   a.CarryingFood,
		PickedUp:   res.Outcome == OutcomePickedUp,
		Died:       res.Outcome == OutcomeDied,
		Deposit:    res.Deposited,
		IdleTicks:  a.IdleTicks,
		ColonyFood: snap.ColonyFood,
		Origin:     snap.Origin,
	})
	a.Fitness += score.Total
	stats.Reward += score.Total

	if score.Returned {
		a.CarryingFood = false
		a.FoodReturned++
		s.totals.FoodReturned++
		stats.Returned++
		x, y := a.Position.Cell()
		s.layout.Grid.Release(x, y)
		s.roster.Retire(h, s.tick)
	}
}

func (s *Simulation) notify(stats TickStats) {
	if len(s.observers) == 0 {
		return
	}
	frame := Frame{
		Tick:            stats.Tick,
		Stats:           stats,
		Totals:          s.totals,
		RemainingFood:   s.layout.RemainingFood(),
		PheromoneTotals: make([]float64, s.field.Types()),
	}
	for k := range frame.PheromoneTotals {
		frame.PheromoneTotals[k] = s.field.Total(k)
	}
	for _, h := range s.roster.Active() {
		a := s.roster.Agent(h)
		frame.Agents = append(frame.Agents, AgentFrame{
			ID:       a.ID,
			X:        a.Position.X,
			Y:        a.Position.Y,
			Heading:  a.Heading,
			Carrying: a.CarryingFood,
			Fitness:  a.Fitness,
		})
	}
	for _, observer := range s.observers {
		observer(frame)
	}
}
