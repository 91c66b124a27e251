package agent

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sort"

	"antcolony/internal/geom"
	"antcolony/internal/sim"
)

var ErrUnknownPolicy = errors.New("unknown policy")

const (
	PolicyStill   = "still"
	PolicyRandom  = "random"
	PolicyForager = "forager"
)

var heuristics = map[string]func(sim.Config) sim.PolicyFactory{
	PolicyStill:   stillFactory,
	PolicyRandom:  randomFactory,
	PolicyForager: foragerFactory,
}

func Heuristics() []string {
	names := make([]string, 0, len(heuristics))
	for name := range heuristics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Heuristic returns a hand-written policy factory for cfg. Random draws are
// seeded per ant from the run seed, so runs stay reproducible.
func Heuristic(name string, cfg sim.Config) (sim.PolicyFactory, error) {
	build, ok := heuristics[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
	return build(cfg), nil
}

func stillFactory(cfg sim.Config) sim.PolicyFactory {
	width := cfg.Action.Width(cfg.PheromoneTypes)
	return sim.SharedPolicy(sim.PolicyFunc(func(context.Context, []float64) ([]float64, error) {
		return make([]float64, width), nil
	}))
}

func randomFactory(cfg sim.Config) sim.PolicyFactory {
	return func(agentID string) (sim.Policy, error) {
		rng := agentRand(cfg.Seed, agentID)
		return sim.PolicyFunc(func(context.Context, []float64) ([]float64, error) {
			return cfg.Action.Encode(wander(cfg, rng, rng.Intn(cfg.PheromoneTypes)), cfg.PheromoneTypes), nil
		}), nil
	}
}

// foragerFactory heads for visible food, carries it back to the colony and
// marks the way: the food marker while carrying, the trail marker otherwise.
func foragerFactory(cfg sim.Config) sim.PolicyFactory {
	builder := sim.NewObservationBuilder(cfg.Perception, cfg.PheromoneTypes)
	foodAt, seesFood := builder.FoodDirectionOffset()
	ox, oy := cfg.World.Origin()
	origin := geom.Vec2{X: float64(ox), Y: float64(oy)}
	step := cfg.Action.MaxStep
	amount := cfg.Action.DepositScale

	return func(agentID string) (sim.Policy, error) {
		rng := agentRand(cfg.Seed, agentID)
		return sim.PolicyFunc(func(_ context.Context, obs []float64) ([]float64, error) {
			if len(obs) < 3 {
				return nil, fmt.Errorf("observation too short: %d", len(obs))
			}
			pos := geom.Vec2{X: obs[0], Y: obs[1]}

			var action sim.Action
			switch {
			case obs[2] > 0:
				toHome := origin.Sub(pos)
				if toHome.Len() > step {
					toHome = toHome.Unit().Scale(step)
				}
				action = sim.Action{
					Move:     toHome,
					Deposits: []sim.Deposit{{Type: cfg.Fitness.FoodMarkerType, Amount: amount}},
				}
			case seesFood && (obs[foodAt] != 0 || obs[foodAt+1] != 0):
				dir := geom.Vec2{X: obs[foodAt], Y: obs[foodAt+1]}
				action = sim.Action{
					Move:     dir.Scale(step),
					Deposits: []sim.Deposit{{Type: cfg.Fitness.TrailMarkerType, Amount: amount}},
				}
			default:
				action = wander(cfg, rng, cfg.Fitness.TrailMarkerType)
			}
			return cfg.Action.Encode(action, cfg.PheromoneTypes), nil
		}), nil
	}
}

func wander(cfg sim.Config, rng *rand.Rand, kind int) sim.Action {
	step := cfg.Action.MaxStep
	return sim.Action{
		Move: geom.Vec2{X: (rng.Float64()*2 - 1) * step, Y: (rng.Float64()*2 - 1) * step},
		Deposits: []sim.Deposit{{
			Type:   kind,
			Amount: rng.Float64() * cfg.Action.DepositScale,
		}},
	}
}

func agentRand(seed int64, agentID string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(agentID))
	return rand.New(rand.NewSource(seed ^ int64(h.Sum64())))
}
