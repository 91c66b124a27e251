package scape

import (
	"context"
	"fmt"
	"log"

	"antcolony/internal/sim"
)

// ColonyScape scores a step agent by letting it drive every ant of a fresh
// colony run. The fitness is the mean ant fitness at the end of the run.
type ColonyScape struct {
	Config sim.Config
	Logger *log.Logger
}

func (ColonyScape) Name() string {
	return "colony"
}

func (s ColonyScape) Evaluate(ctx context.Context, agent Agent) (Fitness, Trace, error) {
	runner, ok := agent.(StepAgent)
	if !ok {
		return 0, nil, fmt.Errorf("agent %s does not implement step runner", agent.ID())
	}

	colony, err := sim.New(s.Config, sim.SharedPolicy(sim.PolicyFunc(runner.RunStep)), sim.WithLogger(s.Logger))
	if err != nil {
		return 0, nil, err
	}
	result, err := colony.Run(ctx, s.Config.Steps)
	if err != nil {
		return 0, nil, err
	}

	ants := colony.Agents()
	total := 0.0
	for _, a := range ants {
		total += a.Fitness
	}
	mean := 0.0
	if len(ants) > 0 {
		mean = total / float64(len(ants))
	}
	return Fitness(mean), Trace{
		"ticks":           result.Ticks,
		"stop":            string(result.Stop),
		"food_collected":  result.Totals.FoodCollected,
		"food_returned":   result.Totals.FoodReturned,
		"deaths":          result.Totals.Deaths,
		"policy_failures": result.Totals.PolicyFailures,
		"colony_fitness":  total,
	}, nil
}
