package agent

import (
	"context"
	"fmt"
	"math/rand"

	"antcolony/internal/model"
	"antcolony/internal/nn"
	"antcolony/internal/sim"
)

// Cortex drives one ant from a compiled genome.
type Cortex struct {
	id  string
	net *nn.Network
}

func NewCortex(id string, genome model.Genome) (*Cortex, error) {
	if id == "" {
		return nil, fmt.Errorf("agent id is required")
	}
	net, err := nn.Compile(genome)
	if err != nil {
		return nil, err
	}
	return &Cortex{id: id, net: net}, nil
}

func (c *Cortex) ID() string {
	return c.id
}

func (c *Cortex) GenomeID() string {
	return c.net.GenomeID()
}

func (c *Cortex) RunStep(ctx context.Context, inputs []float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.net.Activate(inputs)
}

func (c *Cortex) Act(ctx context.Context, observation []float64) ([]float64, error) {
	return c.RunStep(ctx, observation)
}

// NewPolicyFactory compiles genome once and hands every ant its own Cortex
// over the shared network. The genome must match the observation and action
// widths of the run.
func NewPolicyFactory(genome model.Genome, inputs, outputs int) (sim.PolicyFactory, error) {
	net, err := nn.Compile(genome)
	if err != nil {
		return nil, err
	}
	if net.Inputs() != inputs || net.Outputs() != outputs {
		return nil, fmt.Errorf("%w: genome %s shape %dx%d, run needs %dx%d",
			nn.ErrInvalidNetwork, genome.ID, net.Inputs(), net.Outputs(), inputs, outputs)
	}
	return func(agentID string) (sim.Policy, error) {
		return &Cortex{id: agentID, net: net}, nil
	}, nil
}

// RandomGenome builds a single-layer tanh network with every sensor wired to
// every output.
func RandomGenome(id string, inputs, outputs int, rng *rand.Rand) model.Genome {
	genome := model.Genome{
		ID:          id,
		SensorIDs:   make([]string, inputs),
		ActuatorIDs: make([]string, outputs),
	}
	for i := range genome.SensorIDs {
		genome.SensorIDs[i] = fmt.Sprintf("obs_%d", i)
	}
	for o := 0; o < outputs; o++ {
		neuronID := fmt.Sprintf("act_%d", o)
		genome.Neurons = append(genome.Neurons, model.Neuron{
			ID:         neuronID,
			Activation: "tanh",
			Bias:       rng.Float64()*2 - 1,
		})
		genome.ActuatorIDs[o] = neuronID
		for i, sensorID := range genome.SensorIDs {
			genome.Synapses = append(genome.Synapses, model.Synapse{
				ID:      fmt.Sprintf("s_%d_%d", i, o),
				From:    sensorID,
				To:      neuronID,
				Weight:  rng.Float64()*2 - 1,
				Enabled: true,
			})
		}
	}
	return genome
}
