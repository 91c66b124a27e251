package nn

import (
	"errors"
	"fmt"

	"antcolony/internal/model"
)

var ErrInvalidNetwork = errors.New("invalid network")

// Network is a genome compiled for repeated evaluation. Sensors are fed by
// position in the input slice; neurons are evaluated in genome order, so
// every enabled synapse must point forward.
type Network struct {
	genomeID  string
	sensors   int
	neurons   []compiledNeuron
	outputs   []int
	slotCount int
}

type compiledNeuron struct {
	slot       int
	bias       float64
	activation ActivationFunc
	incoming   []link
}

type link struct {
	from   int
	weight float64
}

// Compile resolves a genome into a Network. Sensor ids take the first slots
// in SensorIDs order; ActuatorIDs must name neurons.
func Compile(genome model.Genome) (*Network, error) {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: genome %s: %s", ErrInvalidNetwork, genome.ID, fmt.Sprintf(format, args...))
	}

	slots := make(map[string]int, len(genome.SensorIDs)+len(genome.Neurons))
	for _, id := range genome.SensorIDs {
		if _, dup := slots[id]; dup {
			return nil, invalid("duplicate sensor %s", id)
		}
		slots[id] = len(slots)
	}
	order := make(map[string]int, len(genome.Neurons))
	for i, neuron := range genome.Neurons {
		if _, dup := slots[neuron.ID]; dup {
			return nil, invalid("duplicate node %s", neuron.ID)
		}
		slots[neuron.ID] = len(slots)
		order[neuron.ID] = i
	}

	net := &Network{
		genomeID:  genome.ID,
		sensors:   len(genome.SensorIDs),
		neurons:   make([]compiledNeuron, len(genome.Neurons)),
		slotCount: len(slots),
	}
	for i, neuron := range genome.Neurons {
		fn, err := GetActivation(neuron.Activation)
		if err != nil {
			return nil, invalid("neuron %s: %v", neuron.ID, err)
		}
		net.neurons[i] = compiledNeuron{slot: slots[neuron.ID], bias: neuron.Bias, activation: fn}
	}

	for _, synapse := range genome.Synapses {
		if !synapse.Enabled {
			continue
		}
		from, ok := slots[synapse.From]
		if !ok {
			return nil, invalid("synapse %s from unknown node %s", synapse.ID, synapse.From)
		}
		to, ok := order[synapse.To]
		if !ok {
			return nil, invalid("synapse %s into non-neuron %s", synapse.ID, synapse.To)
		}
		if src, isNeuron := order[synapse.From]; isNeuron && src >= to {
			return nil, invalid("synapse %s is not feed-forward", synapse.ID)
		}
		net.neurons[to].incoming = append(net.neurons[to].incoming, link{from: from, weight: synapse.Weight})
	}

	for _, id := range genome.ActuatorIDs {
		i, ok := order[id]
		if !ok {
			return nil, invalid("actuator %s is not a neuron", id)
		}
		net.outputs = append(net.outputs, net.neurons[i].slot)
	}
	return net, nil
}

func (n *Network) GenomeID() string { return n.genomeID }
func (n *Network) Inputs() int      { return n.sensors }
func (n *Network) Outputs() int     { return len(n.outputs) }

// Activate runs one forward pass. It allocates its own scratch space, so a
// Network may be shared between goroutines.
func (n *Network) Activate(inputs []float64) ([]float64, error) {
	if len(inputs) != n.sensors {
		return nil, fmt.Errorf("%w: genome %s expects %d inputs, got %d", ErrInvalidNetwork, n.genomeID, n.sensors, len(inputs))
	}
	values := make([]float64, n.slotCount)
	copy(values, inputs)
	for _, neuron := range n.neurons {
		total := neuron.bias
		for _, in := range neuron.incoming {
			total += values[in.from] * in.weight
		}
		values[neuron.slot] = neuron.activation(total)
	}
	out := make([]float64, len(n.outputs))
	for i, slot := range n.outputs {
		out[i] = values[slot]
	}
	return out, nil
}
