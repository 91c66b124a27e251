package nn

import (
	"errors"
	"math"
	"testing"

	"antcolony/internal/model"
)

func TestActivateSimpleFeedForward(t *testing.T) {
	genome := model.Genome{
		ID:        "g",
		SensorIDs: []string{"i1", "i2"},
		Neurons: []model.Neuron{
			{ID: "h", Activation: "relu"},
			{ID: "o", Activation: "identity", Bias: 0.5},
		},
		Synapses: []model.Synapse{
			{ID: "s1", From: "i1", To: "h", Weight: 2, Enabled: true},
			{ID: "s2", From: "i2", To: "o", Weight: -1, Enabled: true},
			{ID: "s3", From: "h", To: "o", Weight: 1, Enabled: true},
			{ID: "s4", From: "i1", To: "o", Weight: 100, Enabled: false},
		},
		ActuatorIDs: []string{"o", "h"},
	}

	net, err := Compile(genome)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if net.Inputs() != 2 || net.Outputs() != 2 {
		t.Fatalf("unexpected shape in=%d out=%d", net.Inputs(), net.Outputs())
	}

	out, err := net.Activate([]float64{1.0, 0.25})
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	// o = 0.5 - 0.25 + relu(2)
	if math.Abs(out[0]-2.25) > 1e-9 || out[1] != 2 {
		t.Fatalf("unexpected outputs %v", out)
	}

	if _, err := net.Activate([]float64{1}); !errors.Is(err, ErrInvalidNetwork) {
		t.Fatalf("expected input length error, got %v", err)
	}
}

func TestCompileRejectsMalformedGenomes(t *testing.T) {
	cases := map[string]model.Genome{
		"unknown activation": {
			Neurons: []model.Neuron{{ID: "o", Activation: "unknown"}},
		},
		"unknown source": {
			Neurons:  []model.Neuron{{ID: "o", Activation: "identity"}},
			Synapses: []model.Synapse{{ID: "s", From: "ghost", To: "o", Enabled: true}},
		},
		"backward edge": {
			Neurons: []model.Neuron{
				{ID: "a", Activation: "identity"},
				{ID: "b", Activation: "identity"},
			},
			Synapses: []model.Synapse{{ID: "s", From: "b", To: "a", Enabled: true}},
		},
		"actuator not a neuron": {
			SensorIDs:   []string{"x"},
			Neurons:     []model.Neuron{{ID: "o", Activation: "identity"}},
			ActuatorIDs: []string{"x"},
		},
		"duplicate node": {
			SensorIDs: []string{"o"},
			Neurons:   []model.Neuron{{ID: "o", Activation: "identity"}},
		},
	}
	for name, genome := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Compile(genome); !errors.Is(err, ErrInvalidNetwork) {
				t.Fatalf("expected invalid network, got %v", err)
			}
		})
	}
}

func TestBuiltinActivations(t *testing.T) {
	tests := []struct {
		act  string
		x    float64
		want float64
	}{
		{act: "identity", x: 2.5, want: 2.5},
		{act: "relu", x: -1, want: 0},
		{act: "relu", x: 3, want: 3},
		{act: "tanh", x: 0, want: 0},
		{act: "sigmoid", x: 0, want: 0.5},
		{act: "clamped", x: 4, want: 1},
		{act: "clamped", x: -0.3, want: -0.3},
	}
	for _, tc := range tests {
		fn, err := GetActivation(tc.act)
		if err != nil {
			t.Fatalf("get %s: %v", tc.act, err)
		}
		if got := fn(tc.x); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("%s(%f)=%f want %f", tc.act, tc.x, got, tc.want)
		}
	}
}
