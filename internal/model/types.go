package model

import (
	"encoding/json"
	"time"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Genome is a feed-forward network usable as an ant policy. SensorIDs name
// the observation slots in order; ActuatorIDs name the action slots in order.
type Genome struct {
	VersionedRecord
	ID          string    `json:"id"`
	Neurons     []Neuron  `json:"neurons"`
	Synapses    []Synapse `json:"synapses"`
	SensorIDs   []string  `json:"sensor_ids"`
	ActuatorIDs []string  `json:"actuator_ids"`
}

type Neuron struct {
	ID         string  `json:"id"`
	Activation string  `json:"activation"`
	Bias       float64 `json:"bias"`
}

type Synapse struct {
	ID      string  `json:"id"`
	From    string  `json:"from"`
	To      string  `json:"to"`
	Weight  float64 `json:"weight"`
	Enabled bool    `json:"enabled"`
}

// RunSummary is the persisted outcome of one colony run.
type RunSummary struct {
	VersionedRecord
	ID             string          `json:"id"`
	CreatedAt      time.Time       `json:"created_at"`
	Policy         string          `json:"policy"`
	Seed           int64           `json:"seed"`
	Agents         int             `json:"agents"`
	Ticks          int             `json:"ticks"`
	Stop           string          `json:"stop"`
	FoodCollected  int             `json:"food_collected"`
	FoodReturned   int             `json:"food_returned"`
	Deaths         int             `json:"deaths"`
	PolicyFailures int             `json:"policy_failures"`
	ColonyFitness  float64         `json:"colony_fitness"`
	MeanFitness    float64         `json:"mean_fitness"`
	Duration       time.Duration   `json:"duration"`
	Results        []AgentResult   `json:"results,omitempty"`
	Config         json.RawMessage `json:"config,omitempty"`
}

type AgentResult struct {
	ID           string  `json:"id"`
	Fitness      float64 `json:"fitness"`
	FoodPickedUp int     `json:"food_picked_up"`
	FoodReturned int     `json:"food_returned"`
	Alive        bool    `json:"alive"`
	RetiredAt    int     `json:"retired_at"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
}
