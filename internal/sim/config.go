package sim

import (
	"fmt"
	"math"

	"antcolony/internal/pheromone"
	"antcolony/internal/world"
)

type ActionLayout string

const (
	// ActionLayoutTyped is [dx, dy, pheromone_type, pheromone_amount].
	ActionLayoutTyped ActionLayout = "typed"
	// ActionLayoutFlags is [dx, dy, flag_0 .. flag_{K-1}], one deposit flag per type.
	ActionLayoutFlags ActionLayout = "flags"
)

type Config struct {
	World          world.GenerationConfig `json:"world"`
	Agents         int                    `json:"agents"`
	PheromoneTypes int                    `json:"pheromone_types"`
	Decay          float64                `json:"decay"`
	Steps          int                    `json:"steps"`
	Seed           int64                  `json:"seed"`
	Workers        int                    `json:"workers"`
	Perception     PerceptionConfig       `json:"perception"`
	Action         ActionConfig           `json:"action"`
	Body           BodyConfig             `json:"body"`
	Fitness        FitnessConfig          `json:"fitness"`
}

type PerceptionConfig struct {
	Radius           int  `json:"radius"`
	Neighbors        int  `json:"neighbors"`
	ColonyDistance   bool `json:"colony_distance"`
	FoodDirection    bool `json:"food_direction"`
	FoodSearchRadius int  `json:"food_search_radius"`
}

type ActionConfig struct {
	Layout        ActionLayout `json:"layout"`
	MaxStep       float64      `json:"max_step"`
	DepositScale  float64      `json:"deposit_scale"`
	FlagThreshold float64      `json:"flag_threshold"`
	FlagAmounts   []float64    `json:"flag_amounts,omitempty"`
}

type BodyConfig struct {
	Radius     float64 `json:"radius"`
	WallJitter float64 `json:"wall_jitter"`
}

type FitnessConfig struct {
	WCollective     float64 `json:"w_collective"`
	WPickup         float64 `json:"w_pickup"`
	WStagnation     float64 `json:"w_stagnation"`
	WConsistent     float64 `json:"w_consistent"`
	WInconsistent   float64 `json:"w_inconsistent"`
	WNoDeposit      float64 `json:"w_no_deposit"`
	WDeath          float64 `json:"w_death"`
	WIdle           float64 `json:"w_idle"`
	WCarryDistance  float64 `json:"w_carry_distance"`
	WReturn         float64 `json:"w_return"`
	MaxIdleTicks    int     `json:"max_idle_ticks"`
	FoodMarkerType  int     `json:"food_marker_type"`
	TrailMarkerType int     `json:"trail_marker_type"`
	ReturnToBase    bool    `json:"return_to_base"`
	ReturnRadius    float64 `json:"return_radius"`
	Cap             float64 `json:"cap"`
}

func DefaultConfig() Config {
	return Config{
		World:          world.DefaultGenerationConfig(),
		Agents:         50,
		PheromoneTypes: 3,
		Decay:          pheromone.DefaultDecay,
		Steps:          150,
		Seed:           1,
		Workers:        1,
		Perception: PerceptionConfig{
			Radius:           5,
			Neighbors:        3,
			ColonyDistance:   true,
			FoodDirection:    true,
			FoodSearchRadius: 8,
		},
		Action: ActionConfig{
			Layout:        ActionLayoutTyped,
			MaxStep:       1,
			DepositScale:  10,
			FlagThreshold: 0.5,
			FlagAmounts:   []float64{1, 0.5, 0.5},
		},
		Body: BodyConfig{
			Radius:     0.5,
			WallJitter: 0.2,
		},
		Fitness: DefaultFitnessConfig(),
	}
}

func DefaultFitnessConfig() FitnessConfig {
	return FitnessConfig{
		WCollective:     10,
		WPickup:         5,
		WStagnation:     5,
		WConsistent:     2,
		WInconsistent:   5,
		WDeath:          10,
		WIdle:           0.5,
		WReturn:         4,
		MaxIdleTicks:    150,
		FoodMarkerType:  0,
		TrailMarkerType: 1,
		ReturnRadius:    1,
		Cap:             10,
	}
}

// ReducedPerception is the original six-wide input layout for three types:
// position, carrying flag and pheromone sums only.
func ReducedPerception(radius int) PerceptionConfig {
	return PerceptionConfig{Radius: radius}
}

func (c Config) Validate() error {
	if err := c.World.Validate(); err != nil {
		return err
	}
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
	}
	switch {
	case c.Agents <= 0:
		return invalid("agents=%d", c.Agents)
	case c.PheromoneTypes <= 0:
		return invalid("pheromone_types=%d", c.PheromoneTypes)
	case !(c.Decay > 0 && c.Decay < 1):
		return invalid("decay=%v outside (0,1)", c.Decay)
	case c.Steps < 0:
		return invalid("steps=%d", c.Steps)
	case c.Workers < 0:
		return invalid("workers=%d", c.Workers)
	case c.Perception.Radius < 0 || c.Perception.Neighbors < 0 || c.Perception.FoodSearchRadius < 0:
		return invalid("negative perception setting %+v", c.Perception)
	case !(c.Action.MaxStep > 0) || math.IsInf(c.Action.MaxStep, 0):
		return invalid("max_step=%v", c.Action.MaxStep)
	case c.Action.DepositScale < 0:
		return invalid("deposit_scale=%v", c.Action.DepositScale)
	case !(c.Body.Radius > 0 && c.Body.Radius <= 0.5):
		return invalid("body radius=%v outside (0,0.5]", c.Body.Radius)
	case c.Body.WallJitter < 0:
		return invalid("wall_jitter=%v", c.Body.WallJitter)
	case c.Fitness.FoodMarkerType < 0 || c.Fitness.FoodMarkerType >= c.PheromoneTypes:
		return invalid("food_marker_type=%d with %d types", c.Fitness.FoodMarkerType, c.PheromoneTypes)
	case c.Fitness.TrailMarkerType < 0 || c.Fitness.TrailMarkerType >= c.PheromoneTypes:
		return invalid("trail_marker_type=%d with %d types", c.Fitness.TrailMarkerType, c.PheromoneTypes)
	case c.Fitness.MaxIdleTicks < 0:
		return invalid("max_idle_ticks=%d", c.Fitness.MaxIdleTicks)
	case c.Fitness.ReturnRadius < 0:
		return invalid("return_radius=%v", c.Fitness.ReturnRadius)
	}
	switch c.Action.Layout {
	case ActionLayoutTyped, ActionLayoutFlags:
	default:
		return invalid("action layout %q", c.Action.Layout)
	}
	for i, amount := range c.Action.FlagAmounts {
		if amount < 0 {
			return invalid("flag_amounts[%d]=%v", i, amount)
		}
	}
	return nil
}
