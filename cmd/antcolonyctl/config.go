package main

import (
	"encoding/json"
	"fmt"
	"os"

	"antcolony/internal/sim"
)

// runSettings is what a -config file can carry besides the simulation
// configuration itself.
type runSettings struct {
	Config sim.Config
	Policy string
}

func loadOrDefaultRunSettings(path string) (runSettings, error) {
	if path == "" {
		return runSettings{Config: sim.DefaultConfig(), Policy: "forager"}, nil
	}
	return loadRunSettingsFromConfig(path)
}

// loadRunSettingsFromConfig applies a JSON file on top of the defaults. Keys
// that are absent keep their default value.
func loadRunSettingsFromConfig(path string) (runSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return runSettings{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return runSettings{}, fmt.Errorf("decode %s: %w", path, err)
	}

	settings := runSettings{Config: sim.DefaultConfig(), Policy: "forager"}
	cfg := &settings.Config
	if v, ok := asString(raw["policy"]); ok {
		settings.Policy = v
	}
	if v, ok := asInt(raw["agents"]); ok {
		cfg.Agents = v
	}
	if v, ok := asInt(raw["steps"]); ok {
		cfg.Steps = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		cfg.Seed = v
	}
	if v, ok := asInt(raw["workers"]); ok {
		cfg.Workers = v
	}
	if v, ok := asInt(raw["pheromone_types"]); ok {
		cfg.PheromoneTypes = v
	}
	if v, ok := asFloat64(raw["decay"]); ok {
		cfg.Decay = v
	}

	if w, ok := raw["world"].(map[string]any); ok {
		if v, ok := asInt(w["width"]); ok {
			cfg.World.Width = v
		}
		if v, ok := asInt(w["height"]); ok {
			cfg.World.Height = v
		}
		if v, ok := asInt(w["walls"]); ok {
			cfg.World.Walls = v
		}
		if v, ok := asInt(w["hazards"]); ok {
			cfg.World.Hazards = v
		}
		if v, ok := asInt(w["food"]); ok {
			cfg.World.Food = v
		}
		if v, ok := asInt(w["food_size"]); ok {
			cfg.World.FoodSize = v
		}
		if v, ok := asInt(w["safe_zone_radius"]); ok {
			cfg.World.SafeZoneRadius = v
		}
		if v, ok := asInt(w["max_placement_attempts"]); ok {
			cfg.World.MaxPlacementAttempts = v
		}
	}

	if p, ok := raw["perception"].(map[string]any); ok {
		if v, ok := asInt(p["radius"]); ok {
			cfg.Perception.Radius = v
		}
		if v, ok := asInt(p["neighbors"]); ok {
			cfg.Perception.Neighbors = v
		}
		if v, ok := asBool(p["colony_distance"]); ok {
			cfg.Perception.ColonyDistance = v
		}
		if v, ok := asBool(p["food_direction"]); ok {
			cfg.Perception.FoodDirection = v
		}
		if v, ok := asInt(p["food_search_radius"]); ok {
			cfg.Perception.FoodSearchRadius = v
		}
		if v, ok := asBool(p["reduced"]); ok && v {
			cfg.Perception = sim.ReducedPerception(cfg.Perception.Radius)
		}
	}

	if a, ok := raw["action"].(map[string]any); ok {
		if v, ok := asString(a["layout"]); ok {
			cfg.Action.Layout = sim.ActionLayout(v)
		}
		if v, ok := asFloat64(a["max_step"]); ok {
			cfg.Action.MaxStep = v
		}
		if v, ok := asFloat64(a["deposit_scale"]); ok {
			cfg.Action.DepositScale = v
		}
		if v, ok := asFloat64(a["flag_threshold"]); ok {
			cfg.Action.FlagThreshold = v
		}
		if list, ok := a["flag_amounts"].([]any); ok {
			cfg.Action.FlagAmounts = make([]float64, 0, len(list))
			for i, item := range list {
				v, ok := asFloat64(item)
				if !ok {
					return runSettings{}, fmt.Errorf("action.flag_amounts[%d]: not a number", i)
				}
				cfg.Action.FlagAmounts = append(cfg.Action.FlagAmounts, v)
			}
		}
	}

	if b, ok := raw["body"].(map[string]any); ok {
		if v, ok := asFloat64(b["radius"]); ok {
			cfg.Body.Radius = v
		}
		if v, ok := asFloat64(b["wall_jitter"]); ok {
			cfg.Body.WallJitter = v
		}
	}

	if f, ok := raw["fitness"].(map[string]any); ok {
		applyFitnessConfig(&cfg.Fitness, f)
	}
	return settings, nil
}

func applyFitnessConfig(fit *sim.FitnessConfig, raw map[string]any) {
	weights := map[string]*float64{
		"w_collective":     &fit.WCollective,
		"w_pickup":         &fit.WPickup,
		"w_stagnation":     &fit.WStagnation,
		"w_consistent":     &fit.WConsistent,
		"w_inconsistent":   &fit.WInconsistent,
		"w_no_deposit":     &fit.WNoDeposit,
		"w_death":          &fit.WDeath,
		"w_idle":           &fit.WIdle,
		"w_carry_distance": &fit.WCarryDistance,
		"w_return":         &fit.WReturn,
		"return_radius":    &fit.ReturnRadius,
		"cap":              &fit.Cap,
	}
	for key, dst := range weights {
		if v, ok := asFloat64(raw[key]); ok {
			*dst = v
		}
	}
	if v, ok := asInt(raw["max_idle_ticks"]); ok {
		fit.MaxIdleTicks = v
	}
	if v, ok := asInt(raw["food_marker_type"]); ok {
		fit.FoodMarkerType = v
	}
	if v, ok := asInt(raw["trail_marker_type"]); ok {
		fit.TrailMarkerType = v
	}
	if v, ok := asBool(raw["return_to_base"]); ok {
		fit.ReturnToBase = v
	}
}

// overrideFromFlags copies explicitly set flags over the file values.
func overrideFromFlags(settings *runSettings, set map[string]bool, flagValue map[string]any) {
	cfg := &settings.Config
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "policy":
			settings.Policy = v.(string)
		case "agents":
			cfg.Agents = v.(int)
		case "steps":
			cfg.Steps = v.(int)
		case "seed":
			cfg.Seed = v.(int64)
		case "workers":
			cfg.Workers = v.(int)
		case "types":
			cfg.PheromoneTypes = v.(int)
		case "decay":
			cfg.Decay = v.(float64)
		case "width":
			cfg.World.Width = v.(int)
		case "height":
			cfg.World.Height = v.(int)
		case "walls":
			cfg.World.Walls = v.(int)
		case "hazards":
			cfg.World.Hazards = v.(int)
		case "food":
			cfg.World.Food = v.(int)
		case "food-size":
			cfg.World.FoodSize = v.(int)
		case "safe-radius":
			cfg.World.SafeZoneRadius = v.(int)
		case "radius":
			cfg.Perception.Radius = v.(int)
		case "neighbors":
			cfg.Perception.Neighbors = v.(int)
		case "food-radius":
			cfg.Perception.FoodSearchRadius = v.(int)
		case "reduced":
			if v.(bool) {
				cfg.Perception = sim.ReducedPerception(cfg.Perception.Radius)
			}
		case "layout":
			cfg.Action.Layout = sim.ActionLayout(v.(string))
		case "max-step":
			cfg.Action.MaxStep = v.(float64)
		case "deposit-scale":
			cfg.Action.DepositScale = v.(float64)
		case "body-radius":
			cfg.Body.Radius = v.(float64)
		case "wall-jitter":
			cfg.Body.WallJitter = v.(float64)
		case "return-to-base":
			cfg.Fitness.ReturnToBase = v.(bool)
		}
	}
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}
