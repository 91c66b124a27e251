package agent

import (
	"context"
	"testing"

	"antcolony/internal/sim"
)

func TestHeuristicUnknownName(t *testing.T) {
	if _, err := Heuristic("teleport", sim.DefaultConfig()); err == nil {
		t.Fatal("expected unknown policy error")
	}
	names := Heuristics()
	if len(names) != 3 || names[0] != PolicyForager || names[2] != PolicyStill {
		t.Fatalf("unexpected heuristics %v", names)
	}
}

func TestForagerCarriesHomeAndFollowsFood(t *testing.T) {
	cfg := sim.DefaultConfig()
	factory, err := Heuristic(PolicyForager, cfg)
	if err != nil {
		t.Fatalf("heuristic: %v", err)
	}
	policy, err := factory("ant-000")
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	size := sim.NewObservationBuilder(cfg.Perception, cfg.PheromoneTypes).Size()
	off, _ := sim.NewObservationBuilder(cfg.Perception, cfg.PheromoneTypes).FoodDirectionOffset()

	carrying := make([]float64, size)
	carrying[0], carrying[1], carrying[2] = 20, 25, 1
	raw, err := policy.Act(context.Background(), carrying)
	if err != nil {
		t.Fatalf("act: %v", err)
	}
	action, err := cfg.Action.Decode(raw, cfg.PheromoneTypes)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	d, _ := action.Primary()
	if action.Move.X != 1 || action.Move.Y != 0 || d.Type != cfg.Fitness.FoodMarkerType {
		t.Fatalf("expected homeward move with food marker, got %+v", action)
	}

	searching := make([]float64, size)
	searching[0], searching[1] = 10, 10
	searching[off+1] = 1
	raw, _ = policy.Act(context.Background(), searching)
	action, err = cfg.Action.Decode(raw, cfg.PheromoneTypes)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	d, _ = action.Primary()
	if action.Move.X != 0 || action.Move.Y != 1 || d.Type != cfg.Fitness.TrailMarkerType || d.Amount != cfg.Action.DepositScale {
		t.Fatalf("expected move toward food with trail marker, got %+v", action)
	}
}

func TestRandomPolicyIsSeededPerAgent(t *testing.T) {
	cfg := sim.DefaultConfig()
	factory, err := Heuristic(PolicyRandom, cfg)
	if err != nil {
		t.Fatalf("heuristic: %v", err)
	}
	first, _ := factory("ant-001")
	again, _ := factory("ant-001")
	for i := 0; i < 5; i++ {
		a, _ := first.Act(context.Background(), nil)
		b, _ := again.Act(context.Background(), nil)
		if len(a) != 4 {
			t.Fatalf("unexpected action width %d", len(a))
		}
		for j := range a {
			if a[j] != b[j] {
				t.Fatalf("step %d: expected identical draws, got %v and %v", i, a, b)
			}
		}
		if _, err := cfg.Action.Decode(a, cfg.PheromoneTypes); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
}

func TestStillPolicyRunsWithoutFailures(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.Agents = 4
	factory, err := Heuristic(PolicyStill, cfg)
	if err != nil {
		t.Fatalf("heuristic: %v", err)
	}
	s, err := sim.New(cfg, factory)
	if err != nil {
		t.Fatalf("new simulation: %v", err)
	}
	result, err := s.Run(context.Background(), 3)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Ticks != 3 || result.Totals.PolicyFailures != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
}
