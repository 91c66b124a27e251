package sim

import (
	"math"
	"math/rand"
	"testing"

	"antcolony/internal/geom"
	"antcolony/internal/pheromone"
	"antcolony/internal/world"
)

type testWorld struct {
	walls   []world.Rect
	hazards []world.Rect
	food    []world.Rect
}

func newTestLayout(t *testing.T, width, height int, tw testWorld) *world.Layout {
	t.Helper()
	grid, err := world.NewGrid(width, height)
	if err != nil {
		t.Fatalf("new grid: %v", err)
	}
	layout := &world.Layout{Grid: grid}
	stamp := func(r world.Rect, tag world.Tag) {
		if !grid.Reserve(r) {
			t.Fatalf("reserve %+v", r)
		}
		grid.Stamp(r, tag)
	}
	for _, r := range tw.walls {
		stamp(r, world.TagWall)
		layout.Walls = append(layout.Walls, r)
	}
	for _, r := range tw.hazards {
		stamp(r, world.TagHazard)
		layout.Hazards = append(layout.Hazards, r)
	}
	for i, r := range tw.food {
		stamp(r, world.TagFood)
		layout.Food = append(layout.Food, world.FoodRegion{ID: string(rune('a' + i)), Rect: r})
	}
	return layout
}

func newTestResolver(t *testing.T, layout *world.Layout, types int) (*CollisionResolver, *pheromone.Field) {
	t.Helper()
	field, err := pheromone.New(layout.Grid.Width(), layout.Grid.Height(), types, 0.9)
	if err != nil {
		t.Fatalf("new field: %v", err)
	}
	return NewCollisionResolver(layout, field, BodyConfig{Radius: 0.5}, rand.New(rand.NewSource(1))), field
}

func placeAgent(layout *world.Layout, id string, at geom.Vec2) *Agent {
	a := newAgent(id, at)
	x, y := at.Cell()
	layout.Grid.Occupy(x, y)
	return a
}

func TestApplyMovesAndDeposits(t *testing.T) {
	layout := newTestLayout(t, 10, 10, testWorld{})
	resolver, field := newTestResolver(t, layout, 2)
	a := placeAgent(layout, "a", geom.Vec2{X: 2, Y: 2})

	res := resolver.Apply(a, Action{Move: geom.Vec2{X: 1, Y: 0}, Deposits: []Deposit{{Type: 1, Amount: 3}}})
	if res.Outcome != OutcomeMoved {
		t.Fatalf("expected moved, got %s", res.Outcome)
	}
	if a.Position != (geom.Vec2{X: 3, Y: 2}) {
		t.Fatalf("unexpected position %+v", a.Position)
	}
	if got := field.At(3, 2, 1); got != 3 {
		t.Fatalf("expected deposit at new cell, got %f", got)
	}
	if a.LastDeposit == nil || a.LastDeposit.Type != 1 {
		t.Fatalf("expected last deposit recorded, got %+v", a.LastDeposit)
	}
	if layout.Grid.Occupants(2, 2) != 0 || layout.Grid.Occupants(3, 2) != 1 {
		t.Fatal("occupancy not moved with the agent")
	}
	if a.Heading != (geom.Vec2{X: 1, Y: 0}) {
		t.Fatalf("unexpected heading %+v", a.Heading)
	}
}

func TestApplyClampsOutOfBoundsMove(t *testing.T) {
	layout := newTestLayout(t, 10, 10, testWorld{})
	resolver, _ := newTestResolver(t, layout, 1)
	a := placeAgent(layout, "a", geom.Vec2{X: 0.5, Y: 3})

	res := resolver.Apply(a, Action{Move: geom.Vec2{X: -1, Y: 0}})
	if res.Outcome != OutcomeClamped {
		t.Fatalf("expected clamped, got %s", res.Outcome)
	}
	if a.Position != (geom.Vec2{X: 0, Y: 3}) {
		t.Fatalf("unexpected clamped position %+v", a.Position)
	}
}

func TestApplyNeverLeavesAgentInsideWall(t *testing.T) {
	layout := newTestLayout(t, 10, 10, testWorld{
		walls: []world.Rect{{X: 5, Y: 0, W: 1, H: 10}},
	})
	resolver, _ := newTestResolver(t, layout, 1)
	a := placeAgent(layout, "a", geom.Vec2{X: 4, Y: 4})

	res := resolver.Apply(a, Action{Move: geom.Vec2{X: 0.6, Y: 0}})
	if res.Outcome != OutcomeBounced {
		t.Fatalf("expected bounce, got %s", res.Outcome)
	}
	if a.Position != (geom.Vec2{X: 4, Y: 4}) {
		t.Fatalf("expected push-out to the wall's left face, got %+v", a.Position)
	}
	if a.Heading.X >= 0 {
		t.Fatalf("expected heading reflected away from wall, got %+v", a.Heading)
	}
	if resolver.firstOverlap(layout.Walls, a.Position) >= 0 {
		t.Fatal("agent body still overlaps a wall")
	}
}

func TestApplyBreaksEqualPenetrationTiesHorizontallyFirst(t *testing.T) {
	layout := newTestLayout(t, 10, 10, testWorld{
		walls: []world.Rect{{X: 5, Y: 5, W: 1, H: 1}},
	})
	resolver, _ := newTestResolver(t, layout, 1)
	a := placeAgent(layout, "a", geom.Vec2{X: 4, Y: 4})

	resolver.Apply(a, Action{Move: geom.Vec2{X: 0.5, Y: 0.5}})
	if a.Position != (geom.Vec2{X: 4, Y: 4.5}) {
		t.Fatalf("expected push along x, got %+v", a.Position)
	}
	want := geom.Vec2{X: -1, Y: 1}.Unit()
	if math.Abs(a.Heading.X-want.X) > 1e-12 || math.Abs(a.Heading.Y-want.Y) > 1e-12 {
		t.Fatalf("expected x-reflected heading %+v, got %+v", want, a.Heading)
	}
}

func TestApplyWallTakesPriorityOverHazard(t *testing.T) {
	layout := newTestLayout(t, 10, 10, testWorld{
		walls:   []world.Rect{{X: 5, Y: 3, W: 1, H: 3}},
		hazards: []world.Rect{{X: 5, Y: 6, W: 1, H: 1}},
	})
	resolver, _ := newTestResolver(t, layout, 1)
	a := placeAgent(layout, "a", geom.Vec2{X: 4, Y: 4.5})

	// the proposal overlaps both; the wall push-out moves it clear of the hazard
	res := resolver.Apply(a, Action{Move: geom.Vec2{X: 0.3, Y: 1.2}})
	if res.Outcome != OutcomeBounced {
		t.Fatalf("expected wall to win, got %s", res.Outcome)
	}
	if !a.Alive {
		t.Fatal("agent should survive a wall bounce")
	}
	if a.Position.X != 4 {
		t.Fatalf("expected push-out along x, got %+v", a.Position)
	}
}

func TestApplyBounceEndsResolutionOnHazard(t *testing.T) {
	layout := newTestLayout(t, 10, 10, testWorld{
		walls:   []world.Rect{{X: 5, Y: 4, W: 1, H: 2}},
		hazards: []world.Rect{{X: 5, Y: 6, W: 1, H: 1}},
	})
	resolver, field := newTestResolver(t, layout, 1)
	a := placeAgent(layout, "a", geom.Vec2{X: 4, Y: 4})

	// the push-out lands on the hazard cell below the wall
	res := resolver.Apply(a, Action{Move: geom.Vec2{X: 1, Y: 1.2}, Deposits: []Deposit{{Type: 0, Amount: 2}}})
	if res.Outcome != OutcomeBounced {
		t.Fatalf("expected bounce, got %s", res.Outcome)
	}
	if !a.Alive {
		t.Fatal("a bounce must not kill")
	}
	if a.Position != (geom.Vec2{X: 5, Y: 6}) {
		t.Fatalf("unexpected push-out position %+v", a.Position)
	}
	if field.At(5, 6, 0) != 2 || res.Deposited == nil {
		t.Fatal("expected deposit at the bounced position")
	}
	if layout.Grid.Occupants(5, 6) != 1 {
		t.Fatal("bounced agent should occupy its final cell")
	}
}

func TestApplyBounceDoesNotPickUpFood(t *testing.T) {
	layout := newTestLayout(t, 10, 10, testWorld{
		walls: []world.Rect{{X: 5, Y: 4, W: 1, H: 2}},
		food:  []world.Rect{{X: 5, Y: 6, W: 1, H: 1}},
	})
	resolver, _ := newTestResolver(t, layout, 1)
	a := placeAgent(layout, "a", geom.Vec2{X: 4, Y: 4})

	res := resolver.Apply(a, Action{Move: geom.Vec2{X: 1, Y: 1.2}})
	if res.Outcome != OutcomeBounced || res.FoodIndex != -1 {
		t.Fatalf("expected bounce without food, got %s food=%d", res.Outcome, res.FoodIndex)
	}
	if a.CarryingFood || a.FoodPickedUp != 0 {
		t.Fatal("bounced agent picked up food")
	}
	if layout.RemainingFood() != 1 {
		t.Fatal("food consumed by a bounce")
	}
}

func TestApplyClampDoesNotPickUpFood(t *testing.T) {
	layout := newTestLayout(t, 10, 10, testWorld{
		food: []world.Rect{{X: 9, Y: 5, W: 1, H: 1}},
	})
	resolver, _ := newTestResolver(t, layout, 1)
	a := placeAgent(layout, "a", geom.Vec2{X: 8, Y: 5})

	res := resolver.Apply(a, Action{Move: geom.Vec2{X: 3, Y: 0}})
	if res.Outcome != OutcomeClamped {
		t.Fatalf("expected clamp, got %s", res.Outcome)
	}
	if a.Position != (geom.Vec2{X: 9, Y: 5}) {
		t.Fatalf("unexpected clamped position %+v", a.Position)
	}
	if a.CarryingFood || layout.RemainingFood() != 1 {
		t.Fatal("clamped agent picked up food")
	}
}

func TestApplyHazardKillsWithoutDeposit(t *testing.T) {
	layout := newTestLayout(t, 10, 10, testWorld{
		hazards: []world.Rect{{X: 5, Y: 4, W: 1, H: 1}},
	})
	resolver, field := newTestResolver(t, layout, 1)
	a := placeAgent(layout, "a", geom.Vec2{X: 4, Y: 4})

	res := resolver.Apply(a, Action{Move: geom.Vec2{X: 1, Y: 0}, Deposits: []Deposit{{Type: 0, Amount: 5}}})
	if res.Outcome != OutcomeDied {
		t.Fatalf("expected death, got %s", res.Outcome)
	}
	if a.Alive {
		t.Fatal("agent still alive")
	}
	if field.Total(0) != 0 || res.Deposited != nil {
		t.Fatal("dead agent deposited pheromone")
	}
	if layout.Grid.Occupants(4, 4) != 0 || layout.Grid.Occupants(5, 4) != 0 {
		t.Fatal("dead agent still occupies a cell")
	}
}

func TestOnlyOneAgentPicksUpSharedFood(t *testing.T) {
	layout := newTestLayout(t, 10, 10, testWorld{
		food: []world.Rect{{X: 6, Y: 4, W: 1, H: 1}},
	})
	resolver, _ := newTestResolver(t, layout, 1)
	agents := []*Agent{
		placeAgent(layout, "a", geom.Vec2{X: 5, Y: 4}),
		placeAgent(layout, "b", geom.Vec2{X: 5, Y: 4}),
		placeAgent(layout, "c", geom.Vec2{X: 5, Y: 4}),
	}

	pickups := 0
	for _, a := range agents {
		if resolver.Apply(a, Action{Move: geom.Vec2{X: 1, Y: 0}}).Outcome == OutcomePickedUp {
			pickups++
		}
	}
	if pickups != 1 {
		t.Fatalf("expected exactly one pickup, got %d", pickups)
	}
	if !agents[0].CarryingFood || agents[1].CarryingFood || agents[2].CarryingFood {
		t.Fatal("expected the first agent in roster order to win the food")
	}
	if layout.Grid.At(6, 4) != world.TagAgent {
		t.Fatalf("expected consumed food cell to read as agent, got %s", layout.Grid.At(6, 4))
	}
	if layout.RemainingFood() != 0 {
		t.Fatalf("expected no food left, got %d", layout.RemainingFood())
	}
}

func TestCarryingAgentDoesNotPickUpAgain(t *testing.T) {
	layout := newTestLayout(t, 10, 10, testWorld{
		food: []world.Rect{{X: 6, Y: 4, W: 1, H: 1}},
	})
	resolver, _ := newTestResolver(t, layout, 1)
	a := placeAgent(layout, "a", geom.Vec2{X: 5, Y: 4})
	a.CarryingFood = true

	if res := resolver.Apply(a, Action{Move: geom.Vec2{X: 1, Y: 0}}); res.Outcome != OutcomeMoved {
		t.Fatalf("expected plain move, got %s", res.Outcome)
	}
	if layout.RemainingFood() != 1 {
		t.Fatal("carrying agent consumed food")
	}
}
