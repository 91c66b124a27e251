package sim

import (
	"testing"

	"antcolony/internal/geom"
	"antcolony/internal/pheromone"
	"antcolony/internal/world"
)

func snapshotOf(layout *world.Layout, positions ...geom.Vec2) *Snapshot {
	s := &Snapshot{
		Static:    layout.Grid.StaticLayer(),
		Origin:    layout.Origin,
		Positions: positions,
		Carrying:  make([]bool, len(positions)),
		IDs:       make([]string, len(positions)),
		Handles:   make([]Handle, len(positions)),
	}
	for i := range positions {
		s.Handles[i] = Handle(i)
	}
	return s
}

func TestObservationSizeIsFixedAndZeroFilled(t *testing.T) {
	layout := newTestLayout(t, 12, 12, testWorld{})
	field, _ := pheromone.New(12, 12, 3, 0.9)
	cfg := DefaultConfig().Perception
	b := NewObservationBuilder(cfg, 3)

	if got, want := b.Size(), 3+3+2*cfg.Neighbors+1+2; got != want {
		t.Fatalf("size=%d want=%d", got, want)
	}

	lonely := b.Build(snapshotOf(layout, geom.Vec2{X: 3, Y: 3}), 0, field)
	crowded := b.Build(snapshotOf(layout,
		geom.Vec2{X: 3, Y: 3}, geom.Vec2{X: 4, Y: 3}, geom.Vec2{X: 5, Y: 3},
		geom.Vec2{X: 6, Y: 3}, geom.Vec2{X: 7, Y: 3},
	), 0, field)
	if len(lonely) != b.Size() || len(crowded) != b.Size() {
		t.Fatalf("observation lengths %d and %d, want %d", len(lonely), len(crowded), b.Size())
	}
	for i := 6; i < 6+2*cfg.Neighbors; i++ {
		if lonely[i] != 0 {
			t.Fatalf("expected zero-filled neighbor slot %d, got %f", i, lonely[i])
		}
	}

	reduced := NewObservationBuilder(ReducedPerception(5), 3)
	if reduced.Size() != 6 {
		t.Fatalf("expected reduced layout width 6, got %d", reduced.Size())
	}
}

func TestObservationSumsPheromoneWindow(t *testing.T) {
	layout := newTestLayout(t, 12, 12, testWorld{})
	field, _ := pheromone.New(12, 12, 2, 0.9)
	field.Deposit(4, 4, 0, 1)
	field.Deposit(9, 9, 0, 7)
	field.Deposit(5, 5, 1, 2)
	b := NewObservationBuilder(ReducedPerception(2), 2)

	s := snapshotOf(layout, geom.Vec2{X: 5, Y: 5})
	s.Carrying[0] = true
	obs := b.Build(s, 0, field)
	want := []float64{5, 5, 1, 1, 2}
	for i := range want {
		if obs[i] != want[i] {
			t.Fatalf("obs[%d]=%f want %f (obs=%v)", i, obs[i], want[i], obs)
		}
	}
}

func TestNeighborsNearestFirstWithRosterTieBreak(t *testing.T) {
	layout := newTestLayout(t, 12, 12, testWorld{})
	s := snapshotOf(layout,
		geom.Vec2{X: 5, Y: 5},
		geom.Vec2{X: 8, Y: 5},
		geom.Vec2{X: 6, Y: 5},
		geom.Vec2{X: 5, Y: 7},
		geom.Vec2{X: 5, Y: 3},
	)
	got := nearestNeighbors(s, 0, 3)
	want := []geom.Vec2{{X: 6, Y: 5}, {X: 5, Y: 7}, {X: 5, Y: 3}}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("neighbor %d=%+v want %+v", i, got[i], want[i])
		}
	}
}

func TestFoodDirectionPointsAtNearestFood(t *testing.T) {
	layout := newTestLayout(t, 12, 12, testWorld{
		food: []world.Rect{{X: 5, Y: 8, W: 1, H: 1}, {X: 8, Y: 5, W: 1, H: 1}},
	})
	static := layout.Grid.StaticLayer()

	dir := nearestFoodDirection(static, geom.Vec2{X: 5, Y: 5}, 4)
	if dir != (geom.Vec2{X: 1, Y: 0}) {
		t.Fatalf("expected row-major first match (1,0), got %+v", dir)
	}
	if dir := nearestFoodDirection(static, geom.Vec2{X: 5, Y: 5}, 2); dir != (geom.Vec2{}) {
		t.Fatalf("expected zero vector outside radius, got %+v", dir)
	}
}

func TestFoodDirectionOffsetMatchesBuild(t *testing.T) {
	layout := newTestLayout(t, 12, 12, testWorld{
		food: []world.Rect{{X: 8, Y: 5, W: 1, H: 1}},
	})
	field, _ := pheromone.New(12, 12, 3, 0.9)
	cfg := DefaultConfig().Perception
	b := NewObservationBuilder(cfg, 3)

	off, ok := b.FoodDirectionOffset()
	if !ok {
		t.Fatal("expected food direction enabled")
	}
	obs := b.Build(snapshotOf(layout, geom.Vec2{X: 5, Y: 5}), 0, field)
	if obs[off] != 1 || obs[off+1] != 0 {
		t.Fatalf("unexpected food direction at %d: %v", off, obs)
	}

	cfg.FoodDirection = false
	if _, ok := NewObservationBuilder(cfg, 3).FoodDirectionOffset(); ok {
		t.Fatal("expected no offset when food direction disabled")
	}
}
