package sim

import (
	"testing"

	"antcolony/internal/geom"
)

func TestEvaluateTerms(t *testing.T) {
	e := NewFitnessEvaluator(DefaultFitnessConfig())
	from := geom.Vec2{X: 3, Y: 3}
	to := geom.Vec2{X: 4, Y: 3}

	cases := []struct {
		name string
		tr   Transition
		want float64
	}{
		{
			name: "pickup with food marker",
			tr:   Transition{Previous: from, Position: to, Carrying: true, PickedUp: true, Deposit: &Deposit{Type: 0, Amount: 1}},
			want: 5 + 2,
		},
		{
			name: "stagnant with wrong marker",
			tr:   Transition{Previous: from, Position: from, Deposit: &Deposit{Type: 0, Amount: 1}},
			want: -5 - 5,
		},
		{
			name: "trail marker while searching",
			tr:   Transition{Previous: from, Position: to, Deposit: &Deposit{Type: 1, Amount: 1}},
			want: 2,
		},
		{
			name: "death",
			tr:   Transition{Previous: from, Position: to, Died: true},
			want: -10,
		},
		{
			name: "idle past limit",
			tr:   Transition{Previous: from, Position: to, IdleTicks: 151, Deposit: &Deposit{Type: 1, Amount: 1}},
			want: 2 - 0.5,
		},
		{
			name: "collective bonus capped",
			tr:   Transition{Previous: from, Position: to, ColonyFood: 3},
			want: 10,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := e.Evaluate(tc.tr).Total; got != tc.want {
				t.Fatalf("total=%f want=%f", got, tc.want)
			}
		})
	}
}

func TestEvaluateDoesNotFloorNegativeRewards(t *testing.T) {
	e := NewFitnessEvaluator(DefaultFitnessConfig())
	p := geom.Vec2{X: 1, Y: 1}
	score := e.Evaluate(Transition{Previous: p, Position: p, Died: true})
	if score.Total != -15 {
		t.Fatalf("expected -15, got %f", score.Total)
	}
	if score.Terms.Sum() != score.Total {
		t.Fatal("terms do not add up to the uncapped total")
	}
}

func TestEvaluateReturnToBase(t *testing.T) {
	cfg := DefaultFitnessConfig()
	cfg.ReturnToBase = true
	cfg.WCarryDistance = -0.1
	e := NewFitnessEvaluator(cfg)
	origin := geom.Vec2{X: 10, Y: 10}

	away := e.Evaluate(Transition{
		Previous: geom.Vec2{X: 14, Y: 10},
		Position: geom.Vec2{X: 13, Y: 10},
		Carrying: true,
		Deposit:  &Deposit{Type: 0, Amount: 1},
		Origin:   origin,
	})
	if away.Returned {
		t.Fatal("returned while far from the colony")
	}
	if got := away.Terms.CarryDistance; got > -0.29 || got < -0.31 {
		t.Fatalf("unexpected carry distance term %f", got)
	}

	home := e.Evaluate(Transition{
		Previous: geom.Vec2{X: 11, Y: 10},
		Position: origin,
		Carrying: true,
		Deposit:  &Deposit{Type: 0, Amount: 1},
		Origin:   origin,
	})
	if !home.Returned || home.Terms.Return != cfg.WReturn {
		t.Fatalf("expected return at origin, got %+v", home)
	}
}
