package sim

import (
	"antcolony/internal/geom"
)

// Transition is one agent's pre/post state for a single tick.
type Transition struct {
	Previous  geom.Vec2
	Position  geom.Vec2
	Carrying  bool
	PickedUp  bool
	Died      bool
	Deposit   *Deposit
	IdleTicks int
	// ColonyFood is the colony's pickup total at the start of the tick.
	ColonyFood int
	Origin     geom.Vec2
}

type Terms struct {
	Collective    float64 `json:"collective"`
	Pickup        float64 `json:"pickup"`
	Stagnation    float64 `json:"stagnation"`
	Consistency   float64 `json:"consistency"`
	Death         float64 `json:"death"`
	Idle          float64 `json:"idle"`
	CarryDistance float64 `json:"carry_distance"`
	Return        float64 `json:"return"`
}

func (t Terms) Sum() float64 {
	return t.Collective + t.Pickup + t.Stagnation + t.Consistency + t.Death + t.Idle + t.CarryDistance + t.Return
}

type Score struct {
	Total    float64
	Terms    Terms
	Returned bool
}

type FitnessEvaluator struct {
	cfg FitnessConfig
}

func NewFitnessEvaluator(cfg FitnessConfig) FitnessEvaluator {
	return FitnessEvaluator{cfg: cfg}
}

// Evaluate scores one transition. It has no side effects; a Returned score
// tells the caller to drop the carried food at the colony.
func (e FitnessEvaluator) Evaluate(t Transition) Score {
	cfg := e.cfg
	var terms Terms

	terms.Collective = float64(t.ColonyFood) * cfg.WCollective
	if t.PickedUp {
		terms.Pickup = cfg.WPickup
	}
	if t.Position == t.Previous {
		terms.Stagnation = -cfg.WStagnation
	}

	if t.Deposit != nil {
		want := cfg.TrailMarkerType
		if t.Carrying {
			want = cfg.FoodMarkerType
		}
		if t.Deposit.Type == want {
			terms.Consistency = cfg.WConsistent
		} else {
			terms.Consistency = -cfg.WInconsistent
		}
	} else if !t.Died {
		terms.Consistency = -cfg.WNoDeposit
	}

	if t.Died {
		terms.Death = -cfg.WDeath
	}
	if !t.Carrying && !t.Died && t.IdleTicks > cfg.MaxIdleTicks {
		terms.Idle = -cfg.WIdle
	}
	returned := false
	if t.Carrying && !t.Died {
		dist := geom.Dist(t.Position, t.Origin)
		terms.CarryDistance = dist * cfg.WCarryDistance
		if cfg.ReturnToBase && dist <= cfg.ReturnRadius {
			terms.Return = cfg.WReturn
			returned = true
		}
	}

	total := terms.Sum()
	if total > cfg.Cap {
		total = cfg.Cap
	}
	return Score{
		Total:    total,
		Terms:    terms,
		Returned: returned,
	}
}
