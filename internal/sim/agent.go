package sim

import (
	"fmt"
	"sort"

	"antcolony/internal/geom"
)

type Deposit struct {
	Type   int     `json:"type"`
	Amount float64 `json:"amount"`
}

type Agent struct {
	ID               string    `json:"id"`
	Position         geom.Vec2 `json:"position"`
	PreviousPosition geom.Vec2 `json:"previous_position"`
	Heading          geom.Vec2 `json:"heading"`
	Alive            bool      `json:"alive"`
	CarryingFood     bool      `json:"carrying_food"`
	IdleTicks        int       `json:"idle_ticks"`
	LastDeposit      *Deposit  `json:"last_deposit,omitempty"`
	Fitness          float64   `json:"fitness"`
	FoodPickedUp     int       `json:"food_picked_up"`
	FoodReturned     int       `json:"food_returned"`
	// RetiredAt is the tick the agent left the roster, or -1 while active.
	RetiredAt int `json:"retired_at"`
}

func newAgent(id string, at geom.Vec2) *Agent {
	return &Agent{
		ID:               id,
		Position:         at,
		PreviousPosition: at,
		Alive:            true,
		RetiredAt:        -1,
	}
}

func (a *Agent) clone() Agent {
	out := *a
	if a.LastDeposit != nil {
		d := *a.LastDeposit
		out.LastDeposit = &d
	}
	return out
}

// Handle addresses a roster slot. Handles stay valid for the duration of a
// tick; compaction at the tick boundary renumbers them.
type Handle int

type slot struct {
	agent  *Agent
	policy Policy
	active bool
}

// Roster is the arena of agents eligible for the tick pipeline. Retiring an
// agent only marks its slot; slots are dropped by Compact between ticks.
type Roster struct {
	slots   []slot
	retired []*Agent
}

func (r *Roster) add(a *Agent, p Policy) Handle {
	r.slots = append(r.slots, slot{agent: a, policy: p, active: true})
	return Handle(len(r.slots) - 1)
}

func (r *Roster) Active() []Handle {
	out := make([]Handle, 0, len(r.slots))
	for i, s := range r.slots {
		if s.active {
			out = append(out, Handle(i))
		}
	}
	return out
}

func (r *Roster) Len() int {
	n := 0
	for _, s := range r.slots {
		if s.active {
			n++
		}
	}
	return n
}

func (r *Roster) Agent(h Handle) *Agent {
	return r.slot(h).agent
}

func (r *Roster) Policy(h Handle) Policy {
	return r.slot(h).policy
}

func (r *Roster) IsActive(h Handle) bool {
	return int(h) >= 0 && int(h) < len(r.slots) && r.slots[h].active
}

func (r *Roster) slot(h Handle) *slot {
	if int(h) < 0 || int(h) >= len(r.slots) {
		panic(fmt.Sprintf("sim: roster handle %d out of range", h))
	}
	return &r.slots[h]
}

// Retire removes an agent from the active roster and drops its policy
// binding. Retiring twice is an invariant violation.
func (r *Roster) Retire(h Handle, tick int) {
	s := r.slot(h)
	if !s.active {
		panic(fmt.Sprintf("sim: agent %s retired twice", s.agent.ID))
	}
	s.active = false
	s.policy = nil
	s.agent.RetiredAt = tick
}

// Compact drops retired slots, preserving roster order for the rest.
func (r *Roster) Compact() {
	kept := r.slots[:0]
	for _, s := range r.slots {
		if s.active {
			kept = append(kept, s)
			continue
		}
		r.retired = append(r.retired, s.agent)
	}
	for i := len(kept); i < len(r.slots); i++ {
		r.slots[i] = slot{}
	}
	r.slots = kept
}

func (r *Roster) Retired() []*Agent {
	return append([]*Agent(nil), r.retired...)
}

// All returns copies of every agent, active or retired, ordered by ID.
func (r *Roster) All() []Agent {
	out := make([]Agent, 0, len(r.slots)+len(r.retired))
	for _, s := range r.slots {
		out = append(out, s.agent.clone())
	}
	for _, a := range r.retired {
		out = append(out, a.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
