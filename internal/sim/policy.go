package sim

import (
	"context"
	"fmt"
	"math"

	"antcolony/internal/geom"
)

// Policy maps one agent's observation to its action vector. When Workers > 1
// Act may be called concurrently for different agents.
type Policy interface {
	Act(ctx context.Context, observation []float64) ([]float64, error)
}

type PolicyFunc func(ctx context.Context, observation []float64) ([]float64, error)

func (f PolicyFunc) Act(ctx context.Context, observation []float64) ([]float64, error) {
	return f(ctx, observation)
}

// PolicyFactory binds a policy to each agent at construction.
type PolicyFactory func(agentID string) (Policy, error)

// SharedPolicy binds the same policy to every agent.
func SharedPolicy(p Policy) PolicyFactory {
	return func(string) (Policy, error) { return p, nil }
}

type Action struct {
	Move     geom.Vec2
	Deposits []Deposit
}

// Primary is the deposit the fitness consistency check looks at.
func (a Action) Primary() (Deposit, bool) {
	if len(a.Deposits) == 0 {
		return Deposit{}, false
	}
	return a.Deposits[0], true
}

// Width is the action vector length the layout expects.
func (c ActionConfig) Width(types int) int {
	if c.Layout == ActionLayoutFlags {
		return 2 + types
	}
	return 4
}

// Decode turns a raw policy output into a clamped action. Malformed output is
// reported as ErrPolicyInvocation.
func (c ActionConfig) Decode(raw []float64, types int) (Action, error) {
	if want := c.Width(types); len(raw) != want {
		return Action{}, fmt.Errorf("%w: action length %d, want %d", ErrPolicyInvocation, len(raw), want)
	}
	for i, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Action{}, fmt.Errorf("%w: non-finite action[%d]=%v", ErrPolicyInvocation, i, v)
		}
	}

	action := Action{Move: geom.Vec2{
		X: geom.Clamp(raw[0], -c.MaxStep, c.MaxStep),
		Y: geom.Clamp(raw[1], -c.MaxStep, c.MaxStep),
	}}

	switch c.Layout {
	case ActionLayoutFlags:
		threshold := c.FlagThreshold
		for kind := 0; kind < types; kind++ {
			if raw[2+kind] > threshold {
				if amount := c.flagAmount(kind); amount > 0 {
					action.Deposits = append(action.Deposits, Deposit{Type: kind, Amount: amount})
				}
			}
		}
	default:
		kind := int(geom.Clamp(math.Floor(raw[2]), 0, float64(types-1)))
		amount := geom.Clamp(raw[3], 0, 1) * c.DepositScale
		if amount > 0 {
			action.Deposits = []Deposit{{Type: kind, Amount: amount}}
		}
	}
	return action, nil
}

// Encode is the inverse of Decode for hand-written policies: the move and
// deposits become a raw vector in the configured layout.
func (c ActionConfig) Encode(a Action, types int) []float64 {
	raw := make([]float64, c.Width(types))
	raw[0], raw[1] = a.Move.X, a.Move.Y
	if c.Layout == ActionLayoutFlags {
		for _, d := range a.Deposits {
			if d.Type >= 0 && d.Type < types && d.Amount > 0 {
				raw[2+d.Type] = c.FlagThreshold + 1
			}
		}
		return raw
	}
	if d, ok := a.Primary(); ok && c.DepositScale > 0 {
		raw[2] = float64(d.Type)
		raw[3] = geom.Clamp(d.Amount/c.DepositScale, 0, 1)
	}
	return raw
}

func (c ActionConfig) flagAmount(kind int) float64 {
	if kind < len(c.FlagAmounts) {
		return c.FlagAmounts[kind]
	}
	if n := len(c.FlagAmounts); n > 0 {
		return c.FlagAmounts[n-1]
	}
	return 1
}
