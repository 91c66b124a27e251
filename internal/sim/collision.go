package sim

import (
	"math"
	"math/rand"
	"sort"

	"antcolony/internal/geom"
	"antcolony/internal/pheromone"
	"antcolony/internal/world"
)

type Outcome int

const (
	OutcomeMoved Outcome = iota
	OutcomeClamped
	OutcomeBounced
	OutcomeDied
	OutcomePickedUp
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMoved:
		return "moved"
	case OutcomeClamped:
		return "clamped"
	case OutcomeBounced:
		return "bounced"
	case OutcomeDied:
		return "died"
	case OutcomePickedUp:
		return "picked_up"
	default:
		return "unknown"
	}
}

type Resolution struct {
	Outcome   Outcome
	From      geom.Vec2
	To        geom.Vec2
	FoodIndex int
	Deposited *Deposit
}

// CollisionResolver applies one agent's action against the world. It owns no
// roster state; the caller retires agents that die.
type CollisionResolver struct {
	layout *world.Layout
	field  *pheromone.Field
	body   BodyConfig
	rng    *rand.Rand
	maxX   float64
	maxY   float64
}

func NewCollisionResolver(layout *world.Layout, field *pheromone.Field, body BodyConfig, rng *rand.Rand) *CollisionResolver {
	return &CollisionResolver{
		layout: layout,
		field:  field,
		body:   body,
		rng:    rng,
		maxX:   float64(layout.Grid.Width() - 1),
		maxY:   float64(layout.Grid.Height() - 1),
	}
}

// bodyAt is the agent's square body. A position addresses the cell it floors
// to, so the body is centred half a cell in.
func (c *CollisionResolver) bodyAt(pos geom.Vec2) geom.Box {
	return geom.BoxAround(geom.Vec2{X: pos.X + 0.5, Y: pos.Y + 0.5}, c.body.Radius)
}

func (c *CollisionResolver) inBounds(pos geom.Vec2) bool {
	return pos.X >= 0 && pos.X <= c.maxX && pos.Y >= 0 && pos.Y <= c.maxY
}

// Apply moves the agent and resolves bounds, walls, hazards and food in that
// priority, each exclusive. Pheromone goes to the final cell unless the agent
// died.
func (c *CollisionResolver) Apply(a *Agent, action Action) Resolution {
	from := a.Position
	res := Resolution{From: from, FoodIndex: -1}
	proposed := from.Add(action.Move)
	if action.Move != (geom.Vec2{}) {
		a.Heading = action.Move.Unit()
	}

	switch {
	case !c.inBounds(proposed):
		res.Outcome = OutcomeClamped
		proposed = geom.Vec2{X: geom.Clamp(proposed.X, 0, c.maxX), Y: geom.Clamp(proposed.Y, 0, c.maxY)}
		if c.firstOverlap(c.layout.Walls, proposed) >= 0 || c.firstOverlap(c.layout.Hazards, proposed) >= 0 {
			proposed = from
		}
	case c.firstOverlap(c.layout.Walls, proposed) >= 0:
		res.Outcome = OutcomeBounced
		proposed = c.resolveWalls(a, from, proposed)
	}

	// a clamp or a bounce ends resolution for this tick
	if res.Outcome == OutcomeMoved {
		switch {
		case c.firstOverlap(c.layout.Hazards, proposed) >= 0:
			res.Outcome = OutcomeDied
		case !a.CarryingFood:
			if i := c.firstFood(proposed); i >= 0 {
				res.Outcome = OutcomePickedUp
				res.FoodIndex = i
			}
		}
	}

	oldX, oldY := from.Cell()
	c.layout.Grid.Release(oldX, oldY)

	if res.Outcome == OutcomeDied {
		a.Position = proposed
		a.Alive = false
		res.To = proposed
		return res
	}

	if res.Outcome == OutcomePickedUp {
		c.layout.ConsumeFood(res.FoodIndex)
		a.CarryingFood = true
		a.FoodPickedUp++
	}

	a.Position = proposed
	res.To = proposed
	newX, newY := proposed.Cell()
	c.layout.Grid.Occupy(newX, newY)

	for i, d := range action.Deposits {
		c.field.Deposit(newX, newY, d.Type, d.Amount)
		if i == 0 {
			recorded := d
			a.LastDeposit = &recorded
			res.Deposited = &recorded
		}
	}
	return res
}

func (c *CollisionResolver) firstOverlap(rects []world.Rect, pos geom.Vec2) int {
	body := c.bodyAt(pos)
	for i, r := range rects {
		if body.Overlaps(r.Bounds()) {
			return i
		}
	}
	return -1
}

func (c *CollisionResolver) firstFood(pos geom.Vec2) int {
	body := c.bodyAt(pos)
	for i, f := range c.layout.Food {
		if f.Consumed {
			continue
		}
		if body.Overlaps(f.Rect.Bounds()) {
			return i
		}
	}
	return -1
}

type pushAxis int

// Declaration order is the tie-break priority between equal penetrations.
const (
	pushLeft pushAxis = iota
	pushRight
	pushTop
	pushBottom
)

// resolveWalls pushes the agent out of every wall it overlaps along the axis
// of least penetration, reflecting its heading each time. If no in-bounds,
// wall-free spot is reached the agent stays where it started the tick.
func (c *CollisionResolver) resolveWalls(a *Agent, from, pos geom.Vec2) geom.Vec2 {
	for attempt := 0; attempt <= len(c.layout.Walls); attempt++ {
		i := c.firstOverlap(c.layout.Walls, pos)
		if i < 0 {
			return pos
		}
		next, axis, ok := c.pushOut(pos, c.layout.Walls[i].Bounds())
		if !ok {
			return from
		}
		pos = next
		c.reflect(a, axis)
	}
	if c.firstOverlap(c.layout.Walls, pos) >= 0 {
		return from
	}
	return pos
}

func (c *CollisionResolver) pushOut(pos geom.Vec2, wall geom.Box) (geom.Vec2, pushAxis, bool) {
	body := c.bodyAt(pos)
	type candidate struct {
		axis  pushAxis
		depth float64
	}
	candidates := []candidate{
		{pushLeft, body.Right - wall.Left},
		{pushRight, wall.Right - body.Left},
		{pushTop, body.Bottom - wall.Top},
		{pushBottom, wall.Bottom - body.Top},
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].depth < candidates[j].depth
	})

	offset := 0.5 + c.body.Radius
	for _, cand := range candidates {
		next := pos
		switch cand.axis {
		case pushLeft:
			next.X = c.settle(wall.Left-offset, -1, func(x float64) bool { return x+offset > wall.Left })
		case pushRight:
			next.X = c.settle(wall.Right-0.5+c.body.Radius, 1, func(x float64) bool { return x+0.5-c.body.Radius < wall.Right })
		case pushTop:
			next.Y = c.settle(wall.Top-offset, -1, func(y float64) bool { return y+offset > wall.Top })
		case pushBottom:
			next.Y = c.settle(wall.Bottom-0.5+c.body.Radius, 1, func(y float64) bool { return y+0.5-c.body.Radius < wall.Bottom })
		}
		if c.inBounds(next) {
			return next, cand.axis, true
		}
	}
	return pos, pushLeft, false
}

// settle nudges v away from the wall edge until the body edge no longer
// overlaps it under floating point rounding.
func (c *CollisionResolver) settle(v float64, dir float64, overlaps func(float64) bool) float64 {
	for n := 0; n < 8 && overlaps(v); n++ {
		v = math.Nextafter(v, dir*math.Inf(1))
	}
	return v
}

func (c *CollisionResolver) reflect(a *Agent, axis pushAxis) {
	h := a.Heading
	switch axis {
	case pushLeft, pushRight:
		h.X = -h.X
	default:
		h.Y = -h.Y
	}
	if j := c.body.WallJitter; j > 0 {
		h.X += (c.rng.Float64()*2 - 1) * j
		h.Y += (c.rng.Float64()*2 - 1) * j
	}
	a.Heading = h.Unit()
}
