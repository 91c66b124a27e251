package sim

import (
	"math"
	"sort"

	"antcolony/internal/geom"
	"antcolony/internal/pheromone"
	"antcolony/internal/world"
)

// Snapshot is the immutable view every observation in a tick is built from.
// Entry i describes Handles[i]; entries are in roster order.
type Snapshot struct {
	Tick       int
	Handles    []Handle
	IDs        []string
	Positions  []geom.Vec2
	Carrying   []bool
	Static     world.StaticLayer
	Origin     geom.Vec2
	ColonyFood int
}

func (s *Snapshot) Len() int {
	return len(s.Handles)
}

type ObservationBuilder struct {
	cfg   PerceptionConfig
	types int
}

func NewObservationBuilder(cfg PerceptionConfig, types int) ObservationBuilder {
	return ObservationBuilder{cfg: cfg, types: types}
}

// Size is the observation length, fixed for a configuration.
func (b ObservationBuilder) Size() int {
	n := 3 + b.types + 2*b.cfg.Neighbors
	if b.cfg.ColonyDistance {
		n++
	}
	if b.cfg.FoodDirection {
		n += 2
	}
	return n
}

// FoodDirectionOffset is the index of the food direction pair in an
// observation, when the feature is enabled.
func (b ObservationBuilder) FoodDirectionOffset() (int, bool) {
	if !b.cfg.FoodDirection {
		return 0, false
	}
	n := 3 + b.types + 2*b.cfg.Neighbors
	if b.cfg.ColonyDistance {
		n++
	}
	return n, true
}

// Build assembles the observation for snapshot entry i. It only reads from
// its arguments.
func (b ObservationBuilder) Build(s *Snapshot, i int, field *pheromone.Field) []float64 {
	pos := s.Positions[i]
	cx, cy := pos.Cell()

	out := make([]float64, 0, b.Size())
	out = append(out, pos.X, pos.Y)
	if s.Carrying[i] {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	out = append(out, field.SampleAll(cx, cy, b.cfg.Radius)...)

	if k := b.cfg.Neighbors; k > 0 {
		for _, n := range nearestNeighbors(s, i, k) {
			out = append(out, n.X, n.Y)
		}
	}
	if b.cfg.ColonyDistance {
		out = append(out, geom.Dist(pos, s.Origin))
	}
	if b.cfg.FoodDirection {
		dir := nearestFoodDirection(s.Static, pos, b.cfg.FoodSearchRadius)
		out = append(out, dir.X, dir.Y)
	}
	return out
}

// nearestNeighbors returns exactly k positions of other agents, nearest
// first with roster order breaking ties, zero-filled when fewer exist.
func nearestNeighbors(s *Snapshot, self, k int) []geom.Vec2 {
	type candidate struct {
		order int
		dist  float64
	}
	candidates := make([]candidate, 0, s.Len()-1)
	for j := 0; j < s.Len(); j++ {
		if j == self {
			continue
		}
		candidates = append(candidates, candidate{order: j, dist: geom.Dist(s.Positions[self], s.Positions[j])})
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].dist < candidates[b].dist
	})

	out := make([]geom.Vec2, k)
	for n := 0; n < k && n < len(candidates); n++ {
		out[n] = s.Positions[candidates[n].order]
	}
	return out
}

// nearestFoodDirection scans the square window around the agent in row-major
// order and returns the unit vector toward the closest food cell within
// radius. The first match wins on equal distance.
func nearestFoodDirection(static world.StaticLayer, pos geom.Vec2, radius int) geom.Vec2 {
	cx, cy := pos.Cell()
	best := math.Inf(1)
	var target geom.Vec2
	found := false
	for y := max(0, cy-radius); y <= min(static.Height()-1, cy+radius); y++ {
		for x := max(0, cx-radius); x <= min(static.Width()-1, cx+radius); x++ {
			if static.At(x, y) != world.TagFood {
				continue
			}
			cell := geom.Vec2{X: float64(x), Y: float64(y)}
			d := geom.Dist(pos, cell)
			if d > float64(radius) || d >= best {
				continue
			}
			best = d
			target = cell
			found = true
		}
	}
	if !found {
		return geom.Vec2{}
	}
	return target.Sub(pos).Unit()
}
