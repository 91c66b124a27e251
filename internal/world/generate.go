package world

import (
	"fmt"
	"math/rand"

	"antcolony/internal/geom"
)

const DefaultMaxPlacementAttempts = 1000

type GenerationConfig struct {
	Width                int `json:"width"`
	Height               int `json:"height"`
	Walls                int `json:"walls"`
	Hazards              int `json:"hazards"`
	Food                 int `json:"food"`
	FoodSize             int `json:"food_size"`
	SafeZoneRadius       int `json:"safe_zone_radius"`
	MaxPlacementAttempts int `json:"max_placement_attempts"`
}

func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Width:                50,
		Height:               50,
		Walls:                4,
		Hazards:              2,
		Food:                 12,
		FoodSize:             1,
		SafeZoneRadius:       2,
		MaxPlacementAttempts: DefaultMaxPlacementAttempts,
	}
}

type FoodRegion struct {
	ID       string `json:"id"`
	Rect     Rect   `json:"rect"`
	Consumed bool   `json:"consumed"`
}

// Layout is a generated world: the occupancy grid plus the static regions
// stamped into it.
type Layout struct {
	Grid     *Grid
	Origin   geom.Vec2
	SafeZone Rect
	Walls    []Rect
	Hazards  []Rect
	Food     []FoodRegion
}

// Validate checks that the requested regions can fit at all before any random
// placement is attempted.
func (c GenerationConfig) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: grid %dx%d", ErrInvalidConfiguration, c.Width, c.Height)
	}
	if c.Walls < 0 || c.Hazards < 0 || c.Food < 0 {
		return fmt.Errorf("%w: negative region count walls=%d hazards=%d food=%d", ErrInvalidConfiguration, c.Walls, c.Hazards, c.Food)
	}
	if c.SafeZoneRadius < 0 {
		return fmt.Errorf("%w: safe zone radius %d", ErrInvalidConfiguration, c.SafeZoneRadius)
	}
	if c.Food > 0 && (c.FoodSize <= 0 || c.FoodSize > c.Width || c.FoodSize > c.Height) {
		return fmt.Errorf("%w: food size %d on %dx%d grid", ErrInvalidConfiguration, c.FoodSize, c.Width, c.Height)
	}
	required := c.safeZone().Area() + c.Walls + c.Hazards + c.Food*c.FoodSize*c.FoodSize
	if available := c.Width * c.Height; required > available {
		return fmt.Errorf("%w: reserved area %d exceeds grid area %d", ErrInvalidConfiguration, required, available)
	}
	return nil
}

// Origin is the colony cell, the grid center.
func (c GenerationConfig) Origin() (int, int) {
	return c.Width / 2, c.Height / 2
}

func (c GenerationConfig) safeZone() Rect {
	ox, oy := c.Origin()
	x0 := geom.Clamp(ox-c.SafeZoneRadius, 0, c.Width-1)
	y0 := geom.Clamp(oy-c.SafeZoneRadius, 0, c.Height-1)
	x1 := geom.Clamp(ox+c.SafeZoneRadius, 0, c.Width-1)
	y1 := geom.Clamp(oy+c.SafeZoneRadius, 0, c.Height-1)
	return Rect{X: x0, Y: y0, W: x1 - x0 + 1, H: y1 - y0 + 1}
}

// Generate builds a world layout. Placement is drawn from rng only, so equal
// seeds give equal layouts.
func Generate(cfg GenerationConfig, rng *rand.Rand) (*Layout, error) {
	if cfg.MaxPlacementAttempts <= 0 {
		cfg.MaxPlacementAttempts = DefaultMaxPlacementAttempts
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	grid, err := NewGrid(cfg.Width, cfg.Height)
	if err != nil {
		return nil, err
	}

	ox, oy := cfg.Origin()
	layout := &Layout{
		Grid:     grid,
		Origin:   geom.Vec2{X: float64(ox), Y: float64(oy)},
		SafeZone: cfg.safeZone(),
	}
	if !grid.Reserve(layout.SafeZone) {
		panic(fmt.Sprintf("world: safe zone %+v not reservable on fresh grid", layout.SafeZone))
	}

	for i := 0; i < cfg.Walls; i++ {
		r, err := place(grid, cfg.MaxPlacementAttempts, func() Rect {
			w := 1 + rng.Intn(max(1, cfg.Width/4))
			h := 1 + rng.Intn(max(1, cfg.Height/4))
			return randomRect(rng, 0, 0, cfg.Width, cfg.Height, w, h)
		})
		if err != nil {
			return nil, fmt.Errorf("place wall %d: %w", i, err)
		}
		grid.Stamp(r, TagWall)
		layout.Walls = append(layout.Walls, r)
	}

	for i := 0; i < cfg.Hazards; i++ {
		r, err := place(grid, cfg.MaxPlacementAttempts, func() Rect {
			side := 1 + rng.Intn(max(1, cfg.Width/10))
			side = min(side, cfg.Width, cfg.Height)
			return randomRect(rng, 0, 0, cfg.Width, cfg.Height, side, side)
		})
		if err != nil {
			return nil, fmt.Errorf("place hazard %d: %w", i, err)
		}
		grid.Stamp(r, TagHazard)
		layout.Hazards = append(layout.Hazards, r)
	}

	if cfg.Food > 0 {
		zone := foodZone(cfg, rng)
		for i := 0; i < cfg.Food; i++ {
			r, err := place(grid, cfg.MaxPlacementAttempts, func() Rect {
				return randomRect(rng, zone.X, zone.Y, zone.W, zone.H, cfg.FoodSize, cfg.FoodSize)
			})
			if err != nil {
				return nil, fmt.Errorf("place food %d in zone %+v: %w", i, zone, err)
			}
			grid.Stamp(r, TagFood)
			layout.Food = append(layout.Food, FoodRegion{ID: fmt.Sprintf("food-%d", i), Rect: r})
		}
	}

	return layout, nil
}

// foodZone picks the restricted sub-area (20-50% of each axis) food spawns in.
func foodZone(cfg GenerationConfig, rng *rand.Rand) Rect {
	w := spanBetween(rng, cfg.Width, cfg.FoodSize)
	h := spanBetween(rng, cfg.Height, cfg.FoodSize)
	return Rect{
		X: rng.Intn(cfg.Width - w + 1),
		Y: rng.Intn(cfg.Height - h + 1),
		W: w,
		H: h,
	}
}

func spanBetween(rng *rand.Rand, dim, minSpan int) int {
	lo := max(minSpan, dim/5, 1)
	hi := max(lo, dim/2)
	hi = min(hi, dim)
	lo = min(lo, hi)
	return lo + rng.Intn(hi-lo+1)
}

func randomRect(rng *rand.Rand, zx, zy, zw, zh, w, h int) Rect {
	w = min(w, zw)
	h = min(h, zh)
	return Rect{
		X: zx + rng.Intn(zw-w+1),
		Y: zy + rng.Intn(zh-h+1),
		W: w,
		H: h,
	}
}

func place(grid *Grid, attempts int, sample func() Rect) (Rect, error) {
	for attempt := 0; attempt < attempts; attempt++ {
		r := sample()
		if grid.Reserve(r) {
			return r, nil
		}
	}
	return Rect{}, fmt.Errorf("%w after %d attempts", ErrWorldGenerationExhausted, attempts)
}

// ConsumeFood removes an unconsumed food region from the world and clears
// its cells.
func (l *Layout) ConsumeFood(i int) {
	if i < 0 || i >= len(l.Food) {
		panic(fmt.Sprintf("world: food index %d out of range", i))
	}
	if l.Food[i].Consumed {
		panic(fmt.Sprintf("world: food %s consumed twice", l.Food[i].ID))
	}
	l.Food[i].Consumed = true
	l.Grid.Clear(l.Food[i].Rect, TagFood)
}

func (l *Layout) RemainingFood() int {
	n := 0
	for _, f := range l.Food {
		if !f.Consumed {
			n++
		}
	}
	return n
}
