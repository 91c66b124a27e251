package world

import (
	"fmt"

	"antcolony/internal/geom"
)

type Tag uint8

const (
	TagEmpty Tag = iota
	TagWall
	TagFood
	TagHazard
	TagAgent
)

func (t Tag) String() string {
	switch t {
	case TagEmpty:
		return "empty"
	case TagWall:
		return "wall"
	case TagFood:
		return "food"
	case TagHazard:
		return "hazard"
	case TagAgent:
		return "agent"
	default:
		return fmt.Sprintf("tag(%d)", uint8(t))
	}
}

// Symbol is the single-character map glyph for the tag.
func (t Tag) Symbol() byte {
	switch t {
	case TagWall:
		return '#'
	case TagFood:
		return 'F'
	case TagHazard:
		return 'H'
	case TagAgent:
		return 'A'
	default:
		return '.'
	}
}

// Rect is an axis-aligned rectangle in cell units covering
// [X, X+W) x [Y, Y+H).
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

func (r Rect) Area() int {
	if r.Empty() {
		return 0
	}
	return r.W * r.H
}

func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

func (r Rect) Bounds() geom.Box {
	return geom.Box{
		Left:   float64(r.X),
		Top:    float64(r.Y),
		Right:  float64(r.X + r.W),
		Bottom: float64(r.Y + r.H),
	}
}

// Grid is the occupancy model: a static tag layer stamped once at generation,
// a transient per-cell agent counter, and the reservation set used while
// placing static regions.
type Grid struct {
	width    int
	height   int
	static   []Tag
	agents   []int
	reserved []bool
}

func NewGrid(width, height int) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: grid %dx%d", ErrInvalidConfiguration, width, height)
	}
	n := width * height
	return &Grid{
		width:    width,
		height:   height,
		static:   make([]Tag, n),
		agents:   make([]int, n),
		reserved: make([]bool, n),
	}, nil
}

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }

func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}

func (g *Grid) inside(r Rect) bool {
	return !r.Empty() && r.X >= 0 && r.Y >= 0 && r.X+r.W <= g.width && r.Y+r.H <= g.height
}

func (g *Grid) index(x, y int) int {
	return y*g.width + x
}

// Reserve claims every cell of r. It fails without mutating anything when r
// leaves the grid or any cell is already reserved or non-empty.
func (g *Grid) Reserve(r Rect) bool {
	if !g.IsFree(r) {
		return false
	}
	for y := r.Y; y < r.Y+r.H; y++ {
		for x := r.X; x < r.X+r.W; x++ {
			g.reserved[g.index(x, y)] = true
		}
	}
	return true
}

// IsFree reports whether r is inside the grid and every cell is unreserved
// and empty. Cells freed by food pickup stay reserved and never become free.
func (g *Grid) IsFree(r Rect) bool {
	if !g.inside(r) {
		return false
	}
	for y := r.Y; y < r.Y+r.H; y++ {
		for x := r.X; x < r.X+r.W; x++ {
			i := g.index(x, y)
			if g.reserved[i] || g.static[i] != TagEmpty || g.agents[i] > 0 {
				return false
			}
		}
	}
	return true
}

// Stamp marks all cells of a previously reserved region with tag.
func (g *Grid) Stamp(r Rect, tag Tag) {
	if !g.inside(r) {
		panic(fmt.Sprintf("world: stamp %+v outside %dx%d grid", r, g.width, g.height))
	}
	if tag == TagAgent {
		panic("world: agent tags are transient and cannot be stamped")
	}
	for y := r.Y; y < r.Y+r.H; y++ {
		for x := r.X; x < r.X+r.W; x++ {
			i := g.index(x, y)
			if !g.reserved[i] {
				panic(fmt.Sprintf("world: stamp %s on unreserved cell (%d,%d)", tag, x, y))
			}
			g.static[i] = tag
		}
	}
}

// Clear resets the cells of r that hold tag back to empty. The reservation is
// kept.
func (g *Grid) Clear(r Rect, tag Tag) {
	if !g.inside(r) {
		panic(fmt.Sprintf("world: clear %+v outside %dx%d grid", r, g.width, g.height))
	}
	for y := r.Y; y < r.Y+r.H; y++ {
		for x := r.X; x < r.X+r.W; x++ {
			i := g.index(x, y)
			if g.static[i] != tag {
				panic(fmt.Sprintf("world: clear %s at (%d,%d) holding %s", tag, x, y, g.static[i]))
			}
			g.static[i] = TagEmpty
		}
	}
}

// At returns the tag visible at a cell. Static tags win over agents and
// anything outside the grid reads as wall.
func (g *Grid) At(x, y int) Tag {
	if !g.InBounds(x, y) {
		return TagWall
	}
	i := g.index(x, y)
	if g.static[i] != TagEmpty {
		return g.static[i]
	}
	if g.agents[i] > 0 {
		return TagAgent
	}
	return TagEmpty
}

func (g *Grid) Reserved(x, y int) bool {
	return g.InBounds(x, y) && g.reserved[g.index(x, y)]
}

func (g *Grid) Occupy(x, y int) {
	if !g.InBounds(x, y) {
		return
	}
	g.agents[g.index(x, y)]++
}

func (g *Grid) Release(x, y int) {
	if !g.InBounds(x, y) {
		return
	}
	i := g.index(x, y)
	if g.agents[i] <= 0 {
		panic(fmt.Sprintf("world: release of unoccupied cell (%d,%d)", x, y))
	}
	g.agents[i]--
}

func (g *Grid) Occupants(x, y int) int {
	if !g.InBounds(x, y) {
		return 0
	}
	return g.agents[g.index(x, y)]
}

// StaticLayer returns a read-only copy of the static tag layer.
func (g *Grid) StaticLayer() StaticLayer {
	return StaticLayer{
		width:  g.width,
		height: g.height,
		tags:   append([]Tag(nil), g.static...),
	}
}

// StaticLayer is an immutable copy of the static tags, safe to share between
// goroutines.
type StaticLayer struct {
	width  int
	height int
	tags   []Tag
}

func (s StaticLayer) Width() int  { return s.width }
func (s StaticLayer) Height() int { return s.height }

func (s StaticLayer) At(x, y int) Tag {
	if x < 0 || x >= s.width || y < 0 || y >= s.height {
		return TagWall
	}
	return s.tags[y*s.width+x]
}

// Render draws the grid as rows of map glyphs.
func (g *Grid) Render() []string {
	rows := make([]string, 0, g.height)
	line := make([]byte, g.width)
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			line[x] = g.At(x, y).Symbol()
		}
		rows = append(rows, string(line))
	}
	return rows
}
