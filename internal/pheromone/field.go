package pheromone

import (
	"errors"
	"fmt"
)

const DefaultDecay = 0.95

var ErrInvalidField = errors.New("invalid pheromone field")

// Field is a dense width x height x types array of non-negative trail
// intensities, stored row-major as [y][x][type].
type Field struct {
	width  int
	height int
	types  int
	decay  float64
	values []float64
}

func New(width, height, types int, decay float64) (*Field, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: size %dx%d", ErrInvalidField, width, height)
	}
	if types <= 0 {
		return nil, fmt.Errorf("%w: %d types", ErrInvalidField, types)
	}
	if !(decay > 0 && decay < 1) {
		return nil, fmt.Errorf("%w: decay %v outside (0,1)", ErrInvalidField, decay)
	}
	return &Field{
		width:  width,
		height: height,
		types:  types,
		decay:  decay,
		values: make([]float64, width*height*types),
	}, nil
}

func (f *Field) Width() int     { return f.width }
func (f *Field) Height() int    { return f.height }
func (f *Field) Types() int     { return f.types }
func (f *Field) Decay() float64 { return f.decay }

func (f *Field) index(x, y, kind int) int {
	return (y*f.width+x)*f.types + kind
}

func (f *Field) valid(x, y, kind int) bool {
	return x >= 0 && x < f.width && y >= 0 && y < f.height && kind >= 0 && kind < f.types
}

// Deposit adds amount at (x, y). Out-of-bounds coordinates and unknown types
// are ignored. There is no upper bound on the stored intensity.
func (f *Field) Deposit(x, y, kind int, amount float64) {
	if !f.valid(x, y, kind) || !(amount > 0) {
		return
	}
	f.values[f.index(x, y, kind)] += amount
}

// Evaporate applies one tick of geometric decay to every cell and type.
func (f *Field) Evaporate() {
	for i := range f.values {
		f.values[i] *= f.decay
	}
}

func (f *Field) At(x, y, kind int) float64 {
	if !f.valid(x, y, kind) {
		return 0
	}
	return f.values[f.index(x, y, kind)]
}

// SampleWindow sums one type over the square window of the given radius
// around (x, y), clipped to the field.
func (f *Field) SampleWindow(x, y, radius, kind int) float64 {
	if kind < 0 || kind >= f.types {
		return 0
	}
	x0, x1, y0, y1, ok := f.window(x, y, radius)
	if !ok {
		return 0
	}
	total := 0.0
	for cy := y0; cy <= y1; cy++ {
		for cx := x0; cx <= x1; cx++ {
			total += f.values[f.index(cx, cy, kind)]
		}
	}
	return total
}

// SampleAll returns the window sum for every type in one pass.
func (f *Field) SampleAll(x, y, radius int) []float64 {
	out := make([]float64, f.types)
	x0, x1, y0, y1, ok := f.window(x, y, radius)
	if !ok {
		return out
	}
	for cy := y0; cy <= y1; cy++ {
		for cx := x0; cx <= x1; cx++ {
			base := f.index(cx, cy, 0)
			for k := 0; k < f.types; k++ {
				out[k] += f.values[base+k]
			}
		}
	}
	return out
}

func (f *Field) window(x, y, radius int) (x0, x1, y0, y1 int, ok bool) {
	if radius < 0 {
		radius = 0
	}
	x0 = max(0, x-radius)
	x1 = min(f.width-1, x+radius)
	y0 = max(0, y-radius)
	y1 = min(f.height-1, y+radius)
	return x0, x1, y0, y1, x0 <= x1 && y0 <= y1
}

func (f *Field) Total(kind int) float64 {
	if kind < 0 || kind >= f.types {
		return 0
	}
	total := 0.0
	for i := kind; i < len(f.values); i += f.types {
		total += f.values[i]
	}
	return total
}

func (f *Field) Clone() *Field {
	out := *f
	out.values = append([]float64(nil), f.values...)
	return &out
}

// Equal reports whether two fields have the same shape and identical values.
func (f *Field) Equal(o *Field) bool {
	if f.width != o.width || f.height != o.height || f.types != o.types || len(f.values) != len(o.values) {
		return false
	}
	for i := range f.values {
		if f.values[i] != o.values[i] {
			return false
		}
	}
	return true
}
