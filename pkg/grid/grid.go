// Package grid models the manufacturing lattice shared by every routing layer.
//
// Each [Layer] carries a track pitch. The coarse pitch of a [Grid] is the
// least common multiple of the pitches of layers 0 through the top layer, so
// any rectangle whose corners are multiples of the coarse pitch is legal on
// all of those layers at once. Coordinates expressed in multiples of the
// coarse pitch are called lattice units.
//
// Conversions:
//
//	ExpandToLattice   physical -> lattice, smallest cover (floor/ceil)
//	ShrinkToLattice   physical -> lattice, largest interior (ceil/floor)
//	LatticeToPhysical lattice  -> physical, exact scale
package grid

import (
	"errors"
	"fmt"

	"github.com/matzehuels/strongarm/pkg/geom"
)

// ErrBelowLattice is returned by ShrinkToLattice when the rectangle does not
// contain a single full lattice unit along some axis.
var ErrBelowLattice = errors.New("rectangle smaller than one lattice unit")

// Layer is one routing layer of the process.
type Layer struct {
	Name  string   `json:"name" toml:"name" yaml:"name"`
	Pitch int64    `json:"pitch" toml:"pitch" yaml:"pitch"`
	Dir   geom.Dir `json:"dir" toml:"dir" yaml:"dir"`
}

// Stack is the ordered layer stack, bottom first.
type Stack []Layer

// Layer returns layer i.
func (s Stack) Layer(i int) (Layer, bool) {
	if i < 0 || i >= len(s) {
		return Layer{}, false
	}
	return s[i], true
}

// CoarsePitch returns the least common multiple of the pitches of layers
// 0..top inclusive.
func (s Stack) CoarsePitch(top int) (int64, error) {
	if top < 0 || top >= len(s) {
		return 0, fmt.Errorf("top layer %d outside stack of %d layers", top, len(s))
	}
	p := int64(1)
	for i := 0; i <= top; i++ {
		if s[i].Pitch <= 0 {
			return 0, fmt.Errorf("layer %s: pitch must be positive, got %d", s[i].Name, s[i].Pitch)
		}
		p = lcm(p, s[i].Pitch)
	}
	return p, nil
}

// Grid binds a layer stack to a top layer and caches the coarse pitch.
type Grid struct {
	stack Stack
	top   int
	pitch int64
}

// New returns the lattice for layers 0..top of stack.
func New(stack Stack, top int) (*Grid, error) {
	p, err := stack.CoarsePitch(top)
	if err != nil {
		return nil, err
	}
	return &Grid{stack: stack, top: top, pitch: p}, nil
}

// Pitch returns the coarse pitch in physical units.
func (g *Grid) Pitch() int64 { return g.pitch }

// Top returns the top layer index.
func (g *Grid) Top() int { return g.top }

// Stack returns the underlying layer stack.
func (g *Grid) Stack() Stack { return g.stack }

// ExpandToLattice returns the smallest lattice rectangle whose physical
// extent contains r.
func (g *Grid) ExpandToLattice(r geom.Rect) geom.Rect {
	return geom.Rect{
		Left:   floorDiv(r.Left, g.pitch),
		Bottom: floorDiv(r.Bottom, g.pitch),
		Right:  ceilDiv(r.Right, g.pitch),
		Top:    ceilDiv(r.Top, g.pitch),
	}
}

// ShrinkToLattice returns the largest lattice rectangle whose physical extent
// lies inside r. It fails with ErrBelowLattice if the result would be less
// than one lattice unit wide or tall.
func (g *Grid) ShrinkToLattice(r geom.Rect) (geom.Rect, error) {
	out := geom.Rect{
		Left:   ceilDiv(r.Left, g.pitch),
		Bottom: ceilDiv(r.Bottom, g.pitch),
		Right:  floorDiv(r.Right, g.pitch),
		Top:    floorDiv(r.Top, g.pitch),
	}
	if out.Right-out.Left < 1 || out.Top-out.Bottom < 1 {
		return geom.Rect{}, fmt.Errorf("%w: %s at pitch %d", ErrBelowLattice, r, g.pitch)
	}
	return out, nil
}

// LatticeToPhysical scales a lattice rectangle to physical units.
func (g *Grid) LatticeToPhysical(r geom.Rect) geom.Rect {
	return r.Scale(g.pitch)
}

// Aligned reports whether v is a multiple of the coarse pitch.
func (g *Grid) Aligned(v int64) bool {
	return v%g.pitch == 0
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int64) int64 {
	return a / gcd(a, b) * b
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func ceilDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) == (b < 0)) {
		q++
	}
	return q
}
