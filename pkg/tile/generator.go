package tile

import (
	"fmt"

	apperrors "github.com/matzehuels/strongarm/pkg/errors"
	"github.com/matzehuels/strongarm/pkg/geom"
)

// Port names used by generated tiles.
const (
	PortGate = "g"
	PortBody = "b"
	PortVnb  = "vnb"
	PortVpb  = "vpb"
)

// SDPort returns the name of source/drain stripe i (sd0, sd1, ...).
func SDPort(i int) string { return fmt.Sprintf("sd%d", i) }

// Params identifies a MOS device.
type Params struct {
	Kind    Kind  `json:"kind" toml:"kind" yaml:"kind"`
	Width   int64 `json:"width" toml:"width" yaml:"width"`
	Length  int64 `json:"length" toml:"length" yaml:"length"`
	Fingers int   `json:"fingers" toml:"fingers" yaml:"fingers"`
}

// Validate rejects non-positive dimensions.
func (p Params) Validate() error {
	if p.Kind != Nmos && p.Kind != Pmos {
		return apperrors.Configuration("device kind must be nmos or pmos, got %s", p.Kind)
	}
	if err := apperrors.ValidatePositive("device width", p.Width); err != nil {
		return err
	}
	if err := apperrors.ValidatePositive("device length", p.Length); err != nil {
		return err
	}
	return apperrors.ValidatePositive("finger count", int64(p.Fingers))
}

// Generator builds tiles on a lattice of the given pitch.
//
// Fingers run horizontally: a MOS tile is as wide as nf gates plus nf+1
// diffusion contacts, so tiles with equal length and finger count share a
// width and stack into flush rows. Device width sets the height. Ports are
// horizontal stripes, one lattice row each:
//
//	top row    b
//	...        sd2..sdN
//	row 3      sd1
//	rows 1-2   g
//	row 0      sd0
//
// Every port lives on layer 0 and is inset half a pitch from the tile's
// left and right edges.
type Generator struct {
	Pitch int64
	// DiffExt is the diffusion extension on each side of a gate.
	DiffExt int64
}

// Mos generates a transistor tile.
func (g Generator) Mos(p Params) (*Block, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if g.Pitch <= 0 {
		return nil, apperrors.Configuration("tile pitch must be positive, got %d", g.Pitch)
	}
	nf := int64(p.Fingers)
	w := ceilDiv(nf*p.Length+(nf+1)*2*g.DiffExt, g.Pitch)
	h := max(nf+4, ceilDiv(p.Width+2*g.DiffExt, g.Pitch)+2)
	x := geom.Span{Start: g.Pitch / 2, Stop: w*g.Pitch - g.Pitch/2}

	stripe := func(name string, row0, rows int64) Port {
		return Port{Name: name, Layer: 0, Shape: geom.FromSpans(x, geom.Span{Start: row0 * g.Pitch, Stop: (row0 + rows) * g.Pitch})}
	}
	ports := []Port{stripe(SDPort(0), 0, 1), stripe(PortGate, 1, 2)}
	for i := 1; i <= p.Fingers; i++ {
		ports = append(ports, stripe(SDPort(i), int64(i)+2, 1))
	}
	ports = append(ports, stripe(PortBody, h-1, 1))

	name := fmt.Sprintf("%s_w%d_l%d_nf%d", p.Kind, p.Width, p.Length, p.Fingers)
	return NewBlock(name, p.Kind, geom.FromSize(w, h), ports...), nil
}

// Ptap generates a substrate tap spanning width x height lattice units.
func (g Generator) Ptap(width, height int64) (*Block, error) {
	return g.tap(Ptap, PortVnb, width, height)
}

// Ntap generates an n-well tap spanning width x height lattice units.
func (g Generator) Ntap(width, height int64) (*Block, error) {
	return g.tap(Ntap, PortVpb, width, height)
}

func (g Generator) tap(kind Kind, port string, width, height int64) (*Block, error) {
	if err := apperrors.ValidatePositive(kind.String()+" width", width); err != nil {
		return nil, err
	}
	if err := apperrors.ValidatePositive(kind.String()+" height", height); err != nil {
		return nil, err
	}
	bounds := geom.FromSize(width, height)
	p := Port{Name: port, Layer: 1, Shape: bounds.Scale(g.Pitch)}
	return NewBlock(fmt.Sprintf("%s_%dx%d", kind, width, height), kind, bounds, p), nil
}

func ceilDiv(a, b int64) int64 {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
