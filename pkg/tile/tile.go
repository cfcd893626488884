// Package tile defines the placeable leaf units of a layout.
//
// A [Tile] has a lattice bounding box in local coordinates (lower-left at the
// origin) and a fixed set of named ports, each a physical rectangle on one
// layer. The placement engine treats tiles as opaque; only [Tile.Bounds] and
// the port set are observed.
package tile

import (
	"fmt"
	"sort"

	"github.com/matzehuels/strongarm/pkg/geom"
)

// Kind identifies the device class of a tile.
type Kind int

const (
	Nmos Kind = iota
	Pmos
	Ptap
	Ntap
)

var kindNames = [...]string{"nmos", "pmos", "ptap", "ntap"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	for i, n := range kindNames {
		if n == string(b) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown tile kind %q", b)
}

// IsTap reports whether k is a well or substrate tap.
func (k Kind) IsTap() bool { return k == Ptap || k == Ntap }

// Port is a named terminal shape.
type Port struct {
	Name  string    `json:"name"`
	Layer int       `json:"layer"`
	Shape geom.Rect `json:"shape"`
}

// Tile is a placeable unit with a lattice footprint and named ports.
type Tile interface {
	Name() string
	Kind() Kind
	// Bounds is the footprint in lattice units with its lower-left corner at
	// the origin.
	Bounds() geom.Rect
	// Ports returns the ports in a stable order. Shapes are physical and local.
	Ports() []Port
	Port(name string) (Port, bool)
}

// Block is the concrete Tile produced by a Generator. It is also handy for
// building fixture tiles in tests.
type Block struct {
	name   string
	kind   Kind
	bounds geom.Rect
	ports  []Port
	index  map[string]int
}

// NewBlock returns a tile with the given footprint and ports. Ports are kept
// sorted by name.
func NewBlock(name string, kind Kind, bounds geom.Rect, ports ...Port) *Block {
	ps := append([]Port(nil), ports...)
	sort.Slice(ps, func(i, j int) bool { return ps[i].Name < ps[j].Name })
	idx := make(map[string]int, len(ps))
	for i, p := range ps {
		idx[p.Name] = i
	}
	return &Block{name: name, kind: kind, bounds: bounds, ports: ps, index: idx}
}

func (b *Block) Name() string      { return b.name }
func (b *Block) Kind() Kind        { return b.kind }
func (b *Block) Bounds() geom.Rect { return b.bounds }

func (b *Block) Ports() []Port {
	return append([]Port(nil), b.ports...)
}

func (b *Block) Port(name string) (Port, bool) {
	i, ok := b.index[name]
	if !ok {
		return Port{}, false
	}
	return b.ports[i], true
}
