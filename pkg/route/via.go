package route

import (
	"fmt"

	"github.com/matzehuels/strongarm/pkg/geom"
)

// Via connects two adjacent layers at a point.
type Via struct {
	Net   string     `json:"net"`
	Below int        `json:"below"`
	Above int        `json:"above"`
	At    geom.Point `json:"at"`
	Cut   geom.Rect  `json:"cut"`
	// Enclosures on the lower and upper metal.
	BelowEnc geom.Rect `json:"below_enc"`
	AboveEnc geom.Rect `json:"above_enc"`
}

// ViaMaker synthesizes via geometry.
type ViaMaker interface {
	MakeVia(below, above int, at geom.Point) (Via, error)
}

// Default via dimensions.
const (
	DefaultCutSize   = 170
	DefaultEnclosure = 60
)

// StdViaMaker produces a square cut with uniform metal enclosure.
type StdViaMaker struct {
	CutSize   int64
	Enclosure int64
}

// NewStdViaMaker returns a via maker with default dimensions.
func NewStdViaMaker() StdViaMaker {
	return StdViaMaker{CutSize: DefaultCutSize, Enclosure: DefaultEnclosure}
}

// MakeVia returns a via centered on at. Layers must be adjacent.
func (m StdViaMaker) MakeVia(below, above int, at geom.Point) (Via, error) {
	if below < 0 || above != below+1 {
		return Via{}, fmt.Errorf("via %d->%d: layers must be adjacent", below, above)
	}
	if m.CutSize <= 0 {
		return Via{}, fmt.Errorf("via cut size must be positive, got %d", m.CutSize)
	}
	half := m.CutSize / 2
	cut := geom.Rect{Left: at.X - half, Bottom: at.Y - half, Right: at.X - half + m.CutSize, Top: at.Y - half + m.CutSize}
	enc := cut.Expand(m.Enclosure)
	return Via{Below: below, Above: above, At: at, Cut: cut, BelowEnc: enc, AboveEnc: enc}, nil
}
