// Package track reserves top-layer routing rows for a cell's signals.
//
// A [Plan] lists track sources in signal order. Each source names a placed
// instance port; the port shape is converted to the lattice (shrunk or
// expanded) and its bottom row seeds one or two consecutive tracks. Tracks
// must come out strictly increasing, so no two signals ever share a row.
//
// For every track the assignment produces a grid point (a lattice rectangle
// spanning the cell's horizontal extent at the track row, registered with the
// router) and a physical port shape on the track layer.
package track

import (
	"fmt"
	"strings"

	apperrors "github.com/matzehuels/strongarm/pkg/errors"
	"github.com/matzehuels/strongarm/pkg/geom"
	"github.com/matzehuels/strongarm/pkg/grid"
	"github.com/matzehuels/strongarm/pkg/place"
	"github.com/matzehuels/strongarm/pkg/tile"
)

// Mode selects how a source port is snapped to the lattice.
type Mode int

const (
	// Shrink takes the largest lattice rectangle inside the port.
	Shrink Mode = iota
	// Expand takes the smallest lattice rectangle covering the port.
	Expand
)

func (m Mode) String() string {
	if m == Expand {
		return "expand"
	}
	return "shrink"
}

// Source derives Count consecutive tracks from one instance port.
type Source struct {
	Instance string `json:"instance"`
	Port     string `json:"port"`
	Mode     Mode   `json:"mode"`
	Count    int    `json:"count"`
}

// Plan pairs track sources with the signals that consume them in order.
type Plan struct {
	Sources []Source `json:"sources"`
	Signals []string `json:"signals"`
}

// Validate checks the plan's structure: source counts, signal names, and
// that sources supply exactly as many tracks as there are signals.
func (p Plan) Validate() error {
	n := 0
	for k, s := range p.Sources {
		if s.Count != 1 && s.Count != 2 {
			return apperrors.Configuration("track source %d (%s.%s): count must be 1 or 2, got %d", k, s.Instance, s.Port, s.Count)
		}
		n += s.Count
	}
	if n != len(p.Signals) {
		return apperrors.Configuration("track sources supply %d tracks for %d signals", n, len(p.Signals))
	}
	seen := make(map[string]bool, len(p.Signals))
	for _, sig := range p.Signals {
		if err := apperrors.ValidateName(sig); err != nil {
			return apperrors.Wrap(apperrors.ErrCodeConfiguration, err, "signal")
		}
		if seen[sig] {
			return apperrors.Configuration("duplicate signal %s", sig)
		}
		seen[sig] = true
	}
	return nil
}

// Defaults for Config.
const (
	DefaultLayer     = 1
	DefaultClearance = 130
	DefaultOffset    = 130
)

// Config holds the process constants used to draw track ports.
type Config struct {
	// Layer is the routing layer tracks live on.
	Layer int `json:"layer" toml:"layer" yaml:"layer"`
	// Clearance is added above and below the grid point row.
	Clearance int64 `json:"clearance" toml:"clearance" yaml:"clearance"`
	// Offset shifts the port shape upward after expansion.
	Offset int64 `json:"offset" toml:"offset" yaml:"offset"`
}

// DefaultConfig returns the built-in track constants.
func DefaultConfig() Config {
	return Config{Layer: DefaultLayer, Clearance: DefaultClearance, Offset: DefaultOffset}
}

// Track is one reserved row.
type Track struct {
	Signal    string    `json:"signal"`
	Row       int64     `json:"row"`
	GridPoint geom.Rect `json:"grid_point"`
	Port      tile.Port `json:"port"`
}

// Assignment is the ordered result of Assign.
type Assignment struct {
	tracks []Track
	index  map[string]int
}

// Assign computes one track per signal. Every check runs before any port
// shape is produced; an error yields no assignment.
func Assign(pl *place.Placement, g *grid.Grid, plan Plan, cfg Config) (*Assignment, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if _, ok := g.Stack().Layer(cfg.Layer); !ok {
		return nil, apperrors.Configuration("track layer %d not in stack", cfg.Layer)
	}

	rows := make([]int64, 0, len(plan.Signals))
	for _, s := range plan.Sources {
		bot, err := sourceRow(pl, g, s)
		if err != nil {
			return nil, err
		}
		for k := 0; k < s.Count; k++ {
			rows = append(rows, bot+int64(k))
		}
	}
	for k := 1; k < len(rows); k++ {
		if rows[k] <= rows[k-1] {
			return nil, apperrors.Configuration("track %s (row %d) not above track %s (row %d)",
				plan.Signals[k], rows[k], plan.Signals[k-1], rows[k-1])
		}
	}

	a := &Assignment{
		tracks: make([]Track, len(rows)),
		index:  make(map[string]int, len(rows)),
	}
	hspan := pl.HSpan()
	for k, row := range rows {
		gp := geom.FromSpans(hspan, geom.SpanFromPoint(row))
		shape := g.LatticeToPhysical(gp).
			ExpandDir(geom.Vert, cfg.Clearance).
			Translate(geom.Point{Y: cfg.Offset})
		sig := plan.Signals[k]
		a.tracks[k] = Track{
			Signal:    sig,
			Row:       row,
			GridPoint: gp,
			Port:      tile.Port{Name: sig, Layer: cfg.Layer, Shape: shape},
		}
		a.index[sig] = k
	}
	return a, nil
}

func sourceRow(pl *place.Placement, g *grid.Grid, s Source) (int64, error) {
	p, err := pl.Port(s.Instance, s.Port)
	if err != nil {
		return 0, err
	}
	switch s.Mode {
	case Shrink:
		r, err := g.ShrinkToLattice(p.Shape)
		if err != nil {
			return 0, apperrors.Wrap(apperrors.ErrCodeLattice, err, "track source %s.%s", s.Instance, s.Port)
		}
		return r.Bottom, nil
	case Expand:
		return g.ExpandToLattice(p.Shape).Bottom, nil
	}
	return 0, apperrors.Configuration("track source %s.%s: unknown mode %d", s.Instance, s.Port, int(s.Mode))
}

// Tracks returns the tracks in signal order.
func (a *Assignment) Tracks() []Track { return append([]Track(nil), a.tracks...) }

// Track returns the track of one signal.
func (a *Assignment) Track(signal string) (Track, bool) {
	k, ok := a.index[signal]
	if !ok {
		return Track{}, false
	}
	return a.tracks[k], true
}

// Ports returns the physical port shape of every track in signal order.
func (a *Assignment) Ports() []tile.Port {
	out := make([]tile.Port, len(a.tracks))
	for k, t := range a.tracks {
		out[k] = t.Port
	}
	return out
}

// GridPoints returns the router registration: signal to lattice corridors.
func (a *Assignment) GridPoints() map[string][]geom.Rect {
	out := make(map[string][]geom.Rect, len(a.tracks))
	for _, t := range a.tracks {
		out[t.Signal] = append(out[t.Signal], t.GridPoint)
	}
	return out
}

func (a *Assignment) String() string {
	parts := make([]string, len(a.tracks))
	for k, t := range a.tracks {
		parts[k] = fmt.Sprintf("%s@%d", t.Signal, t.Row)
	}
	return strings.Join(parts, " ")
}
