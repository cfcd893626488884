// Package route defines the routing and via services consumed by the layout
// pipeline, plus a default greedy maze router.
//
// The pipeline hands a [Router] one batch [Request]: the lattice, every net's
// terminals, and the track corridors (grid points) reserved by track
// assignment. The router returns a [Mesh] of wires and vias or fails with a
// ROUTING error; there is no partial result.
package route

import (
	"context"
	"errors"
	"sort"

	"github.com/matzehuels/strongarm/pkg/geom"
	"github.com/matzehuels/strongarm/pkg/grid"
)

// ErrUnreachable is returned when a terminal cannot be connected to its net.
var ErrUnreachable = errors.New("terminal unreachable")

// Terminal is a pin shape in physical coordinates.
type Terminal struct {
	// Owner identifies the pin, e.g. "tail_0.g".
	Owner string    `json:"owner"`
	Layer int       `json:"layer"`
	Shape geom.Rect `json:"shape"`
}

// Net is a named set of terminals to be connected.
type Net struct {
	Name      string     `json:"name"`
	Terminals []Terminal `json:"terminals"`
}

// Obstacle blocks lattice nodes on one layer.
type Obstacle struct {
	Layer int       `json:"layer"`
	Rect  geom.Rect `json:"rect"`
}

// Request is a one-shot routing job.
type Request struct {
	Grid *grid.Grid
	// Bounds is the cell's lattice bounding box.
	Bounds    geom.Rect
	Obstacles []Obstacle
	Nets      []Net
	// GridPoints maps a net to lattice corridors on TrackLayer that belong to
	// it exclusively.
	GridPoints map[string][]geom.Rect
	TrackLayer int
	ViaMaker   ViaMaker
}

// Router completes the nets of a request.
type Router interface {
	Route(ctx context.Context, req Request) (*Mesh, error)
}

// RouterFunc adapts a function to the Router interface.
type RouterFunc func(ctx context.Context, req Request) (*Mesh, error)

// Route calls f(ctx, req).
func (f RouterFunc) Route(ctx context.Context, req Request) (*Mesh, error) { return f(ctx, req) }

// Wire is a drawn metal rectangle.
type Wire struct {
	Net   string    `json:"net"`
	Layer int       `json:"layer"`
	Shape geom.Rect `json:"shape"`
}

// Mesh is a router's output.
type Mesh struct {
	Wires []Wire `json:"wires"`
	Vias  []Via  `json:"vias"`
}

// Nets returns the sorted names of nets with geometry in the mesh.
func (m *Mesh) Nets() []string {
	seen := make(map[string]bool)
	for _, w := range m.Wires {
		seen[w.Net] = true
	}
	for _, v := range m.Vias {
		seen[v.Net] = true
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// WiresOn returns the wires of net.
func (m *Mesh) WiresOn(net string) []Wire {
	var out []Wire
	for _, w := range m.Wires {
		if w.Net == net {
			out = append(out, w)
		}
	}
	return out
}

// Check validates common request fields.
func (r Request) Check() error {
	if r.Grid == nil {
		return errors.New("route: request has no grid")
	}
	if r.Bounds.IsEmpty() {
		return errors.New("route: empty bounds")
	}
	return nil
}
