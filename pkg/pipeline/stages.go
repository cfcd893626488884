package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/matzehuels/strongarm/pkg/comparator"
	"github.com/matzehuels/strongarm/pkg/netlist"
	"github.com/matzehuels/strongarm/pkg/observability"
	"github.com/matzehuels/strongarm/pkg/place"
	"github.com/matzehuels/strongarm/pkg/route"
	"github.com/matzehuels/strongarm/pkg/track"
)

// Layout builds the design for p, places it and assigns tracks. It is
// deterministic and never cached. The returned cell has no mesh.
func (r *Runner) Layout(ctx context.Context, p comparator.Params) (*Cell, error) {
	design, err := comparator.Build(p)
	if err != nil {
		return nil, err
	}
	g, err := r.Process.Grid()
	if err != nil {
		return nil, err
	}
	hooks := observability.Pipeline()

	hooks.OnPlaceStart(ctx, p.Name)
	start := time.Now()
	pl, err := place.NewEngine(g, r.Process.Place).Place(design.Plan)
	placeTime := time.Since(start)
	n := 0
	if pl != nil {
		n = len(pl.Instances())
	}
	hooks.OnPlaceComplete(ctx, p.Name, n, placeTime, err)
	if err != nil {
		return nil, fmt.Errorf("place: %w", err)
	}

	start = time.Now()
	a, err := track.Assign(pl, g, design.Tracks, r.Process.Track)
	trackTime := time.Since(start)
	tracks := 0
	if a != nil {
		tracks = len(a.Tracks())
	}
	hooks.OnTrackComplete(ctx, p.Name, tracks, trackTime, err)
	if err != nil {
		return nil, fmt.Errorf("assign tracks: %w", err)
	}

	ports := a.Ports()
	for _, s := range comparator.Supplies {
		ref := design.SupplyPorts[s]
		port, err := pl.Port(ref.Instance, ref.Port)
		if err != nil {
			return nil, fmt.Errorf("supply %s: %w", s, err)
		}
		port.Name = s
		ports = append(ports, port)
	}

	return &Cell{
		Name:      p.Name,
		Params:    p,
		Design:    design,
		Placement: pl,
		Tracks:    a,
		Ports:     ports,
		Stats: Stats{
			Instances: n,
			PlaceTime: placeTime,
			TrackTime: trackTime,
		},
	}, nil
}

// RouteRequest assembles the routing job for a placed cell: one net per
// netlist net with every bound port as a terminal, plus the reserved
// track corridors.
func (r *Runner) RouteRequest(c *Cell) (route.Request, error) {
	g, err := r.Process.Grid()
	if err != nil {
		return route.Request{}, err
	}
	nl := c.Design.Netlist
	var nets []route.Net
	for _, name := range netOrder(nl) {
		net := route.Net{Name: name}
		for _, b := range nl.Terminals(name) {
			p, err := c.Placement.Port(b.Instance, b.Port)
			if err != nil {
				return route.Request{}, fmt.Errorf("net %s: %w", name, err)
			}
			net.Terminals = append(net.Terminals, route.Terminal{
				Owner: b.Instance + "." + b.Port,
				Layer: p.Layer,
				Shape: p.Shape,
			})
		}
		nets = append(nets, net)
	}
	return route.Request{
		Grid:       g,
		Bounds:     c.Placement.Bounds(),
		Nets:       nets,
		GridPoints: c.Tracks.GridPoints(),
		TrackLayer: r.Process.Track.Layer,
		ViaMaker:   r.ViaMaker,
	}, nil
}

// netOrder lists the internal nets sorted by name, then the signals in
// track order, then the supplies.
func netOrder(nl *netlist.Netlist) []string {
	seen := make(map[string]bool)
	var external []string
	for _, group := range [][]string{comparator.Signals, comparator.Supplies} {
		for _, n := range group {
			seen[n] = true
			if len(nl.Terminals(n)) > 0 {
				external = append(external, n)
			}
		}
	}
	var out []string
	for _, n := range nl.Nets() {
		if !seen[n] {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return append(out, external...)
}
