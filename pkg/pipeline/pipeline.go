// Package pipeline provides the layout pipeline for StrongARM comparators.
//
// This package implements the complete place → assign → route → render
// pipeline used by the CLI and the HTTP server. Centralizing it here keeps
// caching, logging and observability consistent across entry points.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Place: build the composition plan from the parameters and place every
//     tile on the process lattice (deterministic, always recomputed)
//  2. Assign: reserve one track per external signal
//  3. Route: hand the nets and reserved corridors to the configured
//     [route.Router]; the resulting mesh is cached
//  4. Render: produce artifacts (SVG, PNG, PDF, JSON, netlist) from the
//     cell document; artifacts are cached
//
// A failure in any stage fails the whole run; no partial cell is returned.
//
// # Usage
//
//	runner := pipeline.NewRunner(config.Default(), cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Params:  comparator.DefaultParams(),
//	    Formats: []string{"svg"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
//
// Independent cells are built concurrently with [Runner.Sweep].
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/strongarm/pkg/cellio"
	"github.com/matzehuels/strongarm/pkg/comparator"
	"github.com/matzehuels/strongarm/pkg/config"
	"github.com/matzehuels/strongarm/pkg/place"
	"github.com/matzehuels/strongarm/pkg/render"
	"github.com/matzehuels/strongarm/pkg/route"
	"github.com/matzehuels/strongarm/pkg/tile"
	"github.com/matzehuels/strongarm/pkg/track"
)

// DefaultConcurrency bounds Sweep when the caller passes zero.
const DefaultConcurrency = 4

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one pipeline run.
// This struct supports JSON serialization for API requests.
type Options struct {
	Params comparator.Params `json:"params"`

	// Formats are rendered after routing. Empty means no artifacts.
	Formats []string `json:"formats,omitempty"`

	// Refresh ignores cached meshes and artifacts.
	Refresh bool `json:"refresh,omitempty"`

	// SkipRoute stops after track assignment; the cell has no mesh.
	SkipRoute bool `json:"skip_route,omitempty"`

	Logger *log.Logger `json:"-"`
}

// ValidateAndSetDefaults completes the parameters and checks every field.
// It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	o.Params = o.Params.WithDefaults()
	if err := o.Params.Validate(); err != nil {
		return err
	}
	for _, f := range o.Formats {
		if err := render.ValidateFormat(f); err != nil {
			return err
		}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// Result contains the outputs of a pipeline run.
type Result struct {
	Cell *Cell

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Instances  int
	Nets       int
	Wires      int
	Vias       int
	PlaceTime  time.Duration
	TrackTime  time.Duration
	RouteTime  time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	MeshHit   bool // Whether the routed mesh came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Cell
// =============================================================================

// Cell is one generated comparator.
type Cell struct {
	Name      string
	Params    comparator.Params
	Design    *comparator.Design
	Placement *place.Placement
	Tracks    *track.Assignment
	// Ports are the cell pins: the five signal tracks followed by vdd and vss.
	Ports []tile.Port
	// Mesh is nil when routing was skipped.
	Mesh  *route.Mesh
	Stats Stats
}

// Document converts the cell for serialization and rendering.
func (c *Cell) Document(proc config.Process) *cellio.Document {
	doc := &cellio.Document{
		Version:   cellio.Version,
		Name:      c.Name,
		Process:   proc.Name,
		Params:    c.Params,
		Pitch:     c.Placement.Pitch(),
		Layers:    proc.Layers,
		Lattice:   c.Placement.Bounds(),
		Bounds:    c.Placement.PhysicalBounds(),
		Instances: cellio.Instances(c.Placement),
		Ports:     append([]tile.Port(nil), c.Ports...),
		Tracks:    c.Tracks.Tracks(),
		Netlist:   c.Design.Netlist,
	}
	if c.Mesh != nil {
		doc.Wires = c.Mesh.Wires
		doc.Vias = c.Mesh.Vias
	}
	return doc
}

// Port returns the named cell pin.
func (c *Cell) Port(name string) (tile.Port, bool) {
	for _, p := range c.Ports {
		if p.Name == name {
			return p, true
		}
	}
	return tile.Port{}, false
}
