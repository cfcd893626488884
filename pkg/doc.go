// Package pkg provides the core libraries for Strongarm comparator layout.
//
// # Overview
//
// Strongarm builds the physical layout of a StrongARM latched comparator:
// it places parameterized device tiles on a quantized lattice, reserves a
// track for every external signal, routes the netlist on the metal stack and
// renders the result. The pkg directory is organized into three areas:
//
//  1. Layout core: [geom], [grid], [tile], [place], [track], [route],
//     [netlist] and [comparator]
//  2. Infrastructure: [cache], [store], [observability], [errors], [config]
//  3. Orchestration and output: [pipeline], [cellio], [render], [server]
//
// # Architecture
//
// The data flow through Strongarm:
//
//	Params (plan file or flags)
//	         ↓
//	    [comparator] package (composition plan + netlist)
//	         ↓
//	    [place] package (tiles on the lattice)
//	         ↓
//	    [track] package (one track per signal)
//	         ↓
//	    [route] package (wires and vias)
//	         ↓
//	    [cellio] document → [render] SVG/PNG/PDF/netlist
//
// # Quick Start
//
//	proc := config.Default()
//	runner := pipeline.NewRunner(proc, nil, nil, nil)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Params:  comparator.DefaultParams(),
//	    Formats: []string{"svg"},
//	})
//	if err != nil {
//	    return err
//	}
//	doc := result.Cell.Document(proc)
//
// # Main Packages
//
// ## Layout Core
//
//   - [geom]: integer points, spans, rectangles and orientations
//   - [grid]: the layer stack and the coarse placement lattice
//   - [tile]: placeable device and tap generators with named ports
//   - [place]: the placement engine and its composition plan
//   - [track]: signal track reservation
//   - [route]: the router and via interfaces with a maze router
//   - [netlist]: nets, terminals and connectivity checks
//   - [comparator]: the StrongARM topology and its sizing parameters
//
// ## Infrastructure
//
//   - [cache]: mesh and artifact cache (null, file, Redis)
//   - [store]: generated cell records (memory, MongoDB)
//   - [observability]: pipeline, cache and HTTP hooks
//   - [errors]: error codes and validation helpers
//   - [config]: process, plan and sweep files
//
// ## Orchestration
//
//   - [pipeline]: place → assign → route → render with caching
//   - [cellio]: the JSON cell document
//   - [render]: SVG, PNG, PDF and Graphviz netlist output
//   - [server]: the HTTP API
//
// [geom]: https://pkg.go.dev/github.com/matzehuels/strongarm/pkg/geom
// [grid]: https://pkg.go.dev/github.com/matzehuels/strongarm/pkg/grid
// [tile]: https://pkg.go.dev/github.com/matzehuels/strongarm/pkg/tile
// [place]: https://pkg.go.dev/github.com/matzehuels/strongarm/pkg/place
// [track]: https://pkg.go.dev/github.com/matzehuels/strongarm/pkg/track
// [route]: https://pkg.go.dev/github.com/matzehuels/strongarm/pkg/route
// [netlist]: https://pkg.go.dev/github.com/matzehuels/strongarm/pkg/netlist
// [comparator]: https://pkg.go.dev/github.com/matzehuels/strongarm/pkg/comparator
// [cache]: https://pkg.go.dev/github.com/matzehuels/strongarm/pkg/cache
// [store]: https://pkg.go.dev/github.com/matzehuels/strongarm/pkg/store
// [observability]: https://pkg.go.dev/github.com/matzehuels/strongarm/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/strongarm/pkg/errors
// [config]: https://pkg.go.dev/github.com/matzehuels/strongarm/pkg/config
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/strongarm/pkg/pipeline
// [cellio]: https://pkg.go.dev/github.com/matzehuels/strongarm/pkg/cellio
// [render]: https://pkg.go.dev/github.com/matzehuels/strongarm/pkg/render
// [server]: https://pkg.go.dev/github.com/matzehuels/strongarm/pkg/server
package pkg
