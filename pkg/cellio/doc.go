// Package cellio provides JSON import and export for laid-out cells.
//
// A [Document] is the self-contained record of one generated comparator:
// the parameters it was built from, the lattice pitch and layer stack, every
// placed instance with its absolute port shapes, the cell ports, the
// reserved tracks and the routed mesh. Documents are what the CLI writes
// with "strongarm layout -o", what the server stores, and what the
// renderers consume.
//
// # JSON Format
//
//	{
//	  "version": 1,
//	  "name": "strongarm",
//	  "pitch": 680,
//	  "bounds": {"left": 0, "bottom": -27880, "right": 4080, "top": 1360},
//	  "instances": [
//	    {"name": "ntap", "kind": "ntap", "orientation": "R0", ...}
//	  ],
//	  "ports": [{"name": "clock", "layer": 1, "shape": {...}}],
//	  "tracks": [...],
//	  "wires": [...],
//	  "vias": [...],
//	  "netlist": {...}
//	}
//
// All coordinates are physical nanometres except Instance.Lattice and
// Document.Lattice, which are lattice units.
//
// Reading rejects documents whose version is newer than [Version].
package cellio
