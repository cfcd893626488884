// Package render turns laid-out cells into pictures.
//
// # Layout Preview
//
// [SVG] draws a [cellio.Document] in physical coordinates: instance
// footprints shaded by device kind, port shapes, reserved track rows and
// routed wires coloured by layer. The y axis is flipped so the ntap guard
// appears at the top, as in a layout editor.
//
//	svg := render.SVG(doc, render.WithScale(0.05))
//
// # Netlist Diagram
//
// [NetlistDOT] emits a Graphviz graph with one box per instance and one
// ellipse per net; edges are labelled with the instance port. [NetlistSVG]
// renders DOT in-process with [github.com/goccy/go-graphviz].
//
// # Format Conversion
//
// [ToPDF] and [ToPNG] convert SVG using the external rsvg-convert tool
// (librsvg). [Render] dispatches on a format name and is what the pipeline,
// CLI and server call.
package render
