// Package geom provides the integer geometry shared by every layout stage.
//
// All coordinates are int64. The same types carry two unit systems:
// physical coordinates (nanometres on the manufacturing grid) and lattice
// coordinates (multiples of the coarse pitch computed by package grid).
// Nothing in this package knows which one a value is in; callers convert
// explicitly with [grid.Stack] helpers.
//
// # Rectangles
//
// [Rect] is an axis-aligned rectangle with inclusive edges. A Rect whose
// Left equals its Right (or Bottom equals Top) is degenerate but valid: a
// track row is represented as a zero-height rectangle spanning the cell.
//
//	r := geom.Rect{Left: 0, Bottom: 0, Right: 10, Top: 4}
//	r.Width()                 // 10
//	r.Translate(geom.Point{X: 2}).Left // 2
//
// Overlap is strict: [Rect.Intersects] reports false for rectangles that
// only share an edge, which is how abutting tiles are allowed to touch.
package geom
