// Package place positions tiles on the lattice.
//
// Placement is expressed as a [Program]: an ordered list of immutable
// [Directive] values, each aligning one edge of a movable instance with an
// edge of a reference (another instance, a named group of instances, or an
// explicit rectangle). [Layout.Interpret] validates the whole program before
// moving anything, so a reference to an instance that is not yet placed
// fails with a configuration error and leaves every instance untouched.
//
// [Engine.Place] turns a row-based [Plan] into such a program: guard tap on
// top, device rows stacked beneath it with each row's pair abutting
// horizontally, and the second guard tap beneath the last row. The result is
// a frozen [Placement].
//
// All positions are in lattice units. Physical coordinates are obtained by
// scaling with the coarse pitch.
package place
