package place

import (
	"errors"
	"fmt"

	apperrors "github.com/matzehuels/strongarm/pkg/errors"
	"github.com/matzehuels/strongarm/pkg/geom"
	"github.com/matzehuels/strongarm/pkg/tile"
)

var (
	// ErrFrozen is returned when an instance is modified after freezing.
	ErrFrozen = errors.New("instance is frozen")
	// ErrUnplacedReference is returned when a directive aligns against an
	// instance or group that has not been placed yet.
	ErrUnplacedReference = errors.New("reference not placed")
	// ErrUnknownInstance is returned when a directive names an instance or
	// group that does not exist.
	ErrUnknownInstance = errors.New("unknown instance")
)

// Orientation of a placed tile.
type Orientation int

const (
	R0 Orientation = iota
	// MirrorX flips the tile about its horizontal center line.
	MirrorX
)

func (o Orientation) String() string {
	if o == MirrorX {
		return "MX"
	}
	return "R0"
}

// Mode selects which edges an alignment makes coincide.
type Mode int

const (
	Left       Mode = iota // left edge to reference left edge
	Right                  // right edge to reference right edge
	ToTheLeft              // right edge to reference left edge
	ToTheRight             // left edge to reference right edge
	Bottom                 // bottom edge to reference bottom edge
	Top                    // top edge to reference top edge
	Beneath                // top edge to reference bottom edge
	Above                  // bottom edge to reference top edge
	CenterH                // horizontal centers
	CenterV                // vertical centers
)

var modeNames = [...]string{"left", "right", "to-the-left", "to-the-right", "bottom", "top", "beneath", "above", "center-h", "center-v"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modeNames[m]
}

// Axis returns the axis a mode moves along.
func (m Mode) Axis() geom.Dir {
	switch m {
	case Left, Right, ToTheLeft, ToTheRight, CenterH:
		return geom.Horiz
	}
	return geom.Vert
}

func (m Mode) valid() bool { return m >= Left && m <= CenterV }

// Instance is a tile with placement state.
type Instance struct {
	name   string
	tile   tile.Tile
	offset geom.Point
	orient Orientation
	placed [2]bool
	frozen bool
}

func newInstance(name string, t tile.Tile) *Instance {
	return &Instance{name: name, tile: t}
}

func (i *Instance) Name() string             { return i.name }
func (i *Instance) Tile() tile.Tile          { return i.tile }
func (i *Instance) Offset() geom.Point       { return i.offset }
func (i *Instance) Orientation() Orientation { return i.orient }
func (i *Instance) Frozen() bool             { return i.frozen }

// Placed reports whether the instance has been positioned along both axes.
func (i *Instance) Placed() bool { return i.placed[geom.Horiz] && i.placed[geom.Vert] }

// Bounds returns the absolute lattice bounding box.
func (i *Instance) Bounds() geom.Rect {
	return i.tile.Bounds().Translate(i.offset)
}

// PhysicalBounds returns Bounds scaled by pitch.
func (i *Instance) PhysicalBounds(pitch int64) geom.Rect {
	return i.Bounds().Scale(pitch)
}

// Port returns the named tile port in absolute physical coordinates.
func (i *Instance) Port(name string, pitch int64) (tile.Port, bool) {
	p, ok := i.tile.Port(name)
	if !ok {
		return tile.Port{}, false
	}
	p.Shape = i.transform(p.Shape, pitch)
	return p, true
}

// Ports returns every tile port in absolute physical coordinates.
func (i *Instance) Ports(pitch int64) []tile.Port {
	ps := i.tile.Ports()
	for k := range ps {
		ps[k].Shape = i.transform(ps[k].Shape, pitch)
	}
	return ps
}

func (i *Instance) transform(r geom.Rect, pitch int64) geom.Rect {
	if i.orient == MirrorX {
		h := i.tile.Bounds().Height() * pitch
		r.Bottom, r.Top = h-r.Top, h-r.Bottom
	}
	return r.Translate(geom.Point{X: i.offset.X * pitch, Y: i.offset.Y * pitch})
}

// SetOrientation changes the orientation. The footprint is unchanged.
func (i *Instance) SetOrientation(o Orientation) error {
	if i.frozen {
		return apperrors.Wrap(apperrors.ErrCodeFrozen, ErrFrozen, "instance %s", i.name)
	}
	i.orient = o
	return nil
}

// Align moves the instance along one axis so the edges selected by mode
// coincide with ref, shifted by offset lattice units.
func (i *Instance) Align(mode Mode, ref geom.Rect, offset int64) error {
	if i.frozen {
		return apperrors.Wrap(apperrors.ErrCodeFrozen, ErrFrozen, "instance %s", i.name)
	}
	if !mode.valid() {
		return apperrors.Configuration("instance %s: invalid alignment %s", i.name, mode)
	}
	b := i.Bounds()
	var d int64
	switch mode {
	case Left:
		d = ref.Left - b.Left
	case Right:
		d = ref.Right - b.Right
	case ToTheLeft:
		d = ref.Left - b.Right
	case ToTheRight:
		d = ref.Right - b.Left
	case Bottom:
		d = ref.Bottom - b.Bottom
	case Top:
		d = ref.Top - b.Top
	case Beneath:
		d = ref.Bottom - b.Top
	case Above:
		d = ref.Top - b.Bottom
	case CenterH:
		d = ref.Center().X - b.Center().X
	case CenterV:
		d = ref.Center().Y - b.Center().Y
	}
	d += offset
	if mode.Axis() == geom.Horiz {
		i.offset.X += d
	} else {
		i.offset.Y += d
	}
	i.placed[mode.Axis()] = true
	return nil
}

func (i *Instance) freeze() { i.frozen = true }
