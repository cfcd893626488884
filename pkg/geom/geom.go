package geom

import "fmt"

// Dir is an axis direction.
type Dir int

const (
	// Horiz is the x axis.
	Horiz Dir = iota
	// Vert is the y axis.
	Vert
)

// String returns "horiz" or "vert".
func (d Dir) String() string {
	if d == Vert {
		return "vert"
	}
	return "horiz"
}

// MarshalText encodes the direction as "horiz" or "vert".
func (d Dir) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText accepts "horiz"/"h" or "vert"/"v".
func (d *Dir) UnmarshalText(b []byte) error {
	switch string(b) {
	case "horiz", "h", "horizontal":
		*d = Horiz
	case "vert", "v", "vertical":
		*d = Vert
	default:
		return fmt.Errorf("unknown direction %q", b)
	}
	return nil
}

// Other returns the perpendicular direction.
func (d Dir) Other() Dir {
	if d == Vert {
		return Horiz
	}
	return Vert
}

// Point is an integer coordinate pair.
type Point struct {
	X int64 `json:"x"`
	Y int64 `json:"y"`
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Neg returns -p.
func (p Point) Neg() Point { return Point{X: -p.X, Y: -p.Y} }

// Span is a closed interval [Start, Stop] on one axis.
type Span struct {
	Start int64 `json:"start"`
	Stop  int64 `json:"stop"`
}

// SpanFromPoint returns the zero-length span at x.
func SpanFromPoint(x int64) Span { return Span{Start: x, Stop: x} }

// Len returns Stop - Start.
func (s Span) Len() int64 { return s.Stop - s.Start }

// Contains reports whether x lies within the span.
func (s Span) Contains(x int64) bool { return x >= s.Start && x <= s.Stop }

// Union returns the smallest span covering both s and o.
func (s Span) Union(o Span) Span {
	return Span{Start: min(s.Start, o.Start), Stop: max(s.Stop, o.Stop)}
}

// Overlaps reports whether the open interiors of s and o intersect.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.Stop && o.Start < s.Stop
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	Left   int64 `json:"left"`
	Bottom int64 `json:"bottom"`
	Right  int64 `json:"right"`
	Top    int64 `json:"top"`
}

// FromSpans builds a rectangle from a horizontal and a vertical span.
func FromSpans(h, v Span) Rect {
	return Rect{Left: h.Start, Right: h.Stop, Bottom: v.Start, Top: v.Stop}
}

// FromSize builds a rectangle with its lower-left corner at the origin.
func FromSize(w, h int64) Rect { return Rect{Right: w, Top: h} }

// String formats the rectangle as (l, b)-(r, t).
func (r Rect) String() string {
	return fmt.Sprintf("(%d, %d)-(%d, %d)", r.Left, r.Bottom, r.Right, r.Top)
}

// Width returns the horizontal extent.
func (r Rect) Width() int64 { return r.Right - r.Left }

// Height returns the vertical extent.
func (r Rect) Height() int64 { return r.Top - r.Bottom }

// HSpan returns the horizontal span.
func (r Rect) HSpan() Span { return Span{Start: r.Left, Stop: r.Right} }

// VSpan returns the vertical span.
func (r Rect) VSpan() Span { return Span{Start: r.Bottom, Stop: r.Top} }

// Span returns the span along d.
func (r Rect) Span(d Dir) Span {
	if d == Vert {
		return r.VSpan()
	}
	return r.HSpan()
}

// LowerLeft returns the (Left, Bottom) corner.
func (r Rect) LowerLeft() Point { return Point{X: r.Left, Y: r.Bottom} }

// Center returns the integer center, rounded toward the lower-left.
func (r Rect) Center() Point {
	return Point{X: floorHalf(r.Left + r.Right), Y: floorHalf(r.Bottom + r.Top)}
}

// IsValid reports whether Left <= Right and Bottom <= Top.
func (r Rect) IsValid() bool { return r.Left <= r.Right && r.Bottom <= r.Top }

// IsEmpty reports whether the rectangle has no area.
func (r Rect) IsEmpty() bool { return r.Width() <= 0 || r.Height() <= 0 }

// Translate moves the rectangle by p.
func (r Rect) Translate(p Point) Rect {
	return Rect{Left: r.Left + p.X, Right: r.Right + p.X, Bottom: r.Bottom + p.Y, Top: r.Top + p.Y}
}

// Scale multiplies every coordinate by k.
func (r Rect) Scale(k int64) Rect {
	return Rect{Left: r.Left * k, Right: r.Right * k, Bottom: r.Bottom * k, Top: r.Top * k}
}

// ExpandDir grows the rectangle by amount on both sides along d.
func (r Rect) ExpandDir(d Dir, amount int64) Rect {
	if d == Vert {
		r.Bottom -= amount
		r.Top += amount
		return r
	}
	r.Left -= amount
	r.Right += amount
	return r
}

// Expand grows the rectangle by amount on all four sides.
func (r Rect) Expand(amount int64) Rect {
	return r.ExpandDir(Horiz, amount).ExpandDir(Vert, amount)
}

// Union returns the bounding box of r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		Left:   min(r.Left, o.Left),
		Bottom: min(r.Bottom, o.Bottom),
		Right:  max(r.Right, o.Right),
		Top:    max(r.Top, o.Top),
	}
}

// Intersects reports whether the interiors of r and o overlap. Rectangles
// that only share an edge or a corner do not intersect.
func (r Rect) Intersects(o Rect) bool {
	return r.HSpan().Overlaps(o.HSpan()) && r.VSpan().Overlaps(o.VSpan())
}

// Contains reports whether o lies entirely inside r (edges may coincide).
func (r Rect) Contains(o Rect) bool {
	return o.Left >= r.Left && o.Right <= r.Right && o.Bottom >= r.Bottom && o.Top <= r.Top
}

// ContainsPoint reports whether p lies inside r or on its boundary.
func (r Rect) ContainsPoint(p Point) bool {
	return p.X >= r.Left && p.X <= r.Right && p.Y >= r.Bottom && p.Y <= r.Top
}

// MirrorY reflects the rectangle across the horizontal line y = axis.
func (r Rect) MirrorY(axis int64) Rect {
	return Rect{Left: r.Left, Right: r.Right, Bottom: 2*axis - r.Top, Top: 2*axis - r.Bottom}
}

// BoundingBox returns the union of rects. ok is false when rects is empty.
func BoundingBox(rects ...Rect) (bbox Rect, ok bool) {
	for i, r := range rects {
		if i == 0 {
			bbox = r
			continue
		}
		bbox = bbox.Union(r)
	}
	return bbox, len(rects) > 0
}

func floorHalf(v int64) int64 {
	if v >= 0 || v%2 == 0 {
		return v / 2
	}
	return v/2 - 1
}
