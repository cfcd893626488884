package place

import (
	"fmt"
	"strings"

	apperrors "github.com/matzehuels/strongarm/pkg/errors"
	"github.com/matzehuels/strongarm/pkg/geom"
	"github.com/matzehuels/strongarm/pkg/tile"
)

// Directive aligns instance Inst against exactly one reference: an instance
// (Ref), a group (Group) or an explicit lattice rectangle (Rect).
type Directive struct {
	Inst   string     `json:"inst"`
	Mode   Mode       `json:"mode"`
	Ref    string     `json:"ref,omitempty"`
	Group  string     `json:"group,omitempty"`
	Rect   *geom.Rect `json:"rect,omitempty"`
	Offset int64      `json:"offset,omitempty"`
}

func (d Directive) String() string {
	var ref string
	switch {
	case d.Ref != "":
		ref = d.Ref
	case d.Group != "":
		ref = "group " + d.Group
	case d.Rect != nil:
		ref = d.Rect.String()
	default:
		ref = "?"
	}
	s := fmt.Sprintf("%s %s %s", d.Inst, d.Mode, ref)
	if d.Offset != 0 {
		s += fmt.Sprintf(" %+d", d.Offset)
	}
	return s
}

// Program is an ordered list of directives.
type Program []Directive

func (p Program) String() string {
	lines := make([]string, len(p))
	for i, d := range p {
		lines[i] = d.String()
	}
	return strings.Join(lines, "\n")
}

// Layout owns a set of instances and the groups formed from them.
type Layout struct {
	order  []*Instance
	byName map[string]*Instance
	groups map[string][]string
	frozen bool
}

// NewLayout returns an empty layout.
func NewLayout() *Layout {
	return &Layout{
		byName: make(map[string]*Instance),
		groups: make(map[string][]string),
	}
}

// Add creates an unplaced instance of t.
func (l *Layout) Add(name string, t tile.Tile) (*Instance, error) {
	if l.frozen {
		return nil, apperrors.Wrap(apperrors.ErrCodeFrozen, ErrFrozen, "layout")
	}
	if err := apperrors.ValidateName(name); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeConfiguration, err, "instance name")
	}
	if _, dup := l.byName[name]; dup {
		return nil, apperrors.Configuration("duplicate instance %s", name)
	}
	if _, dup := l.groups[name]; dup {
		return nil, apperrors.Configuration("instance %s shadows a group", name)
	}
	inst := newInstance(name, t)
	l.order = append(l.order, inst)
	l.byName[name] = inst
	return inst, nil
}

// Group names a set of existing instances so directives can align against
// their combined bounding box.
func (l *Layout) Group(name string, members ...string) error {
	if _, dup := l.byName[name]; dup {
		return apperrors.Configuration("group %s shadows an instance", name)
	}
	if _, dup := l.groups[name]; dup {
		return apperrors.Configuration("duplicate group %s", name)
	}
	if len(members) == 0 {
		return apperrors.Configuration("group %s is empty", name)
	}
	for _, m := range members {
		if _, ok := l.byName[m]; !ok {
			return apperrors.Wrap(apperrors.ErrCodeConfiguration, ErrUnknownInstance, "group %s member %s", name, m)
		}
	}
	l.groups[name] = append([]string(nil), members...)
	return nil
}

// Instance looks up an instance by name.
func (l *Layout) Instance(name string) (*Instance, bool) {
	i, ok := l.byName[name]
	return i, ok
}

// Instances returns the instances in insertion order.
func (l *Layout) Instances() []*Instance {
	return append([]*Instance(nil), l.order...)
}

// GroupBounds returns the combined lattice bounding box of a group.
func (l *Layout) GroupBounds(name string) (geom.Rect, bool) {
	members, ok := l.groups[name]
	if !ok {
		return geom.Rect{}, false
	}
	rects := make([]geom.Rect, len(members))
	for k, m := range members {
		rects[k] = l.byName[m].Bounds()
	}
	return geom.BoundingBox(rects...)
}

// Interpret checks prog against the current placement state and, if every
// directive is valid, applies them in order. On error no instance moves.
func (l *Layout) Interpret(prog Program) error {
	if err := l.check(prog); err != nil {
		return err
	}
	for _, d := range prog {
		ref, _ := l.resolve(d)
		if err := l.byName[d.Inst].Align(d.Mode, ref, d.Offset); err != nil {
			return err
		}
	}
	return nil
}

// check simulates prog, tracking which axes of which instances would be
// placed, and reports the first directive that cannot be applied.
func (l *Layout) check(prog Program) error {
	placed := make(map[string][2]bool, len(l.order))
	for _, inst := range l.order {
		placed[inst.name] = inst.placed
	}
	full := func(name string) bool {
		p := placed[name]
		return p[geom.Horiz] && p[geom.Vert]
	}

	for k, d := range prog {
		inst, ok := l.byName[d.Inst]
		if !ok {
			return apperrors.Wrap(apperrors.ErrCodeConfiguration, ErrUnknownInstance, "directive %d (%s)", k, d)
		}
		if inst.frozen {
			return apperrors.Wrap(apperrors.ErrCodeFrozen, ErrFrozen, "directive %d (%s)", k, d)
		}
		if !d.Mode.valid() {
			return apperrors.Configuration("directive %d (%s): invalid alignment mode", k, d)
		}

		n := 0
		if d.Ref != "" {
			n++
		}
		if d.Group != "" {
			n++
		}
		if d.Rect != nil {
			n++
		}
		if n != 1 {
			return apperrors.Configuration("directive %d (%s): need exactly one reference, got %d", k, d, n)
		}

		switch {
		case d.Ref != "":
			if _, ok := l.byName[d.Ref]; !ok {
				return apperrors.Wrap(apperrors.ErrCodeConfiguration, ErrUnknownInstance, "directive %d (%s)", k, d)
			}
			if d.Ref == d.Inst {
				return apperrors.Configuration("directive %d (%s): instance aligned to itself", k, d)
			}
			if !full(d.Ref) {
				return apperrors.Wrap(apperrors.ErrCodeConfiguration, ErrUnplacedReference, "directive %d (%s)", k, d)
			}
		case d.Group != "":
			members, ok := l.groups[d.Group]
			if !ok {
				return apperrors.Wrap(apperrors.ErrCodeConfiguration, ErrUnknownInstance, "directive %d (%s)", k, d)
			}
			for _, m := range members {
				if m == d.Inst {
					return apperrors.Configuration("directive %d (%s): instance aligned to its own group", k, d)
				}
				if !full(m) {
					return apperrors.Wrap(apperrors.ErrCodeConfiguration, ErrUnplacedReference, "directive %d (%s): member %s", k, d, m)
				}
			}
		}

		p := placed[d.Inst]
		p[d.Mode.Axis()] = true
		placed[d.Inst] = p
	}
	return nil
}

func (l *Layout) resolve(d Directive) (geom.Rect, bool) {
	switch {
	case d.Ref != "":
		return l.byName[d.Ref].Bounds(), true
	case d.Group != "":
		return l.GroupBounds(d.Group)
	case d.Rect != nil:
		return *d.Rect, true
	}
	return geom.Rect{}, false
}

// Freeze fails if any instance is unplaced, otherwise freezes every instance.
func (l *Layout) Freeze() error {
	for _, inst := range l.order {
		if !inst.Placed() {
			return apperrors.Configuration("instance %s was never placed", inst.name)
		}
	}
	for _, inst := range l.order {
		inst.freeze()
	}
	l.frozen = true
	return nil
}

// Frozen reports whether Freeze succeeded.
func (l *Layout) Frozen() bool { return l.frozen }

// Overlaps returns every pair of instances whose lattice footprints intersect.
func (l *Layout) Overlaps() [][2]string {
	var out [][2]string
	for a := 0; a < len(l.order); a++ {
		for b := a + 1; b < len(l.order); b++ {
			if l.order[a].Bounds().Intersects(l.order[b].Bounds()) {
				out = append(out, [2]string{l.order[a].name, l.order[b].name})
			}
		}
	}
	return out
}
