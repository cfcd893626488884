package place

import (
	"fmt"

	apperrors "github.com/matzehuels/strongarm/pkg/errors"
	"github.com/matzehuels/strongarm/pkg/geom"
	"github.com/matzehuels/strongarm/pkg/grid"
	"github.com/matzehuels/strongarm/pkg/tile"
)

// Guard tap instance names.
const (
	NtapName = "ntap"
	PtapName = "ptap"
)

// Defaults for Config.
const (
	DefaultDiffExt    int64 = 200
	DefaultTapHeight  int64 = 2
	DefaultGuardInset int64 = 1
)

// Config holds process-specific placement constants.
type Config struct {
	DiffExt   int64 `json:"diff_ext" toml:"diff_ext" yaml:"diff_ext"`
	TapHeight int64 `json:"tap_height" toml:"tap_height" yaml:"tap_height"`
	// GuardInset is subtracted from twice the guard row's tile width to size
	// both tap tiles.
	GuardInset int64 `json:"guard_inset" toml:"guard_inset" yaml:"guard_inset"`
}

// DefaultConfig returns the built-in placement constants.
func DefaultConfig() Config {
	return Config{DiffExt: DefaultDiffExt, TapHeight: DefaultTapHeight, GuardInset: DefaultGuardInset}
}

// Row is a left/right pair of devices placed side by side. Mirror flips
// both devices of the row with MirrorX.
type Row struct {
	Name   string      `json:"name" toml:"name" yaml:"name"`
	Left   tile.Params `json:"left" toml:"left" yaml:"left"`
	Right  tile.Params `json:"right" toml:"right" yaml:"right"`
	Mirror bool        `json:"mirror,omitempty" toml:"mirror" yaml:"mirror,omitempty"`
}

// LeftName returns the instance name of the left device.
func (r Row) LeftName() string { return r.Name + "_0" }

// RightName returns the instance name of the right device.
func (r Row) RightName() string { return r.Name + "_1" }

// Plan is a composition plan: device rows listed top to bottom plus the
// row whose left tile width sizes the guard taps.
type Plan struct {
	Name string `json:"name" toml:"name" yaml:"name"`
	Rows []Row  `json:"rows" toml:"rows" yaml:"rows"`
	// GuardRow names the sizing row. Empty selects the bottom row.
	GuardRow string `json:"guard_row,omitempty" toml:"guard_row" yaml:"guard_row,omitempty"`
}

// Validate checks names and row structure. Device parameters are checked by
// the tile generator.
func (p Plan) Validate() error {
	if len(p.Rows) == 0 {
		return apperrors.Configuration("plan %s has no rows", p.Name)
	}
	seen := map[string]bool{NtapName: true, PtapName: true}
	for _, r := range p.Rows {
		if err := apperrors.ValidateName(r.Name); err != nil {
			return apperrors.Wrap(apperrors.ErrCodeConfiguration, err, "row name")
		}
		if seen[r.Name] {
			return apperrors.Configuration("duplicate row %s", r.Name)
		}
		seen[r.Name] = true
	}
	if p.GuardRow != "" {
		if _, ok := p.guardRow(); !ok {
			return apperrors.Wrap(apperrors.ErrCodeConfiguration, ErrUnknownInstance, "guard row %s", p.GuardRow)
		}
	}
	return nil
}

func (p Plan) guardRow() (Row, bool) {
	if p.GuardRow == "" {
		return p.Rows[len(p.Rows)-1], true
	}
	for _, r := range p.Rows {
		if r.Name == p.GuardRow {
			return r, true
		}
	}
	return Row{}, false
}

// Program returns the alignment directives realizing the plan: the n-well
// tap at the origin, each row beneath the previous one with its right tile
// abutting its left tile, and the substrate tap beneath the last row.
func (p Plan) Program() Program {
	origin := geom.Rect{}
	prog := Program{
		{Inst: NtapName, Mode: Left, Rect: &origin},
		{Inst: NtapName, Mode: Bottom, Rect: &origin},
	}
	prev := Directive{Ref: NtapName}
	for _, r := range p.Rows {
		l, rt := r.LeftName(), r.RightName()
		prog = append(prog,
			Directive{Inst: l, Mode: Left, Ref: prev.Ref, Group: prev.Group},
			Directive{Inst: l, Mode: Beneath, Ref: prev.Ref, Group: prev.Group},
			Directive{Inst: rt, Mode: Bottom, Ref: l},
			Directive{Inst: rt, Mode: ToTheRight, Ref: l},
		)
		prev = Directive{Group: r.Name}
	}
	return append(prog,
		Directive{Inst: PtapName, Mode: Left, Ref: prev.Ref, Group: prev.Group},
		Directive{Inst: PtapName, Mode: Beneath, Ref: prev.Ref, Group: prev.Group},
	)
}

// GuardWidth returns 2*w - inset, the lattice width of a guard tap sized from
// a device tile of width w.
func GuardWidth(w, inset int64) (int64, error) {
	g := 2*w - inset
	if g <= 0 {
		return 0, apperrors.Configuration("guard width %d (tile width %d, inset %d) must be positive", g, w, inset)
	}
	return g, nil
}

// Engine places composition plans on a lattice.
type Engine struct {
	grid *grid.Grid
	cfg  Config
	gen  tile.Generator
}

// NewEngine returns an engine for g. Zero config fields take defaults,
// except GuardInset where zero is meaningful.
func NewEngine(g *grid.Grid, cfg Config) *Engine {
	if cfg.DiffExt == 0 {
		cfg.DiffExt = DefaultDiffExt
	}
	if cfg.TapHeight == 0 {
		cfg.TapHeight = DefaultTapHeight
	}
	return &Engine{
		grid: g,
		cfg:  cfg,
		gen:  tile.Generator{Pitch: g.Pitch(), DiffExt: cfg.DiffExt},
	}
}

// Grid returns the engine's lattice.
func (e *Engine) Grid() *grid.Grid { return e.grid }

// Place instantiates every tile of plan, positions them and freezes the
// result. No partial placement is returned on error.
func (e *Engine) Place(plan Plan) (*Placement, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	l := NewLayout()
	pl := &Placement{name: plan.Name, layout: l, pitch: e.grid.Pitch()}

	guard, _ := plan.guardRow()
	var guardTile tile.Tile
	for _, r := range plan.Rows {
		left, err := e.gen.Mos(r.Left)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeConfiguration, err, "row %s left", r.Name)
		}
		right, err := e.gen.Mos(r.Right)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeConfiguration, err, "row %s right", r.Name)
		}
		for _, pair := range []struct {
			name string
			t    tile.Tile
		}{{r.LeftName(), left}, {r.RightName(), right}} {
			inst, err := l.Add(pair.name, pair.t)
			if err != nil {
				return nil, err
			}
			if r.Mirror {
				if err := inst.SetOrientation(MirrorX); err != nil {
					return nil, err
				}
			}
		}
		if err := l.Group(r.Name, r.LeftName(), r.RightName()); err != nil {
			return nil, err
		}
		if r.Name == guard.Name {
			guardTile = left
		}
		pl.rows = append(pl.rows, PlacedRow{Name: r.Name, Left: r.LeftName(), Right: r.RightName()})
	}

	gw, err := GuardWidth(guardTile.Bounds().Width(), e.cfg.GuardInset)
	if err != nil {
		return nil, err
	}
	ntap, err := e.gen.Ntap(gw, e.cfg.TapHeight)
	if err != nil {
		return nil, err
	}
	ptap, err := e.gen.Ptap(gw, e.cfg.TapHeight)
	if err != nil {
		return nil, err
	}
	if _, err := l.Add(NtapName, ntap); err != nil {
		return nil, err
	}
	if _, err := l.Add(PtapName, ptap); err != nil {
		return nil, err
	}

	if err := l.Interpret(plan.Program()); err != nil {
		return nil, err
	}
	if ov := l.Overlaps(); len(ov) > 0 {
		return nil, apperrors.Configuration("instances %s and %s overlap", ov[0][0], ov[0][1])
	}

	p, _ := l.Instance(PtapName)
	pl.hspan = p.Bounds().HSpan()
	rects := make([]geom.Rect, 0, len(l.order))
	for _, inst := range l.order {
		rects = append(rects, inst.Bounds())
	}
	pl.bounds, _ = geom.BoundingBox(rects...)

	if err := l.Freeze(); err != nil {
		return nil, err
	}
	return pl, nil
}

// PlacedRow records the instance names of one device row.
type PlacedRow struct {
	Name  string `json:"name"`
	Left  string `json:"left"`
	Right string `json:"right"`
}

// Placement is the frozen result of Engine.Place.
type Placement struct {
	name   string
	layout *Layout
	rows   []PlacedRow
	bounds geom.Rect
	hspan  geom.Span
	pitch  int64
}

// Name returns the plan name.
func (p *Placement) Name() string { return p.name }

// Instances returns every instance: devices row by row, then the taps.
func (p *Placement) Instances() []*Instance { return p.layout.Instances() }

// Instance looks up an instance by name.
func (p *Placement) Instance(name string) (*Instance, bool) { return p.layout.Instance(name) }

// Rows returns the device rows top to bottom.
func (p *Placement) Rows() []PlacedRow { return append([]PlacedRow(nil), p.rows...) }

// Bounds returns the combined lattice bounding box.
func (p *Placement) Bounds() geom.Rect { return p.bounds }

// PhysicalBounds returns Bounds in physical units.
func (p *Placement) PhysicalBounds() geom.Rect { return p.bounds.Scale(p.pitch) }

// HSpan is the lattice horizontal extent of the substrate tap, the span
// every top-layer track runs across.
func (p *Placement) HSpan() geom.Span { return p.hspan }

// Pitch returns the coarse pitch the placement was made on.
func (p *Placement) Pitch() int64 { return p.pitch }

// Frozen reports whether the placement is frozen.
func (p *Placement) Frozen() bool { return p.layout.Frozen() }

// Devices returns the non-tap instances.
func (p *Placement) Devices() []*Instance {
	var out []*Instance
	for _, inst := range p.layout.order {
		if !inst.tile.Kind().IsTap() {
			out = append(out, inst)
		}
	}
	return out
}

// Port resolves inst.port to an absolute physical shape.
func (p *Placement) Port(inst, port string) (tile.Port, error) {
	i, ok := p.layout.Instance(inst)
	if !ok {
		return tile.Port{}, apperrors.Wrap(apperrors.ErrCodeConfiguration, ErrUnknownInstance, "%s", inst)
	}
	pt, ok := i.Port(port, p.pitch)
	if !ok {
		return tile.Port{}, apperrors.Configuration("instance %s has no port %s", inst, port)
	}
	return pt, nil
}

func (p *Placement) String() string {
	return fmt.Sprintf("%s: %d instances, bounds %s", p.name, len(p.layout.order), p.bounds)
}
