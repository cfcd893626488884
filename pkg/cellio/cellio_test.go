package cellio

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/strongarm/pkg/comparator"
	"github.com/matzehuels/strongarm/pkg/config"
	apperrors "github.com/matzehuels/strongarm/pkg/errors"
	"github.com/matzehuels/strongarm/pkg/geom"
	"github.com/matzehuels/strongarm/pkg/place"
	"github.com/matzehuels/strongarm/pkg/route"
	"github.com/matzehuels/strongarm/pkg/tile"
	"github.com/matzehuels/strongarm/pkg/track"
)

func testDocument(t *testing.T) *Document {
	t.Helper()
	proc := config.Default()
	g, err := proc.Grid()
	if err != nil {
		t.Fatal(err)
	}
	d, err := comparator.Build(comparator.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	pl, err := place.NewEngine(g, proc.Place).Place(d.Plan)
	if err != nil {
		t.Fatal(err)
	}
	a, err := track.Assign(pl, g, d.Tracks, proc.Track)
	if err != nil {
		t.Fatal(err)
	}
	return &Document{
		Name:      pl.Name(),
		Process:   proc.Name,
		Params:    d.Params,
		Pitch:     pl.Pitch(),
		Layers:    proc.Layers,
		Lattice:   pl.Bounds(),
		Bounds:    pl.PhysicalBounds(),
		Instances: Instances(pl),
		Ports:     a.Ports(),
		Tracks:    a.Tracks(),
		Wires: []route.Wire{
			{Net: "clock", Layer: 1, Shape: geom.Rect{Left: 0, Bottom: 0, Right: 680, Top: 170}},
			{Net: "clock", Layer: 2, Shape: geom.Rect{Left: 0, Bottom: 0, Right: 170, Top: 680}},
		},
		Vias:    []route.Via{{Net: "clock", Below: 1, Above: 2}},
		Netlist: d.Netlist,
	}
}

func TestInstances(t *testing.T) {
	doc := testDocument(t)
	if len(doc.Instances) != 14 {
		t.Fatalf("instances = %d, want 14", len(doc.Instances))
	}
	ntap, ok := doc.Instance(place.NtapName)
	if !ok {
		t.Fatal("ntap missing")
	}
	if ntap.Kind != tile.Ntap {
		t.Errorf("ntap kind = %v", ntap.Kind)
	}
	if ntap.Bounds != ntap.Lattice.Scale(doc.Pitch) {
		t.Errorf("bounds %v != lattice %v scaled by %d", ntap.Bounds, ntap.Lattice, doc.Pitch)
	}
	for _, inst := range doc.Instances {
		for _, p := range inst.Ports {
			if !inst.Bounds.Contains(p.Shape) {
				t.Errorf("%s.%s %v outside %v", inst.Name, p.Name, p.Shape, inst.Bounds)
			}
		}
	}
	if _, ok := doc.Instance("nope"); ok {
		t.Error("unknown instance found")
	}
}

func TestRoundTrip(t *testing.T) {
	doc := testDocument(t)
	data, err := Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte(`"kind": "ntap"`)) {
		t.Error("kind should encode as text")
	}
	if !bytes.Contains(data, []byte(`"dir": "horiz"`)) {
		t.Error("layer dir should encode as text")
	}

	got, err := Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.Version != Version {
		t.Errorf("Version = %d", got.Version)
	}
	if got.Name != doc.Name || got.Bounds != doc.Bounds || got.Params != doc.Params {
		t.Errorf("header mismatch: %+v", got)
	}
	if len(got.Instances) != len(doc.Instances) || len(got.Tracks) != 5 {
		t.Errorf("instances=%d tracks=%d", len(got.Instances), len(got.Tracks))
	}
	if net, ok := got.Netlist.NetOf("tail_0", tile.PortGate); !ok || net != comparator.Clock {
		t.Errorf("NetOf(tail_0.g) = %q, %v", net, ok)
	}
	p, ok := got.Port(comparator.InP)
	if !ok || p.Layer != 1 {
		t.Errorf("Port(inp) = %+v, %v", p, ok)
	}
}

func TestStats(t *testing.T) {
	doc := testDocument(t)
	s := doc.Stats()
	if s.Instances != 14 || s.Ports != 5 || s.Tracks != 5 {
		t.Errorf("stats = %+v", s)
	}
	if s.Nets != 1 || s.Wires != 2 || s.Vias != 1 {
		t.Errorf("mesh stats = %+v", s)
	}
	if s.Width != doc.Bounds.Width() || s.Height != doc.Bounds.Height() {
		t.Errorf("size = %dx%d", s.Width, s.Height)
	}
	if !doc.Routed() {
		t.Error("Routed() = false")
	}
	if got := doc.WireLayers(); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("WireLayers() = %v", got)
	}
	if got := doc.LayerNames(6); got[1] != "met1" || got[6] != "L6" {
		t.Errorf("LayerNames() = %v", got)
	}
}

func TestFile(t *testing.T) {
	doc := testDocument(t)
	path := filepath.Join(t.TempDir(), "cell.json")
	if err := WriteFile(path, doc); err != nil {
		t.Fatal(err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != doc.Name {
		t.Errorf("Name = %q", got.Name)
	}

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.json"))
	if !apperrors.Is(err, apperrors.ErrCodeInvalidPath) {
		t.Errorf("missing file err = %v", err)
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  apperrors.Code
	}{
		{"malformed", `{"name":`, apperrors.ErrCodeInvalidFormat},
		{"no name", `{"version": 1}`, apperrors.ErrCodeInvalidFormat},
		{"future version", `{"version": 99, "name": "x"}`, apperrors.ErrCodeUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input))
			if !apperrors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}
