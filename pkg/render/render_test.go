package render

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/matzehuels/strongarm/pkg/cellio"
	"github.com/matzehuels/strongarm/pkg/comparator"
	"github.com/matzehuels/strongarm/pkg/config"
	apperrors "github.com/matzehuels/strongarm/pkg/errors"
	"github.com/matzehuels/strongarm/pkg/geom"
	"github.com/matzehuels/strongarm/pkg/place"
	"github.com/matzehuels/strongarm/pkg/route"
	"github.com/matzehuels/strongarm/pkg/track"
)

func testDocument(t *testing.T) *cellio.Document {
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
	return &cellio.Document{
		Name:      pl.Name(),
		Params:    d.Params,
		Pitch:     pl.Pitch(),
		Lattice:   pl.Bounds(),
		Bounds:    pl.PhysicalBounds(),
		Instances: cellio.Instances(pl),
		Ports:     a.Ports(),
		Tracks:    a.Tracks(),
		Wires: []route.Wire{
			{Net: "clock", Layer: 1, Shape: geom.Rect{Left: 0, Bottom: -1000, Right: 680, Top: -830}},
			{Net: "outp", Layer: 2, Shape: geom.Rect{Left: 0, Bottom: -1000, Right: 170, Top: 0}},
		},
		Vias:    []route.Via{{Net: "clock", Below: 1, Above: 2, Cut: geom.Rect{Left: 0, Bottom: 0, Right: 170, Top: 170}}},
		Netlist: d.Netlist,
	}
}

func TestSVG(t *testing.T) {
	doc := testDocument(t)
	svg := string(SVG(doc))

	if !strings.HasPrefix(svg, "<svg") || !strings.HasSuffix(svg, "</svg>\n") {
		t.Fatalf("not an svg document: %.80s", svg)
	}
	for _, want := range []string{
		`id="inst-ntap"`,
		`id="inst-tail_0"`,
		`data-signal="clock"`,
		`data-net="outp"`,
		`data-port="input_0.g"`,
		`class="via"`,
		">precharge_a_1</text>",
	} {
		if !strings.Contains(svg, want) {
			t.Errorf("svg missing %s", want)
		}
	}
	if got := strings.Count(svg, `class="instance"`); got != 14 {
		t.Errorf("instances drawn = %d, want 14", got)
	}
}

func TestSVGViewBoxFlipsY(t *testing.T) {
	doc := testDocument(t)
	svg := string(SVG(doc))
	b := doc.Bounds.Expand(doc.Pitch)
	want := fmt.Sprintf(`viewBox="%d %d %d %d"`, b.Left, -b.Top, b.Width(), b.Height())
	if !strings.Contains(svg, want) {
		t.Errorf("svg missing %s", want)
	}
}

func TestSVGOptions(t *testing.T) {
	doc := testDocument(t)
	svg := string(SVG(doc, WithoutLabels(), WithoutPorts(), WithoutTracks(), WithLayers(2)))

	for _, unwanted := range []string{"<text", `class="port"`, `class="track"`, `data-net="clock"`} {
		if strings.Contains(svg, unwanted) {
			t.Errorf("svg should not contain %s", unwanted)
		}
	}
	if !strings.Contains(svg, `data-net="outp"`) {
		t.Error("layer 2 wire should be drawn")
	}
	if !strings.Contains(svg, `class="via"`) {
		t.Error("via touching layer 2 should be drawn")
	}
}

func TestNetlistDOT(t *testing.T) {
	doc := testDocument(t)
	dot := NetlistDOT(doc.Netlist)

	for _, want := range []string{
		`graph "strongarm" {`,
		`"i:tail_0" -- "n:clock" [label="g"];`,
		`"i:ntap" -- "n:vdd" [label="vpb"];`,
		`"n:clock" [label="clock", shape=doublecircle];`,
		`"n:tail" [label="tail", shape=ellipse];`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("dot missing %s", want)
		}
	}
}

func TestNetlistSVG(t *testing.T) {
	doc := testDocument(t)
	svg, err := NetlistSVG(context.Background(), doc.Netlist)
	if err != nil {
		t.Fatalf("NetlistSVG() error: %v", err)
	}
	if !strings.Contains(string(svg), `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 `) {
		t.Errorf("root element not normalized: %.200s", svg)
	}
}

func TestRender(t *testing.T) {
	ctx := context.Background()
	doc := testDocument(t)

	data, err := Render(ctx, doc, FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	back, err := cellio.Unmarshal(data)
	if err != nil || back.Name != doc.Name {
		t.Errorf("json output did not round-trip: %v", err)
	}

	data, err = Render(ctx, doc, FormatDOT)
	if err != nil || !strings.HasPrefix(string(data), "graph ") {
		t.Errorf("dot output = %.40s, %v", data, err)
	}

	if _, err := Render(ctx, doc, "gds"); !apperrors.Is(err, apperrors.ErrCodeInvalidFormat) {
		t.Errorf("unknown format err = %v", err)
	}

	doc.Netlist = nil
	if _, err := Render(ctx, doc, FormatDOT); !apperrors.Is(err, apperrors.ErrCodeInvalidInput) {
		t.Errorf("missing netlist err = %v", err)
	}
}

func TestExtension(t *testing.T) {
	tests := map[string]string{
		FormatSVG:     "svg",
		FormatJSON:    "json",
		FormatNetlist: "netlist.svg",
	}
	for format, want := range tests {
		if got := Extension(format); got != want {
			t.Errorf("Extension(%q) = %q, want %q", format, got, want)
		}
	}
}
