package render

import (
	"bytes"
	"fmt"
	"html"

	"github.com/matzehuels/strongarm/pkg/cellio"
	"github.com/matzehuels/strongarm/pkg/geom"
	"github.com/matzehuels/strongarm/pkg/tile"
)

// DefaultScale is the preview size in pixels per nanometre.
const DefaultScale = 0.02

var layerColors = []string{"#2e7d32", "#1565c0", "#c62828", "#6a1b9a", "#ef6c00"}

var kindFills = map[tile.Kind]string{
	tile.Nmos: "#e8f5e9",
	tile.Pmos: "#fff3e0",
	tile.Ptap: "#eceff1",
	tile.Ntap: "#eceff1",
}

func layerColor(l int) string {
	if l >= 0 && l < len(layerColors) {
		return layerColors[l]
	}
	return "#616161"
}

// SVGOption configures SVG.
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	scale  float64
	labels bool
	ports  bool
	tracks bool
	layers map[int]bool
}

// WithScale sets the output size in pixels per nanometre.
func WithScale(s float64) SVGOption { return func(r *svgRenderer) { r.scale = s } }

// WithoutLabels omits instance names.
func WithoutLabels() SVGOption { return func(r *svgRenderer) { r.labels = false } }

// WithoutPorts omits instance port shapes.
func WithoutPorts() SVGOption { return func(r *svgRenderer) { r.ports = false } }

// WithoutTracks omits reserved track rows.
func WithoutTracks() SVGOption { return func(r *svgRenderer) { r.tracks = false } }

// WithLayers restricts wires and vias to the given layers.
func WithLayers(layers ...int) SVGOption {
	return func(r *svgRenderer) {
		r.layers = make(map[int]bool, len(layers))
		for _, l := range layers {
			r.layers[l] = true
		}
	}
}

func (r *svgRenderer) showLayer(l int) bool { return r.layers == nil || r.layers[l] }

// SVG renders a layout preview of doc.
func SVG(doc *cellio.Document, opts ...SVGOption) []byte {
	r := svgRenderer{scale: DefaultScale, labels: true, ports: true, tracks: true}
	for _, o := range opts {
		o(&r)
	}
	if r.scale <= 0 {
		r.scale = DefaultScale
	}

	margin := doc.Pitch
	if margin <= 0 {
		margin = 100
	}
	b := doc.Bounds.Expand(margin)
	w, h := b.Width(), b.Height()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="%d %d %d %d" width="%.0f" height="%.0f">`+"\n",
		b.Left, -b.Top, w, h, float64(w)*r.scale, float64(h)*r.scale)
	fmt.Fprintf(&buf, `  <title>%s</title>`+"\n", html.EscapeString(doc.Name))
	fmt.Fprintf(&buf, `  <rect class="cell" x="%d" y="%d" width="%d" height="%d" fill="white" stroke="black" stroke-width="%d"/>`+"\n",
		doc.Bounds.Left, -doc.Bounds.Top, doc.Bounds.Width(), doc.Bounds.Height(), margin/20+1)

	r.renderInstances(&buf, doc)
	if r.tracks {
		r.renderTracks(&buf, doc)
	}
	r.renderMesh(&buf, doc)

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func writeRect(buf *bytes.Buffer, class string, s geom.Rect, attrs string) {
	fmt.Fprintf(buf, `  <rect class="%s" x="%d" y="%d" width="%d" height="%d" %s/>`+"\n",
		class, s.Left, -s.Top, s.Width(), s.Height(), attrs)
}

func (r *svgRenderer) renderInstances(buf *bytes.Buffer, doc *cellio.Document) {
	stroke := doc.Pitch/40 + 1
	for _, inst := range doc.Instances {
		fill, ok := kindFills[inst.Kind]
		if !ok {
			fill = "white"
		}
		writeRect(buf, "instance", inst.Bounds,
			fmt.Sprintf(`id="inst-%s" fill="%s" stroke="#9e9e9e" stroke-width="%d"`, html.EscapeString(inst.Name), fill, stroke))
		if r.ports {
			for _, p := range inst.Ports {
				writeRect(buf, "port", p.Shape,
					fmt.Sprintf(`fill="%s" fill-opacity="0.35" data-port="%s.%s"`, layerColor(p.Layer), html.EscapeString(inst.Name), p.Name))
			}
		}
		if r.labels {
			c := inst.Bounds.Center()
			fmt.Fprintf(buf, `  <text x="%d" y="%d" font-size="%d" text-anchor="middle" font-family="monospace">%s</text>`+"\n",
				c.X, -c.Y, doc.Pitch/3+1, html.EscapeString(inst.Name))
		}
	}
}

func (r *svgRenderer) renderTracks(buf *bytes.Buffer, doc *cellio.Document) {
	for _, t := range doc.Tracks {
		writeRect(buf, "track", t.Port.Shape,
			fmt.Sprintf(`fill="%s" fill-opacity="0.6" data-signal="%s"`, layerColor(t.Port.Layer), html.EscapeString(t.Signal)))
		if r.labels {
			fmt.Fprintf(buf, `  <text x="%d" y="%d" font-size="%d" font-family="monospace">%s</text>`+"\n",
				t.Port.Shape.Right+doc.Pitch/8, -t.Port.Shape.Bottom, doc.Pitch/3+1, html.EscapeString(t.Signal))
		}
	}
}

func (r *svgRenderer) renderMesh(buf *bytes.Buffer, doc *cellio.Document) {
	for _, w := range doc.Wires {
		if !r.showLayer(w.Layer) {
			continue
		}
		writeRect(buf, "wire", w.Shape,
			fmt.Sprintf(`fill="%s" fill-opacity="0.5" data-net="%s"`, layerColor(w.Layer), html.EscapeString(w.Net)))
	}
	for _, v := range doc.Vias {
		if !r.showLayer(v.Below) && !r.showLayer(v.Above) {
			continue
		}
		writeRect(buf, "via", v.Cut, `fill="black" fill-opacity="0.7"`)
	}
}
