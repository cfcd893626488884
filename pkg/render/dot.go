package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/strongarm/pkg/netlist"
)

// NetlistDOT converts a netlist to Graphviz DOT: instances are boxes, nets
// are ellipses, external ports are doubled ellipses, and each binding is an
// edge labelled with the instance port.
func NetlistDOT(nl *netlist.Netlist) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "graph %q {\n", nl.Name)
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [fontsize=14, fontname=\"monospace\"];\n")
	buf.WriteString("  edge [fontsize=10, color=\"#757575\"];\n")
	buf.WriteString("\n")

	for _, inst := range nl.Instances() {
		fmt.Fprintf(&buf, "  %q [shape=box, style=\"rounded,filled\", fillcolor=white];\n", "i:"+inst)
	}
	for _, net := range nl.Nets() {
		shape := "ellipse"
		if nl.IsPort(net) {
			shape = "doublecircle"
		}
		fmt.Fprintf(&buf, "  %q [label=%q, shape=%s];\n", "n:"+net, net, shape)
	}

	buf.WriteString("\n")
	for _, b := range nl.Bindings {
		fmt.Fprintf(&buf, "  %q -- %q [label=%q];\n", "i:"+b.Instance, "n:"+b.Net, b.Port)
	}
	buf.WriteString("}\n")
	return buf.String()
}

// NetlistSVG renders a netlist diagram to SVG using Graphviz.
func NetlistSVG(ctx context.Context, nl *netlist.Netlist) ([]byte, error) {
	return dotToSVG(ctx, NetlistDOT(nl))
}

func dotToSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites Graphviz's pt-sized root element to a plain
// viewBox so the diagram scales in browsers.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
