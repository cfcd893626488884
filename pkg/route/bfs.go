package route

import (
	"context"

	apperrors "github.com/matzehuels/strongarm/pkg/errors"
	"github.com/matzehuels/strongarm/pkg/geom"
)

// DefaultMargin is the number of lattice units the router may use outside
// the cell bounds on each side.
const DefaultMargin = 2

const (
	free    = -1
	blocked = -2
)

// BFSRouter is a greedy breadth-first maze router.
//
// Nets are routed one at a time in request order. Each net grows a tree:
// it starts from the net's grid points (or its first terminal), then every
// other terminal is joined by the shortest path from the tree, found by
// breadth-first search over lattice nodes on layers 1..TopLayer. Moves go
// to the four in-layer neighbours or through a via to the adjacent layer.
// Terminals on layer 0 are reached through a 0-1 via.
//
// Nodes once used by a net are owned by it. Grid points and the access
// nodes of every terminal are reserved up front so that an earlier net
// cannot wall off a later net's pins.
type BFSRouter struct {
	TopLayer int
	Margin   int64
}

// NewBFSRouter returns a router using layers 1..top.
func NewBFSRouter(top int) *BFSRouter {
	return &BFSRouter{TopLayer: top, Margin: DefaultMargin}
}

type node struct {
	x, y  int64
	layer int
}

// space is the routing volume of one request.
type space struct {
	x0, y0 int64
	w, h   int64
	layers int
	pitch  int64
	owner  []int
}

func (s *space) index(n node) int {
	return ((n.layer-1)*int(s.h)+int(n.y-s.y0))*int(s.w) + int(n.x-s.x0)
}

func (s *space) node(i int) node {
	x := int64(i % int(s.w))
	rest := i / int(s.w)
	y := int64(rest % int(s.h))
	return node{x: x + s.x0, y: y + s.y0, layer: rest/int(s.h) + 1}
}

func (s *space) contains(n node) bool {
	return n.layer >= 1 && n.layer <= s.layers &&
		n.x >= s.x0 && n.x < s.x0+s.w &&
		n.y >= s.y0 && n.y < s.y0+s.h
}

// nodesIn returns the in-bounds nodes of a lattice rectangle (inclusive) on
// one layer.
func (s *space) nodesIn(r geom.Rect, layer int) []int {
	var out []int
	for y := r.Bottom; y <= r.Top; y++ {
		for x := r.Left; x <= r.Right; x++ {
			n := node{x: x, y: y, layer: layer}
			if s.contains(n) {
				out = append(out, s.index(n))
			}
		}
	}
	return out
}

// access returns the lattice nodes through which a terminal is reached. A
// node belongs to a pin when its physical position lies in the pin's shape,
// top and right edges excluded, so abutting pins never share a node.
func (s *space) access(t Terminal) []int {
	layer := t.Layer
	if layer < 1 {
		layer = 1
	}
	r := geom.Rect{
		Left:   ceilDiv(t.Shape.Left, s.pitch),
		Bottom: ceilDiv(t.Shape.Bottom, s.pitch),
		Right:  ceilDiv(t.Shape.Right, s.pitch) - 1,
		Top:    ceilDiv(t.Shape.Top, s.pitch) - 1,
	}
	if r.Right < r.Left || r.Top < r.Bottom {
		return nil
	}
	return s.nodesIn(r, layer)
}

// Route implements Router.
func (r *BFSRouter) Route(ctx context.Context, req Request) (*Mesh, error) {
	if err := req.Check(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeRouting, err, "invalid request")
	}
	if r.TopLayer < 1 || r.TopLayer >= len(req.Grid.Stack()) {
		return nil, apperrors.New(apperrors.ErrCodeRouting, "router top layer %d outside stack", r.TopLayer)
	}
	vias := req.ViaMaker
	if vias == nil {
		vias = NewStdViaMaker()
	}

	b := req.Bounds
	s := &space{
		x0:     b.Left - r.Margin,
		y0:     b.Bottom - r.Margin,
		w:      b.Width() + 2*r.Margin + 1,
		h:      b.Height() + 2*r.Margin + 1,
		layers: r.TopLayer,
		pitch:  req.Grid.Pitch(),
	}
	s.owner = make([]int, int(s.w*s.h)*s.layers)
	for i := range s.owner {
		s.owner[i] = free
	}
	for _, o := range req.Obstacles {
		for _, i := range s.nodesIn(o.Rect, o.Layer) {
			s.owner[i] = blocked
		}
	}

	// Reservations: pin access first, then corridors, which win conflicts.
	access := make([][][]int, len(req.Nets))
	for ni, net := range req.Nets {
		access[ni] = make([][]int, len(net.Terminals))
		for ti, t := range net.Terminals {
			if t.Layer > r.TopLayer {
				return nil, apperrors.New(apperrors.ErrCodeRouting, "net %s: terminal %s on layer %d above router top %d", net.Name, t.Owner, t.Layer, r.TopLayer)
			}
			access[ni][ti] = s.access(t)
			for _, i := range access[ni][ti] {
				if s.owner[i] == free {
					s.owner[i] = ni
				}
			}
		}
	}
	corridors := make([][]int, len(req.Nets))
	for ni, net := range req.Nets {
		for _, gp := range req.GridPoints[net.Name] {
			for _, i := range s.nodesIn(gp, req.TrackLayer) {
				if s.owner[i] != blocked {
					s.owner[i] = ni
				}
				corridors[ni] = append(corridors[ni], i)
			}
		}
	}

	mesh := &Mesh{}
	for ni, net := range req.Nets {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeRouting, err, "routing cancelled before net %s", net.Name)
		}
		nr := netRouter{s: s, net: ni, name: net.Name, vias: vias, mesh: mesh}
		if err := nr.route(net, access[ni], corridors[ni], req.TrackLayer); err != nil {
			return nil, err
		}
	}
	return mesh, nil
}

type netRouter struct {
	s    *space
	net  int
	name string
	vias ViaMaker
	mesh *Mesh
	tree map[int]bool
}

func (nr *netRouter) usable(i int) bool {
	o := nr.s.owner[i]
	return o == free || o == nr.net
}

func (nr *netRouter) route(net Net, access [][]int, corridor []int, trackLayer int) error {
	nr.tree = make(map[int]bool)
	var order []int // tree nodes in insertion order, for determinism

	add := func(i int) {
		if !nr.tree[i] {
			nr.tree[i] = true
			order = append(order, i)
		}
	}

	start := 0
	if len(corridor) > 0 {
		for _, i := range corridor {
			add(i)
		}
		nr.emitCorridor(corridor, trackLayer)
	} else if len(net.Terminals) > 0 {
		pins := nr.owned(access[0])
		if len(pins) == 0 {
			return nr.unreachable(net.Terminals[0])
		}
		// A layer-0 pin is only joined where its via lands.
		if net.Terminals[0].Layer < 1 {
			pins = pins[:1]
		}
		for _, i := range pins {
			add(i)
		}
		if err := nr.pinVia(net.Terminals[0], pins[0]); err != nil {
			return err
		}
		start = 1
	}

	for ti := start; ti < len(net.Terminals); ti++ {
		t := net.Terminals[ti]
		targets := nr.owned(access[ti])
		if len(targets) == 0 {
			return nr.unreachable(t)
		}
		if hit, ok := nr.firstInTree(targets); ok {
			if err := nr.pinVia(t, hit); err != nil {
				return err
			}
			continue
		}
		path := nr.search(order, targets)
		if path == nil {
			return nr.unreachable(t)
		}
		for _, i := range path {
			nr.s.owner[i] = nr.net
			add(i)
		}
		if err := nr.emitPath(path); err != nil {
			return err
		}
		if err := nr.pinVia(t, path[len(path)-1]); err != nil {
			return err
		}
		if t.Layer >= 1 {
			for _, i := range targets {
				add(i)
			}
		}
	}
	return nil
}

func (nr *netRouter) owned(nodes []int) []int {
	var out []int
	for _, i := range nodes {
		if nr.s.owner[i] == nr.net {
			out = append(out, i)
		}
	}
	return out
}

func (nr *netRouter) firstInTree(nodes []int) (int, bool) {
	for _, i := range nodes {
		if nr.tree[i] {
			return i, true
		}
	}
	return 0, false
}

// search runs a multi-source BFS from the tree and returns the path from a
// tree node to the first target reached, both ends included.
func (nr *netRouter) search(sources, targets []int) []int {
	s := nr.s
	isTarget := make(map[int]bool, len(targets))
	for _, t := range targets {
		isTarget[t] = true
	}
	prev := make(map[int]int, len(sources))
	queue := make([]int, 0, len(sources))
	for _, i := range sources {
		prev[i] = -1
		queue = append(queue, i)
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if isTarget[cur] && prev[cur] != -1 {
			var path []int
			for i := cur; i != -1; i = prev[i] {
				path = append(path, i)
			}
			for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
				path[l], path[r] = path[r], path[l]
			}
			return path
		}
		n := s.node(cur)
		for _, m := range []node{
			{n.x + 1, n.y, n.layer},
			{n.x - 1, n.y, n.layer},
			{n.x, n.y + 1, n.layer},
			{n.x, n.y - 1, n.layer},
			{n.x, n.y, n.layer + 1},
			{n.x, n.y, n.layer - 1},
		} {
			if !s.contains(m) {
				continue
			}
			j := s.index(m)
			if _, seen := prev[j]; seen || !nr.usable(j) {
				continue
			}
			prev[j] = cur
			queue = append(queue, j)
		}
	}
	return nil
}

// emitPath converts a node path into straight wire runs and vias.
func (nr *netRouter) emitPath(path []int) error {
	s := nr.s
	start := s.node(path[0])
	prev := start
	for k := 1; k < len(path); k++ {
		cur := s.node(path[k])
		switch {
		case cur.layer != prev.layer:
			nr.emitWire(start, prev)
			if err := nr.via(min(cur.layer, prev.layer), geom.Point{X: cur.x, Y: cur.y}); err != nil {
				return err
			}
			start = cur
		case !collinear(start, prev, cur):
			nr.emitWire(start, prev)
			start = prev
		}
		prev = cur
	}
	nr.emitWire(start, prev)
	return nil
}

func collinear(a, b, c node) bool {
	return (a.x == b.x && b.x == c.x) || (a.y == b.y && b.y == c.y)
}

func (nr *netRouter) emitWire(a, b node) {
	if a == b {
		return
	}
	p := nr.s.pitch
	r := geom.Rect{
		Left:   min(a.x, b.x) * p,
		Bottom: min(a.y, b.y) * p,
		Right:  max(a.x, b.x) * p,
		Top:    max(a.y, b.y) * p,
	}
	nr.mesh.Wires = append(nr.mesh.Wires, Wire{Net: nr.name, Layer: a.layer, Shape: r.Expand(p / 4)})
}

func (nr *netRouter) emitCorridor(nodes []int, layer int) {
	if len(nodes) == 0 {
		return
	}
	p := nr.s.pitch
	var rects []geom.Rect
	for _, i := range nodes {
		n := nr.s.node(i)
		rects = append(rects, geom.Rect{Left: n.x * p, Bottom: n.y * p, Right: n.x * p, Top: n.y * p})
	}
	bbox, _ := geom.BoundingBox(rects...)
	nr.mesh.Wires = append(nr.mesh.Wires, Wire{Net: nr.name, Layer: layer, Shape: bbox.Expand(p / 4)})
}

// pinVia drops a 0-1 via onto a layer-0 pin at node i.
func (nr *netRouter) pinVia(t Terminal, i int) error {
	if t.Layer >= 1 {
		return nil
	}
	n := nr.s.node(i)
	return nr.via(0, geom.Point{X: n.x, Y: n.y})
}

func (nr *netRouter) via(below int, at geom.Point) error {
	p := nr.s.pitch
	v, err := nr.vias.MakeVia(below, below+1, geom.Point{X: at.X * p, Y: at.Y * p})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeRouting, err, "net %s", nr.name)
	}
	v.Net = nr.name
	nr.mesh.Vias = append(nr.mesh.Vias, v)
	return nil
}

func (nr *netRouter) unreachable(t Terminal) error {
	return apperrors.Wrap(apperrors.ErrCodeRouting, ErrUnreachable, "net %s: terminal %s", nr.name, t.Owner)
}

func ceilDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) == (b < 0) {
		q++
	}
	return q
}
