// Package netlist records which instance ports connect to which nets.
package netlist

import (
	"sort"

	apperrors "github.com/matzehuels/strongarm/pkg/errors"
	"github.com/matzehuels/strongarm/pkg/tile"
)

// Binding attaches one instance port to a net.
type Binding struct {
	Instance string `json:"instance"`
	Port     string `json:"port"`
	Net      string `json:"net"`
}

// Netlist is the connectivity of one cell.
type Netlist struct {
	Name     string    `json:"name"`
	Ports    []string  `json:"ports"`
	Bindings []Binding `json:"bindings"`

	index map[[2]string]int
}

// New returns an empty netlist with the given external ports.
func New(name string, ports ...string) *Netlist {
	return &Netlist{Name: name, Ports: append([]string(nil), ports...), index: make(map[[2]string]int)}
}

// Bind connects inst.port to net. A port may be bound once.
func (n *Netlist) Bind(inst, port, net string) error {
	if n.index == nil {
		n.reindex()
	}
	key := [2]string{inst, port}
	if k, dup := n.index[key]; dup {
		return apperrors.Configuration("%s.%s already bound to %s", inst, port, n.Bindings[k].Net)
	}
	if net == "" {
		return apperrors.Configuration("%s.%s bound to empty net", inst, port)
	}
	n.index[key] = len(n.Bindings)
	n.Bindings = append(n.Bindings, Binding{Instance: inst, Port: port, Net: net})
	return nil
}

// Connect binds several ports of one instance. Ports are bound in sorted
// order so the result does not depend on map iteration.
func (n *Netlist) Connect(inst string, ports map[string]string) error {
	names := make([]string, 0, len(ports))
	for p := range ports {
		names = append(names, p)
	}
	sort.Strings(names)
	for _, p := range names {
		if err := n.Bind(inst, p, ports[p]); err != nil {
			return err
		}
	}
	return nil
}

func (n *Netlist) reindex() {
	n.index = make(map[[2]string]int, len(n.Bindings))
	for k, b := range n.Bindings {
		n.index[[2]string{b.Instance, b.Port}] = k
	}
}

// NetOf returns the net bound to inst.port.
func (n *Netlist) NetOf(inst, port string) (string, bool) {
	if n.index == nil {
		n.reindex()
	}
	k, ok := n.index[[2]string{inst, port}]
	if !ok {
		return "", false
	}
	return n.Bindings[k].Net, true
}

// Nets returns every net name, sorted.
func (n *Netlist) Nets() []string {
	seen := make(map[string]bool)
	for _, b := range n.Bindings {
		seen[b.Net] = true
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Terminals returns the bindings of net in insertion order.
func (n *Netlist) Terminals(net string) []Binding {
	var out []Binding
	for _, b := range n.Bindings {
		if b.Net == net {
			out = append(out, b)
		}
	}
	return out
}

// Instances returns the bound instance names in first-seen order.
func (n *Netlist) Instances() []string {
	seen := make(map[string]bool)
	var out []string
	for _, b := range n.Bindings {
		if !seen[b.Instance] {
			seen[b.Instance] = true
			out = append(out, b.Instance)
		}
	}
	return out
}

// IsPort reports whether net is an external port.
func (n *Netlist) IsPort(net string) bool {
	for _, p := range n.Ports {
		if p == net {
			return true
		}
	}
	return false
}

// MosPorts returns the port bindings of a multi-finger MOS tile: even
// source/drain stripes on s, odd ones on d.
func MosPorts(fingers int, d, g, s, b string) map[string]string {
	m := map[string]string{tile.PortGate: g, tile.PortBody: b}
	for i := 0; i <= fingers; i++ {
		net := s
		if i%2 == 1 {
			net = d
		}
		m[tile.SDPort(i)] = net
	}
	return m
}
