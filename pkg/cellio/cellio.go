package cellio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/matzehuels/strongarm/pkg/comparator"
	apperrors "github.com/matzehuels/strongarm/pkg/errors"
	"github.com/matzehuels/strongarm/pkg/geom"
	"github.com/matzehuels/strongarm/pkg/grid"
	"github.com/matzehuels/strongarm/pkg/netlist"
	"github.com/matzehuels/strongarm/pkg/place"
	"github.com/matzehuels/strongarm/pkg/route"
	"github.com/matzehuels/strongarm/pkg/tile"
	"github.com/matzehuels/strongarm/pkg/track"
)

// Version is the document format version written by this package.
const Version = 1

// Document is the serialized form of a cell.
type Document struct {
	Version   int               `json:"version"`
	Name      string            `json:"name"`
	Process   string            `json:"process,omitempty"`
	Params    comparator.Params `json:"params"`
	Pitch     int64             `json:"pitch"`
	Layers    []grid.Layer      `json:"layers,omitempty"`
	Lattice   geom.Rect         `json:"lattice"`
	Bounds    geom.Rect         `json:"bounds"`
	Instances []Instance        `json:"instances"`
	Ports     []tile.Port       `json:"ports"`
	Tracks    []track.Track     `json:"tracks"`
	Wires     []route.Wire      `json:"wires,omitempty"`
	Vias      []route.Via       `json:"vias,omitempty"`
	Netlist   *netlist.Netlist  `json:"netlist,omitempty"`
}

// Instance is one placed tile.
type Instance struct {
	Name        string      `json:"name"`
	Kind        tile.Kind   `json:"kind"`
	Tile        string      `json:"tile"`
	Orientation string      `json:"orientation"`
	Lattice     geom.Rect   `json:"lattice"`
	Bounds      geom.Rect   `json:"bounds"`
	Ports       []tile.Port `json:"ports"`
}

// Instances converts the instances of a placement, in placement order.
func Instances(pl *place.Placement) []Instance {
	insts := pl.Instances()
	out := make([]Instance, len(insts))
	for i, inst := range insts {
		out[i] = Instance{
			Name:        inst.Name(),
			Kind:        inst.Tile().Kind(),
			Tile:        inst.Tile().Name(),
			Orientation: inst.Orientation().String(),
			Lattice:     inst.Bounds(),
			Bounds:      inst.PhysicalBounds(pl.Pitch()),
			Ports:       inst.Ports(pl.Pitch()),
		}
	}
	return out
}

// Instance returns the named instance.
func (d *Document) Instance(name string) (Instance, bool) {
	for _, inst := range d.Instances {
		if inst.Name == name {
			return inst, true
		}
	}
	return Instance{}, false
}

// Port returns the named cell port.
func (d *Document) Port(name string) (tile.Port, bool) {
	for _, p := range d.Ports {
		if p.Name == name {
			return p, true
		}
	}
	return tile.Port{}, false
}

// Routed reports whether the document carries a mesh.
func (d *Document) Routed() bool { return len(d.Wires) > 0 || len(d.Vias) > 0 }

// Stats summarizes a document.
type Stats struct {
	Instances int   `json:"instances"`
	Ports     int   `json:"ports"`
	Tracks    int   `json:"tracks"`
	Nets      int   `json:"nets"`
	Wires     int   `json:"wires"`
	Vias      int   `json:"vias"`
	Width     int64 `json:"width"`
	Height    int64 `json:"height"`
}

// Stats counts the document's contents.
func (d *Document) Stats() Stats {
	nets := make(map[string]bool)
	for _, w := range d.Wires {
		nets[w.Net] = true
	}
	for _, v := range d.Vias {
		nets[v.Net] = true
	}
	return Stats{
		Instances: len(d.Instances),
		Ports:     len(d.Ports),
		Tracks:    len(d.Tracks),
		Nets:      len(nets),
		Wires:     len(d.Wires),
		Vias:      len(d.Vias),
		Width:     d.Bounds.Width(),
		Height:    d.Bounds.Height(),
	}
}

// LayerNames returns the layer names in stack order, falling back to
// "L<i>" for documents without a stack.
func (d *Document) LayerNames(top int) []string {
	names := make([]string, top+1)
	for i := range names {
		if i < len(d.Layers) {
			names[i] = d.Layers[i].Name
		} else {
			names[i] = fmt.Sprintf("L%d", i)
		}
	}
	return names
}

// WireLayers returns the sorted set of layers used by wires.
func (d *Document) WireLayers() []int {
	seen := make(map[int]bool)
	for _, w := range d.Wires {
		seen[w.Layer] = true
	}
	out := make([]int, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Ints(out)
	return out
}

// =============================================================================
// Encoding
// =============================================================================

// Write encodes doc as indented JSON.
func Write(w io.Writer, doc *Document) error {
	if doc.Version == 0 {
		doc.Version = Version
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// Marshal returns the indented JSON encoding of doc.
func Marshal(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes doc to path.
func WriteFile(path string, doc *Document) error {
	f, err := os.Create(path)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidPath, err, "create %s", path)
	}
	defer f.Close()
	return Write(f, doc)
}

// Read decodes a document from r.
func Read(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidFormat, err, "decode cell")
	}
	if doc.Version > Version {
		return nil, apperrors.New(apperrors.ErrCodeUnsupported, "cell format version %d is newer than %d", doc.Version, Version)
	}
	if doc.Name == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidFormat, "cell has no name")
	}
	return &doc, nil
}

// Unmarshal decodes a document from data.
func Unmarshal(data []byte) (*Document, error) {
	return Read(bytes.NewReader(data))
}

// ReadFile reads a document from path.
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidPath, err, "open %s", path)
	}
	defer f.Close()
	return Read(f)
}
