// Package config loads process descriptions and comparator plan files.
//
// A [Process] carries every process-specific constant the layout flow needs:
// the layer stack, the lattice and routing top layers, placement constants
// (diffusion extension, tap height, guard inset), track port constants and
// via dimensions. [Default] returns a built-in sky130-like process; process
// files are TOML and are layered over the defaults.
//
// Plan files hold [comparator.Params] and may be TOML or YAML, selected by
// file extension.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/strongarm/pkg/cache"
	"github.com/matzehuels/strongarm/pkg/comparator"
	apperrors "github.com/matzehuels/strongarm/pkg/errors"
	"github.com/matzehuels/strongarm/pkg/geom"
	"github.com/matzehuels/strongarm/pkg/grid"
	"github.com/matzehuels/strongarm/pkg/place"
	"github.com/matzehuels/strongarm/pkg/route"
	"github.com/matzehuels/strongarm/pkg/track"
)

// Via sizes the standard via generator.
type Via struct {
	CutSize   int64 `json:"cut_size" toml:"cut_size" yaml:"cut_size"`
	Enclosure int64 `json:"enclosure" toml:"enclosure" yaml:"enclosure"`
}

// Process describes a fabrication process.
type Process struct {
	Name   string     `json:"name" toml:"name" yaml:"name"`
	Layers grid.Stack `json:"layers" toml:"layers" yaml:"layers"`
	// TopLayer fixes the lattice: the coarse pitch is the LCM of the pitches
	// of layers 0..TopLayer.
	TopLayer int `json:"top_layer" toml:"top_layer" yaml:"top_layer"`
	// RouteTopLayer is the highest layer the router may use. Its pitch and
	// those below it must divide the coarse pitch.
	RouteTopLayer int          `json:"route_top_layer" toml:"route_top_layer" yaml:"route_top_layer"`
	RouteMargin   int64        `json:"route_margin" toml:"route_margin" yaml:"route_margin"`
	Place         place.Config `json:"place" toml:"place" yaml:"place"`
	Track         track.Config `json:"track" toml:"track" yaml:"track"`
	Via           Via          `json:"via" toml:"via" yaml:"via"`
}

// Default returns the built-in process.
func Default() Process {
	return Process{
		Name: "sky130",
		Layers: grid.Stack{
			{Name: "li1", Pitch: 340, Dir: geom.Vert},
			{Name: "met1", Pitch: 340, Dir: geom.Horiz},
			{Name: "met2", Pitch: 680, Dir: geom.Vert},
			{Name: "met3", Pitch: 680, Dir: geom.Horiz},
			{Name: "met4", Pitch: 1360, Dir: geom.Vert},
		},
		TopLayer:      2,
		RouteTopLayer: 3,
		RouteMargin:   route.DefaultMargin,
		Place:         place.DefaultConfig(),
		Track:         track.DefaultConfig(),
		Via:           Via{CutSize: route.DefaultCutSize, Enclosure: route.DefaultEnclosure},
	}
}

// Validate checks layer indices and that routing layers fit the lattice.
func (p Process) Validate() error {
	if len(p.Layers) == 0 {
		return apperrors.Configuration("process %s has no layers", p.Name)
	}
	pitch, err := p.Layers.CoarsePitch(p.TopLayer)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeConfiguration, err, "process %s", p.Name)
	}
	if p.RouteTopLayer < 1 || p.RouteTopLayer >= len(p.Layers) {
		return apperrors.Configuration("route top layer %d outside stack of %d layers", p.RouteTopLayer, len(p.Layers))
	}
	for i := 0; i <= p.RouteTopLayer; i++ {
		l := p.Layers[i]
		if l.Pitch <= 0 || pitch%l.Pitch != 0 {
			return apperrors.Configuration("layer %s pitch %d does not divide lattice pitch %d", l.Name, l.Pitch, pitch)
		}
	}
	if p.Track.Layer < 1 || p.Track.Layer > p.RouteTopLayer {
		return apperrors.Configuration("track layer %d outside routing layers 1..%d", p.Track.Layer, p.RouteTopLayer)
	}
	if p.Place.TapHeight <= 0 {
		return apperrors.Configuration("tap height must be positive, got %d", p.Place.TapHeight)
	}
	if p.Via.CutSize <= 0 {
		return apperrors.Configuration("via cut size must be positive, got %d", p.Via.CutSize)
	}
	return nil
}

// Grid returns the process lattice.
func (p Process) Grid() (*grid.Grid, error) {
	g, err := grid.New(p.Layers, p.TopLayer)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeConfiguration, err, "process %s", p.Name)
	}
	return g, nil
}

// ViaMaker returns the process via generator.
func (p Process) ViaMaker() route.StdViaMaker {
	return route.StdViaMaker{CutSize: p.Via.CutSize, Enclosure: p.Via.Enclosure}
}

// Hash returns a stable digest of the process, used in cache keys.
func (p Process) Hash() string {
	return cache.HashJSON(p)
}

// LoadProcess reads a TOML process file over the defaults. An empty path
// returns Default().
func LoadProcess(path string) (Process, error) {
	p := Default()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Process{}, apperrors.Wrap(apperrors.ErrCodeInvalidPath, err, "read process file")
	}
	if err := DecodeProcess(data, &p); err != nil {
		return Process{}, err
	}
	return p, nil
}

// DecodeProcess decodes TOML into p, keeping fields the document omits.
// A [[layers]] table replaces the whole default stack.
func DecodeProcess(data []byte, p *Process) error {
	md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(p)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidFormat, err, "decode process")
	}
	if un := md.Undecoded(); len(un) > 0 {
		return apperrors.New(apperrors.ErrCodeInvalidFormat, "unknown process keys: %v", un)
	}
	return p.Validate()
}

// LoadPlan reads comparator parameters from a .toml, .yaml or .yml file.
// Missing fields take their defaults.
func LoadPlan(path string) (comparator.Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return comparator.Params{}, apperrors.Wrap(apperrors.ErrCodeInvalidPath, err, "read plan file")
	}
	return DecodePlan(data, filepath.Ext(path))
}

// DecodePlan decodes plan data in the format named by ext.
func DecodePlan(data []byte, ext string) (comparator.Params, error) {
	var p comparator.Params
	switch strings.ToLower(ext) {
	case ".toml":
		if _, err := toml.Decode(string(data), &p); err != nil {
			return comparator.Params{}, apperrors.Wrap(apperrors.ErrCodeInvalidFormat, err, "decode plan")
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &p); err != nil {
			return comparator.Params{}, apperrors.Wrap(apperrors.ErrCodeInvalidFormat, err, "decode plan")
		}
	case ".json":
		if err := json.Unmarshal(data, &p); err != nil {
			return comparator.Params{}, apperrors.Wrap(apperrors.ErrCodeInvalidFormat, err, "decode plan")
		}
	default:
		return comparator.Params{}, apperrors.New(apperrors.ErrCodeInvalidFormat, "unsupported plan format %q (use .toml, .yaml, .yml or .json)", ext)
	}
	p = p.WithDefaults()
	if err := p.Validate(); err != nil {
		return comparator.Params{}, err
	}
	return p, nil
}

// Sweep is a list of plans, as read by LoadSweep.
type Sweep struct {
	Cells []comparator.Params `json:"cells" toml:"cells" yaml:"cells"`
}

// LoadSweep reads a list of plans from a TOML ([[cells]]) or YAML (cells:)
// file. Each entry is completed with defaults.
func LoadSweep(path string) ([]comparator.Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidPath, err, "read sweep file")
	}
	var s Sweep
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		_, err = toml.Decode(string(data), &s)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &s)
	default:
		return nil, apperrors.New(apperrors.ErrCodeInvalidFormat, "unsupported sweep format %q", ext)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidFormat, err, "decode sweep")
	}
	if len(s.Cells) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "sweep %s has no cells", path)
	}
	out := make([]comparator.Params, len(s.Cells))
	for i, c := range s.Cells {
		c = c.WithDefaults()
		if c.Name == comparator.DefaultName {
			c.Name = fmt.Sprintf("%s_%d", comparator.DefaultName, i)
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("sweep cell %d: %w", i, err)
		}
		out[i] = c
	}
	return out, nil
}
