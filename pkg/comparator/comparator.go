// Package comparator describes the StrongARM clocked latch comparator: its
// parameters, the fixed six-row composition plan, the device netlist and the
// track plan for its external signals.
//
// Rows, top to bottom:
//
//	ntap          guard, n-well tap (vdd)
//	precharge_a   PMOS, d=outn/outp g=clock s=vdd
//	precharge_b   PMOS, d=intn/intp g=clock s=vdd
//	inv_pmos      PMOS, d=outn/outp g=outp/outn s=vdd
//	inv_nmos      NMOS, d=outn/outp g=outp/outn s=intn/intp
//	input         NMOS, d=intn/intp g=inp/inn s=tail
//	tail          NMOS, d=tail g=clock s=vss
//	ptap          guard, substrate tap (vss)
package comparator

import (
	"github.com/matzehuels/strongarm/pkg/cache"
	apperrors "github.com/matzehuels/strongarm/pkg/errors"
	"github.com/matzehuels/strongarm/pkg/netlist"
	"github.com/matzehuels/strongarm/pkg/place"
	"github.com/matzehuels/strongarm/pkg/tile"
	"github.com/matzehuels/strongarm/pkg/track"
)

// External signals.
const (
	Clock = "clock"
	InP   = "inp"
	InN   = "inn"
	OutP  = "outp"
	OutN  = "outn"
	Vdd   = "vdd"
	Vss   = "vss"
)

// Internal nets.
const (
	Tail = "tail"
	IntN = "intn"
	IntP = "intp"
)

// Row names.
const (
	RowPrechargeA = "precharge_a"
	RowPrechargeB = "precharge_b"
	RowInvPmos    = "inv_pmos"
	RowInvNmos    = "inv_nmos"
	RowInput      = "input"
	RowTail       = "tail"
)

// Signals lists the track-assigned signals in track order. Consumers address
// tracks positionally, so the order is fixed.
var Signals = []string{Clock, InP, InN, OutP, OutN}

// Supplies lists the supply ports.
var Supplies = []string{Vdd, Vss}

// Default device parameters, in nanometres.
const (
	DefaultHalfTailW  = 1250
	DefaultInputPairW = 4000
	DefaultInvNmosW   = 2000
	DefaultInvPmosW   = 1000
	DefaultPrechargeW = 1000
	DefaultLength     = 150
	DefaultFingers    = 2
	DefaultName       = "strongarm"
)

// Params sizes one comparator.
type Params struct {
	Name       string `json:"name" toml:"name" yaml:"name"`
	HalfTailW  int64  `json:"half_tail_w" toml:"half_tail_w" yaml:"half_tail_w"`
	InputPairW int64  `json:"input_pair_w" toml:"input_pair_w" yaml:"input_pair_w"`
	InvNmosW   int64  `json:"inv_nmos_w" toml:"inv_nmos_w" yaml:"inv_nmos_w"`
	InvPmosW   int64  `json:"inv_pmos_w" toml:"inv_pmos_w" yaml:"inv_pmos_w"`
	PrechargeW int64  `json:"precharge_w" toml:"precharge_w" yaml:"precharge_w"`
	Length     int64  `json:"length" toml:"length" yaml:"length"`
	Fingers    int    `json:"fingers" toml:"fingers" yaml:"fingers"`
}

// DefaultParams returns the reference sizing.
func DefaultParams() Params {
	return Params{
		Name:       DefaultName,
		HalfTailW:  DefaultHalfTailW,
		InputPairW: DefaultInputPairW,
		InvNmosW:   DefaultInvNmosW,
		InvPmosW:   DefaultInvPmosW,
		PrechargeW: DefaultPrechargeW,
		Length:     DefaultLength,
		Fingers:    DefaultFingers,
	}
}

// WithDefaults fills zero fields from DefaultParams.
func (p Params) WithDefaults() Params {
	d := DefaultParams()
	if p.Name == "" {
		p.Name = d.Name
	}
	if p.HalfTailW == 0 {
		p.HalfTailW = d.HalfTailW
	}
	if p.InputPairW == 0 {
		p.InputPairW = d.InputPairW
	}
	if p.InvNmosW == 0 {
		p.InvNmosW = d.InvNmosW
	}
	if p.InvPmosW == 0 {
		p.InvPmosW = d.InvPmosW
	}
	if p.PrechargeW == 0 {
		p.PrechargeW = d.PrechargeW
	}
	if p.Length == 0 {
		p.Length = d.Length
	}
	if p.Fingers == 0 {
		p.Fingers = d.Fingers
	}
	return p
}

// Validate rejects non-positive dimensions and bad names.
func (p Params) Validate() error {
	if err := apperrors.ValidateName(p.Name); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeConfiguration, err, "cell name")
	}
	for _, f := range []struct {
		name string
		v    int64
	}{
		{"half_tail_w", p.HalfTailW},
		{"input_pair_w", p.InputPairW},
		{"inv_nmos_w", p.InvNmosW},
		{"inv_pmos_w", p.InvPmosW},
		{"precharge_w", p.PrechargeW},
		{"length", p.Length},
		{"fingers", int64(p.Fingers)},
	} {
		if err := apperrors.ValidatePositive(f.name, f.v); err != nil {
			return err
		}
	}
	return nil
}

// Hash returns a stable digest of the parameters, used in cache keys.
func (p Params) Hash() string {
	return cache.HashJSON(p)
}

// Design is everything needed to lay out one comparator.
type Design struct {
	Params  Params
	Plan    place.Plan
	Netlist *netlist.Netlist
	Tracks  track.Plan
	// SupplyPorts maps vdd and vss to the tap ports that carry them.
	SupplyPorts map[string]PortRef
}

// PortRef names an instance port.
type PortRef struct {
	Instance string `json:"instance"`
	Port     string `json:"port"`
}

// Build derives the composition plan, netlist and track plan from params.
func Build(p Params) (*Design, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	dev := func(kind tile.Kind, w int64) tile.Params {
		return tile.Params{Kind: kind, Width: w, Length: p.Length, Fingers: p.Fingers}
	}
	row := func(name string, kind tile.Kind, w int64) place.Row {
		return place.Row{Name: name, Left: dev(kind, w), Right: dev(kind, w)}
	}
	plan := place.Plan{
		Name: p.Name,
		Rows: []place.Row{
			row(RowPrechargeA, tile.Pmos, p.PrechargeW),
			row(RowPrechargeB, tile.Pmos, p.PrechargeW),
			row(RowInvPmos, tile.Pmos, p.InvPmosW),
			row(RowInvNmos, tile.Nmos, p.InvNmosW),
			row(RowInput, tile.Nmos, p.InputPairW),
			row(RowTail, tile.Nmos, p.HalfTailW),
		},
		GuardRow: RowTail,
	}

	nl, err := connectivity(p, plan)
	if err != nil {
		return nil, err
	}

	tracks := track.Plan{
		Sources: []track.Source{
			{Instance: plan.Rows[5].LeftName(), Port: tile.PortGate, Mode: track.Shrink, Count: 1},
			{Instance: plan.Rows[4].LeftName(), Port: tile.PortGate, Mode: track.Expand, Count: 2},
			{Instance: plan.Rows[2].LeftName(), Port: tile.PortGate, Mode: track.Expand, Count: 2},
		},
		Signals: append([]string(nil), Signals...),
	}

	return &Design{
		Params:  p,
		Plan:    plan,
		Netlist: nl,
		Tracks:  tracks,
		SupplyPorts: map[string]PortRef{
			Vdd: {Instance: place.NtapName, Port: tile.PortVpb},
			Vss: {Instance: place.PtapName, Port: tile.PortVnb},
		},
	}, nil
}

// pairNets gives the (d, g, s) nets of the left and right device of a row.
type pairNets [2][3]string

func connectivity(p Params, plan place.Plan) (*netlist.Netlist, error) {
	nl := netlist.New(p.Name, Clock, InP, InN, OutP, OutN, Vdd, Vss)

	rows := map[string]pairNets{
		RowPrechargeA: {{OutN, Clock, Vdd}, {OutP, Clock, Vdd}},
		RowPrechargeB: {{IntN, Clock, Vdd}, {IntP, Clock, Vdd}},
		RowInvPmos:    {{OutN, OutP, Vdd}, {OutP, OutN, Vdd}},
		RowInvNmos:    {{OutN, OutP, IntN}, {OutP, OutN, IntP}},
		RowInput:      {{IntN, InP, Tail}, {IntP, InN, Tail}},
		RowTail:       {{Tail, Clock, Vss}, {Tail, Clock, Vss}},
	}
	for _, r := range plan.Rows {
		nets, ok := rows[r.Name]
		if !ok {
			return nil, apperrors.Configuration("no connectivity for row %s", r.Name)
		}
		body := Vss
		if r.Left.Kind == tile.Pmos {
			body = Vdd
		}
		for i, inst := range []string{r.LeftName(), r.RightName()} {
			n := nets[i]
			if err := nl.Connect(inst, netlist.MosPorts(p.Fingers, n[0], n[1], n[2], body)); err != nil {
				return nil, err
			}
		}
	}
	if err := nl.Bind(place.NtapName, tile.PortVpb, Vdd); err != nil {
		return nil, err
	}
	if err := nl.Bind(place.PtapName, tile.PortVnb, Vss); err != nil {
		return nil, err
	}
	return nl, nil
}
