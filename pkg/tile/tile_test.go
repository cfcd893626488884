package tile

import (
	"testing"

	apperrors "github.com/matzehuels/strongarm/pkg/errors"
	"github.com/matzehuels/strongarm/pkg/geom"
)

func testGen() Generator { return Generator{Pitch: 680, DiffExt: 200} }

func TestMosFootprint(t *testing.T) {
	tests := []struct {
		width   int64
		fingers int
		wantW   int64
		wantH   int64
	}{
		{1250, 2, 3, 6},
		{4000, 2, 3, 9},
		{2000, 2, 3, 6},
		{1000, 4, 4, 8},
	}
	for _, tt := range tests {
		b, err := testGen().Mos(Params{Kind: Nmos, Width: tt.width, Length: 150, Fingers: tt.fingers})
		if err != nil {
			t.Fatalf("Mos(%d) error: %v", tt.width, err)
		}
		if got := b.Bounds(); got != geom.FromSize(tt.wantW, tt.wantH) {
			t.Errorf("Mos(w=%d, nf=%d).Bounds() = %v, want %dx%d", tt.width, tt.fingers, got, tt.wantW, tt.wantH)
		}
	}
}

func TestMosPorts(t *testing.T) {
	b, err := testGen().Mos(Params{Kind: Pmos, Width: 1250, Length: 150, Fingers: 2})
	if err != nil {
		t.Fatal(err)
	}
	if b.Kind() != Pmos {
		t.Errorf("Kind() = %v, want pmos", b.Kind())
	}

	want := map[string]geom.Span{
		"sd0": {Start: 0, Stop: 680},
		"g":   {Start: 680, Stop: 2040},
		"sd1": {Start: 2040, Stop: 2720},
		"sd2": {Start: 2720, Stop: 3400},
		"b":   {Start: 3400, Stop: 4080},
	}
	if len(b.Ports()) != len(want) {
		t.Fatalf("len(Ports()) = %d, want %d", len(b.Ports()), len(want))
	}
	for name, vspan := range want {
		p, ok := b.Port(name)
		if !ok {
			t.Fatalf("missing port %s", name)
		}
		if p.Shape.VSpan() != vspan {
			t.Errorf("port %s vspan = %v, want %v", name, p.Shape.VSpan(), vspan)
		}
		if p.Shape.Left != 340 || p.Shape.Right != 3*680-340 {
			t.Errorf("port %s hspan = %v", name, p.Shape.HSpan())
		}
		if p.Layer != 0 {
			t.Errorf("port %s layer = %d, want 0", name, p.Layer)
		}
	}
	if _, ok := b.Port("missing"); ok {
		t.Error("Port(missing) should not exist")
	}
}

func TestMosDeterministic(t *testing.T) {
	p := Params{Kind: Nmos, Width: 2000, Length: 150, Fingers: 2}
	a, _ := testGen().Mos(p)
	b, _ := testGen().Mos(p)
	if a.Name() != b.Name() || a.Bounds() != b.Bounds() {
		t.Errorf("Mos not deterministic: %s %v vs %s %v", a.Name(), a.Bounds(), b.Name(), b.Bounds())
	}
	pa, pb := a.Ports(), b.Ports()
	for i := range pa {
		if pa[i] != pb[i] {
			t.Errorf("port %d differs: %v vs %v", i, pa[i], pb[i])
		}
	}
}

func TestMosInvalid(t *testing.T) {
	tests := []struct {
		name string
		p    Params
	}{
		{"zero width", Params{Kind: Nmos, Width: 0, Length: 150, Fingers: 2}},
		{"negative length", Params{Kind: Nmos, Width: 100, Length: -1, Fingers: 2}},
		{"no fingers", Params{Kind: Nmos, Width: 100, Length: 150}},
		{"tap kind", Params{Kind: Ptap, Width: 100, Length: 150, Fingers: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testGen().Mos(tt.p)
			if !apperrors.Is(err, apperrors.ErrCodeConfiguration) {
				t.Errorf("Mos() error = %v, want CONFIGURATION", err)
			}
		})
	}
}

func TestTaps(t *testing.T) {
	g := testGen()

	p, err := g.Ptap(5, 2)
	if err != nil {
		t.Fatal(err)
	}
	port, ok := p.Port(PortVnb)
	if !ok {
		t.Fatal("ptap missing vnb")
	}
	if port.Layer != 1 || port.Shape != geom.FromSize(5*680, 2*680) {
		t.Errorf("vnb = %+v", port)
	}

	n, err := g.Ntap(5, 2)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := n.Port(PortVpb); !ok {
		t.Error("ntap missing vpb")
	}
	if !n.Kind().IsTap() || n.Kind() != Ntap {
		t.Errorf("Kind() = %v", n.Kind())
	}

	for _, w := range []int64{0, -3} {
		if _, err := g.Ptap(w, 2); !apperrors.Is(err, apperrors.ErrCodeConfiguration) {
			t.Errorf("Ptap(%d) error = %v, want CONFIGURATION", w, err)
		}
	}
}

func TestKindText(t *testing.T) {
	for _, k := range []Kind{Nmos, Pmos, Ptap, Ntap} {
		b, _ := k.MarshalText()
		var got Kind
		if err := got.UnmarshalText(b); err != nil || got != k {
			t.Errorf("round trip %v = %v, %v", k, got, err)
		}
	}
	var k Kind
	if err := k.UnmarshalText([]byte("bjt")); err == nil {
		t.Error("UnmarshalText(bjt) should fail")
	}
}
