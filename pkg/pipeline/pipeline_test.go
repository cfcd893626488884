package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/strongarm/pkg/cache"
	"github.com/matzehuels/strongarm/pkg/cellio"
	"github.com/matzehuels/strongarm/pkg/comparator"
	"github.com/matzehuels/strongarm/pkg/config"
	apperrors "github.com/matzehuels/strongarm/pkg/errors"
	"github.com/matzehuels/strongarm/pkg/observability"
	"github.com/matzehuels/strongarm/pkg/route"
)

// stubRouter draws one wire per net over the first terminal and records
// the requests it saw.
type stubRouter struct {
	calls atomic.Int32
	mu    sync.Mutex
	last  route.Request
	err   error
}

func (s *stubRouter) Route(ctx context.Context, req route.Request) (*route.Mesh, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.last = req
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	mesh := &route.Mesh{}
	for _, n := range req.Nets {
		mesh.Wires = append(mesh.Wires, route.Wire{Net: n.Name, Layer: 1, Shape: n.Terminals[0].Shape})
	}
	return mesh, nil
}

func newTestRunner(t *testing.T, c cache.Cache) (*Runner, *stubRouter) {
	t.Helper()
	r := NewRunner(config.Default(), c, nil, nil)
	stub := &stubRouter{}
	r.Router = stub
	r.RouterName = "stub"
	return r, stub
}

func TestNewRunnerDefaults(t *testing.T) {
	r := NewRunner(config.Default(), nil, nil, nil)
	if r.Cache == nil || r.Keyer == nil || r.Logger == nil || r.ViaMaker == nil {
		t.Fatal("NewRunner should fill nil collaborators")
	}
	bfs, ok := r.Router.(*route.BFSRouter)
	if !ok {
		t.Fatalf("Router = %T, want *route.BFSRouter", r.Router)
	}
	if bfs.TopLayer != 3 || bfs.Margin != route.DefaultMargin {
		t.Errorf("router = %+v", bfs)
	}
	if r.RouterName != DefaultRouterName {
		t.Errorf("RouterName = %q", r.RouterName)
	}
}

func TestExecuteSkipRoute(t *testing.T) {
	r, stub := newTestRunner(t, nil)
	res, err := r.Execute(context.Background(), Options{SkipRoute: true})
	if err != nil {
		t.Fatal(err)
	}
	c := res.Cell
	if c.Name != comparator.DefaultName {
		t.Errorf("Name = %q", c.Name)
	}
	if c.Stats.Instances != 14 {
		t.Errorf("instances = %d, want 14", c.Stats.Instances)
	}
	if c.Mesh != nil {
		t.Error("Mesh should be nil when routing is skipped")
	}
	if stub.calls.Load() != 0 {
		t.Error("router should not be called")
	}

	want := []string{"clock", "inp", "inn", "outp", "outn", "vdd", "vss"}
	if len(c.Ports) != len(want) {
		t.Fatalf("ports = %d, want %d", len(c.Ports), len(want))
	}
	for i, name := range want {
		if c.Ports[i].Name != name {
			t.Errorf("Ports[%d] = %s, want %s", i, c.Ports[i].Name, name)
		}
	}
	vdd, _ := c.Port("vdd")
	ntap, _ := c.Placement.Instance("ntap")
	if vdd.Shape != ntap.PhysicalBounds(c.Placement.Pitch()) {
		t.Errorf("vdd %v should cover ntap %v", vdd.Shape, ntap.PhysicalBounds(c.Placement.Pitch()))
	}
}

func TestRouteRequest(t *testing.T) {
	r, stub := newTestRunner(t, nil)
	c, err := r.Build(context.Background(), comparator.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if c.Mesh == nil {
		t.Fatal("Mesh is nil")
	}

	req := stub.last
	var names []string
	for _, n := range req.Nets {
		names = append(names, n.Name)
	}
	want := []string{"intn", "intp", "tail", "clock", "inp", "inn", "outp", "outn", "vdd", "vss"}
	if fmt.Sprint(names) != fmt.Sprint(want) {
		t.Errorf("net order = %v, want %v", names, want)
	}
	if len(req.GridPoints) != 5 {
		t.Errorf("grid points = %d, want 5", len(req.GridPoints))
	}
	if req.TrackLayer != 1 || req.Grid == nil || req.ViaMaker == nil {
		t.Errorf("request = %+v", req)
	}
	if len(req.Nets[3].Terminals) != 6 {
		t.Errorf("clock terminals = %d, want 6", len(req.Nets[3].Terminals))
	}
	if req.Nets[3].Terminals[0].Owner == "" {
		t.Error("terminal owner should be set")
	}
	if c.Stats.Nets != 10 || c.Stats.Wires != 10 {
		t.Errorf("stats = %+v", c.Stats)
	}
}

func TestBuildDefaultRoutes(t *testing.T) {
	r := NewRunner(config.Default(), nil, nil, nil)
	c, err := r.Build(context.Background(), comparator.DefaultParams())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if c.Mesh == nil {
		t.Fatal("Mesh is nil")
	}

	routed := make(map[string]bool)
	for _, n := range c.Mesh.Nets() {
		routed[n] = true
	}
	for _, n := range c.Design.Netlist.Nets() {
		if !routed[n] {
			t.Errorf("net %s has no geometry in the mesh", n)
		}
	}
	if c.Stats.Nets != len(c.Design.Netlist.Nets()) {
		t.Errorf("stats nets = %d, want %d", c.Stats.Nets, len(c.Design.Netlist.Nets()))
	}
}

func TestMeshCache(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r, stub := newTestRunner(t, fc)
	ctx := context.Background()
	p := comparator.DefaultParams()

	_, hit, err := r.BuildWithCacheInfo(ctx, p)
	if err != nil || hit {
		t.Fatalf("first build hit=%v err=%v", hit, err)
	}
	c, hit, err := r.BuildWithCacheInfo(ctx, p)
	if err != nil || !hit {
		t.Fatalf("second build hit=%v err=%v", hit, err)
	}
	if stub.calls.Load() != 1 {
		t.Errorf("router calls = %d, want 1", stub.calls.Load())
	}
	if len(c.Mesh.Wires) != 10 {
		t.Errorf("cached mesh wires = %d", len(c.Mesh.Wires))
	}

	if _, err := r.Execute(ctx, Options{Params: p, Refresh: true}); err != nil {
		t.Fatal(err)
	}
	if stub.calls.Load() != 2 {
		t.Errorf("refresh should reroute, calls = %d", stub.calls.Load())
	}

	// A different router must not reuse the mesh.
	r.RouterName = "other"
	if _, hit, _ := r.BuildWithCacheInfo(ctx, p); hit {
		t.Error("mesh cached under another router name")
	}
}

func TestRouteErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code apperrors.Code
	}{
		{"plain error becomes routing", errors.New("stuck"), apperrors.ErrCodeRouting},
		{"coded error kept", apperrors.New(apperrors.ErrCodeUnsupported, "nope"), apperrors.ErrCodeUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, stub := newTestRunner(t, nil)
			stub.err = tt.err
			c, err := r.Build(context.Background(), comparator.DefaultParams())
			if c != nil {
				t.Error("failed build should return no cell")
			}
			if got := apperrors.GetCode(err); got != tt.code {
				t.Errorf("code = %s, want %s", got, tt.code)
			}
		})
	}
}

func TestExecuteInvalid(t *testing.T) {
	r, _ := newTestRunner(t, nil)
	ctx := context.Background()

	_, err := r.Execute(ctx, Options{Formats: []string{"gds"}})
	if !apperrors.Is(err, apperrors.ErrCodeInvalidFormat) {
		t.Errorf("bad format err = %v", err)
	}

	p := comparator.DefaultParams()
	p.Fingers = -2
	_, err = r.Execute(ctx, Options{Params: p})
	if !apperrors.Is(err, apperrors.ErrCodeConfiguration) {
		t.Errorf("bad params err = %v", err)
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := r.Execute(cctx, Options{}); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled err = %v", err)
	}
}

func TestExecuteRender(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r, _ := newTestRunner(t, fc)
	ctx := context.Background()
	opts := Options{Formats: []string{"svg", "json", "dot"}}

	res, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.CacheInfo.RenderHit {
		t.Error("first render should miss")
	}
	for _, f := range opts.Formats {
		if len(res.Artifacts[f]) == 0 {
			t.Errorf("artifact %s empty", f)
		}
	}
	doc, err := cellio.Unmarshal(res.Artifacts["json"])
	if err != nil {
		t.Fatal(err)
	}
	if !doc.Routed() || len(doc.Instances) != 14 || len(doc.Ports) != 7 {
		t.Errorf("document stats = %+v", doc.Stats())
	}

	res, err = r.Execute(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !res.CacheInfo.MeshHit || !res.CacheInfo.RenderHit {
		t.Errorf("second run cache info = %+v", res.CacheInfo)
	}
}

func TestSweep(t *testing.T) {
	r, stub := newTestRunner(t, nil)
	var params []comparator.Params
	for i := 0; i < 5; i++ {
		p := comparator.DefaultParams()
		p.Name = fmt.Sprintf("cmp_%d", i)
		p.InputPairW = int64(2000 + 1000*i)
		params = append(params, p)
	}

	cells, err := r.Sweep(context.Background(), params, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(cells) != len(params) {
		t.Fatalf("cells = %d", len(cells))
	}
	for i, c := range cells {
		if c.Name != params[i].Name {
			t.Errorf("cells[%d] = %s, want %s", i, c.Name, params[i].Name)
		}
	}
	if stub.calls.Load() != 5 {
		t.Errorf("router calls = %d, want 5", stub.calls.Load())
	}

	// Wider input devices make taller cells.
	if cells[4].Placement.Bounds().Height() <= cells[0].Placement.Bounds().Height() {
		t.Error("cell height should grow with input pair width")
	}
}

func TestSweepFailure(t *testing.T) {
	r, _ := newTestRunner(t, nil)
	bad := comparator.DefaultParams()
	bad.Length = -1
	cells, err := r.Sweep(context.Background(), []comparator.Params{comparator.DefaultParams(), bad}, 0)
	if err == nil {
		t.Fatal("expected error")
	}
	if cells != nil {
		t.Error("failed sweep should return no cells")
	}
	if !apperrors.Is(err, apperrors.ErrCodeConfiguration) {
		t.Errorf("err = %v", err)
	}
}

type recordingHooks struct {
	observability.NoopPipelineHooks
	mu     sync.Mutex
	events []string
}

func (h *recordingHooks) record(e string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
}

func (h *recordingHooks) OnPlaceComplete(_ context.Context, cell string, n int, _ time.Duration, _ error) {
	h.record(fmt.Sprintf("place %s %d", cell, n))
}

func (h *recordingHooks) OnTrackComplete(_ context.Context, cell string, n int, _ time.Duration, _ error) {
	h.record(fmt.Sprintf("track %s %d", cell, n))
}

func (h *recordingHooks) OnRouteStart(_ context.Context, cell string, nets int) {
	h.record(fmt.Sprintf("route %s %d", cell, nets))
}

func TestPipelineHooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetPipelineHooks(hooks)
	defer observability.Reset()

	r, _ := newTestRunner(t, nil)
	if _, err := r.Build(context.Background(), comparator.DefaultParams()); err != nil {
		t.Fatal(err)
	}
	want := []string{"place strongarm 14", "track strongarm 5", "route strongarm 10"}
	if fmt.Sprint(hooks.events) != fmt.Sprint(want) {
		t.Errorf("events = %v, want %v", hooks.events, want)
	}
}
