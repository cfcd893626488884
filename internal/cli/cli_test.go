package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/matzehuels/strongarm/pkg/cellio"
	"github.com/matzehuels/strongarm/pkg/comparator"
	apperrors "github.com/matzehuels/strongarm/pkg/errors"
)

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty defaults to svg", "", []string{"svg"}},
		{"single format", "svg", []string{"svg"}},
		{"multiple formats", "svg,pdf,png", []string{"svg", "pdf", "png"}},
		{"spaces and blanks", " svg, ,netlist ", []string{"svg", "netlist"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseFormats(tt.input)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("parseFormats(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateFormats(t *testing.T) {
	tests := []struct {
		name    string
		formats []string
		wantErr bool
	}{
		{"valid svg", []string{"svg"}, false},
		{"valid all", []string{"svg", "pdf", "png", "json", "dot", "netlist"}, false},
		{"invalid format", []string{"gds"}, true},
		{"mixed valid invalid", []string{"svg", "gds"}, true},
		{"empty slice", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFormats(tt.formats)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateFormats(%v) error = %v, wantErr %v", tt.formats, err, tt.wantErr)
			}
			if err != nil && apperrors.GetCode(err) != apperrors.ErrCodeInvalidFormat {
				t.Errorf("code = %s, want %s", apperrors.GetCode(err), apperrors.ErrCodeInvalidFormat)
			}
		})
	}
}

func TestArtifactPath(t *testing.T) {
	tests := []struct {
		base, format, want string
	}{
		{"cell.json", "svg", "cell.svg"},
		{"out/cmp.json", "pdf", "out/cmp.pdf"},
		{"cell.json", "netlist", "cell.netlist.svg"},
		{"cell", "png", "cell.png"},
	}
	for _, tt := range tests {
		if got := artifactPath(tt.base, tt.format); got != tt.want {
			t.Errorf("artifactPath(%q, %q) = %q, want %q", tt.base, tt.format, got, tt.want)
		}
	}
}

func TestResolveParams(t *testing.T) {
	dir := t.TempDir()
	plan := filepath.Join(dir, "plan.toml")
	if err := os.WriteFile(plan, []byte("name = \"fast\"\nfingers = 4\ninput_pair_w = 2000\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	newFlags := func(args ...string) (*pflag.FlagSet, comparator.Params) {
		p := comparator.DefaultParams()
		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		paramFlags(fs, &p)
		if err := fs.Parse(args); err != nil {
			t.Fatal(err)
		}
		return fs, p
	}

	t.Run("flags only", func(t *testing.T) {
		fs, flags := newFlags("--fingers", "6")
		p, err := resolveParams(nil, fs, flags)
		if err != nil {
			t.Fatalf("resolveParams: %v", err)
		}
		if p.Fingers != 6 || p.Name != comparator.DefaultName {
			t.Errorf("params = %+v", p)
		}
	})

	t.Run("plan file", func(t *testing.T) {
		fs, flags := newFlags()
		p, err := resolveParams([]string{plan}, fs, flags)
		if err != nil {
			t.Fatalf("resolveParams: %v", err)
		}
		if p.Name != "fast" || p.Fingers != 4 || p.InputPairW != 2000 {
			t.Errorf("params = %+v", p)
		}
		if p.Length != comparator.DefaultLength {
			t.Errorf("Length = %d, want default %d", p.Length, comparator.DefaultLength)
		}
	})

	t.Run("flags override plan", func(t *testing.T) {
		fs, flags := newFlags("--name", "slow", "--length", "300")
		p, err := resolveParams([]string{plan}, fs, flags)
		if err != nil {
			t.Fatalf("resolveParams: %v", err)
		}
		if p.Name != "slow" || p.Length != 300 || p.Fingers != 4 {
			t.Errorf("params = %+v", p)
		}
	})

	t.Run("missing plan", func(t *testing.T) {
		fs, flags := newFlags()
		if _, err := resolveParams([]string{filepath.Join(dir, "nope.toml")}, fs, flags); err == nil {
			t.Error("expected error for missing plan")
		}
	})
}

func TestSweepRunsRejectsDuplicates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sweep.yaml")
	data := "cells:\n  - name: a\n  - name: a\n    fingers: 4\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := sweepRuns(path, nil, true); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("sweepRuns error = %v, want duplicate name", err)
	}
}

// execute runs the root command with args and returns its error.
func execute(t *testing.T, args ...string) error {
	t.Helper()
	var logs bytes.Buffer
	c := New(&logs, LogInfo)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(&logs)
	root.SetErr(&logs)
	return root.ExecuteContext(context.Background())
}

func TestLayoutRenderInspect(t *testing.T) {
	dir := t.TempDir()
	cell := filepath.Join(dir, "cell.json")

	if err := execute(t, "--no-cache", "layout", "--skip-route", "--name", "cmp", "-o", cell, "-f", "svg,dot"); err != nil {
		t.Fatalf("layout: %v", err)
	}
	doc, err := cellio.ReadFile(cell)
	if err != nil {
		t.Fatalf("read cell: %v", err)
	}
	if doc.Name != "cmp" {
		t.Errorf("Name = %q, want cmp", doc.Name)
	}
	if doc.Routed() {
		t.Error("skip-route cell should have no wires")
	}
	for _, f := range []string{"cell.svg", "cell.dot"} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			t.Errorf("missing artifact %s: %v", f, err)
		}
	}

	out := filepath.Join(dir, "again.json")
	if err := execute(t, "--no-cache", "render", cell, "-o", out, "-f", "svg"); err != nil {
		t.Fatalf("render: %v", err)
	}
	svg, err := os.ReadFile(filepath.Join(dir, "again.svg"))
	if err != nil {
		t.Fatalf("read svg: %v", err)
	}
	if !bytes.HasPrefix(svg, []byte("<svg")) && !bytes.Contains(svg, []byte("<svg")) {
		t.Error("render output is not SVG")
	}

	if err := execute(t, "inspect", "--plain", cell); err != nil {
		t.Fatalf("inspect: %v", err)
	}
}

func TestLayoutRejectsBadFormat(t *testing.T) {
	err := execute(t, "--no-cache", "layout", "-o", filepath.Join(t.TempDir(), "c.json"), "-f", "gds")
	if apperrors.GetCode(err) != apperrors.ErrCodeInvalidFormat {
		t.Errorf("error = %v, want INVALID_FORMAT", err)
	}
}

func TestLayoutRejectsBadProcess(t *testing.T) {
	err := execute(t, "--process", filepath.Join(t.TempDir(), "missing.toml"), "layout")
	if apperrors.GetCode(err) != apperrors.ErrCodeInvalidPath {
		t.Errorf("error = %v, want INVALID_PATH", err)
	}
}

func TestSweepCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sweep.toml")
	data := "[[cells]]\nname = \"a\"\n\n[[cells]]\nname = \"b\"\nfingers = 4\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "out")
	if err := execute(t, "--no-cache", "sweep", path, "--skip-route", "-o", out, "-j", "2"); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	for _, name := range []string{"a", "b"} {
		doc, err := cellio.ReadFile(filepath.Join(out, name+".json"))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if doc.Params.Name != name {
			t.Errorf("Params.Name = %q, want %q", doc.Params.Name, name)
		}
	}
}

func TestCacheClear(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	dir, err := cacheDir()
	if err != nil {
		t.Fatal(err)
	}
	if err := execute(t, "cache", "clear"); err != nil {
		t.Fatalf("clear empty cache: %v", err)
	}

	sub := filepath.Join(dir, "ab")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "entry.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := execute(t, "cache", "clear"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := os.Stat(filepath.Join(sub, "entry.json")); !os.IsNotExist(err) {
		t.Errorf("entry still present: %v", err)
	}
}
