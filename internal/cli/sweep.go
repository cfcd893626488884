package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/strongarm/pkg/cellio"
	"github.com/matzehuels/strongarm/pkg/config"
	"github.com/matzehuels/strongarm/pkg/pipeline"
	"github.com/matzehuels/strongarm/pkg/render"
)

// sweepCommand creates the sweep command that builds many cells in parallel.
func (c *CLI) sweepCommand() *cobra.Command {
	var (
		outDir      string
		formats     string
		concurrency int
		skipRoute   bool
	)

	cmd := &cobra.Command{
		Use:   "sweep [sweep file]",
		Short: "Generate a batch of comparator layouts in parallel",
		Long: `Generate every cell listed in a sweep file.

The file is TOML with one [[cells]] table per cell, or YAML with a cells:
list. Each cell is written to <output>/<name>.json. The first failing cell
cancels the rest.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var fs []string
			if formats != "" {
				fs = parseFormats(formats)
			}
			if err := validateFormats(fs); err != nil {
				return err
			}
			runs, err := sweepRuns(args[0], fs, skipRoute)
			if err != nil {
				return err
			}
			return c.runSweep(cmd.Context(), runs, outDir, concurrency)
		},
	}

	cmd.Flags().StringVarP(&outDir, "output", "o", ".", "output directory")
	cmd.Flags().StringVarP(&formats, "formats", "f", "", "also render these formats (comma-separated)")
	cmd.Flags().IntVarP(&concurrency, "jobs", "j", pipeline.DefaultConcurrency, "cells built at once")
	cmd.Flags().BoolVar(&skipRoute, "skip-route", false, "stop after track assignment")

	return cmd
}

// sweepRuns loads the sweep file and rejects duplicate cell names, which
// would overwrite each other's output.
func sweepRuns(path string, formats []string, skipRoute bool) ([]pipeline.Options, error) {
	params, err := config.LoadSweep(path)
	if err != nil {
		return nil, fmt.Errorf("load sweep %s: %w", path, err)
	}
	seen := make(map[string]bool, len(params))
	runs := make([]pipeline.Options, len(params))
	for i, p := range params {
		if seen[p.Name] {
			return nil, fmt.Errorf("sweep %s: duplicate cell name %q", path, p.Name)
		}
		seen[p.Name] = true
		runs[i] = pipeline.Options{Params: p, Formats: formats, SkipRoute: skipRoute}
	}
	return runs, nil
}

func (c *CLI) runSweep(ctx context.Context, runs []pipeline.Options, outDir string, concurrency int) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", outDir, err)
	}

	runner, err := c.newRunner()
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Generating %d cells...", len(runs)))
	spinner.Start()
	prog := newProgress(loggerFromContext(ctx))

	results, err := runner.SweepResults(ctx, runs, concurrency)
	if err != nil {
		spinner.StopWithError("Sweep failed")
		return err
	}
	spinner.Stop()
	prog.done("sweep complete", "cells", len(results))

	for _, res := range results {
		doc := res.Cell.Document(c.Process)
		path := filepath.Join(outDir, doc.Name+".json")
		if err := cellio.WriteFile(path, doc); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printSuccess("%s", doc.Name)
		printFile(path)
		for format, data := range res.Artifacts {
			if format == render.FormatJSON {
				continue
			}
			ap := artifactPath(path, format)
			if err := os.WriteFile(ap, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", ap, err)
			}
			printFile(ap)
		}
		printStats(doc.Stats(), res.CacheInfo.MeshHit)
	}
	return nil
}
