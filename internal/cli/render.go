package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/strongarm/pkg/cellio"
)

// renderCommand creates the render command for turning a cell file into
// drawings.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		output  string
		formats string
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "render [cell.json]",
		Short: "Render a cell file to SVG, PNG, PDF or a netlist diagram",
		Long: `Render a cell file produced by 'layout'.

PNG and PDF output require rsvg-convert on PATH. The netlist format draws
the connectivity graph with Graphviz; dot emits its source.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := parseFormats(formats)
			if err := validateFormats(fs); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args[0], output, fs, refresh)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output base path (default: the input path)")
	cmd.Flags().StringVarP(&formats, "formats", "f", "", "output format(s): svg (default), png, pdf, json, dot, netlist (comma-separated)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore cached artifacts")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, input, output string, formats []string, refresh bool) error {
	doc, err := cellio.ReadFile(input)
	if err != nil {
		return fmt.Errorf("load cell %s: %w", input, err)
	}
	if output == "" {
		output = input
	}

	runner, err := c.newRunner()
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	prog := newProgress(loggerFromContext(ctx))
	artifacts, cached, err := runner.RenderWithCacheInfo(ctx, doc, formats, refresh)
	if err != nil {
		return fmt.Errorf("render %s: %w", doc.Name, err)
	}
	prog.done("rendered", "cell", doc.Name, "formats", len(formats))

	printSuccess("Rendered %s", doc.Name)
	for _, f := range formats {
		path := artifactPath(output, f)
		if path == input {
			printWarning("Skipping %s: would overwrite the input", f)
			continue
		}
		if err := os.WriteFile(path, artifacts[f], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
	}
	printStats(doc.Stats(), cached)
	if !doc.Routed() {
		printWarning("Cell is not routed")
	}
	return nil
}
