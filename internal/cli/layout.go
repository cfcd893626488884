package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/strongarm/pkg/cellio"
	"github.com/matzehuels/strongarm/pkg/comparator"
	"github.com/matzehuels/strongarm/pkg/config"
	"github.com/matzehuels/strongarm/pkg/pipeline"
	"github.com/matzehuels/strongarm/pkg/render"
)

// layoutOpts holds the command-line flags for the layout command.
type layoutOpts struct {
	output    string
	formats   string
	skipRoute bool
	refresh   bool
}

// layoutCommand creates the layout command that generates one cell.
func (c *CLI) layoutCommand() *cobra.Command {
	var opts layoutOpts
	params := comparator.DefaultParams()

	cmd := &cobra.Command{
		Use:   "layout [plan file]",
		Short: "Generate a comparator layout",
		Long: `Generate a StrongARM comparator layout.

Sizing comes from an optional plan file (TOML, YAML or JSON) and can be
overridden per field with flags. The cell is written as JSON (default
cell.json); --formats additionally renders SVG, PNG, PDF or the netlist.

Routed meshes and rendered artifacts are cached locally.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := resolveParams(args, cmd.Flags(), params)
			if err != nil {
				return err
			}
			formats := parseFormats(opts.formats)
			if opts.formats == "" {
				formats = nil
			}
			if err := validateFormats(formats); err != nil {
				return err
			}
			return c.runLayout(cmd.Context(), p, formats, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", defaultCellFile, "output cell file")
	cmd.Flags().StringVarP(&opts.formats, "formats", "f", "", "also render these formats: svg, png, pdf, dot, netlist (comma-separated)")
	cmd.Flags().BoolVar(&opts.skipRoute, "skip-route", false, "stop after track assignment")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached meshes and artifacts")
	paramFlags(cmd.Flags(), &params)

	return cmd
}

// paramFlags registers one flag per sizing parameter.
func paramFlags(fs *pflag.FlagSet, p *comparator.Params) {
	fs.StringVar(&p.Name, "name", p.Name, "cell name")
	fs.Int64Var(&p.HalfTailW, "half-tail-w", p.HalfTailW, "width of each half of the tail device")
	fs.Int64Var(&p.InputPairW, "input-pair-w", p.InputPairW, "input pair width")
	fs.Int64Var(&p.InvNmosW, "inv-nmos-w", p.InvNmosW, "latch NMOS width")
	fs.Int64Var(&p.InvPmosW, "inv-pmos-w", p.InvPmosW, "latch PMOS width")
	fs.Int64Var(&p.PrechargeW, "precharge-w", p.PrechargeW, "precharge width")
	fs.Int64Var(&p.Length, "length", p.Length, "channel length")
	fs.IntVar(&p.Fingers, "fingers", p.Fingers, "fingers per device")
}

// resolveParams loads the plan file, if any, and applies the flags the user
// set explicitly on top of it.
func resolveParams(args []string, fs *pflag.FlagSet, flags comparator.Params) (comparator.Params, error) {
	if len(args) == 0 {
		p := flags.WithDefaults()
		return p, p.Validate()
	}
	p, err := config.LoadPlan(args[0])
	if err != nil {
		return comparator.Params{}, fmt.Errorf("load plan %s: %w", args[0], err)
	}
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "name":
			p.Name = flags.Name
		case "half-tail-w":
			p.HalfTailW = flags.HalfTailW
		case "input-pair-w":
			p.InputPairW = flags.InputPairW
		case "inv-nmos-w":
			p.InvNmosW = flags.InvNmosW
		case "inv-pmos-w":
			p.InvPmosW = flags.InvPmosW
		case "precharge-w":
			p.PrechargeW = flags.PrechargeW
		case "length":
			p.Length = flags.Length
		case "fingers":
			p.Fingers = flags.Fingers
		}
	})
	return p, p.Validate()
}

// runLayout runs the pipeline and writes the cell and its artifacts.
func (c *CLI) runLayout(ctx context.Context, p comparator.Params, formats []string, opts layoutOpts) error {
	runner, err := c.newRunner()
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Generating %s...", p.Name))
	spinner.Start()

	result, err := runner.Execute(ctx, pipeline.Options{
		Params:    p,
		Formats:   formats,
		Refresh:   opts.refresh,
		SkipRoute: opts.skipRoute,
		Logger:    c.Logger,
	})
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("generate %s: %w", p.Name, err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	doc := result.Cell.Document(c.Process)
	if err := cellio.WriteFile(opts.output, doc); err != nil {
		return fmt.Errorf("write output %s: %w", opts.output, err)
	}

	printSuccess("Layout complete")
	printFile(opts.output)
	for _, f := range formats {
		if f == render.FormatJSON {
			continue
		}
		path := artifactPath(opts.output, f)
		if err := os.WriteFile(path, result.Artifacts[f], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
	}
	printStats(doc.Stats(), result.CacheInfo.MeshHit)
	if opts.skipRoute {
		printWarning("Routing skipped; the cell has no wires")
	}
	printNewline()
	printNextStep("Inspect", appName+" inspect "+opts.output)

	return nil
}
