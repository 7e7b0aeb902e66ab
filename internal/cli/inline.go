package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flatnode/flatnode/pkg/pipeline"
)

// inlineCommand creates the inline command for flattening bundles.
func (c *CLI) inlineCommand() *cobra.Command {
	var (
		formatsStr string
		output     string
		noCache    bool
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "inline [bundle]",
		Short: "Flatten a bundle of node trees into a single graph",
		Long: `Flatten a bundle of node trees into a single graph.

The inline command reads a bundle file (TOML or HCL, selected by file
extension), expands every group call site of the root tree recursively,
and writes the flattened graph in the requested formats. The JSON
output is the canonical snapshot; DOT and SVG are rendered views.

Results are cached locally for faster subsequent runs.

Examples:
  flatnode inline trees.toml                      # DOT to trees.dot
  flatnode inline trees.toml -f svg,json          # trees.svg and trees.json
  flatnode inline trees.hcl -r character -o out.dot`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Path = args[0]
			opts.Formats = parseFormats(formatsStr)
			if err := pipeline.ValidateFormats(opts.Formats); err != nil {
				return err
			}
			return c.runInline(cmd.Context(), opts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format), base path (multiple), or '-' for stdout")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "bypass cached results")
	cmd.Flags().StringVarP(&opts.Root, "root", "r", "", "root tree (overrides the bundle's root)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): dot (default), svg, json (comma-separated)")
	cmd.Flags().BoolVar(&opts.Detailed, "detailed", false, "include entity ids in DOT labels")

	return cmd
}

// runInline executes the pipeline and writes the requested artifacts.
func (c *CLI) runInline(ctx context.Context, opts pipeline.Options, output string, noCache bool) error {
	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts.Logger = c.Logger

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Inlining %s...", opts.Path))
	spinner.Start()

	result, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Inlining failed")
		return err
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	printSuccess("Inlined %s", result.Root)
	if err := writeArtifacts(artifactWriteParams{
		artifacts: result.Artifacts,
		formats:   opts.Formats,
		input:     opts.Path,
		output:    output,
	}); err != nil {
		return err
	}
	printStats(result.Stats.NodeCount, result.Stats.LinkCount,
		result.CacheInfo.InlineHit && result.CacheInfo.RenderHit)
	printNewline()
	printNextStep("Browse", "flatnode browse "+opts.Path)

	return nil
}
