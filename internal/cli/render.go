package cli

import (
	"github.com/spf13/cobra"

	"github.com/flatnode/flatnode/pkg/pipeline"
)

// renderCommand creates the render command, a shortcut from bundle to SVG.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		output  string
		noCache bool
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "render [bundle]",
		Short: "Inline a bundle and render it straight to SVG",
		Long: `Inline a bundle and render it straight to SVG.

The render command is a shortcut for 'inline -f svg'. The bundle is
flattened, the graph is laid out with Graphviz, and the SVG is written
next to the bundle file unless --output says otherwise.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Path = args[0]
			opts.Formats = []string{pipeline.FormatSVG}
			return c.runInline(cmd.Context(), opts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, or '-' for stdout")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "bypass cached results")
	cmd.Flags().StringVarP(&opts.Root, "root", "r", "", "root tree (overrides the bundle's root)")
	cmd.Flags().BoolVar(&opts.Detailed, "detailed", false, "include entity ids in node labels")

	return cmd
}
