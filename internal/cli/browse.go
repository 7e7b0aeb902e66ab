package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/flatnode/flatnode/pkg/pipeline"
)

// browseCommand creates the browse command for exploring inlined graphs.
func (c *CLI) browseCommand() *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "browse [bundle]",
		Short: "Explore an inlined graph interactively",
		Long: `Explore an inlined graph interactively.

The browse command flattens the bundle like 'inline' and opens a
terminal browser over the resulting graph. Each row is one inlined
node with its call-site path; selecting a node shows its sockets and
the links attached to them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := c.newRunner(true)
			if err != nil {
				return fmt.Errorf("initialize runner: %w", err)
			}
			defer runner.Close()

			logger := loggerFromContext(cmd.Context())

			bundle, _, err := runner.Parse(cmd.Context(), pipeline.Options{Path: args[0], Logger: logger})
			if err != nil {
				return err
			}
			rootTree := root
			if rootTree == "" {
				rootTree = bundle.Root
			}

			prog := newProgress(logger)
			g, err := runner.Inline(cmd.Context(), bundle, rootTree)
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Inlined %d nodes with %d links", g.NodeCount(), g.LinkCount()))

			model := newGraphBrowserModel(g)
			_, err = tea.NewProgram(model).Run()
			return err
		},
	}

	cmd.Flags().StringVarP(&root, "root", "r", "", "root tree (overrides the bundle's root)")

	return cmd
}
