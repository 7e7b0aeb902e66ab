package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/flatnode/flatnode/internal/server"
)

// shutdownTimeout bounds how long serve waits for in-flight requests on exit.
const shutdownTimeout = 15 * time.Second

// serveCommand creates the serve command for running the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the flatnode HTTP API",
		Long: `Run the flatnode HTTP API.

Configuration comes from the environment (a .env file in the working
directory is honored): FLATNODE_ADDR sets the listen address,
FLATNODE_REDIS_ADDR enables the redis result cache, and
FLATNODE_MONGO_URI / FLATNODE_MONGO_DB select the graph store. Without
a mongo URI, graphs are held in process memory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := server.ConfigFromEnv()
			if addr != "" {
				cfg.Addr = addr
			}
			return c.runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (overrides FLATNODE_ADDR)")

	return cmd
}

// runServe starts the server and blocks until the context is cancelled
// or an interrupt arrives.
func (c *CLI) runServe(ctx context.Context, cfg server.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.NewFromConfig(ctx, cfg, c.Logger)
	if err != nil {
		return fmt.Errorf("initialize server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	c.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
