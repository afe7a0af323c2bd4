package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/dajeum/internal/engine"
	"github.com/roach88/dajeum/internal/gateway"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the sequencer behind the HTTP gateway",
		Long: `Open the log (initializing it with the configured genesis if new), start
the single-writer sequencer and serve the HTTP gateway until interrupted.

On SIGINT or SIGTERM the gateway stops accepting requests, finishes those
in flight within shutdown_timeout, and then the sequencer drains its queue.

Examples:
  dajeum serve --db ./dajeum.db
  dajeum serve --config ./dajeum.yaml --listen :9090 --verbose`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (overrides config)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if opts.Listen != "" {
		cfg.ListenAddr = opts.Listen
	}
	grace, err := cfg.ShutdownDuration()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid shutdown_timeout", err)
	}

	metrics := gateway.NewMetrics()
	st, eng, err := openEngine(cmd, cfg, engine.WithObserver(metrics))
	if err != nil {
		return err
	}
	defer closeStore(st)

	seq, head := eng.Head()
	slog.Info("ledger ready", "db", cfg.DatabasePath, "head_seq", seq, "head", head)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	srv := gateway.New(eng, st, metrics)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// The sequencer outlives the gateway so in-flight requests finish.
		defer eng.Stop()
		return srv.ListenAndServe(gctx, cfg.ListenAddr, grace)
	})
	g.Go(func() error {
		return eng.Run(context.WithoutCancel(gctx))
	})

	fmt.Fprintf(cmd.OutOrStdout(), "Serving on %s. Press Ctrl-C to stop.\n", cfg.ListenAddr)
	if err := g.Wait(); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}

	slog.Info("stopped gracefully")
	return nil
}
