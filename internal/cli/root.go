// Package cli implements the dajeum command line: a local operator tool for
// submitting operations, reading the ledgers, auditing the log and serving
// the HTTP gateway.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/dajeum/internal/config"
	"github.com/roach88/dajeum/internal/engine"
	"github.com/roach88/dajeum/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Database   string // overrides database_path from the config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the dajeum CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "dajeum",
		Short: "dajeum - identity registry, certificate issuer and service token ledger",
		Long: `dajeum sequences identity registrations, certificate mints and token
movements into one hash-chained operation log. Every ledger state is a
pure function of the genesis and the log, and can be replayed to prove it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML or CUE config file")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite log (overrides config)")

	cmd.AddCommand(NewSubmitCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewLogCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))

	return cmd
}

// loadConfig loads the layered configuration, applies flag overrides and
// installs the default logger on w.
func (o *RootOptions) loadConfig(w io.Writer) (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.Database != "" {
		cfg.DatabasePath = o.Database
	}
	setupLogging(w, cfg.LogLevel, o.Verbose)
	return cfg, nil
}

// openStore opens the log named by cfg.
func openStore(cfg *config.Config) (*store.Store, error) {
	slog.Debug("opening database", "path", cfg.DatabasePath)
	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// openEngine opens the log named by cfg and rebuilds its state. A new log
// is initialized with the configured genesis.
func openEngine(cmd *cobra.Command, cfg *config.Config, opts ...engine.Option) (*store.Store, *engine.Engine, error) {
	st, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	eng, err := engine.New(cmd.Context(), st, cfg.Genesis, opts...)
	if err != nil {
		closeStore(st)
		return nil, nil, WrapExitError(ExitCommandError, "failed to open ledger", err)
	}
	return st, eng, nil
}

func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// setupLogging installs a text handler at the configured level. --verbose
// forces debug.
func setupLogging(w io.Writer, level string, verbose bool) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// openLedger opens an existing log and rebuilds its state from the
// genesis recorded in it. It never initializes a log.
func openLedger(cmd *cobra.Command, cfg *config.Config) (*store.Store, *engine.Engine, error) {
	st, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	eng, err := engine.Open(cmd.Context(), st)
	if err != nil {
		closeStore(st)
		if errors.Is(err, store.ErrNoGenesis) {
			return nil, nil, WrapExitError(ExitCommandError, "log not initialized: "+cfg.DatabasePath, err)
		}
		return nil, nil, WrapExitError(ExitCommandError, "failed to open ledger", err)
	}
	return st, eng, nil
}
