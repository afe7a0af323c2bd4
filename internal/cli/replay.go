package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/dajeum/internal/engine"
)

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Rebuild state from the log and verify determinism",
		Long: `Rebuild the ledger state from the recorded genesis by re-executing every
logged operation, and compare each receipt, event list and chain hash with
what was recorded. The log is not modified.

Exit codes:
  0 - Every entry reproduced exactly
  1 - Divergence detected
  2 - Command error (database not found, etc.)

Examples:
  dajeum replay --db ./dajeum.db
  dajeum replay --db ./dajeum.db --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(rootOpts, cmd)
		},
	}
	return cmd
}

func runReplay(opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore(st)

	report, err := engine.Replay(cmd.Context(), st)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to replay log", err)
	}

	out := opts.formatter(cmd)
	if out.JSON() {
		return outputReplayJSON(out, report)
	}
	return outputReplayText(out, report)
}

func outputReplayJSON(out *OutputFormatter, report *engine.ReplayReport) error {
	if report.OK() {
		return out.Success(report)
	}
	msg := fmt.Sprintf("%d divergence(s)", len(report.Divergences))
	if err := out.Error("E_DIVERGENCE", msg, report); err != nil {
		return err
	}
	return NewExitError(ExitFailure, "replay diverged: "+msg)
}

func outputReplayText(out *OutputFormatter, report *engine.ReplayReport) error {
	w := out.Writer

	fmt.Fprintf(w, "Replay Summary: %d entries (%d committed, %d rejected)\n",
		report.Entries, report.Committed, report.Rejected)
	fmt.Fprintf(w, "  Genesis: %s\n", report.GenesisHash)
	fmt.Fprintf(w, "  Head:    %s\n", report.Head)
	out.VerboseLog("snapshot: %d names, %d certificates, %d accounts",
		report.Snapshot.Names, report.Snapshot.Certificates, len(report.Snapshot.Balances))

	if report.OK() {
		fmt.Fprintln(w, "✓ Replay reproduced every entry")
		return nil
	}

	fmt.Fprintln(w)
	for _, d := range report.Divergences {
		fmt.Fprintf(w, "✗ seq %d: %s\n", d.Seq, d.Field)
		fmt.Fprintf(w, "    logged:   %s\n", d.Want)
		fmt.Fprintf(w, "    replayed: %s\n", d.Got)
	}
	fmt.Fprintln(w, "✗ Determinism verification failed")
	return NewExitError(ExitFailure, fmt.Sprintf("replay diverged: %d divergence(s)", len(report.Divergences)))
}
