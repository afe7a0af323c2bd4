package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/dajeum/internal/ir"
	"github.com/roach88/dajeum/internal/store"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	After     int64
	Limit     int
	Seq       int64
	Event     string
	Action    string
	Caller    string
	Outcome   string
	RequestID string
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Print the operation log",
		Long: `Print logged operations in sequence order, rejected ones included.

Examples:
  dajeum log --db ./dajeum.db
  dajeum log --after 100 --limit 20
  dajeum log --seq 42 --format json
  dajeum log --event ServicePaid
  dajeum log --caller 0xUser --outcome INSUFFICIENT_BALANCE`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.After, "after", 0, "only entries with seq greater than this")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of entries (0 = all)")
	cmd.Flags().Int64Var(&opts.Seq, "seq", 0, "print a single entry")
	cmd.Flags().StringVar(&opts.Event, "event", "", "print events with this name instead of entries")
	cmd.Flags().StringVar(&opts.Action, "action", "", "only entries for this action")
	cmd.Flags().StringVar(&opts.Caller, "caller", "", "only entries sequenced for this caller")
	cmd.Flags().StringVar(&opts.Outcome, "outcome", "", "only entries with this outcome (OK, NOT_FOUND, ...)")
	cmd.Flags().StringVar(&opts.RequestID, "request-id", "", "only entries with this request id")
	cmd.MarkFlagsMutuallyExclusive("seq", "event")

	return cmd
}

func runLog(opts *LogOptions, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx := cmd.Context()
	out := opts.formatter(cmd)

	switch {
	case opts.Seq > 0:
		entry, err := st.ReadEntry(ctx, opts.Seq)
		if errors.Is(err, sql.ErrNoRows) {
			return NewExitError(ExitFailure, fmt.Sprintf("no entry with seq %d", opts.Seq))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read log", err)
		}
		view := newEntryView(entry)
		return out.Result(view, view.fields()...)

	case opts.Event != "":
		events, err := st.ReadEvents(ctx, opts.Event)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read events", err)
		}
		if out.JSON() {
			return out.Success(events)
		}
		writeEvents(out.Writer, events)
		return nil
	}

	filter := store.LogFilter{
		After:     opts.After,
		Action:    opts.Action,
		Caller:    opts.Caller,
		Outcome:   opts.Outcome,
		RequestID: opts.RequestID,
	}
	entries, err := st.Query(ctx, store.Query{Filter: filter.Predicate(), Limit: opts.Limit})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read log", err)
	}
	if out.JSON() {
		views := make([]EntryView, len(entries))
		for i, e := range entries {
			views[i] = newEntryView(e)
		}
		return out.Success(views)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out.Writer, "No entries.")
		return nil
	}
	writeEntries(out.Writer, entries)
	return nil
}

// writeEntries prints one line per entry: seq, outcome, action, caller.
func writeEntries(w io.Writer, entries []ir.LogEntry) {
	for _, e := range entries {
		line := fmt.Sprintf("%6d  %-20s %-30s %s", e.Operation.Seq, e.Receipt.Outcome, e.Operation.Action, e.Operation.Caller)
		if e.Receipt.Error != "" {
			line += "  (" + e.Receipt.Error + ")"
		}
		fmt.Fprintln(w, line)
	}
}

func writeEvents(w io.Writer, events []ir.Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events.")
		return
	}
	for _, ev := range events {
		fmt.Fprintf(w, "%6d  %-22s %s\n", ev.Seq, ev.Name, canonical(ev.Fields))
	}
}
