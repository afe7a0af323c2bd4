package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/dajeum/internal/engine"
	"github.com/roach88/dajeum/internal/ir"
)

// SubmitOptions holds flags for the submit command.
type SubmitOptions struct {
	*RootOptions
	Caller    string
	Args      string
	RequestID string
}

// EntryView is the CLI rendering of one log entry.
type EntryView struct {
	Seq         int64       `json:"seq"`
	OperationID string      `json:"operation_id"`
	RequestID   string      `json:"request_id"`
	Action      ir.Action   `json:"action"`
	Caller      string      `json:"caller"`
	Args        ir.Object   `json:"args"`
	Outcome     string      `json:"outcome"`
	Result      ir.Object   `json:"result"`
	Error       string      `json:"error,omitempty"`
	Events      []EventView `json:"events"`
	Hash        string      `json:"hash"`
}

// EventView is the CLI rendering of one event.
type EventView struct {
	Name   string    `json:"name"`
	Fields ir.Object `json:"fields"`
}

func newEntryView(e ir.LogEntry) EntryView {
	events := make([]EventView, len(e.Events))
	for i, ev := range e.Events {
		events[i] = EventView{Name: ev.Name, Fields: ev.Fields}
	}
	return EntryView{
		Seq:         e.Operation.Seq,
		OperationID: e.Operation.ID,
		RequestID:   e.Operation.RequestID,
		Action:      e.Operation.Action,
		Caller:      e.Operation.Caller,
		Args:        e.Operation.Args,
		Outcome:     e.Receipt.Outcome,
		Result:      e.Receipt.Result,
		Error:       e.Receipt.Error,
		Events:      events,
		Hash:        e.Hash,
	}
}

// fields renders the entry for text output.
func (v EntryView) fields() []Field {
	out := []Field{
		{"Seq", v.Seq},
		{"Action", v.Action},
		{"Caller", v.Caller},
		{"Outcome", v.Outcome},
	}
	if v.Error != "" {
		out = append(out, Field{"Error", v.Error})
	} else {
		out = append(out, Field{"Result", canonical(v.Result)})
	}
	names := make([]string, len(v.Events))
	for i, ev := range v.Events {
		names[i] = ev.Name
	}
	if len(names) > 0 {
		out = append(out, Field{"Events", strings.Join(names, ", ")})
	}
	return append(out, Field{"Hash", v.Hash})
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "submit <action>",
		Short: "Sequence one operation into the log",
		Long: `Sequence one operation as the given caller and print its receipt.

The caller is trusted: the CLI is an operator tool running next to the log.
Rejected operations are still sequenced and logged with their outcome.

Actions:
  Identity.registerName        full_name, birth_year, birth_month, birth_day, gender
  Identity.batchRegisterNames  names, years, months, days, genders
  Certificate.mintCertificate  owner, name_id, token_uri, image_uri
  Token.transfer               to, amount, from (optional)
  Token.approve                spender, amount
  Token.setServicePrice        service_name, price
  Token.payForService          service_name

Exit codes:
  0 - Operation committed
  1 - Operation rejected (VALIDATION, NOT_FOUND, UNAUTHORIZED, INSUFFICIENT_BALANCE)
  2 - Command error

Examples:
  dajeum submit Identity.registerName --caller 0xUser \
    --args '{"full_name":"김민준","birth_year":2020,"birth_month":5,"birth_day":15,"gender":"남"}'
  dajeum submit Token.payForService --caller 0xUser --args '{"service_name":"naming"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(opts, ir.Action(args[0]), cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Caller, "caller", "", "authenticated caller address (required)")
	_ = cmd.MarkFlagRequired("caller")
	cmd.Flags().StringVar(&opts.Args, "args", "{}", "operation arguments as a JSON object")
	cmd.Flags().StringVar(&opts.RequestID, "request-id", "", "correlation id (default: generated)")

	return cmd
}

func runSubmit(opts *SubmitOptions, action ir.Action, cmd *cobra.Command) error {
	if !action.Valid() {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown action %q", action))
	}
	args, err := ir.ParseObject([]byte(opts.Args))
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --args", err)
	}

	cfg, err := opts.loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	st, eng, err := openEngine(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeStore(st)

	entry, err := eng.Apply(cmd.Context(), engine.Request{
		RequestID: opts.RequestID,
		Action:    action,
		Caller:    opts.Caller,
		Args:      args,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to apply operation", err)
	}

	view := newEntryView(entry)
	out := opts.formatter(cmd)
	if !entry.Receipt.OK() {
		if out.JSON() {
			if err := out.Error(entry.Receipt.Outcome, entry.Receipt.Error, view); err != nil {
				return err
			}
		} else if err := out.Result(view, view.fields()...); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%s rejected: %s", action, entry.Receipt.Outcome))
	}
	return out.Result(view, view.fields()...)
}

func canonical(v ir.Value) string {
	b, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
