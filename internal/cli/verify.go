package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/dajeum/internal/store"
)

// VerifyResult is the outcome of a chain check.
type VerifyResult struct {
	Verified int64  `json:"verified"`
	Head     string `json:"head"`
	BrokenAt int64  `json:"broken_at,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the hash chain of the log",
		Long: `Recompute every entry hash from the zero hash and check that sequence
numbers are contiguous. Unlike replay, verify does not re-execute
operations: it proves the log was not edited, not that it is correct.

Exit codes:
  0 - Chain intact
  1 - Chain broken
  2 - Command error`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(rootOpts, cmd)
		},
	}
}

func runVerify(opts *RootOptions, cmd *cobra.Command) error {
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

	n, err := st.VerifyChain(ctx)
	var chainErr *store.ChainError
	if errors.As(err, &chainErr) {
		result := VerifyResult{Verified: n, BrokenAt: chainErr.Seq, Reason: chainErr.Reason}
		if out.JSON() {
			if err := out.Error("E_CHAIN", chainErr.Error(), result); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(out.Writer, "✗ %s (%d entries verified before it)\n", chainErr.Error(), n)
		}
		return WrapExitError(ExitFailure, "chain verification failed", chainErr)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to verify chain", err)
	}

	_, head, err := st.Head(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read head", err)
	}
	result := VerifyResult{Verified: n, Head: head}
	if out.JSON() {
		return out.Success(result)
	}
	fmt.Fprintf(out.Writer, "✓ Chain intact: %d entries, head %s\n", n, head)
	return nil
}
