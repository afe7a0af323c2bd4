package store

import (
	"context"
	"fmt"

	"github.com/roach88/dajeum/internal/ir"
)

// ChainError reports the first entry whose hash chain does not verify.
type ChainError struct {
	Seq    int64
	Reason string
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("chain broken at seq=%d: %s", e.Seq, e.Reason)
}

// VerifyChain recomputes every entry hash from ir.ZeroHash and checks that
// seq numbers are contiguous from 1. Returns the number of verified entries,
// or a *ChainError naming the first bad entry.
func (s *Store) VerifyChain(ctx context.Context) (int64, error) {
	entries, err := s.ReadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("verify chain: %w", err)
	}

	prev := ir.ZeroHash
	for i, e := range entries {
		seq := e.Operation.Seq
		if want := int64(i) + 1; seq != want {
			return int64(i), &ChainError{Seq: seq, Reason: fmt.Sprintf("expected seq %d", want)}
		}
		if e.PrevHash != prev {
			return int64(i), &ChainError{Seq: seq, Reason: "prev_hash does not match predecessor"}
		}
		wantID, err := ir.OperationID(e.Operation.RequestID, e.Operation.Action, e.Operation.Caller, e.Operation.Args, seq)
		if err != nil {
			return int64(i), fmt.Errorf("verify chain seq=%d: %w", seq, err)
		}
		if wantID != e.Operation.ID {
			return int64(i), &ChainError{Seq: seq, Reason: "operation id does not match content"}
		}
		hash, err := ir.EntryHash(e)
		if err != nil {
			return int64(i), fmt.Errorf("verify chain seq=%d: %w", seq, err)
		}
		if hash != e.Hash {
			return int64(i), &ChainError{Seq: seq, Reason: "hash does not match content"}
		}
		prev = e.Hash
	}
	return int64(len(entries)), nil
}
