package engine

import (
	"context"
	"fmt"

	"github.com/roach88/dajeum/internal/ir"
	"github.com/roach88/dajeum/internal/ledger"
	"github.com/roach88/dajeum/internal/store"
)

// Replay and Determinism
//
// The ledger state is a pure function of (genesis, ordered operations).
// Replay rebuilds it by re-executing every logged operation through the
// same resolve path Apply uses, then compares what it produced with what
// was recorded:
//
//   - operation id: recomputed from request id, action, caller, args, seq
//   - receipt hash: outcome, result and error message
//   - events hash: event names and fields, in emission order
//   - chain hash: prev_hash links back to ir.ZeroHash
//
// Any mismatch is a Divergence. Rejected operations replay as rejections:
// a receipt with NOT_FOUND must be reproduced as NOT_FOUND.

// Divergence describes one disagreement between the log and its replay.
type Divergence struct {
	Seq   int64  `json:"seq"`
	Field string `json:"field"`
	Want  string `json:"want"`
	Got   string `json:"got"`
}

// ReplayReport is the outcome of replaying a log.
type ReplayReport struct {
	GenesisHash string          `json:"genesis_hash"`
	Entries     int             `json:"entries"`
	Committed   int             `json:"committed"`
	Rejected    int             `json:"rejected"`
	Head        string          `json:"head"`
	Snapshot    ledger.Snapshot `json:"snapshot"`
	Divergences []Divergence    `json:"divergences"`
}

// OK reports whether the replay reproduced the log exactly.
func (r *ReplayReport) OK() bool {
	return len(r.Divergences) == 0
}

// Replay rebuilds the state recorded in s from its genesis and reports
// whether every receipt and event is reproduced. The store is not modified.
// Only WithMintPolicy is meaningful among opts.
func Replay(ctx context.Context, s *store.Store, opts ...Option) (*ReplayReport, error) {
	var cfg Engine
	for _, opt := range opts {
		opt(&cfg)
	}

	genesis, err := LoadGenesis(ctx, s)
	if err != nil {
		return nil, err
	}
	_, genesisHash, err := s.Genesis(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load log: %w", err)
	}

	rec := &ledger.Recorder{}
	st, err := newState(genesis, rec, cfg.policy)
	if err != nil {
		return nil, fmt.Errorf("build state: %w", err)
	}

	head, divergences := replayEntries(st, rec, entries)
	report := &ReplayReport{
		GenesisHash: genesisHash,
		Entries:     len(entries),
		Head:        head,
		Snapshot:    st.Snapshot(),
		Divergences: divergences,
	}
	for _, e := range entries {
		if e.Receipt.OK() {
			report.Committed++
		} else {
			report.Rejected++
		}
	}
	if report.Divergences == nil {
		report.Divergences = []Divergence{}
	}
	return report, nil
}

// replayEntries re-executes entries against st in order. It returns the
// recomputed head hash and every divergence found. Execution continues past
// a divergence so the report shows its full extent.
func replayEntries(st *ledger.State, rec *ledger.Recorder, entries []ir.LogEntry) (string, []Divergence) {
	var out []Divergence
	diverge := func(seq int64, field, want, got string) {
		out = append(out, Divergence{Seq: seq, Field: field, Want: want, Got: got})
	}

	prev := ir.ZeroHash
	for i, logged := range entries {
		op := logged.Operation
		if want := int64(i) + 1; op.Seq != want {
			diverge(op.Seq, "seq", fmt.Sprint(want), fmt.Sprint(op.Seq))
		}
		if id, err := ir.OperationID(op.RequestID, op.Action, op.Caller, op.Args, op.Seq); err != nil || id != op.ID {
			diverge(op.Seq, "operation_id", op.ID, id)
		}
		if logged.PrevHash != prev {
			diverge(op.Seq, "prev_hash", logged.PrevHash, prev)
		}

		replayed, err := resolve(st, rec, op)
		if err != nil {
			diverge(op.Seq, "receipt", logged.Receipt.Outcome, err.Error())
			prev = logged.Hash
			continue
		}
		if err := chain(&replayed, prev); err != nil {
			diverge(op.Seq, "hash", logged.Hash, err.Error())
			prev = logged.Hash
			continue
		}

		if replayed.Receipt.Outcome != logged.Receipt.Outcome {
			diverge(op.Seq, "outcome", logged.Receipt.Outcome, replayed.Receipt.Outcome)
		}
		wantRH, _ := ir.ReceiptHash(logged.Receipt)
		gotRH, _ := ir.ReceiptHash(replayed.Receipt)
		if wantRH != gotRH {
			diverge(op.Seq, "receipt", wantRH, gotRH)
		}
		wantEH, _ := ir.EventsHash(logged.Events)
		gotEH, _ := ir.EventsHash(replayed.Events)
		if wantEH != gotEH {
			diverge(op.Seq, "events", wantEH, gotEH)
		}
		if replayed.Hash != logged.Hash {
			diverge(op.Seq, "hash", logged.Hash, replayed.Hash)
		}
		prev = replayed.Hash
	}
	return prev, out
}
