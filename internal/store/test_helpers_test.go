package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/dajeum/internal/ir"
)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// makeEntry builds a fully hashed entry extending prev.
func makeEntry(t *testing.T, prev string, seq int64, action ir.Action, caller string, args ir.Object, outcome string, events ...ir.Event) ir.LogEntry {
	t.Helper()
	requestID := "req-" + string(rune('a'+seq-1))
	id, err := ir.OperationID(requestID, action, caller, args, seq)
	if err != nil {
		t.Fatalf("OperationID() failed: %v", err)
	}

	e := ir.LogEntry{
		Operation: ir.Operation{ID: id, RequestID: requestID, Seq: seq, Action: action, Caller: caller, Args: args},
		Receipt:   ir.Receipt{OperationID: id, Seq: seq, Outcome: outcome, Result: ir.Object{}},
		PrevHash:  prev,
	}
	if outcome != ir.OutcomeOK {
		e.Receipt.Error = "rejected"
	}
	for _, ev := range events {
		ev.OperationID = id
		ev.Seq = seq
		e.Events = append(e.Events, ev)
	}
	if e.Events == nil {
		e.Events = []ir.Event{}
	}

	hash, err := ir.EntryHash(e)
	if err != nil {
		t.Fatalf("EntryHash() failed: %v", err)
	}
	e.Hash = hash
	return e
}

func registerArgs(name string) ir.Object {
	return ir.NewObject(
		ir.P("full_name", ir.String(name)),
		ir.P("birth_year", ir.Int(2020)),
		ir.P("birth_month", ir.Int(5)),
		ir.P("birth_day", ir.Int(15)),
		ir.P("gender", ir.String("남")),
	)
}

// appendChain writes n register entries and returns them.
func appendChain(t *testing.T, s *Store, names ...string) []ir.LogEntry {
	t.Helper()
	prev := ir.ZeroHash
	var out []ir.LogEntry
	for i, name := range names {
		seq := int64(i) + 1
		e := makeEntry(t, prev, seq, ir.ActionRegisterName, "alice", registerArgs(name), ir.OutcomeOK,
			ir.Event{Name: "NameRegistered", Fields: ir.NewObject(ir.P("id", ir.Int(seq)), ir.P("full_name", ir.String(name)))})
		if err := s.Append(t.Context(), e); err != nil {
			t.Fatalf("Append(seq=%d) failed: %v", seq, err)
		}
		prev = e.Hash
		out = append(out, e)
	}
	return out
}
