package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/dajeum/internal/ir"
)

// Head returns the seq and hash of the last entry, or (0, ir.ZeroHash) for
// an empty log.
func (s *Store) Head(ctx context.Context) (int64, string, error) {
	return head(ctx, s.db)
}

// Count returns the number of logged operations.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM operations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count operations: %w", err)
	}
	return n, nil
}

// ReadLog returns up to limit entries with seq > after, ordered by seq.
// A limit <= 0 returns every remaining entry.
//
// Returns an empty slice (not nil) if no entries match.
func (s *Store) ReadLog(ctx context.Context, after int64, limit int) ([]ir.LogEntry, error) {
	return s.Query(ctx, Query{Filter: SeqAfter{Seq: after}, Limit: limit})
}

// ReadAll returns the whole log ordered by seq.
func (s *Store) ReadAll(ctx context.Context) ([]ir.LogEntry, error) {
	return s.ReadLog(ctx, 0, 0)
}

// ReadEntry returns the entry with the given seq.
// Returns sql.ErrNoRows (wrapped) if not found.
func (s *Store) ReadEntry(ctx context.Context, seq int64) (ir.LogEntry, error) {
	entries, err := s.ReadLog(ctx, seq-1, 1)
	if err != nil {
		return ir.LogEntry{}, err
	}
	if len(entries) == 0 || entries[0].Operation.Seq != seq {
		return ir.LogEntry{}, fmt.Errorf("read entry seq=%d: %w", seq, sql.ErrNoRows)
	}
	return entries[0], nil
}

// ReadEvents returns every event with the given name, ordered by seq and
// emission index. An empty name returns all events.
func (s *Store) ReadEvents(ctx context.Context, name string) ([]ir.Event, error) {
	query := `SELECT operation_id, seq, name, fields FROM events`
	var args []any
	if name != "" {
		query += ` WHERE name = ?`
		args = append(args, name)
	}
	query += ` ORDER BY seq ASC, idx ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *Store) readOperationEvents(ctx context.Context, operationID string) ([]ir.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT operation_id, seq, name, fields
		FROM events
		WHERE operation_id = ?
		ORDER BY idx ASC
	`, operationID)
	if err != nil {
		return nil, fmt.Errorf("query events for %s: %w", operationID, err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEntry(rows *sql.Rows) (ir.LogEntry, error) {
	var (
		e            ir.LogEntry
		action       string
		args, result string
	)
	err := rows.Scan(
		&e.Operation.Seq,
		&e.Operation.ID,
		&e.Operation.RequestID,
		&action,
		&e.Operation.Caller,
		&args,
		&e.PrevHash,
		&e.Hash,
		&e.Receipt.Outcome,
		&result,
		&e.Receipt.Error,
	)
	if err != nil {
		return ir.LogEntry{}, fmt.Errorf("scan entry: %w", err)
	}

	e.Operation.Action = ir.Action(action)
	if e.Operation.Args, err = unmarshalObject(args); err != nil {
		return ir.LogEntry{}, fmt.Errorf("scan entry seq=%d args: %w", e.Operation.Seq, err)
	}
	if e.Receipt.Result, err = unmarshalObject(result); err != nil {
		return ir.LogEntry{}, fmt.Errorf("scan entry seq=%d result: %w", e.Operation.Seq, err)
	}
	e.Receipt.OperationID = e.Operation.ID
	e.Receipt.Seq = e.Operation.Seq
	e.Events = []ir.Event{}
	return e, nil
}

func scanEvents(rows *sql.Rows) ([]ir.Event, error) {
	events := []ir.Event{}
	for rows.Next() {
		var ev ir.Event
		var fields string
		if err := rows.Scan(&ev.OperationID, &ev.Seq, &ev.Name, &fields); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		obj, err := unmarshalObject(fields)
		if err != nil {
			return nil, fmt.Errorf("scan event seq=%d: %w", ev.Seq, err)
		}
		ev.Fields = obj
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
