package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/dajeum/internal/ir"
)

// Predicate filters log entries. Sealed to this package: only the types
// below implement it, so compilePredicate can switch exhaustively.
type Predicate interface {
	predicateNode()
}

// Column names a filterable log column.
type Column string

// Filterable columns. Values are SQL identifiers and never user input.
const (
	ColumnAction    Column = "o.action"
	ColumnCaller    Column = "o.caller"
	ColumnRequestID Column = "o.request_id"
	ColumnOutcome   Column = "r.outcome"
)

// Equals matches entries whose column equals Value.
type Equals struct {
	Column Column
	Value  string
}

func (Equals) predicateNode() {}

// SeqAfter matches entries with seq > Seq.
type SeqAfter struct {
	Seq int64
}

func (SeqAfter) predicateNode() {}

// HasEvent matches entries that emitted at least one event named Name.
type HasEvent struct {
	Name string
}

func (HasEvent) predicateNode() {}

// And matches entries satisfying every predicate. Empty is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Query selects log entries. Results are always ordered by seq.
type Query struct {
	Filter Predicate // nil matches everything
	Limit  int       // <= 0 means no limit
}

// LogFilter is the set of optional filters offered by the gateway and CLI.
// Empty fields are ignored.
type LogFilter struct {
	After     int64
	Action    string
	Caller    string
	Outcome   string
	RequestID string
	Event     string
}

// Predicate converts f into a conjunction of its non-empty filters.
func (f LogFilter) Predicate() Predicate {
	var preds []Predicate
	if f.After > 0 {
		preds = append(preds, SeqAfter{Seq: f.After})
	}
	for _, eq := range []Equals{
		{ColumnAction, f.Action},
		{ColumnCaller, f.Caller},
		{ColumnOutcome, f.Outcome},
		{ColumnRequestID, f.RequestID},
	} {
		if eq.Value != "" {
			preds = append(preds, eq)
		}
	}
	if f.Event != "" {
		preds = append(preds, HasEvent{Name: f.Event})
	}
	return And{Predicates: preds}
}

const selectEntries = `SELECT o.seq, o.id, o.request_id, o.action, o.caller, o.args, o.prev_hash, o.hash,
       r.outcome, r.result, r.error
FROM operations o
JOIN receipts r ON r.operation_id = o.id`

// compileQuery converts q to parameterized SQL.
//
// CRITICAL: every query ends in ORDER BY o.seq ASC.
// CRITICAL: values are always bound as parameters, never interpolated.
func compileQuery(q Query) (string, []any, error) {
	where, params, err := compilePredicate(q.Filter)
	if err != nil {
		return "", nil, err
	}
	sql := selectEntries
	if where != "" {
		sql += "\nWHERE " + where
	}
	sql += "\nORDER BY o.seq ASC"
	if q.Limit > 0 {
		sql += " LIMIT ?"
		params = append(params, q.Limit)
	}
	return sql, params, nil
}

// compilePredicate returns a WHERE fragment, or "" for a predicate that
// matches everything.
func compilePredicate(p Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "", nil, nil
	case Equals:
		switch pred.Column {
		case ColumnAction, ColumnCaller, ColumnRequestID, ColumnOutcome:
		default:
			return "", nil, fmt.Errorf("unsupported column %q", pred.Column)
		}
		return string(pred.Column) + " = ?", []any{pred.Value}, nil
	case SeqAfter:
		return "o.seq > ?", []any{pred.Seq}, nil
	case HasEvent:
		return "EXISTS (SELECT 1 FROM events e WHERE e.operation_id = o.id AND e.name = ?)", []any{pred.Name}, nil
	case And:
		var parts []string
		var params []any
		for _, sub := range pred.Predicates {
			sql, subParams, err := compilePredicate(sub)
			if err != nil {
				return "", nil, err
			}
			if sql == "" {
				continue
			}
			parts = append(parts, sql)
			params = append(params, subParams...)
		}
		return strings.Join(parts, " AND "), params, nil
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// Query returns the entries matching q, with their events, ordered by seq.
// Returns an empty slice (not nil) if no entries match.
func (s *Store) Query(ctx context.Context, q Query) ([]ir.LogEntry, error) {
	sql, params, err := compileQuery(q)
	if err != nil {
		return nil, fmt.Errorf("compile query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sql, params...)
	if err != nil {
		return nil, fmt.Errorf("query log: %w", err)
	}
	defer rows.Close()

	entries := []ir.LogEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	rows.Close()

	// Attach events in a second pass; the connection pool holds one
	// connection, so nested queries inside the loop would deadlock.
	for i := range entries {
		events, err := s.readOperationEvents(ctx, entries[i].Operation.ID)
		if err != nil {
			return nil, err
		}
		entries[i].Events = events
	}
	return entries, nil
}
