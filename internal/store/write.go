package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/dajeum/internal/ir"
)

// ChainMismatchError is returned by Append when an entry does not extend
// the current head of the log.
type ChainMismatchError struct {
	HeadSeq  int64
	HeadHash string
	Seq      int64
	PrevHash string
}

func (e *ChainMismatchError) Error() string {
	return fmt.Sprintf("store: entry seq=%d prev_hash=%s does not extend head seq=%d hash=%s",
		e.Seq, e.PrevHash, e.HeadSeq, e.HeadHash)
}

// Append writes an operation, its receipt and its events in one
// transaction. The entry must extend the head: Seq is HeadSeq+1 and
// PrevHash is the head hash. Either everything is written or nothing.
func (s *Store) Append(ctx context.Context, e ir.LogEntry) error {
	args, err := marshalObject(e.Operation.Args)
	if err != nil {
		return fmt.Errorf("append seq=%d: marshal args: %w", e.Operation.Seq, err)
	}
	result, err := marshalObject(e.Receipt.Result)
	if err != nil {
		return fmt.Errorf("append seq=%d: marshal result: %w", e.Operation.Seq, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append seq=%d: begin tx: %w", e.Operation.Seq, err)
	}
	defer tx.Rollback() // No-op if committed

	headSeq, headHash, err := head(ctx, tx)
	if err != nil {
		return fmt.Errorf("append seq=%d: %w", e.Operation.Seq, err)
	}
	if e.Operation.Seq != headSeq+1 || e.PrevHash != headHash {
		return &ChainMismatchError{HeadSeq: headSeq, HeadHash: headHash, Seq: e.Operation.Seq, PrevHash: e.PrevHash}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO operations
		(seq, id, request_id, action, caller, args, prev_hash, hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.Operation.Seq,
		e.Operation.ID,
		e.Operation.RequestID,
		string(e.Operation.Action),
		e.Operation.Caller,
		args,
		e.PrevHash,
		e.Hash,
	)
	if err != nil {
		return fmt.Errorf("append seq=%d: insert operation: %w", e.Operation.Seq, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO receipts
		(operation_id, seq, outcome, result, error)
		VALUES (?, ?, ?, ?, ?)
	`,
		e.Operation.ID,
		e.Receipt.Seq,
		e.Receipt.Outcome,
		result,
		e.Receipt.Error,
	)
	if err != nil {
		return fmt.Errorf("append seq=%d: insert receipt: %w", e.Operation.Seq, err)
	}

	for i, ev := range e.Events {
		fields, err := marshalObject(ev.Fields)
		if err != nil {
			return fmt.Errorf("append seq=%d: marshal event %d: %w", e.Operation.Seq, i, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO events
			(operation_id, seq, idx, name, fields)
			VALUES (?, ?, ?, ?, ?)
		`, e.Operation.ID, e.Operation.Seq, i, ev.Name, fields)
		if err != nil {
			return fmt.Errorf("append seq=%d: insert event %d: %w", e.Operation.Seq, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append seq=%d: commit: %w", e.Operation.Seq, err)
	}
	return nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func head(ctx context.Context, q queryer) (int64, string, error) {
	var seq int64
	var hash string
	err := q.QueryRowContext(ctx, `SELECT seq, hash FROM operations ORDER BY seq DESC LIMIT 1`).Scan(&seq, &hash)
	if err == sql.ErrNoRows {
		return 0, ir.ZeroHash, nil
	}
	if err != nil {
		return 0, "", fmt.Errorf("read head: %w", err)
	}
	return seq, hash, nil
}
