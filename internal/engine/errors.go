package engine

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by Submit after the engine has been stopped.
var ErrClosed = errors.New("engine: closed")

// RuntimeError represents an engine failure that is not a ledger outcome.
//
// Ledger rejections (validation, not found, ...) are receipts, not errors.
// A RuntimeError means the engine could not sequence or persist an
// operation, or that a replayed log disagrees with itself.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Seq is the affected operation, if any.
	Seq int64

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeHalted indicates an earlier persistence failure stopped the
	// engine. The in-memory state may be ahead of the log; reopen to rebuild
	// it from the log.
	ErrCodeHalted RuntimeErrorCode = "HALTED"

	// ErrCodeReplayDivergence indicates re-executing the log produced a
	// different receipt or events than were recorded.
	ErrCodeReplayDivergence RuntimeErrorCode = "REPLAY_DIVERGENCE"

	// ErrCodeInternal indicates the ledger returned an uncoded error.
	ErrCodeInternal RuntimeErrorCode = "INTERNAL"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Seq != 0 {
		msg += fmt.Sprintf(" (seq=%d)", e.Seq)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error { return e.Err }

// IsHalted returns true if err reports a halted engine.
// Uses errors.As to handle wrapped errors.
func IsHalted(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeHalted
	}
	return false
}

// IsDivergence returns true if err reports a replay divergence.
func IsDivergence(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeReplayDivergence
	}
	return false
}
