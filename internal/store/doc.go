// Package store provides SQLite-backed durable storage for the dajeum
// operation log.
//
// The log is append-only and holds, per operation:
//   - operations: the input as sequenced (seq, request id, caller, args)
//   - receipts: how the operation was resolved (OK or an error code)
//   - events: the events emitted by a committed operation
//
// Each operation row carries prev_hash and hash, forming a hash chain from
// ir.ZeroHash. VerifyChain recomputes it. The genesis document the ledger
// state was built from lives in the meta table, so a log is self-contained.
//
// # Ordering
//
// All reads use ORDER BY seq ASC (and idx ASC for events). seq is the
// engine's logical clock; timestamps are never stored.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// args, result and fields columns hold RFC 8785 canonical JSON produced by
// ir.MarshalCanonical.
package store
