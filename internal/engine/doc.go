// Package engine implements the dajeum sequencer.
//
// The engine is the single authoritative writer of the ledger state. It
// receives operation requests, stamps each with the next logical seq,
// applies it to the ledger.State, and appends the operation, its receipt and
// its events to the store as one hash-chained log entry.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// Requests submitted from any goroutine go through a FIFO queue that
// Engine.Run drains one at a time. Apply holds the state lock for the whole
// operation, so no operation ever observes a partially applied predecessor.
//
// Request Processing Flow:
//  1. Submit enqueues a request and waits for its receipt
//  2. Run dequeues requests one at a time
//  3. Apply decodes args and calls the ledger (validate, then apply)
//  4. The receipt and drained events are chained onto the head hash
//  5. The entry is written to SQLite in one transaction
//  6. Observers see the entry after it is durable
//
// Rejected operations are logged too. They are inputs, and replay must
// reproduce the same rejection.
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Every operation is stamped with a monotonic seq from Clock. Wall-clock
// time is never recorded or consulted.
//
// Replay:
// The state is never persisted. Opening a log rebuilds it from the stored
// genesis by re-executing every operation and comparing receipt and event
// hashes with what was logged.
package engine
