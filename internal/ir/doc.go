// Package ir provides the canonical value and log record types shared by the
// dajeum ledgers, the sequencer and the operation log.
//
// This package contains type definitions and pure encoding helpers only. All
// other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float types anywhere - amounts and ids are int64
//   - NO null values - every field is present and typed
//   - All JSON tags use snake_case
//   - Ordering uses the logical seq only, never wall-clock timestamps
//   - Hashes are computed over RFC 8785 canonical JSON with domain separation
package ir
