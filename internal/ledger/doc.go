// Package ledger implements the deterministic state transitions of the three
// coupled dajeum ledgers:
//
//   - Registry: name records with unique sequential identifiers
//   - Issuer: non-fungible certificates bound to name records
//   - TokenLedger: fungible balances and priced-service payments
//
// # Validate, then apply
//
// Every mutating operation is split into a pure validation step that returns
// a typed plan (or a typed error) and an apply step that is only reached on
// success. A rejected operation leaves no trace in state and emits nothing.
// A committed operation emits exactly one event to the EventSink.
//
// # Ownership
//
// Each component exclusively owns its maps and counters. The only cross-ledger
// reference is Certificate.NameID, resolved through a read-only lookup on the
// Registry. Records are never deleted, so a certificate can never outlive its
// name record.
//
// None of the types in this package are safe for concurrent use. The engine
// applies operations one at a time under its own lock.
package ledger
