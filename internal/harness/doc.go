// Package harness runs YAML scenarios against a real engine and checks the
// resulting trace.
//
// # Scenario Format
//
//	name: smoke_test
//	description: "What this scenario validates"
//	genesis:                       # optional, merged over the defaults
//	  certificate:
//	    issuers: [registrar]
//	setup:                         # must all commit
//	  - action: Token.transfer
//	    caller: deployer
//	    args: { to: "0xUser", amount: 100000000 }
//	flow:
//	  - invoke: Identity.registerName
//	    caller: "0xUser"
//	    args: { full_name: 김민준, birth_year: 2020, birth_month: 5, birth_day: 15, gender: 남 }
//	    expect:
//	      outcome: OK
//	      result: { id: 1 }
//	      events: [NameRegistered]
//	assertions:
//	  - type: trace_count
//	    action: Identity.registerName
//	    count: 1
//	  - type: final_state
//	    table: names
//	    where: { id: 1 }
//	    expect: { full_name: 김민준 }
//
// # Assertion Types
//
//   - trace_contains: an operation with the action and matching args (subset)
//   - trace_order: actions appear in the given order
//   - trace_count: an action appears exactly count times, optionally only
//     counting a given outcome
//   - event_count: an event is emitted exactly count times
//   - final_state: a read of names, certificates, balances, allowances,
//     services, token or snapshot matches expect (subset)
//   - replay: the log replays without divergence
//
// # Determinism
//
// Each scenario runs on a fresh in-memory store with request ids
// "<name>-0001", "<name>-0002", ... so two runs produce byte-identical logs
// and golden traces.
package harness
