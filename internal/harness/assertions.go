package harness

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/dajeum/internal/engine"
	"github.com/roach88/dajeum/internal/ir"
	"github.com/roach88/dajeum/internal/ledger"
	"github.com/roach88/dajeum/internal/store"
)

// AssertionContext gives assertions access to the finished run.
type AssertionContext struct {
	Ctx    context.Context
	Store  *store.Store
	Engine *engine.Engine
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s by %s -> %s\n", ev.Seq, ev.Action, ev.Caller, ev.Outcome)
		}
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertTraceContains:
		return assertTraceContains(result.Trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(result.Trace, a)
	case AssertTraceCount:
		return assertTraceCount(result.Trace, a)
	case AssertEventCount:
		return assertEventCount(result.Trace, a)
	case AssertFinalState:
		return assertFinalState(actx, a)
	case AssertReplay:
		return assertReplay(actx)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertTraceContains checks for an operation with the action whose args
// contain the expected args.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if ev.Action == a.Action && subsetMismatch(ev.Args, a.Args) == "" {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("action %s with args %v", a.Action, a.Args),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the first occurrences of the actions appear
// in order. Other operations may come in between.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	positions := make(map[ir.Action]int)
	for i, ev := range trace {
		if _, seen := positions[ev.Action]; !seen {
			positions[ev.Action] = i + 1
		}
	}
	for _, action := range a.Actions {
		if positions[action] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all actions present: %v", a.Actions),
				Actual:   fmt.Sprintf("missing action: %s", action),
				Trace:    trace,
			}
		}
	}
	for i := 1; i < len(a.Actions); i++ {
		prev, cur := a.Actions[i-1], a.Actions[i]
		if positions[prev] >= positions[cur] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", a.Actions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], cur, positions[cur]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks how many times an action was sequenced,
// optionally counting only one outcome.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Action == a.Action && (a.Outcome == "" || ev.Outcome == a.Outcome) {
			count++
		}
	}
	if count != a.Count {
		what := string(a.Action)
		if a.Outcome != "" {
			what += " with outcome " + a.Outcome
		}
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%s %d time(s)", what, a.Count),
			Actual:   fmt.Sprintf("%d time(s)", count),
			Trace:    trace,
		}
	}
	return nil
}

func assertEventCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		for _, emit := range ev.Events {
			if emit.Name == a.Event {
				count++
			}
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("event %s %d time(s)", a.Event, a.Count),
			Actual:   fmt.Sprintf("%d time(s)", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState reads one row of the final state and matches it against
// the expected fields.
func assertFinalState(actx *AssertionContext, a Assertion) error {
	where, err := ir.ObjectFromGo(a.Where)
	if err != nil {
		return fmt.Errorf("where: %w", err)
	}
	var row ir.Object
	err = actx.Engine.View(func(st *ledger.State) error {
		var err error
		row, err = readTable(st, a.Table, where)
		return err
	})
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s row where %v", a.Table, a.Where),
			Actual:   err.Error(),
		}
	}
	if diff := subsetMismatch(row, a.Expect); diff != "" {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s where %v to match %v", a.Table, a.Where, a.Expect),
			Actual:   diff,
		}
	}
	return nil
}

// readTable renders one row of a final_state table.
func readTable(st *ledger.State, table string, where ir.Object) (ir.Object, error) {
	switch table {
	case TableNames:
		id, err := whereInt(where, "id")
		if err != nil {
			return nil, err
		}
		rec, err := st.Names.Get(id)
		if err != nil {
			return nil, err
		}
		return rec.Object(), nil

	case TableCertificates:
		id, err := whereInt(where, "id")
		if err != nil {
			return nil, err
		}
		cert, err := st.Certificates.Get(id)
		if err != nil {
			return nil, err
		}
		return cert.Object(), nil

	case TableBalances:
		addr, err := whereString(where, "address")
		if err != nil {
			return nil, err
		}
		bal := st.Tokens.BalanceOf(ledger.Address(addr))
		return ir.Object{"address": ir.String(addr), "balance": ir.Int(bal)}, nil

	case TableAllowances:
		owner, err := whereString(where, "owner")
		if err != nil {
			return nil, err
		}
		spender, err := whereString(where, "spender")
		if err != nil {
			return nil, err
		}
		amount := st.Tokens.Allowance(ledger.Address(owner), ledger.Address(spender))
		return ir.Object{"owner": ir.String(owner), "spender": ir.String(spender), "allowance": ir.Int(amount)}, nil

	case TableServices:
		name, err := whereString(where, "service_name")
		if err != nil {
			return nil, err
		}
		price, err := st.Tokens.ServicePrice(name)
		if err != nil {
			return nil, err
		}
		return ir.Object{"service_name": ir.String(name), "price": ir.Int(price)}, nil

	case TableToken:
		return ir.Object{
			"symbol":       ir.String(st.Tokens.Symbol()),
			"decimals":     ir.Int(st.Tokens.Decimals()),
			"total_supply": ir.Int(st.Tokens.TotalSupply()),
			"sum_balances": ir.Int(st.Tokens.SumBalances()),
			"treasury":     ir.String(st.Tokens.Treasury()),
			"admin":        ir.String(st.Tokens.Admin()),
		}, nil

	case TableSnapshot:
		return st.Snapshot().Object(), nil
	}
	return nil, fmt.Errorf("unknown table %q", table)
}

// assertReplay rebuilds the state from the log and requires every receipt
// and event to be reproduced.
func assertReplay(actx *AssertionContext) error {
	report, err := engine.Replay(actx.Ctx, actx.Store)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	if !report.OK() {
		d := report.Divergences[0]
		return &AssertionError{
			Type:     AssertReplay,
			Expected: "no divergence",
			Actual:   fmt.Sprintf("%d divergence(s), first at seq %d (%s)", len(report.Divergences), d.Seq, d.Field),
		}
	}
	if !reflect.DeepEqual(report.Snapshot, actx.Engine.Snapshot()) {
		return &AssertionError{
			Type:     AssertReplay,
			Expected: "replayed snapshot equal to live snapshot",
			Actual:   "snapshots differ",
		}
	}
	return nil
}

func whereInt(where ir.Object, key string) (int64, error) {
	v, ok := where[key].(ir.Int)
	if !ok {
		return 0, fmt.Errorf("where.%s must be an integer", key)
	}
	return int64(v), nil
}

func whereString(where ir.Object, key string) (string, error) {
	v, ok := where[key].(ir.String)
	if !ok {
		return "", fmt.Errorf("where.%s must be a string", key)
	}
	return string(v), nil
}

// subsetMismatch reports the first expected field that is missing from or
// different in actual, or "" if every expected field matches.
func subsetMismatch(actual ir.Object, expected map[string]any) string {
	keys := make([]string, 0, len(expected))
	for k := range expected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		want, err := ir.FromGo(expected[k])
		if err != nil {
			return fmt.Sprintf("%s: %v", k, err)
		}
		got, ok := actual[k]
		if !ok {
			return fmt.Sprintf("%s: missing", k)
		}
		if !reflect.DeepEqual(got, want) {
			return fmt.Sprintf("%s: expected %s, got %s", k, render(want), render(got))
		}
	}
	return ""
}

func render(v ir.Value) string {
	b, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
