package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dajeum/internal/ir"
	"github.com/roach88/dajeum/internal/ledger"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Seq: 1, Action: ir.ActionRegisterName, Caller: "a", Args: ir.Object{"full_name": ir.String("김민준")}, Outcome: ir.OutcomeOK,
			Events: []TraceEmit{{Name: ledger.EventNameRegistered}}},
		{Seq: 2, Action: ir.ActionPayForService, Caller: "a", Args: ir.Object{"service_name": ir.String("naming")}, Outcome: ledger.CodeInsufficientBalance},
		{Seq: 3, Action: ir.ActionPayForService, Caller: "a", Args: ir.Object{"service_name": ir.String("naming")}, Outcome: ir.OutcomeOK,
			Events: []TraceEmit{{Name: ledger.EventServicePaid}}},
	}
}

func TestAssertTraceContains(t *testing.T) {
	trace := sampleTrace()
	assert.NoError(t, assertTraceContains(trace, Assertion{Action: ir.ActionRegisterName, Args: map[string]any{"full_name": "김민준"}}))
	assert.NoError(t, assertTraceContains(trace, Assertion{Action: ir.ActionRegisterName}), "no args matches any")

	err := assertTraceContains(trace, Assertion{Action: ir.ActionRegisterName, Args: map[string]any{"full_name": "이서연"}})
	require.Error(t, err)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertTraceContains, ae.Type)
	assert.Contains(t, err.Error(), "Full trace:")
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleTrace()
	assert.NoError(t, assertTraceOrder(trace, Assertion{Actions: []ir.Action{ir.ActionRegisterName, ir.ActionPayForService}}))

	err := assertTraceOrder(trace, Assertion{Actions: []ir.Action{ir.ActionPayForService, ir.ActionRegisterName}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "should be before")

	err = assertTraceOrder(trace, Assertion{Actions: []ir.Action{ir.ActionApprove}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing action")
}

func TestAssertTraceCount(t *testing.T) {
	trace := sampleTrace()
	assert.NoError(t, assertTraceCount(trace, Assertion{Action: ir.ActionPayForService, Count: 2}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Action: ir.ActionPayForService, Outcome: ir.OutcomeOK, Count: 1}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Action: ir.ActionTransfer, Count: 0}))
	assert.Error(t, assertTraceCount(trace, Assertion{Action: ir.ActionPayForService, Count: 1}))
}

func TestAssertEventCount(t *testing.T) {
	trace := sampleTrace()
	assert.NoError(t, assertEventCount(trace, Assertion{Event: ledger.EventServicePaid, Count: 1}))
	assert.NoError(t, assertEventCount(trace, Assertion{Event: ledger.EventTransfer, Count: 0}))
	assert.Error(t, assertEventCount(trace, Assertion{Event: ledger.EventNameRegistered, Count: 2}))
}

func TestSubsetMismatch(t *testing.T) {
	actual := ir.Object{
		"id":      ir.Int(1),
		"name":    ir.String("김민준"),
		"numbers": ir.Ints([]int64{1, 2}),
	}
	assert.Empty(t, subsetMismatch(actual, map[string]any{"id": 1}))
	assert.Empty(t, subsetMismatch(actual, map[string]any{"numbers": []any{1, 2}}))
	assert.Empty(t, subsetMismatch(actual, nil))
	assert.Equal(t, "id: expected 2, got 1", subsetMismatch(actual, map[string]any{"id": 2}))
	assert.Equal(t, "other: missing", subsetMismatch(actual, map[string]any{"other": "x"}))
	assert.Contains(t, subsetMismatch(actual, map[string]any{"id": 1.5}), "floats are not allowed")
}

func TestReadTable_Errors(t *testing.T) {
	st, err := ledger.NewState(ledger.DefaultGenesis())
	require.NoError(t, err)

	_, err = readTable(st, TableNames, ir.Object{"id": ir.String("1")})
	assert.ErrorContains(t, err, "where.id must be an integer")

	_, err = readTable(st, TableNames, ir.Object{"id": ir.Int(1)})
	assert.True(t, ledger.IsNotFound(err))

	_, err = readTable(st, TableServices, ir.Object{"service_name": ir.String("translation")})
	assert.True(t, ledger.IsNotFound(err))

	row, err := readTable(st, TableBalances, ir.Object{"address": ir.String("deployer")})
	require.NoError(t, err)
	assert.Equal(t, ir.Int(ledger.DefaultInitialSupply), row["balance"])
}
