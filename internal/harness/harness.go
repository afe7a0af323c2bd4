package harness

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/dajeum/internal/engine"
	"github.com/roach88/dajeum/internal/ir"
	"github.com/roach88/dajeum/internal/store"
	"github.com/roach88/dajeum/internal/testutil"
)

// Harness drives one scenario through a real engine.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	ids    *testutil.ScenarioIDs
}

// Run executes a scenario on a fresh in-memory log and returns the trace
// with every failed expectation and assertion. An error means the scenario
// could not be executed at all.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	genesis, err := scenario.GenesisConfig()
	if err != nil {
		return nil, err
	}

	st, err := testutil.OpenMemoryStore()
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ids := testutil.NewScenarioIDs(scenario.Name)
	eng, err := engine.New(ctx, st, genesis, engine.WithRequestIDs(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	h := &Harness{store: st, engine: eng, ids: ids}

	result := NewResult()
	if err := h.executeSetup(ctx, scenario.Setup, result); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	result.Snapshot = eng.Snapshot()
	_, result.Head = eng.Head()

	actx := &AssertionContext{Ctx: ctx, Store: st, Engine: eng}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// executeSetup applies setup steps. A setup step that does not commit
// aborts the scenario.
func (h *Harness) executeSetup(ctx context.Context, setup []ActionStep, result *Result) error {
	for i, step := range setup {
		entry, err := h.apply(ctx, step.Action, step.Caller, step.Args)
		if err != nil {
			return fmt.Errorf("setup step %d: %w", i, err)
		}
		result.Trace = append(result.Trace, traceEvent(entry, true))
		if !entry.Receipt.OK() {
			return fmt.Errorf("setup step %d (%s): %s: %s", i, step.Action, entry.Receipt.Outcome, entry.Receipt.Error)
		}
	}
	return nil
}

// executeFlow applies flow steps and checks each against its expect clause.
// Mismatches are recorded on result; execution continues.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i, step := range flow {
		entry, err := h.apply(ctx, step.Invoke, step.Caller, step.Args)
		if err != nil {
			return fmt.Errorf("flow step %d: %w", i, err)
		}
		result.Trace = append(result.Trace, traceEvent(entry, false))
		if step.Expect != nil {
			for _, msg := range checkExpect(i, step, entry) {
				result.AddError(msg)
			}
		}
	}
	return nil
}

func (h *Harness) apply(ctx context.Context, action ir.Action, caller string, args map[string]any) (ir.LogEntry, error) {
	obj, err := ir.ObjectFromGo(args)
	if err != nil {
		return ir.LogEntry{}, fmt.Errorf("convert args: %w", err)
	}
	return h.engine.Apply(ctx, engine.Request{Action: action, Caller: caller, Args: obj})
}

func checkExpect(index int, step FlowStep, entry ir.LogEntry) []string {
	var errs []string
	exp := step.Expect
	if entry.Receipt.Outcome != exp.Outcome {
		msg := fmt.Sprintf("flow[%d] %s: expected outcome %s, got %s", index, step.Invoke, exp.Outcome, entry.Receipt.Outcome)
		if entry.Receipt.Error != "" {
			msg += " (" + entry.Receipt.Error + ")"
		}
		errs = append(errs, msg)
	}
	if exp.Result != nil {
		if diff := subsetMismatch(entry.Receipt.Result, exp.Result); diff != "" {
			errs = append(errs, fmt.Sprintf("flow[%d] %s: result %s", index, step.Invoke, diff))
		}
	}
	if exp.Events != nil {
		names := make([]string, len(entry.Events))
		for i, ev := range entry.Events {
			names[i] = ev.Name
		}
		if !slices.Equal(names, exp.Events) {
			errs = append(errs, fmt.Sprintf("flow[%d] %s: expected events %v, got %v", index, step.Invoke, exp.Events, names))
		}
	}
	return errs
}
