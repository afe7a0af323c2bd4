package harness

import (
	"github.com/roach88/dajeum/internal/ir"
	"github.com/roach88/dajeum/internal/ledger"
)

// TraceEvent is one sequenced operation as seen by the scenario. Hashes and
// request ids are left out so traces stay readable in golden files.
type TraceEvent struct {
	Seq     int64       `json:"seq"`
	Setup   bool        `json:"setup,omitempty"`
	Action  ir.Action   `json:"action"`
	Caller  string      `json:"caller"`
	Args    ir.Object   `json:"args"`
	Outcome string      `json:"outcome"`
	Result  ir.Object   `json:"result"`
	Error   string      `json:"error,omitempty"`
	Events  []TraceEmit `json:"events"`
}

// TraceEmit is an event emitted by a traced operation.
type TraceEmit struct {
	Name   string    `json:"name"`
	Fields ir.Object `json:"fields"`
}

func traceEvent(entry ir.LogEntry, setup bool) TraceEvent {
	emits := make([]TraceEmit, len(entry.Events))
	for i, ev := range entry.Events {
		emits[i] = TraceEmit{Name: ev.Name, Fields: ev.Fields}
	}
	return TraceEvent{
		Seq:     entry.Operation.Seq,
		Setup:   setup,
		Action:  entry.Operation.Action,
		Caller:  entry.Operation.Caller,
		Args:    entry.Operation.Args,
		Outcome: entry.Receipt.Outcome,
		Result:  entry.Receipt.Result,
		Error:   entry.Receipt.Error,
		Events:  emits,
	}
}

// Object renders the trace event for canonical serialization.
func (e TraceEvent) Object() ir.Object {
	events := make(ir.Array, len(e.Events))
	for i, ev := range e.Events {
		fields := ev.Fields
		if fields == nil {
			fields = ir.Object{}
		}
		events[i] = ir.Object{"name": ir.String(ev.Name), "fields": fields}
	}
	result := e.Result
	if result == nil {
		result = ir.Object{}
	}
	obj := ir.Object{
		"seq":     ir.Int(e.Seq),
		"action":  ir.String(e.Action),
		"caller":  ir.String(e.Caller),
		"args":    e.Args,
		"outcome": ir.String(e.Outcome),
		"result":  result,
		"events":  events,
	}
	if e.Setup {
		obj["setup"] = ir.Bool(true)
	}
	if e.Error != "" {
		obj["error"] = ir.String(e.Error)
	}
	return obj
}

// Result is the outcome of running a scenario.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace holds every sequenced operation, setup included.
	Trace []TraceEvent `json:"trace"`

	// Errors explains each failed expectation or assertion.
	Errors []string `json:"errors,omitempty"`

	// Snapshot is the final state summary.
	Snapshot ledger.Snapshot `json:"snapshot"`

	// Head is the hash of the last log entry.
	Head string `json:"head"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
