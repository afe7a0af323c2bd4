package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/dajeum/internal/ir"
	"github.com/roach88/dajeum/internal/ledger"
)

// Scenario is a scripted sequence of operations with expectations.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Genesis overrides parts of ledger.DefaultGenesis.
	Genesis yaml.Node `yaml:"genesis,omitempty"`

	// Setup steps establish state and must all commit.
	Setup []ActionStep `yaml:"setup,omitempty"`

	// Flow steps are the operations under test.
	Flow []FlowStep `yaml:"flow"`

	Assertions []Assertion `yaml:"assertions"`
}

// ActionStep is one setup operation.
type ActionStep struct {
	Action ir.Action      `yaml:"action"`
	Caller string         `yaml:"caller"`
	Args   map[string]any `yaml:"args"`
}

// FlowStep is one operation under test.
type FlowStep struct {
	Invoke ir.Action      `yaml:"invoke"`
	Caller string         `yaml:"caller"`
	Args   map[string]any `yaml:"args"`

	// Expect is optional; without it any outcome is accepted.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause describes the receipt a flow step must produce.
type ExpectClause struct {
	// Outcome is "OK" or a ledger error code.
	Outcome string `yaml:"outcome"`

	// Result is matched as a subset of the receipt result.
	Result map[string]any `yaml:"result,omitempty"`

	// Events, when given, must equal the emitted event names in order.
	Events []string `yaml:"events,omitempty"`
}

// Assertion checks the trace or the final state.
type Assertion struct {
	Type string `yaml:"type"`

	// Action is used by trace_contains and trace_count.
	Action ir.Action `yaml:"action,omitempty"`

	// Args is a subset match for trace_contains.
	Args map[string]any `yaml:"args,omitempty"`

	// Outcome optionally narrows trace_count.
	Outcome string `yaml:"outcome,omitempty"`

	// Event is the event name for event_count.
	Event string `yaml:"event,omitempty"`

	// Count is used by trace_count and event_count.
	Count int `yaml:"count,omitempty"`

	// Actions is the expected order for trace_order.
	Actions []ir.Action `yaml:"actions,omitempty"`

	// Table, Where and Expect are used by final_state.
	Table  string         `yaml:"table,omitempty"`
	Where  map[string]any `yaml:"where,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion types.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertEventCount    = "event_count"
	AssertFinalState    = "final_state"
	AssertReplay        = "replay"
)

// Tables readable by final_state.
const (
	TableNames        = "names"
	TableCertificates = "certificates"
	TableBalances     = "balances"
	TableAllowances   = "allowances"
	TableServices     = "services"
	TableToken        = "token"
	TableSnapshot     = "snapshot"
)

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario document. Unknown fields
// are rejected so typos fail loudly.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// GenesisConfig returns the default genesis with the scenario's overrides
// applied.
func (s *Scenario) GenesisConfig() (ledger.Genesis, error) {
	g := ledger.DefaultGenesis()
	if s.Genesis.Kind == 0 {
		return g, nil
	}
	if err := s.Genesis.Decode(&g); err != nil {
		return ledger.Genesis{}, fmt.Errorf("genesis: %w", err)
	}
	return g, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if _, err := s.GenesisConfig(); err != nil {
		return err
	}

	for i, step := range s.Setup {
		if !step.Action.Valid() {
			return fmt.Errorf("setup[%d]: unknown action %q", i, step.Action)
		}
		if step.Args == nil {
			return fmt.Errorf("setup[%d]: args is required (use empty map if no args)", i)
		}
	}
	for i, step := range s.Flow {
		if step.Invoke == "" {
			return fmt.Errorf("flow[%d]: invoke is required", i)
		}
		if step.Args == nil {
			return fmt.Errorf("flow[%d]: args is required (use empty map if no args)", i)
		}
		if step.Expect != nil && step.Expect.Outcome == "" {
			return fmt.Errorf("flow[%d].expect: outcome is required", i)
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertEventCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for event_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertFinalState:
		switch a.Table {
		case TableNames, TableCertificates, TableBalances, TableAllowances, TableServices, TableToken, TableSnapshot:
		case "":
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		default:
			return fmt.Errorf("assertions[%d]: unknown table %q", index, a.Table)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertReplay:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
