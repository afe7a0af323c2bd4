package ir

// Action names a ledger operation, formatted "Component.operation".
type Action string

// Mutating actions accepted by the sequencer.
const (
	ActionRegisterName       Action = "Identity.registerName"
	ActionBatchRegisterNames Action = "Identity.batchRegisterNames"
	ActionMintCertificate    Action = "Certificate.mintCertificate"
	ActionTransfer           Action = "Token.transfer"
	ActionApprove            Action = "Token.approve"
	ActionSetServicePrice    Action = "Token.setServicePrice"
	ActionPayForService      Action = "Token.payForService"
)

// Actions lists every mutating action in a stable order.
func Actions() []Action {
	return []Action{
		ActionRegisterName,
		ActionBatchRegisterNames,
		ActionMintCertificate,
		ActionTransfer,
		ActionApprove,
		ActionSetServicePrice,
		ActionPayForService,
	}
}

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	for _, known := range Actions() {
		if a == known {
			return true
		}
	}
	return false
}

// OutcomeOK is the receipt outcome of a committed operation. Rejected
// operations carry the error code instead (VALIDATION, NOT_FOUND, ...).
const OutcomeOK = "OK"

// Operation is one entry of the ordered input log.
type Operation struct {
	ID        string `json:"id"`         // Content-addressed hash
	RequestID string `json:"request_id"` // Gateway correlation id
	Seq       int64  `json:"seq"`        // Logical clock
	Action    Action `json:"action"`
	Caller    string `json:"caller"` // Authenticated upstream
	Args      Object `json:"args"`
}

// Receipt records how an operation was resolved. Rejections are receipts
// too: replay must reproduce them exactly.
type Receipt struct {
	OperationID string `json:"operation_id"`
	Seq         int64  `json:"seq"`
	Outcome     string `json:"outcome"`
	Result      Object `json:"result"`
	Error       string `json:"error,omitempty"`
}

// OK reports whether the operation was committed.
func (r Receipt) OK() bool {
	return r.Outcome == OutcomeOK
}

// Event is the structured notification emitted by a committed operation.
type Event struct {
	OperationID string `json:"operation_id"`
	Seq         int64  `json:"seq"`
	Name        string `json:"name"`
	Fields      Object `json:"fields"`
}

// LogEntry is an operation together with its receipt, events and chain link
// as persisted by the store.
type LogEntry struct {
	Operation Operation `json:"operation"`
	Receipt   Receipt   `json:"receipt"`
	Events    []Event   `json:"events"`
	PrevHash  string    `json:"prev_hash"`
	Hash      string    `json:"hash"`
}
