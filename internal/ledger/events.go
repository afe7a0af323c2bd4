package ledger

import "github.com/roach88/dajeum/internal/ir"

// Event names emitted by committed operations.
const (
	EventNameRegistered       = "NameRegistered"
	EventNamesBatchRegistered = "NamesBatchRegistered"
	EventCertificateMinted    = "CertificateMinted"
	EventTransfer             = "Transfer"
	EventApproval             = "Approval"
	EventServicePriceSet      = "ServicePriceSet"
	EventServicePaid          = "ServicePaid"
)

// EventSink receives the single event of each committed operation.
// Events are never emitted on failure and never retracted.
type EventSink interface {
	Emit(name string, fields ir.Object)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(name string, fields ir.Object)

// Emit implements EventSink.
func (f EventSinkFunc) Emit(name string, fields ir.Object) { f(name, fields) }

// Recorder buffers events until drained. The engine drains it after every
// operation to attach the events to the log entry.
type Recorder struct {
	events []ir.Event
}

// Emit implements EventSink.
func (r *Recorder) Emit(name string, fields ir.Object) {
	r.events = append(r.events, ir.Event{Name: name, Fields: fields})
}

// Drain returns the buffered events and resets the buffer.
func (r *Recorder) Drain() []ir.Event {
	out := r.events
	r.events = nil
	return out
}

type discardSink struct{}

func (discardSink) Emit(string, ir.Object) {}

func sinkOrDiscard(s EventSink) EventSink {
	if s == nil {
		return discardSink{}
	}
	return s
}
