package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/dajeum/internal/ir"
	"github.com/roach88/dajeum/internal/ledger"
	"github.com/roach88/dajeum/internal/store"
)

// Request is an operation as submitted by the gateway or CLI, before it is
// sequenced. Caller is trusted: authentication happens upstream.
type Request struct {
	RequestID string    `json:"request_id,omitempty"`
	Action    ir.Action `json:"action"`
	Caller    string    `json:"caller"`
	Args      ir.Object `json:"args"`
}

// Observer is notified of every entry after it is durably logged.
// Observers run on the apply path under the state lock and must not call
// back into the engine.
type Observer interface {
	Observe(entry ir.LogEntry)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(entry ir.LogEntry)

// Observe implements Observer.
func (f ObserverFunc) Observe(entry ir.LogEntry) { f(entry) }

// Engine is the single-writer sequencer over one ledger.State and one log.
//
// Thread-safety model:
//   - Submit(), View(), Head(): safe from any goroutine
//   - Apply(): safe from any goroutine; operations are serialized by mu
//   - Run(): must be called from exactly one goroutine
type Engine struct {
	mu          sync.RWMutex
	store       *store.Store
	genesis     ledger.Genesis
	genesisHash string
	state       *ledger.State
	events      *ledger.Recorder
	clock       *Clock
	head        string
	halted      error

	queue     *requestQueue
	ids       RequestIDGenerator
	policy    ledger.MintPolicy
	observers []Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithRequestIDs sets the generator used for requests without an id.
// Default: UUIDv7Generator.
func WithRequestIDs(g RequestIDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithMintPolicy replaces the default owner-or-issuer mint policy.
// The policy is not part of the genesis: replay must use the same one.
func WithMintPolicy(p ledger.MintPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithObserver registers an observer. Observers are called in
// registration order.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// New creates an Engine over s. A new log records genesis; an existing log
// must have been created with the same genesis. The ledger state is rebuilt
// by replaying every logged operation, and any divergence from the recorded
// receipts is an error.
func New(ctx context.Context, s *store.Store, genesis ledger.Genesis, opts ...Option) (*Engine, error) {
	e := &Engine{
		store:   s,
		genesis: genesis,
		events:  &ledger.Recorder{},
		queue:   newRequestQueue(),
		ids:     UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}

	hash, err := s.InitGenesis(ctx, genesis.Object())
	if err != nil {
		return nil, err
	}
	e.genesisHash = hash

	state, err := newState(genesis, e.events, e.policy)
	if err != nil {
		return nil, fmt.Errorf("build state: %w", err)
	}
	e.state = state

	entries, err := s.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load log: %w", err)
	}
	head, divergences := replayEntries(state, e.events, entries)
	if len(divergences) > 0 {
		d := divergences[0]
		return nil, &RuntimeError{
			Code:    ErrCodeReplayDivergence,
			Message: fmt.Sprintf("%s: logged %s, replayed %s", d.Field, d.Want, d.Got),
			Seq:     d.Seq,
		}
	}

	e.clock = NewClockAt(int64(len(entries)))
	e.head = head

	slog.Debug("engine opened",
		"genesis", hash,
		"entries", len(entries),
		"head", head,
	)
	return e, nil
}

// Open creates an Engine over an existing log using the genesis recorded
// in it.
func Open(ctx context.Context, s *store.Store, opts ...Option) (*Engine, error) {
	genesis, err := LoadGenesis(ctx, s)
	if err != nil {
		return nil, err
	}
	return New(ctx, s, genesis, opts...)
}

// LoadGenesis decodes the genesis recorded in s.
func LoadGenesis(ctx context.Context, s *store.Store) (ledger.Genesis, error) {
	data, _, err := s.Genesis(ctx)
	if err != nil {
		return ledger.Genesis{}, err
	}
	var g ledger.Genesis
	if err := json.Unmarshal(data, &g); err != nil {
		return ledger.Genesis{}, fmt.Errorf("decode genesis: %w", err)
	}
	return g, nil
}

func newState(g ledger.Genesis, sink ledger.EventSink, policy ledger.MintPolicy) (*ledger.State, error) {
	opts := []ledger.Option{ledger.WithSink(sink)}
	if policy != nil {
		opts = append(opts, ledger.WithMintPolicy(policy))
	}
	return ledger.NewState(g, opts...)
}

// Apply sequences and applies one request synchronously and returns its
// log entry. A ledger rejection is not an error: it is returned as an entry
// whose receipt carries the error code. The returned error is reserved for
// failures to sequence or persist.
//
// Once an operation has been applied to the state it is persisted even if
// ctx is cancelled. If persisting fails the engine halts, since the state
// is now ahead of the log.
func (e *Engine) Apply(ctx context.Context, req Request) (ir.LogEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.halted != nil {
		return ir.LogEntry{}, &RuntimeError{Code: ErrCodeHalted, Message: "engine halted by an earlier failure", Err: e.halted}
	}
	if err := ctx.Err(); err != nil {
		return ir.LogEntry{}, err
	}

	if req.RequestID == "" {
		req.RequestID = e.ids.Generate()
	}
	// The log stores canonical strings; execute exactly what replay will read.
	args, err := ir.Canonicalize(req.Args)
	if err != nil {
		return ir.LogEntry{}, fmt.Errorf("canonicalize request %s: %w", req.RequestID, err)
	}
	req.Args = args
	req.Caller = ir.CanonicalString(req.Caller)
	req.RequestID = ir.CanonicalString(req.RequestID)

	seq := e.clock.Current() + 1
	id, err := ir.OperationID(req.RequestID, req.Action, req.Caller, req.Args, seq)
	if err != nil {
		return ir.LogEntry{}, fmt.Errorf("sequence request %s: %w", req.RequestID, err)
	}
	op := ir.Operation{
		ID:        id,
		RequestID: req.RequestID,
		Seq:       seq,
		Action:    req.Action,
		Caller:    req.Caller,
		Args:      req.Args,
	}

	entry, err := resolve(e.state, e.events, op)
	if err != nil {
		e.halted = err
		return ir.LogEntry{}, err
	}
	if err := chain(&entry, e.head); err != nil {
		e.halted = err
		return ir.LogEntry{}, err
	}

	if err := e.store.Append(context.WithoutCancel(ctx), entry); err != nil {
		e.halted = err
		slog.Error("append failed; engine halted",
			"seq", seq,
			"action", op.Action,
			"error", err,
		)
		return ir.LogEntry{}, &RuntimeError{Code: ErrCodeHalted, Message: "append failed", Seq: seq, Err: err}
	}

	e.clock.Next()
	e.head = entry.Hash

	if entry.Receipt.OK() {
		slog.Debug("operation committed",
			"seq", seq,
			"action", op.Action,
			"caller", op.Caller,
			"events", len(entry.Events),
		)
	} else {
		slog.Debug("operation rejected",
			"seq", seq,
			"action", op.Action,
			"caller", op.Caller,
			"outcome", entry.Receipt.Outcome,
			"error", entry.Receipt.Error,
		)
	}

	for _, o := range e.observers {
		o.Observe(entry)
	}
	return entry, nil
}

// resolve executes op against st and builds its (unchained) log entry.
func resolve(st *ledger.State, rec *ledger.Recorder, op ir.Operation) (ir.LogEntry, error) {
	result, err := execute(st, op)
	events := rec.Drain()

	receipt := ir.Receipt{
		OperationID: op.ID,
		Seq:         op.Seq,
		Outcome:     ir.OutcomeOK,
		Result:      result,
	}
	if err != nil {
		code := ledger.CodeOf(err)
		if code == "" {
			return ir.LogEntry{}, &RuntimeError{Code: ErrCodeInternal, Message: "uncoded ledger error", Seq: op.Seq, Err: err}
		}
		receipt.Outcome = code
		receipt.Error = err.Error()
		receipt.Result = ir.Object{}
	}

	stamped := make([]ir.Event, len(events))
	for i, ev := range events {
		ev.OperationID = op.ID
		ev.Seq = op.Seq
		stamped[i] = ev
	}

	return ir.LogEntry{Operation: op, Receipt: receipt, Events: stamped}, nil
}

// chain links entry to prev and computes its hash.
func chain(entry *ir.LogEntry, prev string) error {
	entry.PrevHash = prev
	hash, err := ir.EntryHash(*entry)
	if err != nil {
		return fmt.Errorf("hash entry seq=%d: %w", entry.Operation.Seq, err)
	}
	entry.Hash = hash
	return nil
}

// Submit enqueues req for the Run loop and waits for its entry.
// Safe from any goroutine. If ctx is done before the Run loop takes the
// request, it is dropped without being sequenced and ctx.Err() is returned.
// Once taken, the request is resolved and Submit returns its entry even if
// ctx ends meanwhile, so a cancellation error always means nothing was
// logged.
func (e *Engine) Submit(ctx context.Context, req Request) (ir.LogEntry, error) {
	sub := submission{ctx: ctx, req: req, reply: make(chan submitResult, 1), state: new(atomic.Int32)}
	if !e.queue.Enqueue(sub) {
		return ir.LogEntry{}, ErrClosed
	}
	select {
	case r := <-sub.reply:
		return r.entry, r.err
	case <-ctx.Done():
		if sub.abandon() {
			return ir.LogEntry{}, ctx.Err()
		}
		r := <-sub.reply
		return r.entry, r.err
	}
}

// Run drains submitted requests one at a time until ctx is cancelled or
// Stop is called.
//
// CRITICAL: Must be called from exactly ONE goroutine.
//
// ERROR HANDLING: a failed request is logged and answered with its error,
// and the loop continues. Nothing is retried.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting", "head_seq", e.clock.Current())

	for {
		sub, ok := e.queue.TryDequeue()
		if ok {
			e.process(ctx, sub)
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			e.queue.Close()
			e.drain(ctx.Err())
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel is closed by Close, which makes this case
			// fire immediately.
			if e.queue.Len() == 0 && e.closed() {
				slog.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

func (e *Engine) process(ctx context.Context, sub submission) {
	if !sub.claim() {
		return
	}
	if err := sub.ctx.Err(); err != nil {
		sub.reply <- submitResult{err: err}
		return
	}
	entry, err := e.Apply(ctx, sub.req)
	if err != nil {
		slog.Error("request processing failed",
			"request_id", sub.req.RequestID,
			"action", sub.req.Action,
			"error", err,
		)
	}
	sub.reply <- submitResult{entry: entry, err: err}
}

// drain answers every queued submission with err.
func (e *Engine) drain(err error) {
	for {
		sub, ok := e.queue.TryDequeue()
		if !ok {
			return
		}
		if sub.claim() {
			sub.reply <- submitResult{err: err}
		}
	}
}

func (e *Engine) closed() bool {
	e.queue.mu.Lock()
	defer e.queue.mu.Unlock()
	return e.queue.closed
}

// Stop closes the queue. Run returns after answering what is already
// queued.
func (e *Engine) Stop() {
	e.queue.Close()
}

// View runs fn with read access to the ledger state. fn must not retain
// the state or mutate it.
func (e *Engine) View(fn func(st *ledger.State) error) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return fn(e.state)
}

// Head returns the seq and hash of the last logged entry.
func (e *Engine) Head() (int64, string) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.clock.Current(), e.head
}

// Genesis returns the genesis the state was built from and its hash.
func (e *Engine) Genesis() (ledger.Genesis, string) {
	return e.genesis, e.genesisHash
}

// Snapshot summarizes the current state.
func (e *Engine) Snapshot() ledger.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Snapshot()
}

// QueueLen returns the number of submissions waiting for Run.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}
