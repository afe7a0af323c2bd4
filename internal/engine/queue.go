package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/roach88/dajeum/internal/ir"
)

// submission is a queued request together with the channel its submitter
// waits on.
type submission struct {
	ctx   context.Context
	req   Request
	reply chan submitResult
	state *atomic.Int32 // nil means always claimable
}

const (
	submissionPending int32 = iota
	submissionClaimed
	submissionAbandoned
)

// claim marks the submission as taken by the Run loop. It fails if the
// submitter already gave up.
func (s submission) claim() bool {
	return s.state == nil || s.state.CompareAndSwap(submissionPending, submissionClaimed)
}

// abandon withdraws the submission. It fails once the Run loop has claimed
// it, after which the submitter must wait for the reply.
func (s submission) abandon() bool {
	return s.state != nil && s.state.CompareAndSwap(submissionPending, submissionAbandoned)
}

type submitResult struct {
	entry ir.LogEntry
	err   error
}

// requestQueue is a thread-safe unbounded FIFO of submissions.
//
// The queue uses a channel for signaling to enable context-aware waiting in
// the Run loop.
type requestQueue struct {
	mu     sync.Mutex
	items  []submission
	closed bool
	signal chan struct{} // buffered, size 1
}

func newRequestQueue() *requestQueue {
	return &requestQueue{
		items:  make([]submission, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds a submission to the back of the queue.
// Returns false if the queue is closed.
func (q *requestQueue) Enqueue(s submission) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.items = append(q.items, s)

	// Non-blocking: the buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front submission without blocking.
func (q *requestQueue) TryDequeue() (submission, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return submission{}, false
	}

	s := q.items[0]
	// Clear the slot so the backing array does not pin the reply channel.
	q.items[0] = submission{}
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return s, true
}

// Wait returns a channel that signals when submissions may be available.
// It is closed by Close.
func (q *requestQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *requestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops accepting submissions and wakes any waiter.
func (q *requestQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
