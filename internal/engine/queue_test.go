package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dajeum/internal/ir"
)

func sub(id string) submission {
	return submission{ctx: context.Background(), req: Request{RequestID: id, Action: ir.ActionRegisterName}}
}

func TestRequestQueue_FIFO(t *testing.T) {
	q := newRequestQueue()
	for _, id := range []string{"A", "B", "C"} {
		require.True(t, q.Enqueue(sub(id)))
	}
	assert.Equal(t, 3, q.Len())

	for _, want := range []string{"A", "B", "C"} {
		got, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, got.req.RequestID)
	}

	_, ok := q.TryDequeue()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Len())
}

func TestRequestQueue_SignalsOnEnqueue(t *testing.T) {
	q := newRequestQueue()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Enqueue(sub("late"))
	}()

	select {
	case <-q.Wait():
	case <-time.After(time.Second):
		t.Fatal("no signal after enqueue")
	}
	got, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "late", got.req.RequestID)
}

func TestRequestQueue_Close(t *testing.T) {
	q := newRequestQueue()
	q.Close()
	q.Close() // idempotent

	assert.False(t, q.Enqueue(sub("x")))

	select {
	case <-q.Wait():
	default:
		t.Fatal("Wait channel should be closed")
	}
}
