package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dajeum/internal/ir"
	"github.com/roach88/dajeum/internal/store"
)

func TestScenarioIDs_Sequence(t *testing.T) {
	gen := NewScenarioIDs("smoke")
	assert.Equal(t, "smoke-0001", gen.Generate())
	assert.Equal(t, "smoke-0002", gen.Generate())

	gen.Reset()
	assert.Equal(t, "smoke-0001", gen.Generate())
}

func TestScenarioIDs_DefaultPrefix(t *testing.T) {
	assert.Equal(t, "req-0001", NewScenarioIDs("").Generate())
}

func TestScenarioIDs_ThreadSafe(t *testing.T) {
	gen := NewScenarioIDs("p")
	seen := make(map[string]bool)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := gen.Generate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 1000, "every id is unique")
}

func TestOpenStore_Reopen(t *testing.T) {
	s, path := OpenStore(t)
	_, err := s.InitGenesis(t.Context(), ir.Object{"v": ir.Int(1)})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := store.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	_, hash, err := reopened.Genesis(t.Context())
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
}

func TestArgs(t *testing.T) {
	args := TransferFromArgs(User, Other, 5)
	assert.Equal(t, ir.String(User), args["from"])
	assert.Equal(t, ir.Int(5), args["amount"])

	batch := BatchArgs([]string{"a"}, []int64{2020}, []int64{1}, []int64{2}, []string{"여"})
	assert.Len(t, batch, 5)
	assert.Equal(t, ir.Strings([]string{"a"}), batch["names"])
}
