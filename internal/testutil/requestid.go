package testutil

import (
	"fmt"
	"sync"
)

// ScenarioIDs generates "<prefix>-0001", "<prefix>-0002", ... and can be
// reset so the same scenario run twice produces byte-identical logs.
//
// It satisfies engine.RequestIDGenerator.
//
// Thread-safety: all methods are safe for concurrent use.
type ScenarioIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewScenarioIDs creates a generator. An empty prefix defaults to "req".
func NewScenarioIDs(prefix string) *ScenarioIDs {
	if prefix == "" {
		prefix = "req"
	}
	return &ScenarioIDs{prefix: prefix}
}

// Generate returns the next id.
func (g *ScenarioIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

// Reset restarts numbering at 1.
func (g *ScenarioIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
