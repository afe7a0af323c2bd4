// Package testutil holds fixtures shared by tests and the scenario harness:
// throwaway stores, argument builders for every action and deterministic
// request ids. It does not import the testing package so the harness can
// link it into the CLI.
package testutil

import (
	"path/filepath"

	"github.com/roach88/dajeum/internal/store"
)

// TB is the subset of testing.TB the fixtures need.
type TB interface {
	Helper()
	TempDir() string
	Cleanup(func())
	Fatalf(format string, args ...any)
}

// OpenStore opens a file-backed store under t.TempDir and closes it when
// the test ends. It returns the store and its path so tests can reopen it.
func OpenStore(t TB) (*store.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dajeum.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

// OpenMemoryStore opens an in-memory store. The store holds a single
// connection, so the database lives until Close.
func OpenMemoryStore() (*store.Store, error) {
	return store.Open(":memory:")
}
