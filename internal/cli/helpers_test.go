package cli

import (
	"bytes"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// testLog is a log path in a fresh temp dir.
func testLog(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "dajeum.db")
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return stdout.String(), stderr.String(), err
}

// mustExecute runs the root command and requires success.
func mustExecute(t *testing.T, args ...string) string {
	t.Helper()
	out, stderr, err := execute(t, args...)
	require.NoError(t, err, "stdout:\n%s\nstderr:\n%s", out, stderr)
	return out
}

const registerKim = `{"full_name":"김민준","birth_year":2020,"birth_month":5,"birth_day":15,"gender":"남"}`

// seedLog sequences a registration, a funding transfer and a payment.
func seedLog(t *testing.T, db string) {
	t.Helper()
	mustExecute(t, "submit", "Identity.registerName", "--db", db, "--caller", "0xUser", "--args", registerKim)
	mustExecute(t, "submit", "Token.transfer", "--db", db, "--caller", "deployer", "--args", `{"to":"0xUser","amount":100000000}`)
	mustExecute(t, "submit", "Token.payForService", "--db", db, "--caller", "0xUser", "--args", `{"service_name":"naming"}`)
}

// testWriter is a buffer safe for the concurrent writes of a running
// server's logger.
type testWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *testWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *testWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}
