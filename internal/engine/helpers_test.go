package engine

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/dajeum/internal/ir"
	"github.com/roach88/dajeum/internal/ledger"
	"github.com/roach88/dajeum/internal/store"
)

const (
	deployer = "deployer"
	user     = "0xUser"
)

func setupTestStore(t *testing.T) (*store.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *store.Store) {
	t.Helper()
	s, _ := setupTestStore(t)
	opts = append([]Option{WithRequestIDs(NewSequentialGenerator("req"))}, opts...)
	e, err := New(t.Context(), s, ledger.DefaultGenesis(), opts...)
	require.NoError(t, err)
	return e, s
}

func apply(t *testing.T, e *Engine, req Request) ir.LogEntry {
	t.Helper()
	entry, err := e.Apply(t.Context(), req)
	require.NoError(t, err)
	return entry
}

func registerReq(caller, name string, year, month, day int64, gender string) Request {
	return Request{
		Action: ir.ActionRegisterName,
		Caller: caller,
		Args: ir.NewObject(
			ir.P("full_name", ir.String(name)),
			ir.P("birth_year", ir.Int(year)),
			ir.P("birth_month", ir.Int(month)),
			ir.P("birth_day", ir.Int(day)),
			ir.P("gender", ir.String(gender)),
		),
	}
}

func batchReq(caller string, months ...int64) Request {
	if len(months) == 0 {
		months = []int64{3, 7, 11}
	}
	return Request{
		Action: ir.ActionBatchRegisterNames,
		Caller: caller,
		Args: ir.NewObject(
			ir.P("names", ir.Strings([]string{"이서연", "박지호", "최수아"})),
			ir.P("years", ir.Ints([]int64{2019, 2021, 2022})),
			ir.P("months", ir.Ints(months)),
			ir.P("days", ir.Ints([]int64{10, 22, 5})),
			ir.P("genders", ir.Strings([]string{"여", "남", "여"})),
		),
	}
}

func mintReq(caller, owner string, nameID int64) Request {
	return Request{
		Action: ir.ActionMintCertificate,
		Caller: caller,
		Args: ir.NewObject(
			ir.P("owner", ir.String(owner)),
			ir.P("name_id", ir.Int(nameID)),
			ir.P("token_uri", ir.String("ipfs://QmExample123456789")),
			ir.P("image_uri", ir.String("ipfs://QmExampleImage123456789")),
		),
	}
}

func transferReq(caller, to string, amount int64) Request {
	return Request{
		Action: ir.ActionTransfer,
		Caller: caller,
		Args:   ir.NewObject(ir.P("to", ir.String(to)), ir.P("amount", ir.Int(amount))),
	}
}

func payReq(caller, service string) Request {
	return Request{
		Action: ir.ActionPayForService,
		Caller: caller,
		Args:   ir.NewObject(ir.P("service_name", ir.String(service))),
	}
}

// runScenario applies the smoke-test flow and returns the entries.
func runScenario(t *testing.T, e *Engine) []ir.LogEntry {
	t.Helper()
	return []ir.LogEntry{
		apply(t, e, transferReq(deployer, user, 100_000_000)),
		apply(t, e, registerReq(user, "김민준", 2020, 5, 15, "남")),
		apply(t, e, mintReq(user, user, 1)),
		apply(t, e, payReq(user, "naming")),
		apply(t, e, batchReq(user)),
		apply(t, e, mintReq(user, user, 99)),
		apply(t, e, batchReq(user, 3, 13, 11)),
		apply(t, e, payReq(user, "unknown")),
	}
}
