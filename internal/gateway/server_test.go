package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dajeum/internal/engine"
	"github.com/roach88/dajeum/internal/ir"
	"github.com/roach88/dajeum/internal/ledger"
	"github.com/roach88/dajeum/internal/testutil"
)

const (
	deployer = testutil.Deployer
	user     = testutil.User
)

func newTestServer(t *testing.T) (*Server, *engine.Engine) {
	t.Helper()
	s, _ := testutil.OpenStore(t)

	m := NewMetrics()
	eng, err := engine.New(t.Context(), s, ledger.DefaultGenesis(),
		engine.WithRequestIDs(engine.NewSequentialGenerator("req")),
		engine.WithObserver(m),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = eng.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return New(eng, s, m), eng
}

func do(t *testing.T, srv http.Handler, method, path, caller string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, rd)
	if caller != "" {
		req.Header.Set(HeaderCaller, caller)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func submit(t *testing.T, srv http.Handler, caller string, action ir.Action, args ir.Object) (*httptest.ResponseRecorder, ir.LogEntry) {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/v1/operations", caller, map[string]any{
		"action": action,
		"args":   args,
	})
	var entry ir.LogEntry
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(rec.Body.Bytes(), &entry)
	}
	return rec, entry
}

func registerArgs(name string) ir.Object {
	return testutil.RegisterArgs(name, 2020, 5, 15, "남")
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestSubmit_RegisterAndRead(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, entry := submit(t, srv, user, ir.ActionRegisterName, testutil.ExampleRegisterArgs())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, ir.OutcomeOK, entry.Receipt.Outcome)
	assert.Equal(t, ir.Object{"id": ir.Int(1)}, entry.Receipt.Result)
	assert.Equal(t, int64(1), entry.Operation.Seq)
	require.Len(t, entry.Events, 1)
	assert.Equal(t, ledger.EventNameRegistered, entry.Events[0].Name)

	rec = do(t, srv, http.MethodGet, "/v1/names/1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	name := decode[ledger.NameRecord](t, rec)
	assert.Equal(t, "김민준", name.FullName)
	assert.Equal(t, ledger.Address(user), name.Owner)
}

func TestSubmit_MissingCaller(t *testing.T) {
	srv, eng := newTestServer(t)

	rec, _ := submit(t, srv, "", ir.ActionRegisterName, registerArgs("김민준"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	seq, _ := eng.Head()
	assert.Zero(t, seq, "nothing is sequenced without a caller")
}

func TestSubmit_UnknownAction(t *testing.T) {
	srv, eng := newTestServer(t)

	rec, _ := submit(t, srv, user, "Token.mint", ir.Object{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, ledger.CodeValidation, body.Code)

	seq, _ := eng.Head()
	assert.Zero(t, seq)
}

func TestSubmit_MalformedBody(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/operations", strings.NewReader("{not json"))
	req.Header.Set(HeaderCaller, user)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmit_RejectionIsLogged(t *testing.T) {
	srv, eng := newTestServer(t)

	rec, entry := submit(t, srv, user, ir.ActionMintCertificate, testutil.MintArgs(user, 42, "ipfs://meta", "ipfs://img"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ledger.CodeNotFound, entry.Receipt.Outcome)
	assert.Empty(t, entry.Events)

	seq, _ := eng.Head()
	assert.Equal(t, int64(1), seq, "rejected operations are still inputs")
}

func TestSubmit_StatusByOutcome(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, _ := submit(t, srv, user, ir.ActionTransfer, testutil.TransferArgs(deployer, 1))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "overdraft")

	rec, _ = submit(t, srv, user, ir.ActionSetServicePrice, testutil.PriceArgs("naming", 1))
	assert.Equal(t, http.StatusForbidden, rec.Code, "only the admin prices services")

	rec, _ = submit(t, srv, user, ir.ActionRegisterName, testutil.RegisterArgs("", 2020, 5, 15, "남"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSubmit_RequestIDHeader(t *testing.T) {
	srv, _ := newTestServer(t)

	buf, err := json.Marshal(map[string]any{"action": ir.ActionRegisterName, "args": registerArgs("김민준")})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/operations", bytes.NewReader(buf))
	req.Header.Set(HeaderCaller, user)
	req.Header.Set(HeaderRequestID, "client-7")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	entry := decode[ir.LogEntry](t, rec)
	assert.Equal(t, "client-7", entry.Operation.RequestID)
}

func TestPaymentFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, _ := submit(t, srv, deployer, ir.ActionTransfer, testutil.TransferArgs(user, 100_000_000))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, entry := submit(t, srv, user, ir.ActionPayForService, testutil.PayArgs(ledger.ServiceNaming))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ir.Object{"price": ir.Int(ledger.DefaultNamingPrice)}, entry.Receipt.Result)

	rec = do(t, srv, http.MethodGet, "/v1/balances/"+user, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	bal := decode[map[string]any](t, rec)
	assert.EqualValues(t, 90_000_000, bal["balance"])
	assert.Equal(t, "90.000000 DJM", bal["formatted"])

	rec = do(t, srv, http.MethodGet, "/v1/services/naming", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	svc := decode[map[string]any](t, rec)
	assert.Equal(t, "10.000000 DJM", svc["formatted"])

	rec = do(t, srv, http.MethodGet, "/v1/services/lookup", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAllowanceFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, _ := submit(t, srv, deployer, ir.ActionApprove, testutil.ApproveArgs(user, 3_000_000))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/v1/allowances/"+deployer+"/"+user, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	allowance := decode[map[string]any](t, rec)
	assert.EqualValues(t, 3_000_000, allowance["allowance"])
	assert.Equal(t, "3.000000 DJM", allowance["formatted"])

	rec, _ = submit(t, srv, user, ir.ActionTransfer, testutil.TransferFromArgs(deployer, testutil.Other, 2_000_000))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/v1/allowances/"+deployer+"/"+user, "", nil)
	assert.EqualValues(t, 1_000_000, decode[map[string]any](t, rec)["allowance"])

	rec, entry := submit(t, srv, user, ir.ActionTransfer, testutil.TransferFromArgs(deployer, testutil.Other, 2_000_000))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, ledger.CodeUnauthorized, entry.Receipt.Outcome)
}

func TestCertificates(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, _ := submit(t, srv, user, ir.ActionRegisterName, registerArgs("김민준"))
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = submit(t, srv, user, ir.ActionMintCertificate, testutil.MintArgs(user, 1, "ipfs://meta", "ipfs://img"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/v1/certificates/1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cert := decode[ledger.Certificate](t, rec)
	assert.Equal(t, int64(1), cert.NameID)
	assert.Equal(t, "ipfs://meta", cert.TokenURI)

	rec = do(t, srv, http.MethodGet, "/v1/names/1/certificates", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]ledger.Certificate](t, rec), 1)

	rec = do(t, srv, http.MethodGet, "/v1/certificates/2", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ledger.CodeNotFound, decode[errorBody](t, rec).Code)
}

func TestReadLog(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, name := range []string{"김민준", "이서연", "박지호"} {
		rec, _ := submit(t, srv, user, ir.ActionRegisterName, registerArgs(name))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := do(t, srv, http.MethodGet, "/v1/log?after=1&limit=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]ir.LogEntry](t, rec)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(2), entries[0].Operation.Seq)
	assert.Equal(t, entries[0].Hash, entries[1].PrevHash)

	rec = do(t, srv, http.MethodGet, "/v1/log/3", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(3), decode[ir.LogEntry](t, rec).Operation.Seq)

	rec = do(t, srv, http.MethodGet, "/v1/log/9", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodGet, "/v1/log?limit=0", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodGet, "/v1/events/"+ledger.EventNameRegistered, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]ir.Event](t, rec), 3)
}

func TestReadLog_Filters(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, _ := submit(t, srv, user, ir.ActionRegisterName, registerArgs("김민준"))
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = submit(t, srv, user, ir.ActionPayForService, ir.Object{"service_name": ir.String("naming")})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	rec, _ = submit(t, srv, "0xOther", ir.ActionRegisterName, registerArgs("이서연"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/v1/log?outcome=INSUFFICIENT_BALANCE", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]ir.LogEntry](t, rec)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].Operation.Seq)

	rec = do(t, srv, http.MethodGet, "/v1/log?caller=0xOther&event="+ledger.EventNameRegistered, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries = decode[[]ir.LogEntry](t, rec)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(3), entries[0].Operation.Seq)

	rec = do(t, srv, http.MethodGet, "/v1/log?action=Token.approve", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]ir.LogEntry](t, rec))
}

func TestSnapshotAndHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec, _ := submit(t, srv, user, ir.ActionRegisterName, registerArgs("김민준"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/v1/snapshot", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[ledger.Snapshot](t, rec)
	assert.Equal(t, 1, snap.Names)
	assert.Equal(t, int64(ledger.DefaultInitialSupply), snap.TotalSupply)

	rec = do(t, srv, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", health["status"])
	assert.EqualValues(t, 1, health["head_seq"])
}

func TestMetrics(t *testing.T) {
	srv, _ := newTestServer(t)
	rec, _ := submit(t, srv, user, ir.ActionRegisterName, registerArgs("김민준"))
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = submit(t, srv, user, ir.ActionPayForService, testutil.PayArgs("naming"))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, srv, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, `dajeum_operations_total{action="Identity.registerName",outcome="OK"} 1`)
	assert.Contains(t, body, `dajeum_operations_total{action="Token.payForService",outcome="INSUFFICIENT_BALANCE"} 1`)
	assert.Contains(t, body, `dajeum_events_total{name="NameRegistered"} 1`)
	assert.Contains(t, body, `dajeum_log_head_seq 2`)
	assert.Contains(t, body, `dajeum_http_requests_total{method="POST",route="/v1/operations",status="200"} 1`)
}

func TestOutcomeStatus(t *testing.T) {
	assert.Equal(t, http.StatusOK, outcomeStatus(ir.OutcomeOK))
	assert.Equal(t, http.StatusNotFound, outcomeStatus(ledger.CodeNotFound))
	assert.Equal(t, http.StatusForbidden, outcomeStatus(ledger.CodeUnauthorized))
	assert.Equal(t, http.StatusUnprocessableEntity, outcomeStatus(ledger.CodeValidation))
	assert.Equal(t, http.StatusUnprocessableEntity, outcomeStatus(ledger.CodeInsufficientBalance))
	assert.Equal(t, http.StatusInternalServerError, outcomeStatus("SOMETHING"))
}
