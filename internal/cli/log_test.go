package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog_ListsEntriesInOrder(t *testing.T) {
	db := testLog(t)
	seedLog(t, db)

	out := mustExecute(t, "log", "--db", db)
	reg := strings.Index(out, "Identity.registerName")
	xfer := strings.Index(out, "Token.transfer")
	pay := strings.Index(out, "Token.payForService")
	assert.True(t, reg >= 0 && reg < xfer && xfer < pay, "entries in seq order:\n%s", out)

	out = mustExecute(t, "log", "--db", db, "--after", "1", "--limit", "1")
	assert.Contains(t, out, "Token.transfer")
	assert.NotContains(t, out, "Identity.registerName")
	assert.NotContains(t, out, "Token.payForService")
}

func TestLog_SingleEntry(t *testing.T) {
	db := testLog(t)
	seedLog(t, db)

	out := mustExecute(t, "log", "--db", db, "--seq", "3", "--format", "json")
	var resp struct {
		Data EntryView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, int64(3), resp.Data.Seq)
	assert.Equal(t, "Token.payForService", string(resp.Data.Action))
	require.Len(t, resp.Data.Events, 1)
	assert.Equal(t, "ServicePaid", resp.Data.Events[0].Name)

	_, _, err := execute(t, "log", "--db", db, "--seq", "9")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestLog_Events(t *testing.T) {
	db := testLog(t)
	seedLog(t, db)

	out := mustExecute(t, "log", "--db", db, "--event", "ServicePaid")
	assert.Contains(t, out, "ServicePaid")
	assert.Contains(t, out, `"service_name":"naming"`)

	out = mustExecute(t, "log", "--db", db, "--event", "CertificateMinted")
	assert.Contains(t, out, "No events.")
}

func TestLog_Filters(t *testing.T) {
	db := testLog(t)
	seedLog(t, db)
	_, _, err := execute(t, "submit", "Token.payForService", "--db", db, "--caller", "0xPoor", "--args", `{"service_name":"naming"}`)
	require.Error(t, err)

	out := mustExecute(t, "log", "--db", db, "--outcome", "INSUFFICIENT_BALANCE")
	assert.Contains(t, out, "0xPoor")
	assert.NotContains(t, out, "Identity.registerName")

	out = mustExecute(t, "log", "--db", db, "--caller", "0xUser", "--action", "Token.payForService")
	assert.Contains(t, out, "     3  OK")
	assert.NotContains(t, out, "0xPoor")
}
