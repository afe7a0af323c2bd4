package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit_Commits(t *testing.T) {
	db := testLog(t)
	out := mustExecute(t, "submit", "Identity.registerName", "--db", db, "--caller", "0xUser", "--args", registerKim)

	assert.Contains(t, out, "Seq:")
	assert.Contains(t, out, "Outcome: OK")
	assert.Contains(t, out, `Result:  {"id":1}`)
	assert.Contains(t, out, "Events:  NameRegistered")
}

func TestSubmit_JSON(t *testing.T) {
	db := testLog(t)
	out := mustExecute(t, "submit", "Identity.registerName", "--db", db, "--caller", "0xUser", "--args", registerKim,
		"--request-id", "req-1", "--format", "json")

	var resp struct {
		Status string    `json:"status"`
		Data   EntryView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, int64(1), resp.Data.Seq)
	assert.Equal(t, "req-1", resp.Data.RequestID)
	assert.Equal(t, "OK", resp.Data.Outcome)
	require.Len(t, resp.Data.Events, 1)
	assert.Equal(t, "NameRegistered", resp.Data.Events[0].Name)
	assert.Len(t, resp.Data.Hash, 64)
}

func TestSubmit_RejectionIsLogged(t *testing.T) {
	db := testLog(t)
	out, _, err := execute(t, "submit", "Token.payForService", "--db", db, "--caller", "0xUser", "--args", `{"service_name":"naming"}`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Outcome: INSUFFICIENT_BALANCE")

	logOut := mustExecute(t, "log", "--db", db)
	assert.Contains(t, logOut, "INSUFFICIENT_BALANCE")
	assert.Contains(t, logOut, "Token.payForService")
}

func TestSubmit_RejectionJSON(t *testing.T) {
	db := testLog(t)
	out, _, err := execute(t, "submit", "Identity.registerName", "--db", db, "--caller", "0xUser",
		"--args", `{"full_name":"김민준","birth_year":2020,"birth_month":13,"birth_day":15,"gender":"남"}`,
		"--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "birth_month")
}

func TestSubmit_CommandErrors(t *testing.T) {
	db := testLog(t)
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown action", []string{"submit", "Token.mint", "--db", db, "--caller", "x"}, `unknown action "Token.mint"`},
		{"malformed args", []string{"submit", "Token.approve", "--db", db, "--caller", "x", "--args", "{"}, "invalid --args"},
		{"float args", []string{"submit", "Token.approve", "--db", db, "--caller", "x", "--args", `{"spender":"y","amount":1.5}`}, "invalid --args"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	// Nothing was sequenced.
	out := mustExecute(t, "log", "--db", db)
	assert.Contains(t, out, "No entries.")
}

func TestSubmit_RequiresCaller(t *testing.T) {
	_, _, err := execute(t, "submit", "Token.approve", "--db", testLog(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "caller" not set`)
}
