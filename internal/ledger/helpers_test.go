package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/dajeum/internal/ir"
)

func mustCanonical(t *testing.T, v ir.Value) []byte {
	t.Helper()
	b, err := ir.MarshalCanonical(v)
	require.NoError(t, err)
	return b
}
