package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyChain_Empty(t *testing.T) {
	s := createTestStore(t)
	n, err := s.VerifyChain(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestVerifyChain_Intact(t *testing.T) {
	s := createTestStore(t)
	appendChain(t, s, "a", "b", "c")

	n, err := s.VerifyChain(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestVerifyChain_DetectsTampering(t *testing.T) {
	tests := []struct {
		name   string
		tamper string
		seq    int64
	}{
		{"args", `UPDATE operations SET args = '{"full_name":"mallory"}' WHERE seq = 2`, 2},
		{"receipt", `UPDATE receipts SET outcome = 'VALIDATION' WHERE seq = 1`, 1},
		{"event", `UPDATE events SET fields = '{"id":99}' WHERE seq = 3`, 3},
		{"prev hash", `UPDATE operations SET prev_hash = 'x' WHERE seq = 2`, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := createTestStore(t)
			appendChain(t, s, "a", "b", "c")

			_, err := s.db.Exec(tt.tamper)
			require.NoError(t, err)

			n, err := s.VerifyChain(t.Context())
			var ce *ChainError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.seq, ce.Seq)
			assert.Equal(t, tt.seq-1, n)
		})
	}
}
