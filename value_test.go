package atomreg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrivialCallbacks(t *testing.T) {
	cb := Trivial[int]()

	got, err := cb.Copy(42)
	require.NoError(t, err)
	require.Equal(t, 42, got)

	var dst int
	require.NoError(t, cb.Get(7, &dst))
	require.Equal(t, 7, dst)

	require.NoError(t, cb.Free(99))
}
