package assert

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLength(t *testing.T) {
	require.NotPanics(t, func() { Length("abcdef", 6) })
	require.PanicsWithValue(t, "assert.Length expected 6 actual 5", func() { Length("abcde", 6) })
}
