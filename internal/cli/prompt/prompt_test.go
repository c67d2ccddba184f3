package prompt

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewNotifier(&buf)

	n.Info("Logging in to %s...", "local")
	n.Success("Login successful!")
	n.Warn("already logged in as %s", "ab")

	assert.Equal(t, "Logging in to local...\n✓ Login successful!\nWarning: already logged in as ab\n", buf.String())
}

func TestAlwaysYes(t *testing.T) {
	ok, err := AlwaysYes{}.Confirm("Delete product p1?")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInteractive_EmptySelection(t *testing.T) {
	_, err := Interactive{}.Select("Select a store", nil)
	require.Error(t, err)
}
