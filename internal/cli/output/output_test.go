package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintList_Table(t *testing.T) {
	rows := []map[string]any{
		{"id": "p1", "name": "Milk", "price": float64(3), "active": true},
		{"id": "p2", "name": "", "price": 2.5},
	}

	var buf bytes.Buffer
	require.NoError(t, PrintList(&buf, FormatTable, []string{"id", "name", "price", "active"}, rows))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"ID", "NAME", "PRICE", "ACTIVE"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"p1", "Milk", "3", "yes"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"p2", "-", "2.50", "-"}, strings.Fields(lines[3]))
}

func TestPrintList_DefaultColumns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintList(&buf, "", nil, []map[string]any{{"b": "2", "a": "1"}}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{"A", "B"}, strings.Fields(lines[0]))
}

func TestPrintList_JSONAndYAML(t *testing.T) {
	rows := []map[string]any{{"id": "s1"}}

	var buf bytes.Buffer
	require.NoError(t, PrintList(&buf, FormatJSON, nil, rows))
	assert.JSONEq(t, `[{"id":"s1"}]`, buf.String())

	buf.Reset()
	require.NoError(t, PrintList(&buf, FormatYAML, nil, rows))
	assert.Equal(t, "- id: s1\n", buf.String())
}

func TestPrintOne_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintOne(&buf, FormatTable, map[string]any{"name": "Main", "id": "s1"}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"ID", "s1"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"NAME", "Main"}, strings.Fields(lines[1]))
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"table", false},
		{"json", false},
		{"yaml", false},
		{"xml", true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			err := ValidateFormat(tt.format)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCell(t *testing.T) {
	assert.Equal(t, "-", Cell(nil))
	assert.Equal(t, "42", Cell(float64(42)))
	assert.Equal(t, "no", Cell(false))
	assert.Equal(t, `{"a":1}`, Cell(map[string]any{"a": 1}))
}
