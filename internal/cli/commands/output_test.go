package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		format  string
		want    string
		wantErr bool
	}{
		{format: "", want: FormatJSON},
		{format: FormatAuto, want: FormatJSON},
		{format: FormatTable, want: FormatTable},
		{format: FormatYAML, want: FormatYAML},
		{format: "csv", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got, err := resolveFormat(tt.format, &bytes.Buffer{})
			if tt.wantErr {
				assert.ErrorContains(t, err, "unknown output format")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFlatten(t *testing.T) {
	out := make(map[string]string)
	flatten("", map[string]any{
		"name":  "Jane",
		"age":   float64(41),
		"tags":  []any{},
		"main":  map[string]any{"street": "Main St 1"},
		"items": []any{map[string]any{"n": true}, "x"},
		"none":  nil,
	}, out)

	assert.Equal(t, map[string]string{
		"name":        "Jane",
		"age":         "41",
		"tags":        "[]",
		"main.street": "Main St 1",
		"items[0].n":  "true",
		"items[1]":    "x",
		"none":        "",
	}, out)
}

func TestRenderSnapshot(t *testing.T) {
	snapshot := map[string]any{"firstName": "Jane", "addresses": []any{map[string]any{"street": "Main St 1"}}}

	var buf bytes.Buffer
	require.NoError(t, renderSnapshot(&buf, FormatTable, snapshot))
	assert.Contains(t, buf.String(), "addresses[0].street")
	assert.Contains(t, buf.String(), "Main St 1")

	buf.Reset()
	require.NoError(t, renderSnapshot(&buf, FormatYAML, snapshot))
	assert.Contains(t, buf.String(), "firstName: Jane")
	assert.Contains(t, buf.String(), "- street: Main St 1")

	buf.Reset()
	require.NoError(t, renderSnapshot(&buf, FormatJSON, snapshot))
	assert.JSONEq(t, `{"firstName":"Jane","addresses":[{"street":"Main St 1"}]}`, buf.String())
}
