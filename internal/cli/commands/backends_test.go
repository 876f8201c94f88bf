package commands

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clitestutil "github.com/leapstack-labs/leapbind/internal/cli/testutil"
	"github.com/leapstack-labs/leapbind/internal/config"
)

func TestBackendsCommand_JSON(t *testing.T) {
	cfg := config.Default()
	cfg.OutputFormat = FormatJSON
	cfg.Technology = "web"

	res := clitestutil.Run(clitestutil.CommandContext(t, cfg), NewBackendsCommand(), nil)
	require.NoError(t, res.Err)

	var got []backendInfo
	require.NoError(t, json.Unmarshal(res.Out.Bytes(), &got))
	assert.Contains(t, got, backendInfo{Capability: "rendering", Name: "memory"})
	assert.Contains(t, got, backendInfo{Capability: "rendering", Name: "web", Selected: true})
	assert.Contains(t, got, backendInfo{Capability: "transport", Name: "http"})
}

func TestBackendsCommand_Table(t *testing.T) {
	cfg := config.Default()
	cfg.OutputFormat = FormatTable

	res := clitestutil.Run(clitestutil.CommandContext(t, cfg), NewBackendsCommand(), nil)
	require.NoError(t, res.Err)

	out := res.Output()
	assert.Contains(t, out, "Rendering")
	assert.Contains(t, out, "Transport")
	assert.Contains(t, out, "memory")
	clitestutil.AssertNoANSI(t, out)
}

func TestBackendsCommand_UnknownSelection(t *testing.T) {
	cfg := config.Default()
	cfg.Transport = "carrier-pigeon"

	res := clitestutil.Run(clitestutil.CommandContext(t, cfg), NewBackendsCommand(), nil)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "carrier-pigeon")
}
