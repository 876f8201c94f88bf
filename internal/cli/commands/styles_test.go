package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	clitestutil "github.com/leapstack-labs/leapbind/internal/cli/testutil"
)

func TestStyles_PlainOutsideTerminal(t *testing.T) {
	styles := newStyles(&bytes.Buffer{})

	for _, status := range []string{"connected", "connecting", "disconnected", "refresh failed: boom"} {
		out := styles.statusStyle(status).Render("* " + status)
		assert.Equal(t, "* "+status, out)
		clitestutil.AssertNoANSI(t, out)
	}
	assert.Equal(t, "help", styles.Muted.Render("help"))
}
