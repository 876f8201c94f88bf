package commands

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clitestutil "github.com/leapstack-labs/leapbind/internal/cli/testutil"
)

// syncBuffer is a bytes.Buffer safe for the dispatch loop and the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestSession(t *testing.T) *session {
	t.Helper()
	cmd := &cobra.Command{}
	cmd.SetContext(clitestutil.CommandContext(t, nil))

	s, err := newSession(cmd)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestWSShell(t *testing.T) {
	srv := clitestutil.NewPersonServer(t)
	s := newTestSession(t)
	ctx := t.Context()

	out := &syncBuffer{}
	sh, err := newWSShell(s, clitestutil.WebSocketURL(srv, "/ws"), out)
	require.NoError(t, err)
	unsubscribe := s.tech.Subscribe(sh.observe)
	defer unsubscribe()

	require.NoError(t, sh.connect(ctx))
	require.Eventually(t, func() bool {
		return bytes.Contains([]byte(out.String()), []byte("* connected"))
	}, 5*time.Second, 10*time.Millisecond)

	assert.False(t, sh.handle(ctx, "hello"))
	require.Eventually(t, func() bool {
		return bytes.Contains([]byte(out.String()), []byte("< hello"))
	}, 5*time.Second, 10*time.Millisecond)
	// the contact itself is the first frame and is echoed back
	assert.Contains(t, out.String(), `< {"addresses":[]`)

	assert.False(t, sh.handle(ctx, ".inbox"))
	assert.Contains(t, out.String(), "  2 hello")

	assert.False(t, sh.handle(ctx, "bye"))
	select {
	case <-sh.ended:
	case <-time.After(5 * time.Second):
		t.Fatal("channel did not close")
	}
	assert.Contains(t, out.String(), "* disconnected")

	assert.False(t, sh.handle(ctx, ".status"))
	assert.True(t, sh.handle(ctx, ".quit"))

	// closing an ended channel returns at once
	sh.shutdown(ctx, time.Second)
}

func TestWSShell_Close(t *testing.T) {
	srv := clitestutil.NewPersonServer(t)
	s := newTestSession(t)
	ctx := t.Context()

	out := &syncBuffer{}
	sh, err := newWSShell(s, clitestutil.WebSocketURL(srv, "/ws"), out)
	require.NoError(t, err)
	unsubscribe := s.tech.Subscribe(sh.observe)
	defer unsubscribe()

	require.NoError(t, sh.connect(ctx))
	require.Eventually(t, func() bool {
		return bytes.Contains([]byte(out.String()), []byte("* connected"))
	}, 5*time.Second, 10*time.Millisecond)

	assert.False(t, sh.handle(ctx, ".close"))
	select {
	case <-sh.ended:
	case <-time.After(5 * time.Second):
		t.Fatal("channel did not close")
	}
	assert.Contains(t, out.String(), "* disconnected\n")
}

func TestWSShell_DialFailure(t *testing.T) {
	srv := clitestutil.NewPersonServer(t)
	s := newTestSession(t)

	out := &syncBuffer{}
	sh, err := newWSShell(s, clitestutil.WebSocketURL(srv, "/missing"), out)
	require.NoError(t, err)
	unsubscribe := s.tech.Subscribe(sh.observe)
	defer unsubscribe()

	require.NoError(t, sh.connect(t.Context()))
	sh.shutdown(t.Context(), 5*time.Second)
	assert.Contains(t, out.String(), "* disconnected: ")
}
