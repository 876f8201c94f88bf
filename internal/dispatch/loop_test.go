package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapbind/internal/testutil"
)

func startLoop(t *testing.T) *Loop {
	t.Helper()
	l := New(Config{Name: "test", Logger: testutil.NewTestLogger(t)})
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-errCh)
	})
	return l
}

func TestLoop_FIFO(t *testing.T) {
	l := startLoop(t)

	var mu sync.Mutex
	var got []int
	for i := range 100 {
		l.Execute(context.Background(), func(context.Context) {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	require.NoError(t, l.Drain(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestLoop_ExecuteInPlaceOnLoop(t *testing.T) {
	l := startLoop(t)

	var order []string
	err := l.Call(context.Background(), func(ctx context.Context) {
		assert.True(t, l.On(ctx))
		order = append(order, "outer-start")
		l.Execute(ctx, func(context.Context) {
			order = append(order, "inner")
		})
		order = append(order, "outer-end")
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"outer-start", "inner", "outer-end"}, order)
}

func TestLoop_ExecuteFromOtherLoopIsQueued(t *testing.T) {
	a := startLoop(t)
	b := startLoop(t)

	ran := make(chan struct{})
	err := a.Call(context.Background(), func(ctx context.Context) {
		assert.False(t, b.On(ctx))
		b.Execute(ctx, func(context.Context) { close(ran) })
	})
	require.NoError(t, err)

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("task queued on the other loop never ran")
	}
}

func TestLoop_TasksQueuedBeforeRun(t *testing.T) {
	l := New(Config{})
	ran := make(chan struct{})
	l.Execute(context.Background(), func(context.Context) { close(ran) })
	assert.Equal(t, 1, l.Pending())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Run(ctx) }()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("queued task never ran")
	}
}

func TestLoop_PanicDoesNotStopLoop(t *testing.T) {
	l := startLoop(t)

	l.Execute(context.Background(), func(context.Context) { panic("boom") })
	called := false
	require.NoError(t, l.Call(context.Background(), func(context.Context) { called = true }))
	assert.True(t, called)
}

func TestLoop_RunTwice(t *testing.T) {
	l := startLoop(t)
	require.NoError(t, l.Drain(context.Background()))
	assert.Error(t, l.Run(context.Background()))
}

func TestLoop_DrainAfterStop(t *testing.T) {
	l := New(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = l.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	assert.ErrorIs(t, l.Drain(context.Background()), ErrStopped)
}

func TestLoop_OnNilContext(t *testing.T) {
	l := New(Config{})
	//nolint:staticcheck // nil context is part of the contract under test
	assert.False(t, l.On(nil))
}

func TestLoop_QueueWarn(t *testing.T) {
	logs, logger := testutil.NewLogCapture(t, slog.LevelWarn)
	l := New(Config{Name: "warn", QueueWarn: 4, Logger: logger})

	for range 9 {
		l.Execute(context.Background(), func(context.Context) {})
	}

	assert.Equal(t, 9, l.Pending())
	assert.Equal(t, 2, logs.Count("dispatch backlog growing"))
	assert.Equal(t, 1, logs.Count("queued=8"))
}

func TestLoop_PanicIsLogged(t *testing.T) {
	logs, logger := testutil.NewLogCapture(t, slog.LevelError)
	l := New(Config{Logger: logger})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Run(ctx) }()

	l.Execute(context.Background(), func(context.Context) { panic("boom") })
	require.NoError(t, l.Drain(context.Background()))

	require.Len(t, logs.Lines(), 1)
	assert.Contains(t, logs.Lines()[0], "panic=boom")
	assert.Contains(t, logs.Lines()[0], "loop=dispatch")
}
