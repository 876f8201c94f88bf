package dispatch

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_PushPop(t *testing.T) {
	q := NewQueue[string]()

	_, ok := q.Pop()
	assert.False(t, ok)

	q.Push("a")
	q.Push("b")
	assert.Equal(t, 2, q.Len())

	v, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "a", v)

	v, ok = q.Pop()
	require.True(t, ok)
	assert.Equal(t, "b", v)
	assert.Equal(t, 0, q.Len())
}

func TestQueue_ReadySignalsOnce(t *testing.T) {
	q := NewQueue[int]()
	q.Push(1)
	q.Push(2)

	select {
	case <-q.Ready():
	default:
		t.Fatal("expected ready signal")
	}
	select {
	case <-q.Ready():
		t.Fatal("ready must not accumulate signals")
	default:
	}
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	q := NewQueue[int]()

	var wg sync.WaitGroup
	for p := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				q.Push(p*100 + i)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 800, q.Len())

	// Per producer order is preserved.
	last := make(map[int]int)
	for {
		v, ok := q.Pop()
		if !ok {
			break
		}
		p := v / 100
		if prev, seen := last[p]; seen {
			assert.Greater(t, v, prev)
		}
		last[p] = v
	}
}
