package tracker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampsAreMonotonic(t *testing.T) {
	tr := NewTracker()
	for i := 0; i < 10; i++ {
		assert.Equal(t, i, tr.NewRequest(1))
	}
}

func TestCounting(t *testing.T) {
	tr := NewTracker()
	ts := tr.NewRequest(3)
	require.False(t, tr.Done(ts))

	tr.AddResponse(ts, 1) // one skipped destination
	assert.Equal(t, 1, tr.NumResponse(ts))

	n, expected := tr.OnReceive(ts)
	assert.Equal(t, 2, n)
	assert.Equal(t, 3, expected)

	n, _ = tr.OnReceive(ts)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, tr.NumResponse(ts))
	assert.Equal(t, 3, tr.Expected(ts))
}

func TestDoneRequiresFinish(t *testing.T) {
	tr := NewTracker()
	ts := tr.NewRequest(1)

	// A full count alone does not complete the request: the completion
	// work still has to run before waiters may see the output buffers.
	n, expected := tr.OnReceive(ts)
	require.Equal(t, expected, n)
	assert.False(t, tr.Done(ts))

	tr.Finish(ts)
	assert.True(t, tr.Done(ts))
}

func TestWaitUnblocksOnFinish(t *testing.T) {
	tr := NewTracker()
	ts := tr.NewRequest(2)

	done := make(chan struct{})
	go func() {
		tr.Wait(ts)
		close(done)
	}()

	tr.OnReceive(ts)
	tr.OnReceive(ts)
	select {
	case <-done:
		t.Fatal("wait returned before the request was finished")
	case <-time.After(10 * time.Millisecond):
	}

	tr.Finish(ts)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("wait did not unblock")
	}
}

func TestWaitFinishedReturnsImmediately(t *testing.T) {
	tr := NewTracker()
	ts := tr.NewRequest(1)
	tr.OnReceive(ts)
	tr.Finish(ts)

	// Repeated waits on an already-finished timestamp must not block.
	for i := 0; i < 3; i++ {
		done := make(chan struct{})
		go func() {
			tr.Wait(ts)
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("wait blocked on a finished timestamp")
		}
	}
}

func TestAllSkipped(t *testing.T) {
	tr := NewTracker()
	ts := tr.NewRequest(4)
	tr.AddResponse(ts, 4)
	require.Equal(t, 4, tr.NumResponse(ts))
	tr.Finish(ts)
	assert.True(t, tr.Done(ts))
	tr.Wait(ts)
}

func TestConcurrentWaiters(t *testing.T) {
	tr := NewTracker()
	ts := tr.NewRequest(8)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Wait(ts)
		}()
	}
	for i := 0; i < 8; i++ {
		go func() {
			if n, expected := tr.OnReceive(ts); n == expected {
				tr.Finish(ts)
			}
		}()
	}
	wg.Wait()
	assert.True(t, tr.Done(ts))
}

func TestUnknownTimestampFaults(t *testing.T) {
	tr := NewTracker()
	tr.NewRequest(1)

	assert.Panics(t, func() { tr.OnReceive(5) })
	assert.Panics(t, func() { tr.Wait(-1) })
	assert.Panics(t, func() { tr.Done(2) })
}
