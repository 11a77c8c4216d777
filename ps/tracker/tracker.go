// Package tracker hands out request timestamps and counts expected versus
// received responses per timestamp. Counting and waking are split: receives
// only advance the counters, and synchronous waiters are released through
// Finish once the request's completion work has run.
package tracker

import (
	"fmt"
	"sync"
)

type requestState struct {
	expected int
	received int
	done     bool
}

// Tracker is the per-instance request bookkeeper. One lives inside each
// worker and server. All methods are safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	cond     *sync.Cond
	requests []requestState
}

func NewTracker() *Tracker {
	t := &Tracker{}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// state returns the request for timestamp. Callers hold t.mu. A timestamp
// that was never issued is a protocol violation, so it faults with the
// offending value rather than indexing out of range.
func (t *Tracker) state(timestamp int) *requestState {
	if timestamp < 0 || timestamp >= len(t.requests) {
		panic(fmt.Sprintf("tracker: timestamp %d was never issued (next is %d)",
			timestamp, len(t.requests)))
	}
	return &t.requests[timestamp]
}

// NewRequest allocates the next timestamp for a request expecting responses
// from expected destinations (skipped destinations included; they are
// pre-counted via AddResponse).
func (t *Tracker) NewRequest(expected int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requests = append(t.requests, requestState{expected: expected})
	return len(t.requests) - 1
}

// AddResponse pre-counts n responses for timestamp, used for destinations
// that will never reply because they were sent nothing. It does not wake
// waiters.
func (t *Tracker) AddResponse(timestamp, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state(timestamp).received += n
}

// OnReceive records one received response and returns the new total together
// with the expected count, read in the same locked step. It does not wake
// waiters: the caller that observes the final response runs the request's
// completion work first and then calls Finish.
func (t *Tracker) OnReceive(timestamp int) (received, expected int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.state(timestamp)
	s.received++
	return s.received, s.expected
}

// Finish marks timestamp complete and wakes every Wait caller. It must only
// be called after the request's completion work (pull merge, user callback)
// has run, so a released waiter always observes finished buffers.
func (t *Tracker) Finish(timestamp int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state(timestamp).done = true
	t.cond.Broadcast()
}

func (t *Tracker) NumResponse(timestamp int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state(timestamp).received
}

func (t *Tracker) Expected(timestamp int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state(timestamp).expected
}

// Done reports whether timestamp has finished, completion work included.
func (t *Tracker) Done(timestamp int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state(timestamp).done
}

// Wait blocks until timestamp finishes. It may be called from any goroutine,
// repeatedly, and returns immediately once Finish has run.
func (t *Tracker) Wait(timestamp int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for !t.state(timestamp).done {
		t.cond.Wait()
	}
}
