// Package queue serializes inbound message handling onto one goroutine, so
// transport reader goroutines hand work off instead of running application
// handlers inline.
package queue

import "sync"

const defaultCapacity = 128

// Queue runs posted closures in order on a single goroutine.
type Queue struct {
	name string
	ch   chan func()
	wg   sync.WaitGroup
}

func New(name string) *Queue {
	return &Queue{
		name: name,
		ch:   make(chan func(), defaultCapacity),
	}
}

func (q *Queue) Start() {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for f := range q.ch {
			f()
		}
	}()
}

// Post enqueues f. It blocks when the queue is full.
func (q *Queue) Post(f func()) {
	q.ch <- f
}

// Stop drains queued work, then stops the goroutine. Post must not be
// called after Stop.
func (q *Queue) Stop() {
	close(q.ch)
	q.wg.Wait()
}
