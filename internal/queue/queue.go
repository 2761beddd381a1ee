// Package queue provides the two hand-off points of the indexing
// pipeline: a WorkQueue of compile invocations consumed by parsing
// workers, and a ResultQueue of completed translation-unit indices
// consumed by the aggregator. Both are backed by buffered channels;
// WorkQueue needs no backpressure since producers enqueue all work up
// front, and ResultQueue's tryRead(timeout) is expressed with a timer
// channel rather than a condition variable.
package queue

import (
	"time"

	"github.com/strandfield/cppscanner-go/internal/model"
)

// ToolInvocation is one compile-command entry to run through a front
// end: a main file plus the argv used to parse it.
type ToolInvocation struct {
	Filename string
	Argv     []string
}

// WorkQueue is an MPMC queue of ToolInvocation values, pre-loaded with
// every unit of work before any worker starts draining it.
type WorkQueue struct {
	items chan ToolInvocation
}

// NewWorkQueue returns a WorkQueue pre-loaded with work.
func NewWorkQueue(work []ToolInvocation) *WorkQueue {
	q := &WorkQueue{items: make(chan ToolInvocation, len(work))}
	for _, w := range work {
		q.items <- w
	}
	close(q.items)
	return q
}

// Next pops one item, or reports ok == false once the queue is
// exhausted.
func (q *WorkQueue) Next() (ToolInvocation, bool) {
	item, ok := <-q.items
	return item, ok
}

// ResultQueue is an MPSC queue of completed translation-unit indices.
type ResultQueue struct {
	items chan *model.TranslationUnitIndex
}

// NewResultQueue returns a ResultQueue with room for capacity
// in-flight results before a writer would block.
func NewResultQueue(capacity int) *ResultQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &ResultQueue{items: make(chan *model.TranslationUnitIndex, capacity)}
}

// Write enqueues idx. Safe to call from multiple worker goroutines.
func (q *ResultQueue) Write(idx *model.TranslationUnitIndex) {
	q.items <- idx
}

// Close signals that no further results will be written. Call this
// once every worker has finished (e.g. via sync.WaitGroup), after
// which Read/TryRead drain whatever remains and then report ok ==
// false.
func (q *ResultQueue) Close() {
	close(q.items)
}

// Read blocks until a result is available or the queue is closed and
// drained.
func (q *ResultQueue) Read() (*model.TranslationUnitIndex, bool) {
	idx, ok := <-q.items
	return idx, ok
}

// TryRead blocks for at most timeout waiting for a result. ok is false
// on timeout as well as on a closed, drained queue; callers must check
// which happened only insofar as they keep looping while the producer
// side is still running.
func (q *ResultQueue) TryRead(timeout time.Duration) (*model.TranslationUnitIndex, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case idx, ok := <-q.items:
		return idx, ok
	case <-timer.C:
		return nil, false
	}
}
