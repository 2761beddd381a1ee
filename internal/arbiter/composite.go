package arbiter

import (
	"sync"

	"github.com/strandfield/cppscanner-go/internal/model"
)

// Composite requires every one of its member arbiters to agree before
// accepting a file.
type Composite struct {
	arbiters []FileIndexingArbiter
}

// NewComposite combines several arbiters into one that accepts a file
// only when all of them do. A single arbiter is returned unwrapped.
func NewComposite(arbiters ...FileIndexingArbiter) FileIndexingArbiter {
	if len(arbiters) == 1 {
		return arbiters[0]
	}
	cp := make([]FileIndexingArbiter, len(arbiters))
	copy(cp, arbiters)
	return &Composite{arbiters: cp}
}

// ShouldIndex implements FileIndexingArbiter.
func (c *Composite) ShouldIndex(file model.FileID, idxr Indexer) bool {
	for _, a := range c.arbiters {
		if !a.ShouldIndex(file, idxr) {
			return false
		}
	}
	return true
}

// ThreadSafe serializes access to an arbiter that keeps mutable state
// (IndexOnce being the prototypical example) so it can be shared
// across concurrent parsing workers.
type ThreadSafe struct {
	mu   sync.Mutex
	next FileIndexingArbiter
}

// NewThreadSafe wraps inner with a mutex.
func NewThreadSafe(inner FileIndexingArbiter) *ThreadSafe {
	return &ThreadSafe{next: inner}
}

// ShouldIndex implements FileIndexingArbiter.
func (t *ThreadSafe) ShouldIndex(file model.FileID, idxr Indexer) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.next.ShouldIndex(file, idxr)
}
