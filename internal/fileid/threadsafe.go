package fileid

import (
	"sync"

	"github.com/strandfield/cppscanner-go/internal/model"
)

// ThreadSafe wraps a Basic identificator with a mutex so that several
// parsing workers can share one FileIdentificator, matching the
// original indexer's need for a single, consistent FileID space across
// concurrently-running translation units.
type ThreadSafe struct {
	mu    sync.Mutex
	inner *Basic
}

// NewThreadSafe returns a ThreadSafe wrapping a fresh Basic.
func NewThreadSafe() *ThreadSafe {
	return &ThreadSafe{inner: NewBasic()}
}

// IDFor implements FileIdentificator.
func (t *ThreadSafe) IDFor(path string) model.FileID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inner.IDFor(path)
}

// PathFor implements FileIdentificator.
func (t *ThreadSafe) PathFor(id model.FileID) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inner.PathFor(id)
}

// AllFiles implements FileIdentificator.
func (t *ThreadSafe) AllFiles() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inner.AllFiles()
}
