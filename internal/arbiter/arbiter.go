// Package arbiter decides which files a Scanner run actually indexes.
// An Indexer asks its arbiter about every file it touches (the main
// file of a translation unit, and every header pulled in through it)
// and skips recording anything the arbiter rejects.
package arbiter

import (
	"sync"

	"github.com/strandfield/cppscanner-go/internal/model"
)

// Indexer identifies the particular indexing worker asking the
// question, so that stateful arbiters (IndexOnce) can track which
// worker "owns" a file.
type Indexer interface {
	// IndexerID returns a value unique to this indexer instance; it is
	// only ever compared for equality.
	IndexerID() uintptr
}

// FileIndexingArbiter decides whether a file should be indexed. The
// zero value of a type embedding Base accepts everything.
type FileIndexingArbiter interface {
	ShouldIndex(file model.FileID, idxr Indexer) bool
}

// Base is the permissive default: every file should be indexed, matching
// the C++ base class's default shouldIndex(). A type that embeds Base
// inherits this behavior; the arbiters in this package implement
// ShouldIndex themselves and do not embed it.
type Base struct{}

// ShouldIndex always returns true.
func (Base) ShouldIndex(model.FileID, Indexer) bool { return true }

// IndexOnce lets only one indexer index a given file: the first indexer
// to ask about it claims it and keeps being told yes (in every later
// translation unit it runs as well), while every other indexer is told
// no. A nil indexer is always told yes; an invalid file always no.
type IndexOnce struct {
	mu      sync.Mutex
	indexed map[model.FileID]uintptr
}

// NewIndexOnce returns a ready-to-use IndexOnce arbiter.
func NewIndexOnce() *IndexOnce {
	return &IndexOnce{indexed: make(map[model.FileID]uintptr)}
}

// ShouldIndex implements FileIndexingArbiter.
func (a *IndexOnce) ShouldIndex(file model.FileID, idxr Indexer) bool {
	if !file.IsValid() {
		return false
	}
	if idxr == nil {
		return true
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	id := idxr.IndexerID()
	if owner, ok := a.indexed[file]; ok {
		return owner == id
	}
	a.indexed[file] = id
	return true
}

// PathResolver is the minimal read side of a FileIdentificator an
// arbiter needs: turning an id back into a path.
type PathResolver interface {
	PathFor(id model.FileID) string
}
