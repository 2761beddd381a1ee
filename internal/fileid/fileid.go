// Package fileid maintains the bijection between absolute file paths
// and the dense FileIDs the rest of the pipeline uses to refer to them.
package fileid

import "github.com/strandfield/cppscanner-go/internal/model"

// FileIdentificator maps paths to FileIDs and back. Implementations must
// make IDFor idempotent (the same path string always yields the same
// id) and must never reuse an id once issued.
type FileIdentificator interface {
	// IDFor returns the FileID for path, allocating a new one on first
	// sight. An empty path always maps to the invalid id.
	IDFor(path string) model.FileID

	// PathFor returns the path previously associated with id, or "" if
	// id was never issued.
	PathFor(id model.FileID) string

	// AllFiles returns every known path, indexed by FileID (index 0 is
	// always the empty string placeholder for the invalid id).
	AllFiles() []string
}

// Basic is a single-writer FileIdentificator. Use ThreadSafe to share
// one across parsing workers.
type Basic struct {
	byPath []string // index 0 is always "", the invalid id
	ids    map[string]model.FileID
}

// NewBasic returns an empty Basic identificator.
func NewBasic() *Basic {
	return &Basic{
		byPath: []string{""},
		ids:    make(map[string]model.FileID),
	}
}

// IDFor implements FileIdentificator.
func (b *Basic) IDFor(path string) model.FileID {
	path = NormalizePath(path)
	if path == "" {
		return model.InvalidFileID
	}
	if id, ok := b.ids[path]; ok {
		return id
	}
	id := model.FileID(len(b.byPath))
	b.byPath = append(b.byPath, path)
	b.ids[path] = id
	return id
}

// PathFor implements FileIdentificator.
func (b *Basic) PathFor(id model.FileID) string {
	if int(id) >= len(b.byPath) {
		return ""
	}
	return b.byPath[id]
}

// AllFiles implements FileIdentificator.
func (b *Basic) AllFiles() []string {
	out := make([]string, len(b.byPath))
	copy(out, b.byPath)
	return out
}

// NewBasicFromFiles rebuilds a Basic from file rows already carrying
// explicit FileIDs, as read back from a snapshot's file table. Rows
// need not be sorted; gaps are left as "" placeholders (they indicate
// ids unused by the snapshot, not a corrupt file).
func NewBasicFromFiles(files []model.File) *Basic {
	b := NewBasic()
	if len(files) == 0 {
		return b
	}

	maxID := model.InvalidFileID
	for _, f := range files {
		if f.ID > maxID {
			maxID = f.ID
		}
	}

	b.byPath = make([]string, maxID+1)
	for _, f := range files {
		b.byPath[f.ID] = f.Path
	}
	for id, p := range b.byPath {
		if p != "" {
			b.ids[p] = model.FileID(id)
		}
	}
	return b
}
