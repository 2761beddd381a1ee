package arbiter

import (
	"path/filepath"
	"strings"

	"github.com/strandfield/cppscanner-go/internal/model"
)

// InsideDirectory restricts indexing to files strictly inside a given
// directory (the directory itself is not a file and never matches).
type InsideDirectory struct {
	identificator PathResolver
	dir           string
}

// NewInsideDirectory returns an arbiter that accepts only files whose
// absolute path is strictly inside dir (the boundary itself never
// matches: "/home/x.cpp" is inside "/home", "/homework.cpp" is not).
func NewInsideDirectory(identificator PathResolver, dir string) (*InsideDirectory, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &InsideDirectory{
		identificator: identificator,
		dir:           filepath.ToSlash(abs),
	}, nil
}

// ShouldIndex implements FileIndexingArbiter.
func (a *InsideDirectory) ShouldIndex(file model.FileID, _ Indexer) bool {
	path := a.identificator.PathFor(file)
	if path == "" {
		return false
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	abs = filepath.ToSlash(abs)

	return len(abs) > len(a.dir) &&
		strings.HasPrefix(abs, a.dir) &&
		abs[len(a.dir)] == '/'
}
