package arbiter

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/strandfield/cppscanner-go/internal/model"
)

// MatchesPattern accepts a file if its path matches at least one of a
// set of patterns. A pattern is either a bare filename suffix (e.g.
// "utils.h", matched against the end of the path) or a glob expression
// matched with doublestar, where "**" spans directories and "*" does
// not cross a "/". A glob is tried against the whole path and, when it
// contains no "/", also against the path's last element, so "*.cpp"
// accepts "/home/project/a.cpp".
type MatchesPattern struct {
	identificator PathResolver
	patterns      []string
}

// NewMatchesPattern returns a pattern-matching arbiter over patterns.
func NewMatchesPattern(identificator PathResolver, patterns []string) *MatchesPattern {
	cp := make([]string, len(patterns))
	copy(cp, patterns)
	return &MatchesPattern{identificator: identificator, patterns: cp}
}

// ShouldIndex implements FileIndexingArbiter.
func (a *MatchesPattern) ShouldIndex(file model.FileID, _ Indexer) bool {
	path := a.identificator.PathFor(file)
	if path == "" {
		return false
	}

	for _, pattern := range a.patterns {
		if isGlobPattern(pattern) {
			if ok, _ := doublestar.Match(pattern, path); ok {
				return true
			}
			if !strings.Contains(pattern, "/") {
				base := path[strings.LastIndex(path, "/")+1:]
				if ok, _ := doublestar.Match(pattern, base); ok {
					return true
				}
			}
		} else if filenameMatch(path, pattern) {
			return true
		}
	}
	return false
}

// isGlobPattern reports whether s contains a character with special
// meaning to doublestar.
func isGlobPattern(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}

// filenameMatch reports whether filePath ends with fileName.
func filenameMatch(filePath, fileName string) bool {
	return len(filePath) >= len(fileName) && strings.HasSuffix(filePath, fileName)
}
