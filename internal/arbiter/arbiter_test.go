package arbiter

import (
	"testing"

	"github.com/strandfield/cppscanner-go/internal/model"
)

type fakeIndexer uintptr

func (f fakeIndexer) IndexerID() uintptr { return uintptr(f) }

type fakePaths map[model.FileID]string

func (p fakePaths) PathFor(id model.FileID) string { return p[id] }

func TestIndexOnceFirstWriterWins(t *testing.T) {
	a := NewIndexOnce()
	file := model.FileID(1)
	w1 := fakeIndexer(1)
	w2 := fakeIndexer(2)

	if !a.ShouldIndex(file, w1) {
		t.Fatal("first indexer should win the file")
	}
	if a.ShouldIndex(file, w2) {
		t.Fatal("second indexer must not also claim the file")
	}
	if !a.ShouldIndex(file, w1) {
		t.Fatal("the original owner should keep seeing true")
	}
}

func TestIndexOnceRejectsInvalidFile(t *testing.T) {
	a := NewIndexOnce()
	if a.ShouldIndex(model.InvalidFileID, fakeIndexer(1)) {
		t.Fatal("invalid file id must never be indexed")
	}
}

func TestIndexOnceNilIndexerAlwaysTrue(t *testing.T) {
	a := NewIndexOnce()
	file := model.FileID(1)
	if !a.ShouldIndex(file, nil) {
		t.Fatal("a nil indexer context should report true")
	}
	if !a.ShouldIndex(file, nil) {
		t.Fatal("repeated nil-context queries should stay true")
	}
}

func TestInsideDirectoryBoundary(t *testing.T) {
	paths := fakePaths{
		model.FileID(1): "/home/project/a.cpp",
		model.FileID(2): "/homework.cpp",
		model.FileID(3): "/home/project",
	}

	a, err := NewInsideDirectory(paths, "/home/project")
	if err != nil {
		t.Fatal(err)
	}

	if !a.ShouldIndex(model.FileID(1), nil) {
		t.Error("a.cpp is inside the directory, expected true")
	}
	if a.ShouldIndex(model.FileID(2), nil) {
		t.Error("homework.cpp merely shares a prefix, expected false")
	}
	if a.ShouldIndex(model.FileID(3), nil) {
		t.Error("the directory path itself is not a file, expected false")
	}
}

func TestMatchesPatternFilenameSuffix(t *testing.T) {
	paths := fakePaths{model.FileID(1): "/src/utils.h"}
	a := NewMatchesPattern(paths, []string{"utils.h"})
	if !a.ShouldIndex(model.FileID(1), nil) {
		t.Error("expected suffix match to accept the file")
	}
}

func TestMatchesPatternGlob(t *testing.T) {
	paths := fakePaths{
		model.FileID(1): "/src/sub/a.cpp",
		model.FileID(2): "/other/b.cpp",
	}
	a := NewMatchesPattern(paths, []string{"/src/**/*.cpp"})
	if !a.ShouldIndex(model.FileID(1), nil) {
		t.Error("expected glob to match a file under src")
	}
	if a.ShouldIndex(model.FileID(2), nil) {
		t.Error("did not expect glob to match a file outside src")
	}
}

func TestCompositeRequiresAllArbiters(t *testing.T) {
	paths := fakePaths{model.FileID(1): "/home/project/a.cpp"}
	dir, err := NewInsideDirectory(paths, "/home/project")
	if err != nil {
		t.Fatal(err)
	}
	pattern := NewMatchesPattern(paths, []string{"*.h"})

	c := NewComposite(dir, pattern)
	if c.ShouldIndex(model.FileID(1), nil) {
		t.Error("expected composite to reject a .cpp file when only .h is allowed")
	}

	c2 := NewComposite(dir, NewMatchesPattern(paths, []string{"*.cpp"}))
	if !c2.ShouldIndex(model.FileID(1), nil) {
		t.Error("expected composite to accept when every member agrees")
	}
}

func TestCompositeSingleArbiterUnwrapped(t *testing.T) {
	only := Base{}
	if got := NewComposite(only); got != FileIndexingArbiter(only) {
		t.Error("a single arbiter should be returned unwrapped")
	}
}

func TestThreadSafeDelegates(t *testing.T) {
	inner := NewIndexOnce()
	ts := NewThreadSafe(inner)
	file := model.FileID(1)
	w1 := fakeIndexer(1)

	if !ts.ShouldIndex(file, w1) {
		t.Fatal("expected delegate to accept on first claim")
	}
	if ts.ShouldIndex(file, fakeIndexer(2)) {
		t.Fatal("expected delegate to reject a second claimant")
	}
}
