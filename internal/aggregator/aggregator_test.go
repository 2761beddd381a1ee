package aggregator

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/strandfield/cppscanner-go/internal/fileid"
	"github.com/strandfield/cppscanner-go/internal/model"
	"github.com/strandfield/cppscanner-go/internal/storage"
)

func newTestAggregator(t *testing.T) (*Aggregator, *storage.Reader, *fileid.ThreadSafe) {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshot.db")

	db, err := storage.Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	global := fileid.NewThreadSafe()
	return New(db, global, ""), storage.NewReader(db), global
}

func mainTU(global *fileid.ThreadSafe, path string) *model.TranslationUnitIndex {
	tu := model.NewTranslationUnitIndex()
	tu.MainFileID = global.IDFor(path)
	tu.MarkIndexed(tu.MainFileID)
	return tu
}

func TestFeedSkipsErrorTU(t *testing.T) {
	ctx := context.Background()
	agg, reader, global := newTestAggregator(t)

	tu := mainTU(global, "/proj/broken.cpp")
	tu.IsError = true

	if err := agg.Feed(ctx, tu, global); err != nil {
		t.Fatalf("Feed: %v", err)
	}

	files, err := reader.ReadFiles(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 0 {
		t.Errorf("expected no files recorded for an error TU, got %d", len(files))
	}
}

func TestFeedInsertsNewSymbolAndMergesFlagsAcrossTUs(t *testing.T) {
	ctx := context.Background()
	agg, reader, global := newTestAggregator(t)

	usr := "c:@F@foo#"
	id := model.SymbolIDFromUSR(usr)

	tu1 := mainTU(global, "/proj/a.cpp")
	sym1 := tu1.GetOrCreateSymbol(id, model.KindFunction, "foo()")
	sym1.Flags = int(model.FlagFromProject)
	if err := agg.Feed(ctx, tu1, global); err != nil {
		t.Fatalf("Feed 1: %v", err)
	}

	tu2 := mainTU(global, "/proj/b.cpp")
	sym2 := tu2.GetOrCreateSymbol(id, model.KindFunction, "foo()")
	sym2.Flags = int(model.FlagFunctionInline)
	if err := agg.Feed(ctx, tu2, global); err != nil {
		t.Fatalf("Feed 2: %v", err)
	}

	symbols, err := reader.ReadSymbols(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(symbols) != 1 {
		t.Fatalf("expected one merged symbol row, got %d", len(symbols))
	}
	got := symbols[0]
	if !got.HasFlag(model.FlagFromProject) || !got.HasFlag(model.FlagFunctionInline) {
		t.Errorf("expected OR-merged flags, got %#x", got.Flags)
	}
}

func TestFeedDedupsReferencesPerFilePreferringEnclosingSymbol(t *testing.T) {
	ctx := context.Background()
	agg, reader, global := newTestAggregator(t)

	usr := "c:@x"
	id := model.SymbolIDFromUSR(usr)
	pos := model.NewFilePosition(10, 1)

	tu1 := mainTU(global, "/proj/a.cpp")
	tu1.GetOrCreateSymbol(id, model.KindVariable, "x")
	tu1.AddReference(model.SymbolReference{SymbolID: id, FileID: tu1.MainFileID, Position: pos})
	if err := agg.Feed(ctx, tu1, global); err != nil {
		t.Fatalf("Feed 1: %v", err)
	}

	enclosingID := model.SymbolIDFromUSR("c:@F@caller#")
	tu2 := mainTU(global, "/proj/a.cpp")
	tu2.GetOrCreateSymbol(id, model.KindVariable, "x")
	tu2.AddReference(model.SymbolReference{SymbolID: id, FileID: tu2.MainFileID, Position: pos, ReferencedBySymbolID: enclosingID})
	if err := agg.Feed(ctx, tu2, global); err != nil {
		t.Fatalf("Feed 2: %v", err)
	}

	refs, err := reader.ReadReferences(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 1 {
		t.Fatalf("expected exactly one deduplicated reference row, got %d", len(refs))
	}
	if refs[0].ReferencedBySymbolID != enclosingID {
		t.Errorf("expected the row carrying a valid ReferencedBySymbolID to win, got %v", refs[0].ReferencedBySymbolID)
	}
}

func TestFeedMarksFilesIndexed(t *testing.T) {
	ctx := context.Background()
	agg, _, global := newTestAggregator(t)

	tu := mainTU(global, "/proj/a.cpp")
	if err := agg.Feed(ctx, tu, global); err != nil {
		t.Fatal(err)
	}

	if !agg.IsIndexed(tu.MainFileID) {
		t.Error("expected main file to be marked indexed after Feed")
	}
}

func TestFeedUnionsIncludesAcrossTUs(t *testing.T) {
	ctx := context.Background()
	agg, reader, global := newTestAggregator(t)

	header := global.IDFor("/proj/a.h")

	tu1 := mainTU(global, "/proj/a.cpp")
	tu1.AddInclude(model.Include{FileID: tu1.MainFileID, Line: 1, IncludedFileID: header})
	if err := agg.Feed(ctx, tu1, global); err != nil {
		t.Fatal(err)
	}

	tu2 := mainTU(global, "/proj/b.cpp")
	tu2.AddInclude(model.Include{FileID: tu2.MainFileID, Line: 1, IncludedFileID: header})
	if err := agg.Feed(ctx, tu2, global); err != nil {
		t.Fatal(err)
	}

	includes, err := reader.ReadIncludes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(includes) != 2 {
		t.Fatalf("expected one include row per including file, got %d", len(includes))
	}
}
