package merger

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/strandfield/cppscanner-go/internal/model"
	"github.com/strandfield/cppscanner-go/internal/storage"
)

// newSnapshot opens (creating) a snapshot database at path and hands
// back its Writer/db for the caller to fill in directly, along with
// the SetInfo call for project.home.
func newSnapshot(t *testing.T, path, home string) (*storage.Writer, *sql.DB) {
	t.Helper()
	ctx := context.Background()
	db, err := storage.Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	w := storage.NewWriter(db)
	if home != "" {
		if err := w.SetInfo(ctx, "project.home", home); err != nil {
			t.Fatal(err)
		}
	}
	return w, db
}

func TestMergeCombinesTwoSnapshotsAndDedupsSymbols(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	usr := model.SymbolID(0xabc)

	w1, db1 := newSnapshot(t, filepath.Join(dir, "one.db"), "/proj")
	if err := w1.InsertFile(ctx, model.File{ID: 1, Path: "/proj/a.cpp", Content: "void f(){}"}); err != nil {
		t.Fatal(err)
	}
	tx1, err := w1.BeginTx(ctx)
	if err != nil {
		t.Fatal(err)
	}
	sym1 := &model.Symbol{ID: usr, Kind: model.KindFunction, Name: "f()", Flags: int(model.FlagFromProject)}
	sym1.Function.ReturnType = "void"
	if err := w1.InsertSymbol(ctx, tx1, sym1); err != nil {
		t.Fatal(err)
	}
	if err := tx1.Commit(); err != nil {
		t.Fatal(err)
	}
	db1.Close()

	w2, db2 := newSnapshot(t, filepath.Join(dir, "two.db"), "/proj")
	if err := w2.InsertFile(ctx, model.File{ID: 1, Path: "/proj/a.cpp", Content: "void f(){}"}); err != nil {
		t.Fatal(err)
	}
	tx2, err := w2.BeginTx(ctx)
	if err != nil {
		t.Fatal(err)
	}
	sym2 := &model.Symbol{ID: usr, Kind: model.KindFunction, Name: "f()", Flags: int(model.FlagFunctionInline)}
	sym2.Function.ReturnType = "void"
	if err := w2.InsertSymbol(ctx, tx2, sym2); err != nil {
		t.Fatal(err)
	}
	if err := tx2.Commit(); err != nil {
		t.Fatal(err)
	}
	db2.Close()

	m := New()
	m.SetInputs([]string{filepath.Join(dir, "one.db"), filepath.Join(dir, "two.db")})
	out := filepath.Join(dir, "merged.db")
	m.SetOutputPath(out)

	if err := m.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	mergedDB, err := storage.Open(ctx, out)
	if err != nil {
		t.Fatal(err)
	}
	defer mergedDB.Close()
	reader := storage.NewReader(mergedDB)

	symbols, err := reader.ReadSymbols(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(symbols) != 1 {
		t.Fatalf("expected one deduplicated symbol, got %d", len(symbols))
	}
	got := symbols[0]
	if !got.HasFlag(model.FlagFromProject) || !got.HasFlag(model.FlagFunctionInline) {
		t.Errorf("expected OR-merged flags, got %#x", got.Flags)
	}
	if got.Function.ReturnType != "void" {
		t.Errorf("expected function extra info to survive the merge, got %q", got.Function.ReturnType)
	}

	info, err := reader.ReadInfo(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if info["project.home"] != "/proj" {
		t.Errorf("project.home = %q, want /proj (both inputs agree)", info["project.home"])
	}
}

func TestMergeLeavesProjectHomeUnsetOnDisagreement(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	_, db1 := newSnapshot(t, filepath.Join(dir, "one.db"), "/proj-a")
	db1.Close()
	_, db2 := newSnapshot(t, filepath.Join(dir, "two.db"), "/proj-b")
	db2.Close()

	m := New()
	m.SetInputs([]string{filepath.Join(dir, "one.db"), filepath.Join(dir, "two.db")})
	out := filepath.Join(dir, "merged.db")
	m.SetOutputPath(out)

	if err := m.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	mergedDB, err := storage.Open(ctx, out)
	if err != nil {
		t.Fatal(err)
	}
	defer mergedDB.Close()
	info, err := storage.NewReader(mergedDB).ReadInfo(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := info["project.home"]; ok {
		t.Errorf("expected project.home to stay unset on disagreement, got %q", info["project.home"])
	}
}

func TestMergeExplicitProjectHomeOverridesAgreement(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	_, db1 := newSnapshot(t, filepath.Join(dir, "one.db"), "/proj-a")
	db1.Close()

	m := New()
	m.SetInputs([]string{filepath.Join(dir, "one.db")})
	m.SetProjectHome("/elsewhere")
	out := filepath.Join(dir, "merged.db")
	m.SetOutputPath(out)

	if err := m.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	mergedDB, err := storage.Open(ctx, out)
	if err != nil {
		t.Fatal(err)
	}
	defer mergedDB.Close()
	info, err := storage.NewReader(mergedDB).ReadInfo(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if info["project.home"] != "/elsewhere" {
		t.Errorf("project.home = %q, want /elsewhere", info["project.home"])
	}
}
