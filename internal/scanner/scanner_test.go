package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strandfield/cppscanner-go/internal/arbiter"
	"github.com/strandfield/cppscanner-go/internal/fileid"
	"github.com/strandfield/cppscanner-go/internal/frontend"
	"github.com/strandfield/cppscanner-go/internal/model"
	"github.com/strandfield/cppscanner-go/internal/queue"
	"github.com/strandfield/cppscanner-go/internal/storage"
)

// fakeDriver stands in for a real tree-sitter front end: it reports one
// function declaration per file, named after the file's base name, and
// never discovers any includes or reference-bound call arguments.
type fakeDriver struct {
	calls int
}

func (f *fakeDriver) Parse(ctx context.Context, mainFile string, argv []string, ids fileid.FileIdentificator, sink frontend.EventSink) ([]frontend.IncludeOccurrence, []frontend.CallArgumentOccurrence, error) {
	f.calls++
	sink.OnDecl(frontend.DeclOccurrence{
		Decl: frontend.DeclIdentity{
			USR:  "c:@F@" + filepath.Base(mainFile),
			Kind: model.KindFunction,
			Name: filepath.Base(mainFile),
		},
		Roles:    int(model.RefDeclaration | model.RefDefinition),
		Location: frontend.Location{FileID: ids.IDFor(mainFile), Position: model.NewFilePosition(1, 1)},
	})
	return nil, nil, nil
}

func writeSource(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("void "+name+"(){}\n"), 0o644))
	return path
}

func TestRunIndexesEveryInvocationIntoOneSnapshot(t *testing.T) {
	dir := t.TempDir()
	a := writeSource(t, dir, "a.cpp")
	b := writeSource(t, dir, "b.cpp")

	driver := &fakeDriver{}
	s := New()
	s.SetHomeDir(dir)
	s.SetNumberOfParsingThreads(2)
	s.SetFrontEnd(driver)
	s.SetOutputPath(filepath.Join(dir, "out.db"))
	s.SetInvocations([]queue.ToolInvocation{
		{Filename: a},
		{Filename: b},
	})

	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, 2, driver.calls)

	db, err := storage.Open(context.Background(), filepath.Join(dir, "out.db"))
	require.NoError(t, err)
	defer db.Close()

	reader := storage.NewReader(db)
	symbols, err := reader.ReadSymbols(context.Background())
	require.NoError(t, err)
	require.Len(t, symbols, 2)

	files, err := reader.ReadFiles(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 2)
}

func TestRunRefusesToOverwriteWithoutFlag(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.db")
	require.NoError(t, os.WriteFile(out, []byte("not a real db"), 0o644))

	s := New()
	s.SetHomeDir(dir)
	s.SetFrontEnd(&fakeDriver{})
	s.SetOutputPath(out)

	err := s.Run(context.Background())
	require.Error(t, err)
}

func TestBuildArbiterWrapsThreadSafeOnlyWhenConcurrent(t *testing.T) {
	s := New()
	s.SetHomeDir(t.TempDir())

	s.SetNumberOfParsingThreads(1)
	arb, err := s.buildArbiter(nil)
	require.NoError(t, err)
	if _, wrapped := arb.(*arbiter.ThreadSafe); wrapped {
		t.Fatalf("single-threaded arbiter should not be wrapped in arbiter.ThreadSafe")
	}

	s.SetNumberOfParsingThreads(4)
	arb, err = s.buildArbiter(nil)
	require.NoError(t, err)
	require.IsType(t, &arbiter.ThreadSafe{}, arb)
}

func TestAdjustArgumentsStripsOutputAndForcesSyntaxOnly(t *testing.T) {
	got := adjustArguments([]string{"-std=c++17", "-o", "a.o", "-c", "-Wall"})
	require.Contains(t, got, "-std=c++17")
	require.Contains(t, got, "-Wall")
	require.Contains(t, got, "-fsyntax-only")
	require.NotContains(t, got, "-o")
	require.NotContains(t, got, "a.o")
	require.NotContains(t, got, "-c")
}

func TestFilterInvocationsKeepsOnlyMatchingFiles(t *testing.T) {
	invocations := []queue.ToolInvocation{
		{Filename: "/proj/src/a.cpp"},
		{Filename: "/proj/test/b_test.cpp"},
	}
	filtered := filterInvocations(invocations, []string{"**/test/**"})
	require.Len(t, filtered, 1)
	require.Equal(t, "/proj/test/b_test.cpp", filtered[0].Filename)
}
