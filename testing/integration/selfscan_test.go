// Package integration runs the scanner end to end against a small
// fixture project, using the real tree-sitter front end instead of a
// stand-in, and checks the result the way the teacher's own smoke tests
// check a fully wired pipeline: read the output back and assert on the
// symbols/files that should be in it.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strandfield/cppscanner-go/internal/frontend/treesitter"
	"github.com/strandfield/cppscanner-go/internal/queue"
	"github.com/strandfield/cppscanner-go/internal/scanner"
	"github.com/strandfield/cppscanner-go/internal/storage"
)

const fixtureSource = `
namespace widgets {

class Widget {
public:
    int value();
};

int freeFunction() {
    return 0;
}

}
`

func TestScanFixtureProjectEndToEnd(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "widget.cpp")
	require.NoError(t, os.WriteFile(srcPath, []byte(fixtureSource), 0o644))

	drv, err := treesitter.New()
	require.NoError(t, err)

	outPath := filepath.Join(dir, "snapshot.db")
	s := scanner.New()
	s.SetHomeDir(dir)
	s.SetIndexLocalSymbols(true)
	s.SetFrontEnd(drv)
	s.SetOutputPath(outPath)
	s.SetProjectName("fixture")
	s.SetInvocations([]queue.ToolInvocation{{Filename: srcPath}})

	require.NoError(t, s.Run(context.Background()))

	ctx := context.Background()
	db, err := storage.OpenReadOnly(ctx, outPath)
	require.NoError(t, err)
	defer db.Close()

	reader := storage.NewReader(db)

	info, err := reader.ReadInfo(ctx)
	require.NoError(t, err)
	require.Equal(t, "fixture", info["project.name"])

	symbols, err := reader.ReadSymbols(ctx)
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, sym := range symbols {
		names[sym.Name] = true
	}
	require.True(t, names["widgets"], "expected the namespace to be recorded")
	require.True(t, names["Widget"], "expected the class to be recorded")
	require.True(t, names["freeFunction()"], "expected the free function to be recorded")

	files, err := reader.ReadFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, srcPath, files[0].Path)
}
