package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCompileCommandsResolvesRelativeFiles(t *testing.T) {
	dir := t.TempDir()
	content := `[
		{"directory": "` + dir + `", "file": "a.cpp", "arguments": ["clang++", "-std=c++17", "a.cpp"]}
	]`
	path := filepath.Join(dir, "compile_commands.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	invocations, err := LoadCompileCommands(path)
	require.NoError(t, err)
	require.Len(t, invocations, 1)
	require.Equal(t, filepath.Join(dir, "a.cpp"), invocations[0].Filename)
	require.Equal(t, []string{"-std=c++17", "a.cpp"}, invocations[0].Argv)
}

func TestLoadCompileCommandsRejectsMalformedEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "compile_commands.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"directory": "/tmp"}]`), 0o644))

	_, err := LoadCompileCommands(path)
	require.Error(t, err)
}

func TestLoadInputListExpandsDirectoriesAndSkipsDuplicateContent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.cpp"), []byte("void a(){}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.cpp"), []byte("void a(){}\n"), 0o644)) // identical content
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644))

	invocations, err := LoadInputList([]string{dir})
	require.NoError(t, err)
	require.Len(t, invocations, 1)
}

func TestFilterInvocationsTranslationUnitGlob(t *testing.T) {
	got := filterInvocations(nil, []string{"**/*.cpp"})
	require.Empty(t, got)
}
