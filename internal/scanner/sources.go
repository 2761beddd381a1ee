package scanner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cespare/xxhash/v2"
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/strandfield/cppscanner-go/internal/queue"
)

// compileCommandSchema describes the shape every entry of a
// compile_commands.json database must have; malformed entries are
// rejected before they ever reach the work queue instead of failing
// confusingly deep inside a worker.
var compileCommandSchema = &jsonschema.Schema{
	Type: "array",
	Items: &jsonschema.Schema{
		Type:     "object",
		Required: []string{"directory", "file"},
		Properties: map[string]*jsonschema.Schema{
			"directory": {Type: "string"},
			"file":      {Type: "string"},
			"command":   {Type: "string"},
			"arguments": {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
			"output":    {Type: "string"},
		},
	},
}

type compileCommandEntry struct {
	Directory string   `json:"directory"`
	File      string   `json:"file"`
	Command   string   `json:"command"`
	Arguments []string `json:"arguments"`
	Output    string   `json:"output"`
}

// LoadCompileCommands parses and validates a compile_commands.json
// database, resolving every file path to absolute form relative to
// its entry's directory.
func LoadCompileCommands(path string) ([]queue.ToolInvocation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	resolved, err := compileCommandSchema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("compile command schema: %w", err)
	}
	if err := resolved.Validate(raw); err != nil {
		return nil, fmt.Errorf("%s does not look like a compile_commands.json database: %w", path, err)
	}

	var entries []compileCommandEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	invocations := make([]queue.ToolInvocation, 0, len(entries))
	for _, e := range entries {
		file := e.File
		if !filepath.IsAbs(file) {
			file = filepath.Join(e.Directory, file)
		}
		argv := e.Arguments
		if len(argv) == 0 && e.Command != "" {
			argv = splitCommandLine(e.Command)
		}
		if len(argv) > 0 {
			argv = argv[1:] // drop the compiler executable itself
		}
		invocations = append(invocations, queue.ToolInvocation{Filename: file, Argv: argv})
	}
	return invocations, nil
}

// splitCommandLine does a best-effort shell-word split of a single
// "command" string, honoring simple single/double quoting. It is only
// reached for the legacy compile_commands.json form that records a
// whole command line instead of an argument list.
func splitCommandLine(s string) []string {
	var out []string
	var cur strings.Builder
	var quote rune
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
		case r == ' ' || r == '\t':
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// LoadInputList turns a literal list of source paths into invocations
// that share one fixed argv (the compilation arguments the caller
// configured on the Scanner via SetCompilationArguments), expanding
// any directory entry to every C/C++ source or header beneath it (by
// extension, see cppExtensions). Directory trees reached
// through symlinks commonly surface the same file under two paths; a
// cheap xxhash of each file's content (not a security hash, just a fast
// equality check) catches those duplicates before they become two
// separate translation units over identical text.
func LoadInputList(inputs []string) ([]queue.ToolInvocation, error) {
	var invocations []queue.ToolInvocation
	seenContent := make(map[uint64]struct{})
	for _, in := range inputs {
		info, err := os.Stat(in)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", in, err)
		}
		if !info.IsDir() {
			invocations = append(invocations, queue.ToolInvocation{Filename: in})
			continue
		}
		err = filepath.WalkDir(in, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if !isCppSource(path) {
				return nil
			}
			if dup, err := seenDuplicateContent(path, seenContent); err != nil {
				return err
			} else if dup {
				return nil
			}
			invocations = append(invocations, queue.ToolInvocation{Filename: path})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", in, err)
		}
	}
	return invocations, nil
}

// seenDuplicateContent reports whether path's content hashes to a value
// already recorded in seen, recording it otherwise.
func seenDuplicateContent(path string, seen map[uint64]struct{}) (bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	h := xxhash.Sum64(content)
	if _, ok := seen[h]; ok {
		return true, nil
	}
	seen[h] = struct{}{}
	return false, nil
}

var cppExtensions = map[string]struct{}{
	".cpp": {}, ".cc": {}, ".cxx": {}, ".c++": {}, ".c": {},
	".h": {}, ".hpp": {}, ".hh": {}, ".hxx": {},
}

func isCppSource(path string) bool {
	_, ok := cppExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// filterInvocations drops every invocation whose main file does not
// match at least one of the translation-unit filters (--filter_tu). No
// filters means no filtering.
func filterInvocations(invocations []queue.ToolInvocation, patterns []string) []queue.ToolInvocation {
	if len(patterns) == 0 {
		return invocations
	}
	out := make([]queue.ToolInvocation, 0, len(invocations))
	for _, inv := range invocations {
		for _, pattern := range patterns {
			if ok, _ := doublestar.Match(pattern, inv.Filename); ok {
				out = append(out, inv)
				break
			}
		}
	}
	return out
}
