// Package cmakeapi reads a CMake File API "codemodel-v2" reply
// (query it by touching an empty
// <build>/.cmake/api/v1/query/codemodel-v2 file before configuring,
// per CMake's documented protocol) and turns its target compile groups
// into the compile invocations the scanner feeds its work queue.
package cmakeapi

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/strandfield/cppscanner-go/internal/queue"
)

// Target mirrors the handful of codemodel target fields the scanner
// needs: its sources and the compile groups that build them.
type Target struct {
	Name          string         `json:"name"`
	ID            string         `json:"id"`
	Sources       []targetSource `json:"sources"`
	CompileGroups []compileGroup `json:"compileGroups"`
}

type targetSource struct {
	Path string `json:"path"`
}

type compileGroup struct {
	Language                string                    `json:"language"`
	SourceIndexes           []int                     `json:"sourceIndexes"`
	CompileCommandFragments []compileCommandFragment `json:"compileCommandFragments"`
}

type compileCommandFragment struct {
	Fragment string `json:"fragment"`
}

type indexReply struct {
	Paths struct {
		Source string `json:"source"`
		Build  string `json:"build"`
	} `json:"paths"`
	Reply map[string]json.RawMessage `json:"reply"`
}

type codemodelReply struct {
	Configurations []struct {
		Targets []struct {
			JSONFile string `json:"jsonFile"`
		} `json:"targets"`
	} `json:"configurations"`
}

var indexSchema = &jsonschema.Schema{
	Type:     "object",
	Required: []string{"paths", "reply"},
	Properties: map[string]*jsonschema.Schema{
		"paths": {
			Type:     "object",
			Required: []string{"source", "build"},
		},
		"reply": {Type: "object"},
	},
}

// Index is the parsed reply directory: every compilable source found
// across every configuration's targets.
type Index struct {
	SourceDir string
	BuildDir  string
	Targets   []Target
}

// Read locates the most recent index-*.json reply under buildDir's
// File API reply directory and loads the codemodel it points to.
// Callers must create buildDir/.cmake/api/v1/query/codemodel-v2 before
// running CMake's configure step, or the reply directory will not
// exist.
func Read(buildDir string) (*Index, error) {
	replyDir := filepath.Join(buildDir, ".cmake", "api", "v1", "reply")
	indexPath, err := latestIndexFile(replyDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(indexPath)
	if err != nil {
		return nil, fmt.Errorf("cmakeapi: read %s: %w", indexPath, err)
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("cmakeapi: parse %s: %w", indexPath, err)
	}
	resolved, err := indexSchema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("cmakeapi: index schema: %w", err)
	}
	if err := resolved.Validate(raw); err != nil {
		return nil, fmt.Errorf("cmakeapi: %s does not look like a File API index reply: %w", indexPath, err)
	}

	var idx indexReply
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("cmakeapi: parse %s: %w", indexPath, err)
	}

	codemodelEntry, ok := idx.Reply["codemodel-v2"]
	if !ok {
		return nil, fmt.Errorf("cmakeapi: %s has no codemodel-v2 reply; did you create the query file before configuring?", indexPath)
	}
	var ref struct {
		JSONFile string `json:"jsonFile"`
	}
	if err := json.Unmarshal(codemodelEntry, &ref); err != nil {
		return nil, fmt.Errorf("cmakeapi: parse codemodel-v2 reference: %w", err)
	}

	codemodelData, err := os.ReadFile(filepath.Join(replyDir, ref.JSONFile))
	if err != nil {
		return nil, fmt.Errorf("cmakeapi: read codemodel: %w", err)
	}
	var codemodel codemodelReply
	if err := json.Unmarshal(codemodelData, &codemodel); err != nil {
		return nil, fmt.Errorf("cmakeapi: parse codemodel: %w", err)
	}

	result := &Index{SourceDir: idx.Paths.Source, BuildDir: idx.Paths.Build}
	seen := make(map[string]struct{})
	for _, cfg := range codemodel.Configurations {
		for _, t := range cfg.Targets {
			if _, ok := seen[t.JSONFile]; ok {
				continue
			}
			seen[t.JSONFile] = struct{}{}

			targetData, err := os.ReadFile(filepath.Join(replyDir, t.JSONFile))
			if err != nil {
				return nil, fmt.Errorf("cmakeapi: read target %s: %w", t.JSONFile, err)
			}
			var target Target
			if err := json.Unmarshal(targetData, &target); err != nil {
				return nil, fmt.Errorf("cmakeapi: parse target %s: %w", t.JSONFile, err)
			}
			result.Targets = append(result.Targets, target)
		}
	}
	return result, nil
}

func latestIndexFile(replyDir string) (string, error) {
	entries, err := os.ReadDir(replyDir)
	if err != nil {
		return "", fmt.Errorf("cmakeapi: read reply dir %s: %w", replyDir, err)
	}
	var candidates []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "index-") && strings.HasSuffix(e.Name(), ".json") {
			candidates = append(candidates, e.Name())
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("cmakeapi: no index-*.json reply found in %s", replyDir)
	}
	sort.Strings(candidates)
	return filepath.Join(replyDir, candidates[len(candidates)-1]), nil
}

// Invocations turns every compile group of every target into one
// ToolInvocation per source file, honoring an optional targetName
// filter (empty means every target).
func (idx *Index) Invocations(targetName string) []queue.ToolInvocation {
	var out []queue.ToolInvocation
	for _, target := range idx.Targets {
		if targetName != "" && target.Name != targetName {
			continue
		}
		for _, group := range target.CompileGroups {
			argv := compileGroupArgv(group)
			for _, si := range group.SourceIndexes {
				if si < 0 || si >= len(target.Sources) {
					continue
				}
				src := target.Sources[si].Path
				if !filepath.IsAbs(src) {
					src = filepath.Join(idx.SourceDir, src)
				}
				out = append(out, queue.ToolInvocation{Filename: src, Argv: argv})
			}
		}
	}
	return out
}

func compileGroupArgv(group compileGroup) []string {
	var argv []string
	for _, frag := range group.CompileCommandFragments {
		argv = append(argv, strings.Fields(frag.Fragment)...)
	}
	return argv
}
