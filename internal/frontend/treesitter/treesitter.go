// Package treesitter implements frontend.Driver on top of
// tree-sitter-cpp: a syntactic, non-semantic C++ front end. Unlike a
// libclang-based front end it never resolves overloads, instantiates
// templates, or sees macro-expanded text, so the USRs it synthesizes
// identify a declaration only by its kind, its unqualified name and the
// file it appears in. It is meant
// as the scanner's always-available fallback front end, not a
// replacement for a real Clang-based one.
package treesitter

import (
	"context"
	"fmt"
	"os"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"

	"github.com/strandfield/cppscanner-go/internal/fileid"
	"github.com/strandfield/cppscanner-go/internal/frontend"
	"github.com/strandfield/cppscanner-go/internal/model"
)

const declQuery = `
    (function_definition declarator: (function_declarator declarator: (identifier) @function.name)) @function
    (function_definition declarator: (function_declarator declarator: (field_identifier) @method.name)) @method
    (class_specifier name: (type_identifier) @class.name) @class
    (struct_specifier name: (type_identifier) @struct.name) @struct
    (enum_specifier name: (type_identifier) @enum.name) @enum
    (namespace_definition name: (namespace_identifier) @namespace.name) @namespace
    (preproc_include) @include
`

// Driver is a ready-to-use frontend.Driver. One Driver may be shared
// across worker goroutines: Parse creates a fresh tree_sitter.Parser
// and QueryCursor per call, so no state is mutated concurrently.
type Driver struct {
	language *tree_sitter.Language
	query    *tree_sitter.Query
}

// New compiles the C++ grammar and capture query once; the returned
// Driver is safe to reuse for every translation unit in a run.
func New() (*Driver, error) {
	language := tree_sitter.NewLanguage(tree_sitter_cpp.Language())
	query, queryErr := tree_sitter.NewQuery(language, declQuery)
	if queryErr != nil {
		return nil, fmt.Errorf("treesitter: compile cpp query: %w", queryErr)
	}
	return &Driver{language: language, query: query}, nil
}

var _ frontend.Driver = (*Driver)(nil)

// Parse implements frontend.Driver.
func (d *Driver) Parse(ctx context.Context, mainFile string, argv []string, ids fileid.FileIdentificator, sink frontend.EventSink) ([]frontend.IncludeOccurrence, []frontend.CallArgumentOccurrence, error) {
	content, err := os.ReadFile(mainFile)
	if err != nil {
		return nil, nil, fmt.Errorf("treesitter: read %s: %w", mainFile, err)
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(d.language); err != nil {
		return nil, nil, fmt.Errorf("treesitter: set language: %w", err)
	}

	tree := parser.Parse(content, nil)
	defer tree.Close()

	mainFileID := ids.IDFor(mainFile)

	qc := tree_sitter.NewQueryCursor()
	defer qc.Close()
	matches := qc.Matches(d.query, tree.RootNode(), content)
	captureNames := d.query.CaptureNames()

	w := &walker{
		content:    content,
		mainFileID: mainFileID,
		ids:        ids,
		sink:       sink,
	}

	for {
		match := matches.Next()
		if match == nil {
			break
		}
		for _, c := range match.Captures {
			name := captureNames[c.Index]
			if strings.HasSuffix(name, ".name") {
				continue
			}
			node := c.Node
			switch name {
			case "function", "method":
				w.emitFunction(&node, name == "method")
			case "class":
				w.emitRecord(&node, model.KindClass)
			case "struct":
				w.emitRecord(&node, model.KindStruct)
			case "enum":
				w.emitEnum(&node)
			case "namespace":
				w.emitNamespace(&node)
			case "include":
				w.emitInclude(&node)
			}
		}
	}

	if tree.RootNode().HasError() {
		sink.OnDiagnostic(frontend.DiagnosticOccurrence{
			Level:   model.DiagnosticWarning,
			Message: fmt.Sprintf("%s: tree-sitter recovered from one or more syntax errors", mainFile),
		})
	}

	return w.includes, nil, nil
}

// walker threads shared per-TU state (the file identificator, the
// event sink, and the source bytes) through the capture dispatch in
// Parse without turning every helper into a closure.
type walker struct {
	content    []byte
	mainFileID model.FileID
	ids        fileid.FileIdentificator
	sink       frontend.EventSink
	includes   []frontend.IncludeOccurrence
}

func (w *walker) text(n *tree_sitter.Node) string {
	return string(w.content[n.StartByte():n.EndByte()])
}

func (w *walker) location(n *tree_sitter.Node) frontend.Location {
	p := n.StartPosition()
	return frontend.Location{
		FileID:   w.mainFileID,
		Position: model.NewFilePosition(int(p.Row)+1, int(p.Column)+1),
	}
}

// usrFor synthesizes a stable, syntax-only identity for a declaration
// from its kind, its unqualified name and the FileID it appears in;
// enclosing namespaces and classes are not part of it. Two declarations
// of the same kind and name in the same file collide by design
// (tree-sitter cannot tell a redeclaration from a distinct overload
// without semantic analysis).
func usrFor(kind model.SymbolKind, file model.FileID, name string) string {
	return fmt.Sprintf("ts:%d:%s:%s", kind, name, file)
}

func (w *walker) emitFunction(n *tree_sitter.Node, isMethod bool) {
	declarator := n.ChildByFieldName("declarator")
	if declarator == nil {
		return
	}
	nameNode := declarator.ChildByFieldName("declarator")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)

	kind := model.KindFunction
	if isMethod {
		kind = model.KindMethod
	}

	startPos := w.location(n).Position
	end := n.EndPosition()

	w.sink.OnDecl(frontend.DeclOccurrence{
		Decl: frontend.DeclIdentity{
			USR:           usrFor(kind, w.mainFileID, name),
			Kind:          kind,
			Name:          name,
			IsInProject:   true,
			StartPosition: startPos,
			EndPosition:   model.NewFilePosition(int(end.Row)+1, int(end.Column)+1),
			IsDefinition:  true,
		},
		Roles:    int(model.RefDeclaration | model.RefDefinition),
		Location: w.location(n),
	})
}

func (w *walker) emitRecord(n *tree_sitter.Node, kind model.SymbolKind) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	end := n.EndPosition()

	w.sink.OnDecl(frontend.DeclOccurrence{
		Decl: frontend.DeclIdentity{
			USR:           usrFor(kind, w.mainFileID, name),
			Kind:          kind,
			Name:          name,
			IsInProject:   true,
			StartPosition: w.location(n).Position,
			EndPosition:   model.NewFilePosition(int(end.Row)+1, int(end.Column)+1),
			IsDefinition:  true,
		},
		Roles:    int(model.RefDeclaration | model.RefDefinition),
		Location: w.location(n),
	})
}

func (w *walker) emitEnum(n *tree_sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	kind := model.KindEnum

	w.sink.OnDecl(frontend.DeclOccurrence{
		Decl: frontend.DeclIdentity{
			USR:          usrFor(kind, w.mainFileID, name),
			Kind:         kind,
			Name:         name,
			IsInProject:  true,
			IsDefinition: true,
		},
		Roles:    int(model.RefDeclaration | model.RefDefinition),
		Location: w.location(n),
	})
}

func (w *walker) emitNamespace(n *tree_sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	kind := model.KindNamespace

	w.sink.OnDecl(frontend.DeclOccurrence{
		Decl: frontend.DeclIdentity{
			USR:         usrFor(kind, w.mainFileID, name),
			Kind:        kind,
			Name:        name,
			IsInProject: true,
		},
		Roles:    int(model.RefDeclaration),
		Location: w.location(n),
	})
}

// emitInclude records a #include directive. Because tree-sitter has no
// notion of the preprocessor's search path, it cannot resolve the
// included file to a path by itself; it records the spelled header
// name as a path-shaped FileID, leaving path normalization/resolution
// to whatever #include resolution the caller's compilation database
// already baked into argv for a real front end. This is therefore a
// best-effort edge rather than a verified one.
func (w *walker) emitInclude(n *tree_sitter.Node) {
	raw := w.text(n)
	raw = strings.TrimPrefix(raw, "#include")
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "<>\"")
	if raw == "" {
		return
	}

	p := n.StartPosition()
	w.includes = append(w.includes, frontend.IncludeOccurrence{
		FileID:         w.mainFileID,
		Line:           int(p.Row) + 1,
		IncludedFileID: w.ids.IDFor(raw),
	})
}
