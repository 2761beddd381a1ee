package treesitter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strandfield/cppscanner-go/internal/fileid"
	"github.com/strandfield/cppscanner-go/internal/frontend"
	"github.com/strandfield/cppscanner-go/internal/model"
)

type recordingSink struct {
	decls []frontend.DeclOccurrence
	diags []frontend.DiagnosticOccurrence
}

func (r *recordingSink) OnDecl(occ frontend.DeclOccurrence)             { r.decls = append(r.decls, occ) }
func (r *recordingSink) OnMacro(frontend.MacroOccurrence)               {}
func (r *recordingSink) OnModule(string, frontend.Location)             {}
func (r *recordingSink) OnDiagnostic(occ frontend.DiagnosticOccurrence) { r.diags = append(r.diags, occ) }
func (r *recordingSink) Finish([]frontend.IncludeOccurrence, []frontend.CallArgumentOccurrence) *model.TranslationUnitIndex {
	return nil
}

func writeCpp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "main.cpp")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseFindsFunctionAndClassDeclarations(t *testing.T) {
	driver, err := New()
	require.NoError(t, err)

	path := writeCpp(t, `
#include <string>

namespace app {

class Widget {
public:
    int value();
};

int freeFunction() { return 0; }

}
`)

	ids := fileid.NewBasic()
	sink := &recordingSink{}

	includes, callArgs, err := driver.Parse(context.Background(), path, nil, ids, sink)
	require.NoError(t, err)
	require.Nil(t, callArgs)
	require.NotEmpty(t, includes)

	var sawClass, sawFunction, sawNamespace bool
	for _, d := range sink.decls {
		switch d.Decl.Kind {
		case model.KindClass:
			sawClass = true
			require.Equal(t, "Widget", d.Decl.Name)
		case model.KindFunction, model.KindMethod:
			sawFunction = true
		case model.KindNamespace:
			sawNamespace = true
			require.Equal(t, "app", d.Decl.Name)
		}
	}
	require.True(t, sawClass, "expected a class declaration")
	require.True(t, sawFunction, "expected a function declaration")
	require.True(t, sawNamespace, "expected a namespace declaration")
}

func TestParseRecordsSyntaxErrorAsDiagnostic(t *testing.T) {
	driver, err := New()
	require.NoError(t, err)

	path := writeCpp(t, `int main( {`)

	ids := fileid.NewBasic()
	sink := &recordingSink{}

	_, _, err = driver.Parse(context.Background(), path, nil, ids, sink)
	require.NoError(t, err)
	require.NotEmpty(t, sink.diags)
}
