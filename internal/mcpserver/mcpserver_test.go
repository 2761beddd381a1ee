package mcpserver

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/strandfield/cppscanner-go/internal/model"
	"github.com/strandfield/cppscanner-go/internal/storage"
)

func buildSnapshot(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshot.db")

	db, err := storage.Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	writer := storage.NewWriter(db)
	if err := writer.InsertFile(ctx, model.File{ID: model.FileID(1), Path: "/main.cpp"}); err != nil {
		t.Fatal(err)
	}

	tx, err := writer.BeginTx(ctx)
	if err != nil {
		t.Fatal(err)
	}
	sym := &model.Symbol{ID: model.SymbolID(42), Kind: model.KindFunction, Name: "computeTotal"}
	if err := writer.InsertSymbol(ctx, tx, sym); err != nil {
		t.Fatal(err)
	}
	if err := writer.InsertReferences(ctx, tx, []model.SymbolReference{
		{SymbolID: sym.ID, FileID: model.FileID(1), Position: model.NewFilePosition(10, 3), Flags: 0},
	}); err != nil {
		t.Fatal(err)
	}
	if err := writer.InsertDeclarations(ctx, tx, []model.SymbolDeclaration{
		{SymbolID: sym.ID, FileID: model.FileID(1), StartPosition: model.NewFilePosition(10, 1), EndPosition: model.NewFilePosition(12, 1), IsDefinition: true},
	}); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	return path
}

func callTool(t *testing.T, s *Server, handler func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error), args any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(args)
	if err != nil {
		t.Fatal(err)
	}
	result, err := handler(context.Background(), &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Arguments: raw}})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result.IsError {
		t.Fatalf("handler reported error: %+v", result.Content)
	}
	text := result.Content[0].(*mcp.TextContent).Text

	var decoded []map[string]any
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(decoded) == 0 {
		t.Fatalf("expected at least one result, got none")
	}
	return decoded[0]
}

func TestListFilesReturnsEveryFile(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, buildSnapshot(t))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	row := callTool(t, s, s.handleListFiles, map[string]any{})
	if row["path"] != "/main.cpp" {
		t.Errorf("path = %v, want /main.cpp", row["path"])
	}
}

func TestFindSymbolMatchesSubstring(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, buildSnapshot(t))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	row := callTool(t, s, s.handleFindSymbol, map[string]any{"name": "Total"})
	if row["name"] != "computeTotal" {
		t.Errorf("name = %v, want computeTotal", row["name"])
	}
	if row["kind"] != model.KindFunction.String() {
		t.Errorf("kind = %v, want %v", row["kind"], model.KindFunction.String())
	}
}

func TestGetReferencesFiltersBySymbolID(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, buildSnapshot(t))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	row := callTool(t, s, s.handleGetReferences, map[string]any{"symbol_id": 42})
	if int(row["line"].(float64)) != 10 {
		t.Errorf("line = %v, want 10", row["line"])
	}
}

func TestGetDeclarationsReportsDefinition(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, buildSnapshot(t))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	row := callTool(t, s, s.handleGetDeclarations, map[string]any{"symbol_id": 42})
	if row["is_definition"] != true {
		t.Errorf("is_definition = %v, want true", row["is_definition"])
	}
}
