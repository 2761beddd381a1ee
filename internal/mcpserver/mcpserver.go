// Package mcpserver exposes a read-only query interface over an
// already-written snapshot database: list files, look up symbols by
// name, and walk references/declarations, each as one MCP tool. It
// never mutates the database it opens.
package mcpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/strandfield/cppscanner-go/internal/logging"
	"github.com/strandfield/cppscanner-go/internal/storage"
)

// Server answers MCP tool calls against one open snapshot database.
type Server struct {
	db     *sql.DB
	reader *storage.Reader
	server *mcp.Server
}

// Open opens dbPath read-only and registers the query tools.
func Open(ctx context.Context, dbPath string) (*Server, error) {
	db, err := storage.OpenReadOnly(ctx, dbPath)
	if err != nil {
		return nil, fmt.Errorf("mcpserver: open %s: %w", dbPath, err)
	}

	s := &Server{db: db, reader: storage.NewReader(db)}
	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "cppscanner-mcp-server",
		Version: "0.1.0",
	}, nil)
	s.registerTools()
	return s, nil
}

// Close releases the underlying database handle.
func (s *Server) Close() error { return s.db.Close() }

// Run speaks the MCP protocol over stdio until ctx is canceled or the
// transport closes. Debug logging is suppressed for the duration, since
// it would otherwise corrupt the stdio channel the protocol uses.
func (s *Server) Run(ctx context.Context) error {
	logging.SetMCPMode(true)
	defer logging.SetMCPMode(false)
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "list_files",
		Description: "List every source file recorded in the snapshot, with its id and path.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, s.handleListFiles)

	s.server.AddTool(&mcp.Tool{
		Name:        "find_symbol",
		Description: "Find symbols whose name contains the given substring.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"name": {
					Type:        "string",
					Description: "Substring to match against symbol names",
				},
			},
			Required: []string{"name"},
		},
	}, s.handleFindSymbol)

	s.server.AddTool(&mcp.Tool{
		Name:        "get_references",
		Description: "List every reference recorded for a symbol id.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"symbol_id": {
					Type:        "integer",
					Description: "Symbol id as returned by find_symbol",
				},
			},
			Required: []string{"symbol_id"},
		},
	}, s.handleGetReferences)

	s.server.AddTool(&mcp.Tool{
		Name:        "get_declarations",
		Description: "List every declaration (and which one is the definition) recorded for a symbol id.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"symbol_id": {
					Type:        "integer",
					Description: "Symbol id as returned by find_symbol",
				},
			},
			Required: []string{"symbol_id"},
		},
	}, s.handleGetDeclarations)
}

func (s *Server) handleListFiles(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	files, err := s.reader.ReadFiles(ctx)
	if err != nil {
		return errorResult("list_files", err), nil
	}

	out := make([]map[string]any, 0, len(files))
	for _, f := range files {
		out = append(out, map[string]any{"id": uint32(f.ID), "path": f.Path})
	}
	return jsonResult(out)
}

type findSymbolParams struct {
	Name string `json:"name"`
}

func (s *Server) handleFindSymbol(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params findSymbolParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return errorResult("find_symbol", fmt.Errorf("invalid parameters: %w", err)), nil
	}

	symbols, err := s.reader.ReadSymbols(ctx)
	if err != nil {
		return errorResult("find_symbol", err), nil
	}

	out := make([]map[string]any, 0)
	for _, sym := range symbols {
		if params.Name != "" && !strings.Contains(strings.ToLower(sym.Name), strings.ToLower(params.Name)) {
			continue
		}
		out = append(out, map[string]any{
			"id":   uint64(sym.ID),
			"name": sym.Name,
			"kind": sym.Kind.String(),
		})
	}
	return jsonResult(out)
}

type symbolIDParams struct {
	SymbolID uint64 `json:"symbol_id"`
}

func (s *Server) handleGetReferences(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params symbolIDParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return errorResult("get_references", fmt.Errorf("invalid parameters: %w", err)), nil
	}

	refs, err := s.reader.ReadReferences(ctx)
	if err != nil {
		return errorResult("get_references", err), nil
	}

	out := make([]map[string]any, 0)
	for _, r := range refs {
		if uint64(r.SymbolID) != params.SymbolID {
			continue
		}
		out = append(out, map[string]any{
			"file_id": uint32(r.FileID),
			"line":    r.Position.Line(),
			"column":  r.Position.Column(),
			"flags":   r.Flags,
		})
	}
	return jsonResult(out)
}

func (s *Server) handleGetDeclarations(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params symbolIDParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return errorResult("get_declarations", fmt.Errorf("invalid parameters: %w", err)), nil
	}

	decls, err := s.reader.ReadDeclarations(ctx)
	if err != nil {
		return errorResult("get_declarations", err), nil
	}

	out := make([]map[string]any, 0)
	for _, d := range decls {
		if uint64(d.SymbolID) != params.SymbolID {
			continue
		}
		out = append(out, map[string]any{
			"file_id":       uint32(d.FileID),
			"start_line":    d.StartPosition.Line(),
			"start_column":  d.StartPosition.Column(),
			"end_line":      d.EndPosition.Line(),
			"end_column":    d.EndPosition.Column(),
			"is_definition": d.IsDefinition,
		})
	}
	return jsonResult(out)
}

func jsonResult(data any) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("mcpserver: marshal response: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(content)}},
	}, nil
}

func errorResult(operation string, err error) *mcp.CallToolResult {
	content, _ := json.Marshal(map[string]any{
		"success":   false,
		"operation": operation,
		"error":     err.Error(),
	})
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(content)}},
		IsError: true,
	}
}
