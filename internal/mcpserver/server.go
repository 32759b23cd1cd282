// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the collection engine to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/raido/internal/collection"
	"github.com/starford/raido/internal/index"
	"github.com/starford/raido/internal/outline"
)

// Server wraps the MCP server with Raido tools. The engine is single-actor,
// so every tool call is marshaled through one mutex.
type Server struct {
	mcp  *server.MCPServer
	mu   sync.Mutex
	ctrl *collection.Controller
	db   *index.DB // optional
}

// New creates a new MCP server with all Raido tools registered. db may be
// nil, which disables the search tool's index backing.
func New(ctrl *collection.Controller, db *index.DB) *Server {
	s := &Server{ctrl: ctrl, db: db}

	s.mcp = server.NewMCPServer(
		"Raido",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("Render the collection tree: every directory and document, dirty documents marked with an asterisk."),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the current content of a document (unsaved in-memory edits included)."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document (e.g. folder/doc.md)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Full-text search through document content and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchDocuments)

	s.mcp.AddTool(mcp.NewTool("document_outline",
		mcp.WithDescription("Extract the heading outline of a document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document")),
	), s.documentOutline)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listDocuments(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rendered, err := s.ctrl.RenderTree()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(rendered), nil
}

func (s *Server) readDocument(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	content, err := s.ctrl.Content(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(content)), nil
}

func (s *Server) searchDocuments(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.db == nil {
		return mcp.NewToolResultError("search index disabled"), nil
	}
	results, err := s.db.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) documentOutline(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	content, err := s.ctrl.Content(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	headings := outline.Extract(string(content))
	out, _ := json.MarshalIndent(headings, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
