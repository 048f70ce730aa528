// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes quire corpus tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/quire/internal/docservice"
)

// defaultSearchLimit bounds tool results when the caller does not ask for a size.
const defaultSearchLimit = 10

// Server wraps the MCP server with quire tools.
type Server struct {
	mcp *server.MCPServer
	svc *docservice.Service
}

// New creates a new MCP server with all quire tools registered.
func New(svc *docservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"quire",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_corpus",
		mcp.WithDescription("Ranked full-text search across all stored PDF pages. "+
			"Returns the best-matching pages with scores and snippets. Read the "+
			"quire://search-guide resource or call get_search_guide for query rules."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("top_k", mcp.Description("Maximum number of results (default 10)")),
	), s.searchCorpus)

	s.mcp.AddTool(mcp.NewTool("get_page",
		mcp.WithDescription("Read the full normalized text of one stored page."),
		mcp.WithNumber("doc_id", mcp.Required(), mcp.Description("Document id as returned by search_corpus or list_documents")),
		mcp.WithNumber("page_index", mcp.Required(), mcp.Description("Zero-based page index")),
	), s.getPage)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List all tracked documents with their paths, page counts, and ingest timestamps."),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("run_ingest",
		mcp.WithDescription("Scan the corpus directory for new, changed, or unchanged PDFs and "+
			"bring the store up to date. Returns the run counters."),
		mcp.WithString("source_dir", mcp.Description("Optional directory override (defaults to the configured corpus directory)")),
	), s.runIngest)

	s.mcp.AddTool(mcp.NewTool("get_search_guide",
		mcp.WithDescription("Returns the quire search guide: how queries are tokenized, "+
			"ranked, and what each tool returns."),
	), s.getSearchGuide)

	// Resource: search guide.
	s.mcp.AddResource(
		mcp.NewResource("quire://search-guide", "Search Guide",
			mcp.WithResourceDescription("How quire tokenizes, ranks, and snippets search queries."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSearchGuideResource,
	)

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

func (s *Server) searchCorpus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	topK := defaultSearchLimit
	if v, vErr := req.RequireInt("top_k"); vErr == nil && v > 0 {
		topK = v
	}
	hits, err := s.svc.Search(ctx, query, topK)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(hits) == 0 {
		return mcp.NewToolResultText("no results"), nil
	}
	out, _ := json.MarshalIndent(hits, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docID, err := req.RequireInt("doc_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pageIndex, err := req.RequireInt("page_index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := s.svc.GetPage(ctx, int64(docID), pageIndex)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("page not found: doc %d page %d", docID, pageIndex)), nil
	}
	return mcp.NewToolResultText(page.Text), nil
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.svc.ListDocuments(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(docs) == 0 {
		return mcp.NewToolResultText("no documents ingested"), nil
	}
	out, _ := json.MarshalIndent(docs, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) runIngest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sourceDir := ""
	if v, err := req.RequireString("source_dir"); err == nil {
		sourceDir = v
	}
	stats, err := s.svc.Reingest(ctx, sourceDir)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(stats, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getSearchGuide(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(SearchGuide), nil
}

func (s *Server) readSearchGuideResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "quire://search-guide",
			MIMEType: "text/markdown",
			Text:     SearchGuide,
		},
	}, nil
}
