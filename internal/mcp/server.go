// Package mcp exposes the agent as Model Context Protocol tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hyperjump/shirabe/internal/models"
	"github.com/hyperjump/shirabe/internal/search"
	"github.com/hyperjump/shirabe/internal/tools"
	"github.com/hyperjump/shirabe/internal/web"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// Chatter answers chat queries.
type Chatter interface {
	Run(ctx context.Context, query, mode string) (*models.ChatResult, error)
}

// DocumentQuerier queries the document index.
type DocumentQuerier interface {
	Query(ctx context.Context, question string, k int) ([]models.DocumentHit, error)
}

// EpisodeSearcher searches episodic memory.
type EpisodeSearcher interface {
	Search(ctx context.Context, query string, k int) ([]models.EpisodeHit, error)
}

// Researcher runs standalone web research.
type Researcher interface {
	Research(ctx context.Context, query string, depth, maxResults int) (*models.ResearchReport, error)
}

// Deps are the services exposed as tools. Tools for nil services are not registered.
type Deps struct {
	Chat       Chatter
	Documents  DocumentQuerier
	Memory     EpisodeSearcher
	Researcher Researcher
	Files      *tools.Files
}

// Server implements the MCP server for shirabe.
type Server struct {
	deps      Deps
	logger    *zap.Logger
	mcpServer *server.MCPServer
}

// NewServer creates an MCP server and registers a tool per available service.
func NewServer(deps Deps, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{deps: deps, logger: logger}
	s.mcpServer = server.NewMCPServer(
		"shirabe",
		version,
		server.WithToolCapabilities(true),
	)
	s.registerTools()
	return s
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func intProp(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description}
}

func (s *Server) registerTools() {
	if s.deps.Chat != nil {
		s.mcpServer.AddTool(mcp.Tool{
			Name:        "chat",
			Description: "Answer a question using local documents, past episodes and the web",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"message": stringProp("The question to answer"),
					"mode":    stringProp("offline, web or hybrid (default: configured mode)"),
				},
				Required: []string{"message"},
			},
		}, s.handleChat)
	}
	if s.deps.Documents != nil {
		s.mcpServer.AddTool(mcp.Tool{
			Name:        "rag_query",
			Description: "Find local documents similar to a question",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"question": stringProp("Natural language query"),
					"k":        intProp("Number of documents, 1 to 10 (default: 4)"),
				},
				Required: []string{"question"},
			},
		}, s.handleRAGQuery)
	}
	if s.deps.Memory != nil {
		s.mcpServer.AddTool(mcp.Tool{
			Name:        "memory_search",
			Description: "Find past interactions similar to a query",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"query": stringProp("Natural language query"),
					"k":     intProp("Number of episodes, 1 to 10 (default: 3)"),
				},
				Required: []string{"query"},
			},
		}, s.handleMemorySearch)
	}
	if s.deps.Researcher != nil {
		s.mcpServer.AddTool(mcp.Tool{
			Name:        "web_research",
			Description: "Search the web, crawl the results and summarize them with citations",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"query":       stringProp("Research topic"),
					"depth":       intProp("Link depth to follow, 0 to 3 (default: 1)"),
					"max_results": intProp("Search results and pages, 1 to 10 (default: 5)"),
				},
				Required: []string{"query"},
			},
		}, s.handleResearch)
	}
	if s.deps.Files != nil {
		s.mcpServer.AddTool(mcp.Tool{
			Name:        "search_local_files",
			Description: "Find files in the documents directory whose name contains a pattern",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"pattern": stringProp("Case-insensitive name fragment; shell wildcards allowed"),
					"limit":   intProp("Maximum matches (default: 5)"),
				},
				Required: []string{"pattern"},
			},
		}, s.handleSearchFiles)
		s.mcpServer.AddTool(mcp.Tool{
			Name:        "read_file",
			Description: "Read a file inside the documents directory",
			InputSchema: mcp.ToolInputSchema{
				Type:       "object",
				Properties: map[string]any{"path": stringProp("Path relative to the documents directory")},
				Required:   []string{"path"},
			},
		}, s.handleReadFile)
		s.mcpServer.AddTool(mcp.Tool{
			Name:        "list_dir",
			Description: "List a directory inside the documents directory",
			InputSchema: mcp.ToolInputSchema{
				Type:       "object",
				Properties: map[string]any{"path": stringProp("Path relative to the documents directory (default: .)")},
				Required:   []string{},
			},
		}, s.handleListDir)
	}
}

// parseParams converts MCP request arguments to a struct
func parseParams(args any, target any) error {
	data, err := json.Marshal(args)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// clamp returns v, or def when v is zero, bounded to [lo, hi].
func clamp(v, def, lo, hi int) int {
	if v == 0 {
		return def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (s *Server) handleChat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params struct {
		Message string `json:"message"`
		Mode    string `json:"mode"`
	}
	if err := parseParams(request.Params.Arguments, &params); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if params.Message == "" {
		return mcp.NewToolResultError("message is required"), nil
	}
	res, err := s.deps.Chat.Run(ctx, params.Message, params.Mode)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("chat failed: %v", err)), nil
	}
	return jsonResult(res)
}

func (s *Server) handleRAGQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params struct {
		Question string `json:"question"`
		K        int    `json:"k"`
	}
	if err := parseParams(request.Params.Arguments, &params); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	hits, err := s.deps.Documents.Query(ctx, params.Question, clamp(params.K, search.DefaultK, 1, 10))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}
	return jsonResult(map[string]any{"results": hits})
}

func (s *Server) handleMemorySearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params struct {
		Query string `json:"query"`
		K     int    `json:"k"`
	}
	if err := parseParams(request.Params.Arguments, &params); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	hits, err := s.deps.Memory.Search(ctx, params.Query, clamp(params.K, 3, 1, 10))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("memory search failed: %v", err)), nil
	}
	return jsonResult(map[string]any{"episodes": hits})
}

func (s *Server) handleResearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params struct {
		Query      string `json:"query"`
		Depth      *int   `json:"depth"`
		MaxResults int    `json:"max_results"`
	}
	if err := parseParams(request.Params.Arguments, &params); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	depth := 1
	if params.Depth != nil {
		depth = min(max(*params.Depth, 0), 3)
	}
	report, err := s.deps.Researcher.Research(ctx, params.Query, depth, clamp(params.MaxResults, web.DefaultSearchK, 1, 10))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("research failed: %v", err)), nil
	}
	return jsonResult(report)
}

func (s *Server) handleSearchFiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params struct {
		Pattern string `json:"pattern"`
		Limit   int    `json:"limit"`
	}
	if err := parseParams(request.Params.Arguments, &params); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	matches, err := s.deps.Files.SearchLocalFiles(params.Pattern, params.Limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"files": matches})
}

func (s *Server) handleReadFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params struct {
		Path string `json:"path"`
	}
	if err := parseParams(request.Params.Arguments, &params); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	content, err := s.deps.Files.ReadFile(params.Path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(content)
}

func (s *Server) handleListDir(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params struct {
		Path string `json:"path"`
	}
	if err := parseParams(request.Params.Arguments, &params); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	listing, err := s.deps.Files.ListDir(params.Path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(listing)
}

// Serve starts the MCP server with stdio transport
func (s *Server) Serve() error {
	s.logger.Debug("serving MCP over stdio")
	return server.ServeStdio(s.mcpServer)
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}
