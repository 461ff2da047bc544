// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes publication search tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/iisdela/pubsearch/internal/pubservice"
	"github.com/iisdela/pubsearch/internal/search"
)

const semanticsURI = "pubsearch://search-semantics"

// Server wraps the MCP server with the publication tools.
type Server struct {
	mcp *server.MCPServer
	svc *pubservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *pubservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"pubsearch",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_publications",
		mcp.WithDescription("Search IISD-ELA publications and return APA citations. "+
			"Tag filters are OR-ed together; query, years and category then narrow the result. "+
			"Read the "+semanticsURI+" resource for the exact rules."),
		mcp.WithArray("data_type_tags", mcp.WithStringItems(), mcp.Description("Data type tags, any of")),
		mcp.WithArray("environmental_issue_tags", mcp.WithStringItems(), mcp.Description("Environmental issue tags, any of")),
		mcp.WithArray("lake_tags", mcp.WithStringItems(), mcp.Description("Lake tags such as \"239\" or \"Other\", any of")),
		mcp.WithArray("author_tags", mcp.WithStringItems(), mcp.Description("Author names, any of")),
		mcp.WithString("category", mcp.Enum("all", "authored", "supported", "students"), mcp.Description("Author relationship filter")),
		mcp.WithString("year_start", mcp.Description("First year, inclusive (4 digits)")),
		mcp.WithString("year_end", mcp.Description("Last year, inclusive (4 digits)")),
		mcp.WithString("query", mcp.Description("Case-insensitive free-text query")),
	), s.searchPublications)

	s.mcp.AddTool(mcp.NewTool("list_authors",
		mcp.WithDescription("List the current IISD-ELA authors accepted by author_tags."),
	), s.listAuthors)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List the distinct data type, environmental issue and lake tags in the dataset."),
	), s.listTags)

	s.mcp.AddResource(
		mcp.NewResource(semanticsURI, "Search Semantics",
			mcp.WithResourceDescription("How search_publications combines its filters."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSemanticsResource,
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

func (s *Server) searchPublications(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cat, err := search.ParseCategory(req.GetString("category", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	params := search.Params{
		DataTypeTags: req.GetStringSlice("data_type_tags", nil),
		IssueTags:    req.GetStringSlice("environmental_issue_tags", nil),
		LakeTags:     req.GetStringSlice("lake_tags", nil),
		AuthorTags:   req.GetStringSlice("author_tags", nil),
		Category:     cat,
		YearStart:    req.GetString("year_start", ""),
		YearEnd:      req.GetString("year_end", ""),
		Query:        req.GetString("query", ""),
	}

	res, err := s.svc.Search(ctx, params)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if res.Count == 0 {
		return mcp.NewToolResultText("No publications were found for your search."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d publications\n\n", res.Count)
	for _, e := range res.Results {
		b.WriteString(e.Text)
		b.WriteString("\n")
		b.WriteString(e.TagSummary)
		b.WriteString("\n\n")
	}
	for _, sk := range res.Skipped {
		fmt.Fprintf(&b, "skipped row %d (%s): %s\n", sk.Row, sk.Title, sk.Reason)
	}
	return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
}

func (s *Server) listAuthors(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	authors, err := s.svc.Authors(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(strings.Join(authors, "\n")), nil
}

func (s *Server) listTags(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := s.svc.TagOptions(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(tags, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readSemanticsResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      semanticsURI,
			MIMEType: "text/markdown",
			Text:     SearchSemantics,
		},
	}, nil
}
