package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lexandro/servemd/index"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SearchArgs defines the input parameters for the docs_search tool.
type SearchArgs struct {
	Query      string `json:"query" jsonschema:"Search query. Plain text for word match, quoted for exact phrase, /regex/ for regular expression"`
	PathGlob   string `json:"pathGlob,omitempty" jsonschema:"Optional glob restricting the pages searched (e.g. guide/**)"`
	MaxResults int    `json:"maxResults,omitempty" jsonschema:"Maximum number of pages to return (default 20)"`
}

// SearchHandler holds the dependencies for the search tool.
type SearchHandler struct {
	Index  *index.SearchIndex
	Logger *slog.Logger
}

// Handle processes a docs_search request.
func (h *SearchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if args.Query == "" {
		h.Logger.Warn("docs_search called with empty query")
		return errorResult("Error: query parameter is required"), nil, nil
	}

	hits, err := h.Index.Search(index.SearchOptions{
		Query:      args.Query,
		PathGlob:   args.PathGlob,
		MaxResults: args.MaxResults,
	})
	if err != nil {
		h.Logger.Error("docs_search failed", "query", args.Query, "error", err)
		return errorResult(fmt.Sprintf("Search error: %v", err)), nil, nil
	}

	h.Logger.Info("docs_search",
		"query", args.Query,
		"pathGlob", args.PathGlob,
		"pages", len(hits),
		"elapsed", time.Since(start),
	)
	return textResult(FormatHits(hits)), nil, nil
}
