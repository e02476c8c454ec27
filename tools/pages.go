package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lexandro/servemd/index"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// PagesArgs defines the input parameters for the docs_pages tool.
type PagesArgs struct {
	Pattern    string `json:"pattern,omitempty" jsonschema:"Glob pattern over page paths (default **)"`
	MaxResults int    `json:"maxResults,omitempty" jsonschema:"Maximum number of pages to return (default 50)"`
}

// PagesHandler holds the dependencies for the pages tool.
type PagesHandler struct {
	Pages  *index.PageIndex
	Logger *slog.Logger
}

// Handle processes a docs_pages request.
func (h *PagesHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args PagesArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	pages, err := h.Pages.Glob(args.Pattern, args.MaxResults)
	if err != nil {
		h.Logger.Error("docs_pages failed", "pattern", args.Pattern, "error", err)
		return errorResult(fmt.Sprintf("Pattern error: %v", err)), nil, nil
	}

	h.Logger.Info("docs_pages", "pattern", args.Pattern, "results", len(pages), "elapsed", time.Since(start))
	return textResult(FormatPages(pages)), nil, nil
}
