package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lexandro/servemd/docs"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ReadArgs defines the input parameters for the docs_read tool.
type ReadArgs struct {
	Path   string `json:"path" jsonschema:"Page path relative to the docs root (e.g. guide/install.md)"`
	Offset int    `json:"offset,omitempty" jsonschema:"First line to return, 1-based (default 1)"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum number of lines to return (default all)"`
}

// PageSource reads raw markdown through the path resolver.
type PageSource interface {
	RawMarkdown(requestPath string) (string, error)
}

// ReadHandler holds the dependencies for the read tool.
type ReadHandler struct {
	Docs   PageSource
	Logger *slog.Logger
}

// Handle processes a docs_read request.
func (h *ReadHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ReadArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if args.Path == "" {
		h.Logger.Warn("docs_read called with empty path")
		return errorResult("Error: path parameter is required"), nil, nil
	}

	content, err := h.Docs.RawMarkdown(args.Path)
	if docs.IsNotFound(err) {
		h.Logger.Info("docs_read page not found", "path", args.Path)
		return errorResult(fmt.Sprintf("Page not found: %s", args.Path)), nil, nil
	}
	if err != nil {
		h.Logger.Error("docs_read failed", "path", args.Path, "error", err)
		return errorResult(fmt.Sprintf("Read error: %v", err)), nil, nil
	}

	h.Logger.Info("docs_read", "path", args.Path, "elapsed", time.Since(start))
	return textResult(FormatPage(args.Path, content, args.Offset, args.Limit)), nil, nil
}
