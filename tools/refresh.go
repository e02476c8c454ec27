package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RefreshArgs defines the input parameters for the docs_refresh tool.
type RefreshArgs struct{}

// RefreshFunc purges the render cache and rebuilds the page index. It is
// provided by main to keep this package free of the indexing wiring.
type RefreshFunc func(ctx context.Context) (pages int, totalSize int64, elapsed string, err error)

// RefreshHandler holds the dependencies for the refresh tool.
type RefreshHandler struct {
	DoRefresh RefreshFunc
	Logger    *slog.Logger
}

// Handle processes a docs_refresh request.
func (h *RefreshHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args RefreshArgs) (*mcp.CallToolResult, any, error) {
	h.Logger.Info("docs_refresh started")

	pages, totalSize, elapsed, err := h.DoRefresh(ctx)
	if err != nil {
		h.Logger.Error("docs_refresh failed", "error", err)
		return errorResult(fmt.Sprintf("Refresh error: %v", err)), nil, nil
	}

	h.Logger.Info("docs_refresh complete", "pages", pages, "totalSize", totalSize, "elapsed", elapsed)
	return textResult(fmt.Sprintf("cache purged, reindexed: %d pages (%s) in %s",
		pages, formatFileSize(totalSize), elapsed)), nil, nil
}
