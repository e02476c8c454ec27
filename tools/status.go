package tools

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/lexandro/servemd/cache"
	"github.com/lexandro/servemd/index"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// StatusArgs defines the input parameters for the docs_status tool (none required).
type StatusArgs struct{}

// CacheStatser reports cache entry counts per namespace.
type CacheStatser interface {
	CacheStats() map[cache.Namespace]int
}

// StatusHandler holds the dependencies for the status tool.
type StatusHandler struct {
	Pages     *index.PageIndex
	Search    *index.SearchIndex
	Cache     CacheStatser
	StartTime time.Time
	RootDir   string
	Logger    *slog.Logger
}

// Handle processes a docs_status request.
func (h *StatusHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args StatusArgs) (*mcp.CallToolResult, any, error) {
	pageCount := h.Pages.Count()
	totalSize := h.Pages.TotalSizeBytes()
	stats := h.Cache.CacheStats()
	uptime := time.Since(h.StartTime)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	h.Logger.Info("docs_status", "pages", pageCount, "totalSize", totalSize, "uptime", uptime)

	var b strings.Builder
	b.WriteString("=== servemd Status ===\n\n")
	fmt.Fprintf(&b, "Docs root: %s\n", h.RootDir)
	fmt.Fprintf(&b, "Uptime: %s\n", formatDuration(uptime))
	fmt.Fprintf(&b, "Pages: %d (%s)\n", pageCount, formatFileSize(totalSize))
	fmt.Fprintf(&b, "Search documents: %d\n", h.Search.Count())
	fmt.Fprintf(&b, "Cached pages: %d\n", stats[cache.NamespaceHTML])
	fmt.Fprintf(&b, "Cached digests: %d\n", stats[cache.NamespaceDigest])
	fmt.Fprintf(&b, "Memory usage: %s\n", formatFileSize(int64(memStats.HeapAlloc)))

	return textResult(b.String()), nil, nil
}
