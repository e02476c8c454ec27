// Package server registers the documentation tools on an MCP server.
package server

import (
	"github.com/lexandro/servemd/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is reported to MCP clients.
const Version = "0.1.0"

// Handlers groups the tool handlers registered by Setup.
type Handlers struct {
	LLMs    *tools.LLMsHandler
	Read    *tools.ReadHandler
	Search  *tools.SearchHandler
	Pages   *tools.PagesHandler
	Status  *tools.StatusHandler
	Refresh *tools.RefreshHandler
}

// Setup creates the MCP server with every docs_* tool.
func Setup(h Handlers) *mcp.Server {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "servemd",
			Version: Version,
		},
		&mcp.ServerOptions{
			Instructions: `This server exposes a markdown documentation site.

Start with docs_llms to get the site outline (llms.txt). Use docs_llms with full=true only when you need every page at once.
- Use docs_search to find pages by content or title
- Use docs_pages to list pages by path pattern
- Use docs_read to read one page as markdown with line numbers
- Pages stay current: edits on disk are picked up by the file watcher`,
		},
	)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "docs_llms",
		Description: "Return llms.txt: the curated or generated outline of the documentation with absolute page links. Set full=true for llms-full.txt, which inlines the markdown of every linked page.",
	}, h.LLMs.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "docs_read",
		Description: `Read one documentation page as raw markdown with numbered lines.

Paths are relative to the docs root (e.g. "guide/install.md"). Use offset and limit to page through long documents.`,
	}, h.Read.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "docs_search",
		Description: `Full-text search over page titles and bodies.

Query formats:
  - Plain text: word-level matching (e.g., "install")
  - "quoted text": exact phrase matching
  - /regex/: regular expression matching

pathGlob restricts the pages searched (e.g., "guide/**").`,
	}, h.Search.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "docs_pages",
		Description: `List documentation pages by glob pattern with their titles.

Pattern examples:
  - "**" - every page (default)
  - "guide/**" - pages under guide/
  - "*.md" - top-level pages only`,
	}, h.Pages.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "docs_status",
		Description: "Show server status: page count, search index size, cache entries, memory usage and uptime.",
	}, h.Status.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "docs_refresh",
		Description: "Purge every cached page and digest and rebuild the page index from disk.",
	}, h.Refresh.Handle)

	return mcpServer
}
