package server

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/lexandro/servemd/index"
	"github.com/lexandro/servemd/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func connect(t *testing.T, h Handlers) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	serverSession, err := Setup(h).Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server Connect() error: %v", err)
	}
	t.Cleanup(func() { serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client Connect() error: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func testHandlers() Handlers {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pages := index.NewPageIndex()
	pages.Add(&index.IndexedPage{RelativePath: "guide/install.md", Title: "Install", SizeBytes: 42, ModTime: time.Now(), LineCount: 3})
	return Handlers{
		LLMs:    &tools.LLMsHandler{Logger: logger},
		Read:    &tools.ReadHandler{Logger: logger},
		Search:  &tools.SearchHandler{Logger: logger},
		Pages:   &tools.PagesHandler{Pages: pages, Logger: logger},
		Status:  &tools.StatusHandler{Pages: pages, Logger: logger},
		Refresh: &tools.RefreshHandler{Logger: logger},
	}
}

func Test_Setup_RegistersDocsTools(t *testing.T) {
	session := connect(t, testHandlers())

	result, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools() error: %v", err)
	}

	var names []string
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
	}
	slices.Sort(names)
	want := []string{"docs_llms", "docs_pages", "docs_read", "docs_refresh", "docs_search", "docs_status"}
	if !slices.Equal(names, want) {
		t.Errorf("tools = %v, want %v", names, want)
	}
}

func Test_Setup_CallPagesTool(t *testing.T) {
	session := connect(t, testHandlers())

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "docs_pages",
		Arguments: map[string]any{"pattern": "guide/**"},
	})
	if err != nil {
		t.Fatalf("CallTool() error: %v", err)
	}
	if result.IsError {
		t.Fatalf("docs_pages returned an error result")
	}
	text := result.Content[0].(*mcp.TextContent).Text
	if !strings.Contains(text, "guide/install.md") || !strings.Contains(text, `"Install"`) {
		t.Errorf("docs_pages output = %q", text)
	}
}
