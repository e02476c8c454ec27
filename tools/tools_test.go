package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/lexandro/servemd/cache"
	"github.com/lexandro/servemd/docs"
	"github.com/lexandro/servemd/index"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) != 1 {
		t.Fatalf("expected 1 content item, got %d", len(result.Content))
	}
	return result.Content[0].(*mcp.TextContent).Text
}

type fakeDocs struct {
	pages   map[string]string
	digests map[docs.DigestKind]string
	baseURL string
}

func (f *fakeDocs) RawMarkdown(p string) (string, error) {
	if p == "broken.md" {
		return "", fmt.Errorf("reading broken.md: %w", docs.ErrReadFailure)
	}
	content, ok := f.pages[p]
	if !ok {
		return "", fmt.Errorf("resolve %q: %w", p, docs.ErrNotFound)
	}
	return content, nil
}

func (f *fakeDocs) Digest(ctx context.Context, kind docs.DigestKind, baseURL string) (*cache.Entry, error) {
	f.baseURL = baseURL
	payload, ok := f.digests[kind]
	if !ok {
		return nil, errors.New("boom")
	}
	return cache.NewEntry(string(kind), payload, time.Time{}), nil
}

func (f *fakeDocs) CacheStats() map[cache.Namespace]int {
	return map[cache.Namespace]int{cache.NamespaceHTML: 3, cache.NamespaceDigest: 1}
}

func Test_LLMsHandler_Kinds(t *testing.T) {
	fake := &fakeDocs{digests: map[docs.DigestKind]string{
		docs.DigestSummary: "# Summary",
		docs.DigestFull:    "# Summary\n\n<url>x</url>",
	}}
	h := &LLMsHandler{Docs: fake, BaseURL: "http://localhost:8080", Logger: testLogger()}

	result, _, err := h.Handle(context.Background(), nil, LLMsArgs{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resultText(t, result) != "# Summary" {
		t.Errorf("unexpected summary: %s", resultText(t, result))
	}
	if fake.baseURL != "http://localhost:8080" {
		t.Errorf("expected configured base URL, got %s", fake.baseURL)
	}

	result, _, _ = h.Handle(context.Background(), nil, LLMsArgs{Full: true})
	if !strings.Contains(resultText(t, result), "<url>x</url>") {
		t.Errorf("expected full digest, got %s", resultText(t, result))
	}
}

func Test_LLMsHandler_Error(t *testing.T) {
	h := &LLMsHandler{Docs: &fakeDocs{}, Logger: testLogger()}

	result, _, err := h.Handle(context.Background(), nil, LLMsArgs{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("expected IsError=true")
	}
}

func Test_ReadHandler(t *testing.T) {
	h := &ReadHandler{Docs: &fakeDocs{pages: map[string]string{"guide.md": "# Guide\nBody"}}, Logger: testLogger()}

	tests := []struct {
		name    string
		args    ReadArgs
		isError bool
		want    string
	}{
		{"empty path", ReadArgs{}, true, "path parameter is required"},
		{"missing", ReadArgs{Path: "nope.md"}, true, "Page not found"},
		{"read failure", ReadArgs{Path: "broken.md"}, true, "Read error"},
		{"found", ReadArgs{Path: "guide.md"}, false, "2│ Body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, _, err := h.Handle(context.Background(), nil, tt.args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.IsError != tt.isError {
				t.Errorf("expected IsError=%v", tt.isError)
			}
			if text := resultText(t, result); !strings.Contains(text, tt.want) {
				t.Errorf("expected %q in %q", tt.want, text)
			}
		})
	}
}

func Test_SearchAndPagesHandlers(t *testing.T) {
	si, err := index.NewSearchIndex()
	if err != nil {
		t.Fatalf("NewSearchIndex failed: %v", err)
	}
	defer si.Close()
	if err := si.Index("guide.md", "Guide", "# Guide\nInstall the server.\n"); err != nil {
		t.Fatal(err)
	}
	pages := index.NewPageIndex()
	pages.Add(&index.IndexedPage{RelativePath: "guide.md", Title: "Guide", SizeBytes: 27, LineCount: 3})

	search := &SearchHandler{Index: si, Logger: testLogger()}
	result, _, _ := search.Handle(context.Background(), nil, SearchArgs{Query: "server"})
	if text := resultText(t, result); !strings.Contains(text, "── guide.md (Guide) ──") || !strings.Contains(text, "2: Install the server.") {
		t.Errorf("unexpected search output: %s", text)
	}
	result, _, _ = search.Handle(context.Background(), nil, SearchArgs{})
	if !result.IsError {
		t.Error("expected error for empty query")
	}

	list := &PagesHandler{Pages: pages, Logger: testLogger()}
	result, _, _ = list.Handle(context.Background(), nil, PagesArgs{})
	if text := resultText(t, result); !strings.Contains(text, `guide.md  "Guide" (27 B, 3 lines) /guide.html`) {
		t.Errorf("unexpected pages output: %s", text)
	}
	result, _, _ = list.Handle(context.Background(), nil, PagesArgs{Pattern: "["})
	if !result.IsError {
		t.Error("expected error for invalid pattern")
	}
}

func Test_StatusHandler(t *testing.T) {
	si, err := index.NewSearchIndex()
	if err != nil {
		t.Fatalf("NewSearchIndex failed: %v", err)
	}
	defer si.Close()
	pages := index.NewPageIndex()
	pages.Add(&index.IndexedPage{RelativePath: "a.md", SizeBytes: 2048})

	h := &StatusHandler{Pages: pages, Search: si, Cache: &fakeDocs{}, StartTime: time.Now(), RootDir: "/docs", Logger: testLogger()}
	result, _, err := h.Handle(context.Background(), nil, StatusArgs{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := resultText(t, result)
	for _, want := range []string{"Docs root: /docs", "Pages: 1 (2.0 KB)", "Cached pages: 3", "Cached digests: 1"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in status:\n%s", want, text)
		}
	}
}

func Test_RefreshHandler(t *testing.T) {
	h := &RefreshHandler{Logger: testLogger(), DoRefresh: func(ctx context.Context) (int, int64, string, error) {
		return 4, 100, "5ms", nil
	}}
	result, _, _ := h.Handle(context.Background(), nil, RefreshArgs{})
	if text := resultText(t, result); text != "cache purged, reindexed: 4 pages (100 B) in 5ms" {
		t.Errorf("unexpected output: %s", text)
	}

	failing := &RefreshHandler{Logger: testLogger(), DoRefresh: func(ctx context.Context) (int, int64, string, error) {
		return 0, 0, "", errors.New("disk gone")
	}}
	result, _, _ = failing.Handle(context.Background(), nil, RefreshArgs{})
	if !result.IsError || !strings.Contains(resultText(t, result), "disk gone") {
		t.Error("expected refresh error result")
	}
}
