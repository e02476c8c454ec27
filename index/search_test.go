package index

import (
	"testing"
)

func newTestSearchIndex(t *testing.T) *SearchIndex {
	t.Helper()
	si, err := NewSearchIndex()
	if err != nil {
		t.Fatalf("NewSearchIndex failed: %v", err)
	}
	t.Cleanup(func() { si.Close() })

	pages := map[string][2]string{
		"index.md":         {"Home", "# Home\n\nWelcome to the documentation.\n"},
		"guide/install.md": {"Installation", "# Installation\n\nRun the installer.\nThen configure the server.\n"},
		"guide/config.md":  {"Configuration", "# Configuration\n\nThe server reads environment variables.\n"},
	}
	for p, doc := range pages {
		if err := si.Index(p, doc[0], doc[1]); err != nil {
			t.Fatalf("Index failed: %v", err)
		}
	}
	return si
}

func Test_SearchIndex_MatchQuery(t *testing.T) {
	si := newTestSearchIndex(t)

	hits, err := si.Search(SearchOptions{Query: "server"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %+v", hits)
	}
	for _, hit := range hits {
		if hit.Title == "" || len(hit.Matches) == 0 {
			t.Errorf("expected title and line matches, got %+v", hit)
		}
	}
}

func Test_SearchIndex_PhraseQuery(t *testing.T) {
	si := newTestSearchIndex(t)

	hits, err := si.Search(SearchOptions{Query: `"environment variables"`})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 1 || hits[0].RelativePath != "guide/config.md" {
		t.Fatalf("unexpected hits: %+v", hits)
	}
	if hits[0].Matches[0].LineNumber != 3 {
		t.Errorf("expected match on line 3, got %d", hits[0].Matches[0].LineNumber)
	}
}

func Test_SearchIndex_PathGlob(t *testing.T) {
	si := newTestSearchIndex(t)

	hits, err := si.Search(SearchOptions{Query: "server", PathGlob: "guide/install*"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 1 || hits[0].RelativePath != "guide/install.md" {
		t.Errorf("unexpected hits: %+v", hits)
	}
}

func Test_SearchIndex_TitleIsSearchable(t *testing.T) {
	si, err := NewSearchIndex()
	if err != nil {
		t.Fatalf("NewSearchIndex failed: %v", err)
	}
	defer si.Close()
	if err := si.Index("a.md", "Quickstart", "no matching words here"); err != nil {
		t.Fatal(err)
	}

	hits, err := si.Search(SearchOptions{Query: "quickstart"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("expected title hit, got %+v", hits)
	}
}

func Test_SearchIndex_RemoveAndClear(t *testing.T) {
	si := newTestSearchIndex(t)

	if err := si.Remove("index.md"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if si.Count() != 2 {
		t.Errorf("expected 2 documents, got %d", si.Count())
	}
	if _, ok := si.Body("index.md"); ok {
		t.Error("removed body must be gone")
	}

	if err := si.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if si.Count() != 0 {
		t.Errorf("expected empty index, got %d", si.Count())
	}
}

func Test_SearchIndex_Errors(t *testing.T) {
	si := newTestSearchIndex(t)

	if _, err := si.Search(SearchOptions{Query: "  "}); err == nil {
		t.Error("expected empty query error")
	}
	if _, err := si.Search(SearchOptions{Query: "x", PathGlob: "["}); err == nil {
		t.Error("expected invalid glob error")
	}
}

func Test_buildQuery_Syntax(t *testing.T) {
	tests := []struct {
		in   string
		term string
	}{
		{"plain words", "plain words"},
		{`"a phrase"`, "a phrase"},
		{"/ins.*/", "ins.*"},
		{"/", "/"},
	}
	for _, tt := range tests {
		if got := searchTerm(tt.in); got != tt.term {
			t.Errorf("searchTerm(%q) = %q, want %q", tt.in, got, tt.term)
		}
		if buildQuery(tt.in) == nil {
			t.Errorf("buildQuery(%q) returned nil", tt.in)
		}
	}
}
