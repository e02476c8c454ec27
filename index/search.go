package index

import (
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/bmatcuk/doublestar/v4"
)

// SearchIndex is a Bleve in-memory full-text index over page titles and bodies.
type SearchIndex struct {
	mu    sync.RWMutex
	index bleve.Index
	// bodies keeps the raw markdown for line-level match extraction
	bodies map[string]string
}

// NewSearchIndex creates an empty in-memory index.
func NewSearchIndex() (*SearchIndex, error) {
	idx, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("creating bleve index: %w", err)
	}
	return &SearchIndex{index: idx, bodies: make(map[string]string)}, nil
}

type pageDocument struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Path    string `json:"path"`
}

func buildMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	title.Store = true
	title.IncludeInAll = true
	docMapping.AddFieldMappingsAt("title", title)

	content := bleve.NewTextFieldMapping()
	content.Store = false
	content.IncludeInAll = true
	docMapping.AddFieldMappingsAt("content", content)

	path := bleve.NewKeywordFieldMapping()
	path.Store = true
	path.IncludeInAll = false
	docMapping.AddFieldMappingsAt("path", path)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// Index adds or replaces a page.
func (si *SearchIndex) Index(relativePath, title, body string) error {
	si.mu.Lock()
	defer si.mu.Unlock()

	si.bodies[relativePath] = body
	if err := si.index.Index(relativePath, pageDocument{Title: title, Content: body, Path: relativePath}); err != nil {
		return fmt.Errorf("indexing page %s: %w", relativePath, err)
	}
	return nil
}

// Remove drops a page.
func (si *SearchIndex) Remove(relativePath string) error {
	si.mu.Lock()
	defer si.mu.Unlock()

	delete(si.bodies, relativePath)
	if err := si.index.Delete(relativePath); err != nil {
		return fmt.Errorf("removing page %s: %w", relativePath, err)
	}
	return nil
}

// Hit is one matching page.
type Hit struct {
	RelativePath string      `json:"path"`
	Title        string      `json:"title"`
	Score        float64     `json:"score"`
	Matches      []LineMatch `json:"matches,omitempty"`
}

// LineMatch is one line of a page containing the search term.
type LineMatch struct {
	LineNumber int    `json:"line"`
	LineText   string `json:"text"`
}

// SearchOptions configures a search.
type SearchOptions struct {
	Query      string
	PathGlob   string // doublestar pattern restricting the pages searched
	MaxResults int
	MaxLines   int // line matches kept per page
}

// Search runs a query. Plain text is a match query, "quoted text" a phrase
// query and /pattern/ a regexp query. Hits come back in score order.
func (si *SearchIndex) Search(options SearchOptions) ([]Hit, error) {
	if strings.TrimSpace(options.Query) == "" {
		return nil, fmt.Errorf("empty query")
	}
	if options.MaxResults <= 0 {
		options.MaxResults = 20
	}
	if options.MaxLines <= 0 {
		options.MaxLines = 5
	}
	glob := strings.ReplaceAll(options.PathGlob, "\\", "/")
	if glob != "" && !doublestar.ValidatePattern(glob) {
		return nil, fmt.Errorf("invalid glob pattern: %s", glob)
	}

	si.mu.RLock()
	defer si.mu.RUnlock()

	request := bleve.NewSearchRequest(buildQuery(options.Query))
	request.Size = options.MaxResults * 5
	request.Fields = []string{"title"}
	result, err := si.index.Search(request)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	term := strings.ToLower(searchTerm(options.Query))
	var hits []Hit
	for _, match := range result.Hits {
		if glob != "" {
			if ok, _ := doublestar.Match(glob, match.ID); !ok {
				continue
			}
		}
		title, _ := match.Fields["title"].(string)
		hits = append(hits, Hit{
			RelativePath: match.ID,
			Title:        title,
			Score:        match.Score,
			Matches:      matchingLines(si.bodies[match.ID], term, options.MaxLines),
		})
		if len(hits) >= options.MaxResults {
			break
		}
	}
	return hits, nil
}

func buildQuery(queryString string) query.Query {
	queryString = strings.TrimSpace(queryString)
	switch {
	case isDelimited(queryString, '/'):
		return bleve.NewRegexpQuery(queryString[1 : len(queryString)-1])
	case isDelimited(queryString, '"'):
		return bleve.NewMatchPhraseQuery(queryString[1 : len(queryString)-1])
	}
	return bleve.NewMatchQuery(queryString)
}

func searchTerm(queryString string) string {
	queryString = strings.TrimSpace(queryString)
	if isDelimited(queryString, '/') || isDelimited(queryString, '"') {
		return queryString[1 : len(queryString)-1]
	}
	return queryString
}

func isDelimited(s string, delim byte) bool {
	return len(s) > 2 && s[0] == delim && s[len(s)-1] == delim
}

// matchingLines returns up to limit lines containing term (lowercase).
func matchingLines(body, term string, limit int) []LineMatch {
	if term == "" {
		return nil
	}
	var matches []LineMatch
	for i, line := range strings.Split(body, "\n") {
		if !strings.Contains(strings.ToLower(line), term) {
			continue
		}
		matches = append(matches, LineMatch{LineNumber: i + 1, LineText: line})
		if len(matches) >= limit {
			break
		}
	}
	return matches
}

// Count returns the number of indexed documents.
func (si *SearchIndex) Count() uint64 {
	si.mu.RLock()
	defer si.mu.RUnlock()
	n, _ := si.index.DocCount()
	return n
}

// Body returns the indexed markdown of a page.
func (si *SearchIndex) Body(relativePath string) (string, bool) {
	si.mu.RLock()
	defer si.mu.RUnlock()
	body, ok := si.bodies[relativePath]
	return body, ok
}

// Clear replaces the index with an empty one.
func (si *SearchIndex) Clear() error {
	si.mu.Lock()
	defer si.mu.Unlock()

	if err := si.index.Close(); err != nil {
		return fmt.Errorf("closing old index: %w", err)
	}
	idx, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return fmt.Errorf("creating new index: %w", err)
	}
	si.index = idx
	si.bodies = make(map[string]string)
	return nil
}

// Close releases the index.
func (si *SearchIndex) Close() error {
	si.mu.Lock()
	defer si.mu.Unlock()
	return si.index.Close()
}
