package index

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// IndexedPage is a markdown page known to the index.
type IndexedPage struct {
	Path         string    // Absolute file path
	RelativePath string    // Path relative to the docs root (forward slashes)
	Title        string    // Title as the renderer would pick it
	SizeBytes    int64     // File size in bytes
	ModTime      time.Time // Last modification time
	LineCount    int
}

// Route is the browser route of the rendered page.
func (p *IndexedPage) Route() string {
	return "/" + strings.TrimSuffix(p.RelativePath, ".md") + ".html"
}

// PageIndex keeps page metadata keyed by relative path, iterated in path order.
type PageIndex struct {
	mu          sync.RWMutex
	pages       map[string]*IndexedPage
	sortedPaths []string
}

// NewPageIndex creates an empty page index.
func NewPageIndex() *PageIndex {
	return &PageIndex{pages: make(map[string]*IndexedPage)}
}

// Add inserts or replaces a page.
func (pi *PageIndex) Add(page *IndexedPage) {
	pi.mu.Lock()
	defer pi.mu.Unlock()

	if _, exists := pi.pages[page.RelativePath]; !exists {
		idx := sort.SearchStrings(pi.sortedPaths, page.RelativePath)
		pi.sortedPaths = append(pi.sortedPaths, "")
		copy(pi.sortedPaths[idx+1:], pi.sortedPaths[idx:])
		pi.sortedPaths[idx] = page.RelativePath
	}
	pi.pages[page.RelativePath] = page
}

// Remove drops a page by relative path.
func (pi *PageIndex) Remove(relativePath string) {
	pi.mu.Lock()
	defer pi.mu.Unlock()

	if _, exists := pi.pages[relativePath]; !exists {
		return
	}
	delete(pi.pages, relativePath)
	idx := sort.SearchStrings(pi.sortedPaths, relativePath)
	if idx < len(pi.sortedPaths) && pi.sortedPaths[idx] == relativePath {
		pi.sortedPaths = append(pi.sortedPaths[:idx], pi.sortedPaths[idx+1:]...)
	}
}

// Get returns the page for a relative path, or nil.
func (pi *PageIndex) Get(relativePath string) *IndexedPage {
	pi.mu.RLock()
	defer pi.mu.RUnlock()
	return pi.pages[relativePath]
}

// Count returns the number of pages.
func (pi *PageIndex) Count() int {
	pi.mu.RLock()
	defer pi.mu.RUnlock()
	return len(pi.pages)
}

// TotalSizeBytes sums the size of all pages.
func (pi *PageIndex) TotalSizeBytes() int64 {
	pi.mu.RLock()
	defer pi.mu.RUnlock()

	var total int64
	for _, page := range pi.pages {
		total += page.SizeBytes
	}
	return total
}

// Glob returns pages whose relative path matches a doublestar pattern, in
// path order, at most maxResults (default 50).
func (pi *PageIndex) Glob(pattern string, maxResults int) ([]*IndexedPage, error) {
	if maxResults <= 0 {
		maxResults = 50
	}
	pattern = strings.ReplaceAll(pattern, "\\", "/")
	if pattern == "" {
		pattern = "**"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern: %s", pattern)
	}

	pi.mu.RLock()
	defer pi.mu.RUnlock()

	var results []*IndexedPage
	for _, p := range pi.sortedPaths {
		if len(results) >= maxResults {
			break
		}
		if ok, _ := doublestar.Match(pattern, p); ok {
			results = append(results, pi.pages[p])
		}
	}
	return results, nil
}

// All returns every page in path order.
func (pi *PageIndex) All() []*IndexedPage {
	pi.mu.RLock()
	defer pi.mu.RUnlock()

	result := make([]*IndexedPage, 0, len(pi.sortedPaths))
	for _, p := range pi.sortedPaths {
		result = append(result, pi.pages[p])
	}
	return result
}

// Clear empties the index.
func (pi *PageIndex) Clear() {
	pi.mu.Lock()
	defer pi.mu.Unlock()

	pi.pages = make(map[string]*IndexedPage)
	pi.sortedPaths = nil
}
