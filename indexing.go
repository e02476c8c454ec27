package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/lexandro/servemd/ignore"
	"github.com/lexandro/servemd/index"
	"github.com/lexandro/servemd/markdown"
	"github.com/lexandro/servemd/media"
	"github.com/lexandro/servemd/nav"
	"github.com/lexandro/servemd/watcher"
)

var errBinaryContent = errors.New("binary content")

// pageSummarizer picks the title of a markdown page.
type pageSummarizer interface {
	Summarize(source []byte, sourcePath string) markdown.Summary
}

// cacheInvalidator drops rendered output derived from a changed file.
type cacheInvalidator interface {
	InvalidatePath(relativePath string)
	InvalidateAll()
}

// pageIndexer keeps the page and search indexes in step with the docs root.
type pageIndexer struct {
	rootDir    string
	pages      *index.PageIndex
	search     *index.SearchIndex
	matcher    *ignore.Matcher
	summarizer pageSummarizer
	logger     *slog.Logger
}

// indexAll walks the docs root and indexes every markdown page.
// Returns the number of pages indexed and total bytes processed.
func (ix *pageIndexer) indexAll() (int, int64) {
	var indexedCount int
	var totalSize int64
	var mu sync.Mutex

	const workerCount = 8
	type indexJob struct {
		path    string
		relPath string
		info    os.FileInfo
	}
	jobs := make(chan indexJob, 100)

	var wg sync.WaitGroup
	for range workerCount {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if err := ix.indexPage(job.path, job.relPath, job.info); err != nil {
					ix.logger.Debug("skipped page", "path", job.relPath, "error", err)
					continue
				}
				mu.Lock()
				indexedCount++
				totalSize += job.info.Size()
				mu.Unlock()
			}
		}()
	}

	ix.walkPages(func(path, relPath string, info os.FileInfo) {
		jobs <- indexJob{path: path, relPath: relPath, info: info}
	})

	close(jobs)
	wg.Wait()
	return indexedCount, totalSize
}

// walkPages calls fn for every markdown page under the root that the
// matcher lets through.
func (ix *pageIndexer) walkPages(fn func(path, relPath string, info os.FileInfo)) {
	filepath.WalkDir(ix.rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != ix.rootDir && ix.matcher.ShouldIgnoreDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		relPath := ix.relative(path)
		if !isPage(relPath) || ix.matcher.ShouldIgnore(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil || ix.matcher.IsFileTooLarge(info.Size()) {
			return nil
		}
		fn(path, relPath, info)
		return nil
	})
}

// indexPage reads one page and adds it to both indexes.
func (ix *pageIndexer) indexPage(absolutePath, relativePath string, info os.FileInfo) error {
	content, err := readFileWithRetry(absolutePath)
	if err != nil {
		return err
	}
	if media.IsBinaryContent(content) {
		return errBinaryContent
	}

	summary := ix.summarizer.Summarize(content, relativePath)
	_, body := markdown.ParseFrontMatter(content)

	ix.pages.Add(&index.IndexedPage{
		Path:         absolutePath,
		RelativePath: relativePath,
		Title:        summary.Title,
		SizeBytes:    info.Size(),
		ModTime:      info.ModTime(),
		LineCount:    strings.Count(string(content), "\n") + 1,
	})
	return ix.search.Index(relativePath, summary.Title, string(body))
}

func (ix *pageIndexer) remove(relativePath string) {
	ix.pages.Remove(relativePath)
	if err := ix.search.Remove(relativePath); err != nil {
		ix.logger.Warn("failed to remove page from search index", "path", relativePath, "error", err)
	}
}

// reset empties both indexes before a full rebuild.
func (ix *pageIndexer) reset() error {
	ix.pages.Clear()
	return ix.search.Clear()
}

func (ix *pageIndexer) relative(absolutePath string) string {
	relPath, err := filepath.Rel(ix.rootDir, absolutePath)
	if err != nil {
		return ""
	}
	return filepath.ToSlash(relPath)
}

// isPage reports whether relPath is a markdown page. Navigation sources are
// markdown but never served as pages of their own.
func isPage(relPath string) bool {
	if !media.IsPageSource(relPath) {
		return false
	}
	return relPath != nav.SidebarFile && relPath != nav.TopbarFile
}

// readFileWithRetry attempts to read a file, retrying once after a short delay
// if the file is locked (common on Windows when editors are saving).
func readFileWithRetry(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		time.Sleep(50 * time.Millisecond)
		return os.ReadFile(path)
	}
	return data, nil
}

// handleWatcherEvents applies debounced change batches to the indexes and
// drops the cached output they affect. It returns when ctx is done or the
// watcher stops delivering batches.
func handleWatcherEvents(ctx context.Context, batches <-chan []watcher.Event, ix *pageIndexer, invalidator cacheInvalidator) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case events, ok := <-batches:
			if !ok {
				return nil
			}
			for _, event := range events {
				ix.applyEvent(event, invalidator)
			}
		}
	}
}

func (ix *pageIndexer) applyEvent(event watcher.Event, invalidator cacheInvalidator) {
	relPath := ix.relative(event.Path)
	if relPath == "" || strings.HasPrefix(relPath, "../") {
		return
	}

	if ignore.IsRuleFile(event.Path) {
		ix.matcher.Reload()
		invalidator.InvalidateAll()
		ix.logger.Info("reloaded ignore rules", "trigger", relPath)
		return
	}

	invalidator.InvalidatePath(relPath)
	if !isPage(relPath) {
		return
	}

	switch event.Op {
	case watcher.OpRemove, watcher.OpRename:
		ix.remove(relPath)
		ix.logger.Debug("removed from index", "path", relPath)

	case watcher.OpCreate, watcher.OpWrite:
		if ix.matcher.ShouldIgnore(event.Path) {
			return
		}
		info, err := os.Stat(event.Path)
		if err != nil || info.IsDir() || ix.matcher.IsFileTooLarge(info.Size()) {
			return
		}
		if err := ix.indexPage(event.Path, relPath, info); err != nil {
			ix.logger.Debug("skipped page update", "path", relPath, "error", err)
			return
		}
		ix.logger.Debug("updated index", "path", relPath)
	}
}
