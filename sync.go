package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/lexandro/servemd/index"
)

// SyncResult holds the outcome of a single sync verification run.
type SyncResult struct {
	MissingPages  int // pages on disk but not in index
	StalePages    int // pages in index but not on disk
	ModifiedPages int // pages where ModTime differs
	Duration      time.Duration
}

// Total is the number of discrepancies repaired.
func (r SyncResult) Total() int {
	return r.MissingPages + r.StalePages + r.ModifiedPages
}

// runPeriodicSync verifies index consistency at the given interval until ctx
// is done.
func runPeriodicSync(ctx context.Context, interval time.Duration, ix *pageIndexer, invalidator cacheInvalidator, logger *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("periodic sync started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			logger.Info("periodic sync stopped")
			return nil
		case <-ticker.C:
			result := performSyncVerification(ix, invalidator)
			if result.Total() > 0 {
				logger.Info("sync verification complete",
					"missing", result.MissingPages,
					"stale", result.StalePages,
					"modified", result.ModifiedPages,
					"duration", result.Duration,
				)
			} else {
				logger.Debug("sync verification complete, index is in sync", "duration", result.Duration)
			}
		}
	}
}

// performSyncVerification compares the docs root with the page index,
// re-indexes out-of-sync pages and drops their cached output.
func performSyncVerification(ix *pageIndexer, invalidator cacheInvalidator) SyncResult {
	start := time.Now()
	var result SyncResult

	diskPages := make(map[string]os.FileInfo)
	diskPaths := make(map[string]string)
	ix.walkPages(func(path, relPath string, info os.FileInfo) {
		diskPages[relPath] = info
		diskPaths[relPath] = path
	})

	indexedPages := ix.pages.All()
	indexedSet := make(map[string]*index.IndexedPage, len(indexedPages))
	for _, p := range indexedPages {
		indexedSet[p.RelativePath] = p
	}

	for relPath, info := range diskPages {
		indexed, exists := indexedSet[relPath]
		if exists && info.ModTime().Equal(indexed.ModTime) {
			continue
		}
		if err := ix.indexPage(diskPaths[relPath], relPath, info); err != nil {
			ix.logger.Debug("sync: skipped page", "path", relPath, "error", err)
			continue
		}
		invalidator.InvalidatePath(relPath)
		if exists {
			ix.logger.Info("sync: re-indexed modified page", "path", relPath)
			result.ModifiedPages++
		} else {
			ix.logger.Info("sync: indexed missing page", "path", relPath)
			result.MissingPages++
		}
	}

	for relPath := range indexedSet {
		if _, exists := diskPages[relPath]; !exists {
			ix.remove(relPath)
			invalidator.InvalidatePath(relPath)
			ix.logger.Info("sync: removed stale page", "path", relPath)
			result.StalePages++
		}
	}

	result.Duration = time.Since(start)
	return result
}
