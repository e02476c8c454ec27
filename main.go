package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lexandro/servemd/cache"
	"github.com/lexandro/servemd/config"
	"github.com/lexandro/servemd/digest"
	"github.com/lexandro/servemd/docs"
	"github.com/lexandro/servemd/ignore"
	"github.com/lexandro/servemd/index"
	"github.com/lexandro/servemd/layout"
	"github.com/lexandro/servemd/markdown"
	"github.com/lexandro/servemd/register"
	"github.com/lexandro/servemd/resolve"
	"github.com/lexandro/servemd/server"
	"github.com/lexandro/servemd/tools"
	"github.com/lexandro/servemd/watcher"
	"github.com/lexandro/servemd/web"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

var errClientClosed = errors.New("MCP client disconnected")

func main() {
	if len(os.Args) > 1 && os.Args[1] == "register" {
		if err := register.Run("servemd", os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	settings, err := config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	// Logs go to a file or stderr, never stdout: stdout carries MCP stdio.
	logger := setupLogger(settings.LogLevel, settings.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, settings, logger); err != nil {
		logger.Error("servemd stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, settings *config.Settings, logger *slog.Logger) error {
	startTime := time.Now()
	logger.Info("starting servemd",
		"docsRoot", settings.DocsRoot,
		"cacheRoot", settings.CacheRoot,
		"mcp", settings.MCP,
		"debug", settings.Debug,
	)

	if err := settings.InitDirectories(logger); err != nil {
		return zerr.Wrap(err, "initializing directories")
	}

	ignoreMatcher := ignore.NewMatcher(ignore.MatcherOptions{
		RootDir:          settings.DocsRoot,
		CustomPatterns:   settings.Excludes,
		ExcludedDirs:     []string{settings.CacheRoot},
		MaxFileSizeBytes: settings.MaxFileSize,
	})

	resolver, err := resolve.New(settings.DocsRoot, ignoreMatcher)
	if err != nil {
		return zerr.Wrap(err, "opening docs root")
	}
	renderer := markdown.NewRenderer(markdown.Options{})
	pageLayout, err := layout.New()
	if err != nil {
		return zerr.Wrap(err, "loading page layout")
	}
	renderCache := cache.New(settings.CacheRoot, logger)
	generator := digest.NewGenerator(resolver, renderer, settings.SiteName, logger)
	service := docs.NewService(resolver, renderer, pageLayout, generator, renderCache, docs.Options{
		SiteName:   settings.SiteName,
		StaleCheck: settings.StaleCheck,
	}, logger)

	searchIndex, err := index.NewSearchIndex()
	if err != nil {
		return zerr.Wrap(err, "creating search index")
	}
	defer searchIndex.Close()

	indexer := &pageIndexer{
		rootDir:    settings.DocsRoot,
		pages:      index.NewPageIndex(),
		search:     searchIndex,
		matcher:    ignoreMatcher,
		summarizer: renderer,
		logger:     logger,
	}
	indexedCount, totalSize := indexer.indexAll()
	logger.Info("initial indexing complete",
		"pages", indexedCount,
		"totalSize", totalSize,
		"duration", time.Since(startTime),
	)

	g, ctx := errgroup.WithContext(ctx)

	if settings.Watch {
		fileWatcher, err := watcher.New(settings.DocsRoot, ignoreMatcher, logger)
		if err != nil {
			logger.Warn("failed to start file watcher, continuing without live updates", "error", err)
		} else {
			defer fileWatcher.Close()
			g.Go(func() error { return fileWatcher.Run(ctx) })
			g.Go(func() error { return handleWatcherEvents(ctx, fileWatcher.Batches(), indexer, service) })
		}
	}

	if settings.SyncInterval > 0 {
		interval := time.Duration(settings.SyncInterval) * time.Second
		g.Go(func() error { return runPeriodicSync(ctx, interval, indexer, service, logger) })
	}

	if settings.MCP {
		mcpServer := newMCPServer(settings, service, indexer, startTime, logger)
		g.Go(func() error {
			logger.Info("MCP server starting on stdio")
			if err := mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				return zerr.Wrap(err, "MCP server")
			}
			// stdin closed; a non-nil error cancels the background loops
			return errClientClosed
		})
	} else {
		httpServer := web.New(service, searchIndex, web.Options{
			BaseURL:   settings.BaseURL,
			DocsRoot:  settings.DocsRoot,
			CacheRoot: settings.CacheRoot,
			Debug:     settings.Debug,
		}, logger)
		g.Go(func() error {
			if err := httpServer.Run(ctx, settings.Addr()); err != nil {
				return zerr.Wrap(err, "HTTP server")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, errClientClosed) {
		return err
	}
	logger.Info("servemd stopped cleanly")
	return nil
}

func newMCPServer(settings *config.Settings, service *docs.Service, indexer *pageIndexer, startTime time.Time, logger *slog.Logger) *mcp.Server {
	baseURL := settings.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://%s", settings.Addr())
	}

	return server.Setup(server.Handlers{
		LLMs:   &tools.LLMsHandler{Docs: service, BaseURL: baseURL, Logger: logger},
		Read:   &tools.ReadHandler{Docs: service, Logger: logger},
		Search: &tools.SearchHandler{Index: indexer.search, Logger: logger},
		Pages:  &tools.PagesHandler{Pages: indexer.pages, Logger: logger},
		Status: &tools.StatusHandler{
			Pages:     indexer.pages,
			Search:    indexer.search,
			Cache:     service,
			StartTime: startTime,
			RootDir:   settings.DocsRoot,
			Logger:    logger,
		},
		Refresh: &tools.RefreshHandler{
			Logger: logger,
			DoRefresh: func(ctx context.Context) (int, int64, string, error) {
				start := time.Now()
				service.InvalidateAll()
				indexer.matcher.Reload()
				if err := indexer.reset(); err != nil {
					return 0, 0, "", zerr.Wrap(err, "clearing search index")
				}
				count, size := indexer.indexAll()
				return count, size, time.Since(start).Round(time.Millisecond).String(), nil
			},
		},
	})
}

// setupLogger creates an slog.Logger writing to stderr or a file.
func setupLogger(level string, logFile string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	writer := os.Stderr
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cannot open log file %s: %v, falling back to stderr\n", logFile, err)
		} else {
			writer = f
		}
	}

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{Level: logLevel})
	return slog.New(handler)
}
