// Package docs ties path resolution, rendering, navigation, caching and digest
// generation together behind the operations the transports call.
package docs

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/lexandro/servemd/cache"
	"github.com/lexandro/servemd/digest"
	"github.com/lexandro/servemd/layout"
	"github.com/lexandro/servemd/markdown"
	"github.com/lexandro/servemd/media"
	"github.com/lexandro/servemd/nav"
	"github.com/lexandro/servemd/resolve"
)

var (
	// ErrNotFound maps to a client error.
	ErrNotFound = resolve.ErrNotFound
	// ErrReadFailure maps to a server error.
	ErrReadFailure = resolve.ErrReadFailure
	// ErrGenerationFailure maps to a server error.
	ErrGenerationFailure = digest.ErrGenerationFailure
)

// DigestKind names one of the two digest documents.
type DigestKind string

const (
	DigestSummary DigestKind = digest.SummaryFile
	DigestFull    DigestKind = digest.FullFile
)

// PageRenderer turns markdown source into a rendered page.
type PageRenderer interface {
	Render(source []byte, sourcePath string) (*markdown.Page, error)
}

// PageLayout wraps a rendered page in the site chrome.
type PageLayout interface {
	Render(data layout.PageData) (string, error)
}

// Options configures a Service.
type Options struct {
	SiteName string
	// StaleCheck re-renders a cached page whose source changed on disk.
	StaleCheck bool
}

// Service serves rendered pages, raw markdown, assets and digests.
type Service struct {
	resolver  *resolve.Resolver
	renderer  PageRenderer
	layout    PageLayout
	generator *digest.Generator
	store     cache.Store
	options   Options
	logger    *slog.Logger
}

// NewService wires the collaborators together.
func NewService(resolver *resolve.Resolver, renderer PageRenderer, pageLayout PageLayout, generator *digest.Generator, store cache.Store, options Options, logger *slog.Logger) *Service {
	return &Service{
		resolver:  resolver,
		renderer:  renderer,
		layout:    pageLayout,
		generator: generator,
		store:     store,
		options:   options,
		logger:    logger,
	}
}

// Root returns the content root.
func (s *Service) Root() string {
	return s.resolver.Root()
}

// RenderPage serves an `.html` route from the markdown page of the same name.
func (s *Service) RenderPage(requestPath string) (*cache.Entry, error) {
	route, ok := resolve.Clean(requestPath)
	if !ok || !strings.HasSuffix(route, ".html") {
		return nil, fmt.Errorf("render %q: %w", requestPath, ErrNotFound)
	}
	sourcePath := strings.TrimSuffix(route, ".html") + media.PageExtension

	file, err := s.resolver.Resolve(sourcePath)
	if err != nil {
		return nil, err
	}

	if entry, ok := s.store.Get(cache.NamespaceHTML, file.RelativePath); ok {
		if !s.options.StaleCheck || entry.SourceModTime.Equal(file.ModTime) {
			s.logger.Debug("serving cached page", "path", route)
			return entry, nil
		}
		s.logger.Debug("cached page is stale", "path", route)
	}

	source, err := resolve.ReadFile(file)
	if err != nil {
		return nil, err
	}
	page, err := s.renderer.Render([]byte(source), file.RelativePath)
	if err != nil {
		return nil, fmt.Errorf("render %s: %v: %w", file.RelativePath, err, ErrReadFailure)
	}

	sidebar, err := nav.LoadSidebar(s.resolver.Root())
	if err != nil {
		s.logger.Warn("sidebar unavailable", "error", err)
		sidebar = &nav.Node{}
	}
	topbar, err := nav.LoadTopbar(s.resolver.Root())
	if err != nil {
		s.logger.Warn("topbar unavailable", "error", err)
	}

	document, err := s.layout.Render(layout.PageData{
		Title:       pageTitle(page.Title, s.options.SiteName),
		SiteName:    s.options.SiteName,
		Body:        template.HTML(page.HTML),
		CurrentPath: "/" + route,
		Navigation:  sidebar,
		Topbar:      topbar,
		TOC:         page.TOC,
	})
	if err != nil {
		return nil, fmt.Errorf("layout %s: %v: %w", file.RelativePath, err, ErrReadFailure)
	}

	entry := cache.NewEntry(file.RelativePath, document, file.ModTime)
	s.store.Put(cache.NamespaceHTML, entry)
	s.logger.Info("rendered and cached", "path", route)
	return entry, nil
}

// RawMarkdown returns the source of a `.md` route. Raw reads are never cached.
func (s *Service) RawMarkdown(requestPath string) (string, error) {
	_, content, err := s.resolver.ReadText(requestPath)
	return content, err
}

// Asset resolves a static file.
func (s *Service) Asset(requestPath string) (*resolve.ResolvedFile, error) {
	return s.resolver.Resolve(requestPath)
}

// Digest returns llms.txt or llms-full.txt. Digests are cached by name; the
// base URL of the first build is kept until the digest is invalidated.
func (s *Service) Digest(ctx context.Context, kind DigestKind, baseURL string) (*cache.Entry, error) {
	key := string(kind)
	if entry, ok := s.store.Get(cache.NamespaceDigest, key); ok {
		s.logger.Debug("serving cached digest", "name", key)
		return entry, nil
	}

	var (
		payload string
		err     error
	)
	switch kind {
	case DigestSummary:
		payload, err = s.generator.BuildSummary(baseURL)
	case DigestFull:
		payload, err = s.generator.BuildFullSummary(ctx, baseURL)
	default:
		return nil, fmt.Errorf("digest %q: %w", kind, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	entry := cache.NewEntry(key, payload, time.Time{})
	s.store.Put(cache.NamespaceDigest, entry)
	s.logger.Info("generated and cached digest", "name", key, "base_url", baseURL)
	return entry, nil
}

// InvalidatePath drops cached output depending on a changed file, given as a
// content-root relative path.
func (s *Service) InvalidatePath(relativePath string) {
	rel := path.Clean(strings.ReplaceAll(relativePath, "\\", "/"))
	switch {
	case rel == nav.SidebarFile || rel == nav.TopbarFile:
		s.store.Purge(cache.NamespaceHTML)
		s.store.Purge(cache.NamespaceDigest)
	case rel == digest.SummaryFile:
		s.store.Purge(cache.NamespaceDigest)
	case media.IsPageSource(rel):
		s.store.Invalidate(cache.NamespaceHTML, rel)
		s.store.Purge(cache.NamespaceDigest)
	default:
		return
	}
	s.logger.Debug("invalidated cached output", "path", rel)
}

// InvalidateAll empties both namespaces.
func (s *Service) InvalidateAll() {
	s.store.Purge(cache.NamespaceHTML)
	s.store.Purge(cache.NamespaceDigest)
	s.logger.Info("cache purged")
}

// CacheStats reports entry counts per namespace.
func (s *Service) CacheStats() map[cache.Namespace]int {
	return map[cache.Namespace]int{
		cache.NamespaceHTML:   s.store.Len(cache.NamespaceHTML),
		cache.NamespaceDigest: s.store.Len(cache.NamespaceDigest),
	}
}

// IsNotFound reports whether err should surface as a client error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func pageTitle(title, siteName string) string {
	switch {
	case title == "":
		return siteName
	case siteName == "":
		return title
	}
	return title + " - " + siteName
}
