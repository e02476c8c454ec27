// Package web serves the documentation site over HTTP.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/http/httpguts"

	"github.com/lexandro/servemd/cache"
	"github.com/lexandro/servemd/docs"
	"github.com/lexandro/servemd/index"
	"github.com/lexandro/servemd/media"
)

const shutdownTimeout = 5 * time.Second

// Options configures the HTTP surface.
type Options struct {
	// BaseURL is the absolute site URL used in llms.txt links. Empty means
	// derived from each request.
	BaseURL   string
	DocsRoot  string
	CacheRoot string
	Debug     bool
}

// Server routes requests to the docs service and the search index.
type Server struct {
	docs    *docs.Service
	search  *index.SearchIndex
	options Options
	logger  *slog.Logger
}

// New creates a Server. search may be nil, which disables /search.
func New(service *docs.Service, search *index.SearchIndex, options Options, logger *slog.Logger) *Server {
	options.BaseURL = strings.TrimRight(options.BaseURL, "/")
	return &Server{
		docs:    service,
		search:  search,
		options: options,
		logger:  logger,
	}
}

// Handler returns the routed, logged handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /search", s.handleSearch)
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/index.html", http.StatusFound)
	})
	mux.HandleFunc("GET /llms.txt", s.handleDigest(docs.DigestSummary))
	mux.HandleFunc("GET /llms-full.txt", s.handleDigest(docs.DigestFull))
	mux.HandleFunc("GET /", s.handleContent)
	return s.logRequests(mux)
}

// Run listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("HTTP server shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

type healthResponse struct {
	Status    string `json:"status"`
	DocsRoot  string `json:"docs_root"`
	CacheRoot string `json:"cache_root"`
	Debug     bool   `json:"debug"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		DocsRoot:  s.options.DocsRoot,
		CacheRoot: s.options.CacheRoot,
		Debug:     s.options.Debug,
	})
}

type searchResponse struct {
	Query   string      `json:"query"`
	Results []index.Hit `json:"results"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.search == nil {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	query := q.Get("q")
	if strings.TrimSpace(query) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing query parameter q"})
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))

	hits, err := s.search.Search(index.SearchOptions{
		Query:      query,
		PathGlob:   q.Get("glob"),
		MaxResults: limit,
	})
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if hits == nil {
		hits = []index.Hit{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: query, Results: hits})
}

func (s *Server) handleDigest(kind docs.DigestKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, err := s.docs.Digest(r.Context(), kind, s.baseURL(r))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeEntry(w, r, entry, "text/plain; charset=utf-8")
	}
}

// handleContent serves rendered pages, raw markdown and static assets.
func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	requestPath := r.URL.Path
	switch {
	case strings.HasSuffix(requestPath, ".html"):
		entry, err := s.docs.RenderPage(requestPath)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeEntry(w, r, entry, "text/html; charset=utf-8")

	case strings.HasSuffix(requestPath, ".md"):
		content, err := s.docs.RawMarkdown(requestPath)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writePayload(w, r, content, cache.ETag(content), "text/markdown; charset=utf-8")

	default:
		s.serveAsset(w, r, requestPath)
	}
}

func (s *Server) serveAsset(w http.ResponseWriter, r *http.Request, requestPath string) {
	file, err := s.docs.Asset(requestPath)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	f, err := os.Open(file.AbsolutePath)
	if err != nil {
		s.writeError(w, r, errors.Join(docs.ErrReadFailure, err))
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", media.ContentType(file.AbsolutePath))
	http.ServeContent(w, r, file.RelativePath, file.ModTime, f)
}

// baseURL is the configured base URL or one derived from the request.
func (s *Server) baseURL(r *http.Request) string {
	if s.options.BaseURL != "" {
		return s.options.BaseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
		switch proto := strings.ToLower(strings.TrimSpace(strings.Split(forwarded, ",")[0])); proto {
		case "http", "https":
			scheme = proto
		}
	}
	host := r.Host
	if host == "" || strings.ContainsAny(host, "/\\@ ") || !httpguts.ValidHostHeader(host) {
		host = "localhost"
	}
	return scheme + "://" + host
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if docs.IsNotFound(err) {
		s.logger.Debug("not found", "path", r.URL.Path, "error", err)
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func writeEntry(w http.ResponseWriter, r *http.Request, entry *cache.Entry, contentType string) {
	writePayload(w, r, entry.Payload, entry.ETag, contentType)
}

func writePayload(w http.ResponseWriter, r *http.Request, payload, etag, contentType string) {
	header := w.Header()
	header.Set("ETag", etag)
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	header.Set("Content-Type", contentType)
	header.Set("Content-Length", strconv.Itoa(len(payload)))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write([]byte(payload))
	}
}

// etagMatches implements the weak comparison of If-None-Match.
func etagMatches(ifNoneMatch, etag string) bool {
	if ifNoneMatch == "" || etag == "" {
		return false
	}
	for candidate := range strings.SplitSeq(ifNoneMatch, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
