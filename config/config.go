// Package config reads the server settings from flags, with defaults taken
// from the environment.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Settings is read once at startup.
type Settings struct {
	DocsRoot     string
	CacheRoot    string
	BaseURL      string
	Debug        bool
	Host         string
	Port         int
	SiteName     string
	MCP          bool
	Watch        bool
	StaleCheck   bool
	SyncInterval int // seconds, 0 disables
	LogLevel     string
	LogFile      string
	Excludes     []string
	MaxFileSize  int64
}

// Addr is the HTTP listen address.
func (s *Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// excludePatterns is a repeatable CLI flag for custom ignore patterns.
type excludePatterns []string

func (e *excludePatterns) String() string { return strings.Join(*e, ", ") }
func (e *excludePatterns) Set(value string) error {
	*e = append(*e, value)
	return nil
}

// Load parses args (without the program name). getenv supplies environment
// defaults; os.Getenv in production.
func Load(args []string, getenv func(string) string) (*Settings, error) {
	docsDefault, cacheDefault := defaultRoots()
	s := &Settings{}
	var excludes excludePatterns

	fs := flag.NewFlagSet("servemd", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&s.DocsRoot, "docs-root", envString(getenv, "DOCS_ROOT", docsDefault), "Documentation root directory (env DOCS_ROOT)")
	fs.StringVar(&s.CacheRoot, "cache-root", envString(getenv, "CACHE_ROOT", cacheDefault), "Render cache directory, wiped at startup (env CACHE_ROOT)")
	fs.StringVar(&s.BaseURL, "base-url", envString(getenv, "BASE_URL", ""), "Absolute base URL for llms.txt links (env BASE_URL, default: derived from request)")
	fs.BoolVar(&s.Debug, "debug", envBool(getenv, "DEBUG", false), "Debug mode, implies -log-level debug (env DEBUG)")
	fs.StringVar(&s.Host, "host", envString(getenv, "HOST", "0.0.0.0"), "HTTP listen host (env HOST)")
	fs.IntVar(&s.Port, "port", envInt(getenv, "PORT", 8080), "HTTP listen port (env PORT)")
	fs.StringVar(&s.SiteName, "site-name", envString(getenv, "SITE_NAME", "Documentation"), "Site name shown in titles (env SITE_NAME)")
	fs.BoolVar(&s.MCP, "mcp", false, "Serve MCP tools on stdio instead of HTTP")
	fs.BoolVar(&s.Watch, "watch", true, "Invalidate cached pages when files change")
	fs.BoolVar(&s.StaleCheck, "stale-check", true, "Re-render cached pages whose source modification time changed")
	fs.IntVar(&s.SyncInterval, "sync-interval", 0, "Seconds between index/disk reconciliations (0 disables)")
	fs.StringVar(&s.LogLevel, "log-level", "info", "Log level: debug|info|warn|error")
	fs.StringVar(&s.LogFile, "log-file", "", "Log file path (default: stderr)")
	fs.Var(&excludes, "exclude", "Extra ignore pattern (repeatable)")
	fs.Int64Var(&s.MaxFileSize, "max-file-size", 4*1024*1024, "Maximum indexed file size in bytes")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}
	s.Excludes = excludes

	if s.Debug {
		s.LogLevel = "debug"
	}
	if s.Port <= 0 || s.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", s.Port)
	}

	var err error
	if s.DocsRoot, err = filepath.Abs(s.DocsRoot); err != nil {
		return nil, fmt.Errorf("resolving docs root: %w", err)
	}
	if s.CacheRoot, err = filepath.Abs(s.CacheRoot); err != nil {
		return nil, fmt.Errorf("resolving cache root: %w", err)
	}
	s.BaseURL = strings.TrimRight(s.BaseURL, "/")
	return s, nil
}

// InitDirectories creates the docs root and recreates the cache directory
// empty. The cache root may not contain the docs root.
func (s *Settings) InitDirectories(logger *slog.Logger) error {
	if err := os.MkdirAll(s.DocsRoot, 0755); err != nil {
		return fmt.Errorf("creating docs root %s: %w", s.DocsRoot, err)
	}

	if unsafeCacheRoot(s.CacheRoot, s.DocsRoot) {
		return fmt.Errorf("cache root %s would remove the docs root %s", s.CacheRoot, s.DocsRoot)
	}
	if err := os.RemoveAll(s.CacheRoot); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clearing cache root %s: %w", s.CacheRoot, err)
	}
	if err := os.MkdirAll(s.CacheRoot, 0755); err != nil {
		return fmt.Errorf("creating cache root %s: %w", s.CacheRoot, err)
	}

	logger.Info("directories ready", "docs_root", s.DocsRoot, "cache_root", s.CacheRoot)
	return nil
}

func unsafeCacheRoot(cacheRoot, docsRoot string) bool {
	if cacheRoot == filepath.Dir(cacheRoot) {
		return true
	}
	rel, err := filepath.Rel(cacheRoot, docsRoot)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel))
}

// defaultRoots prefers the container layout (/app) when present.
func defaultRoots() (string, string) {
	if info, err := os.Stat("/app"); err == nil && info.IsDir() {
		return "/app/docs", "/app/cache"
	}
	return "docs", "__cache__"
}

func envString(getenv func(string) string, key, fallback string) string {
	if v := strings.TrimSpace(getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envBool(getenv func(string) string, key string, fallback bool) bool {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return strings.EqualFold(v, "yes") || strings.EqualFold(v, "on")
	}
	return b
}

func envInt(getenv func(string) string, key string, fallback int) int {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
