package ignore

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	gitignore "github.com/denormal/go-gitignore"
)

// DocsIgnoreFile is the project-specific ignore file read from the content root.
const DocsIgnoreFile = ".docsignore"

// Matcher decides whether a path under the content root is hidden from readers.
// It combines default patterns, .gitignore and .docsignore rules, custom CLI
// patterns and explicitly excluded directories such as the render cache.
// Reload takes the write lock; the Should* methods take the read lock.
type Matcher struct {
	mu               sync.RWMutex
	rootDir          string
	gitIgnore        gitignore.GitIgnore
	docsIgnore       gitignore.GitIgnore
	customPatterns   []string
	excludedDirs     []string
	maxFileSizeBytes int64
}

// MatcherOptions configures the ignore matcher.
type MatcherOptions struct {
	RootDir        string
	CustomPatterns []string
	// ExcludedDirs are absolute directories hidden wholesale (e.g. a cache
	// directory that lives inside the content root).
	ExcludedDirs     []string
	MaxFileSizeBytes int64
}

// NewMatcher creates a matcher for the given content root.
func NewMatcher(options MatcherOptions) *Matcher {
	matcher := &Matcher{
		rootDir:          options.RootDir,
		customPatterns:   options.CustomPatterns,
		maxFileSizeBytes: options.MaxFileSizeBytes,
	}

	if matcher.maxFileSizeBytes <= 0 {
		matcher.maxFileSizeBytes = 4 * 1024 * 1024 // 4MB default
	}

	for _, dir := range options.ExcludedDirs {
		if dir == "" {
			continue
		}
		if abs, err := filepath.Abs(dir); err == nil {
			matcher.excludedDirs = append(matcher.excludedDirs, abs)
		}
	}

	matcher.gitIgnore = loadIgnoreFile(filepath.Join(options.RootDir, ".gitignore"), options.RootDir)
	matcher.docsIgnore = loadIgnoreFile(filepath.Join(options.RootDir, DocsIgnoreFile), options.RootDir)

	return matcher
}

// ShouldIgnore returns true if the given absolute path must not be served or indexed.
func (m *Matcher) ShouldIgnore(absolutePath string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.insideExcludedDir(absolutePath) {
		return true
	}

	relativePath, err := filepath.Rel(m.rootDir, absolutePath)
	if err != nil {
		relativePath = absolutePath
	}
	relativePath = filepath.ToSlash(relativePath)

	if matchesDefaultPatterns(relativePath) {
		return true
	}

	isDir := false
	if info, err := os.Stat(absolutePath); err == nil {
		isDir = info.IsDir()
	}

	// Relative() does not require the path to exist on disk
	for _, rules := range []gitignore.GitIgnore{m.gitIgnore, m.docsIgnore} {
		if rules == nil {
			continue
		}
		if match := rules.Relative(relativePath, isDir); match != nil && match.Ignore() {
			return true
		}
	}

	return m.matchesCustomPatterns(relativePath)
}

// ShouldIgnoreDir returns true if a directory should be skipped entirely during traversal.
func (m *Matcher) ShouldIgnoreDir(absolutePath string) bool {
	if _, skip := skipDirNames[filepath.Base(absolutePath)]; skip {
		return true
	}
	return m.ShouldIgnore(absolutePath)
}

// IsFileTooLarge returns true if the file exceeds the max file size limit.
func (m *Matcher) IsFileTooLarge(fileSize int64) bool {
	return fileSize > m.maxFileSizeBytes
}

// MaxFileSizeBytes returns the configured maximum file size.
func (m *Matcher) MaxFileSizeBytes() int64 {
	return m.maxFileSizeBytes
}

// IsRuleFile reports whether the path is one of the ignore files whose change
// requires a Reload.
func IsRuleFile(path string) bool {
	base := filepath.Base(path)
	return base == ".gitignore" || base == DocsIgnoreFile
}

func (m *Matcher) insideExcludedDir(absolutePath string) bool {
	for _, dir := range m.excludedDirs {
		if absolutePath == dir || strings.HasPrefix(absolutePath, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// matchesDefaultPatterns checks every path component against DefaultIgnorePatterns.
func matchesDefaultPatterns(relativePath string) bool {
	parts := strings.Split(strings.ToLower(relativePath), "/")
	for _, pattern := range DefaultIgnorePatterns {
		pattern = strings.ToLower(pattern)
		for _, part := range parts {
			if part == "" || part == "." || part == ".." {
				continue
			}
			if !strings.ContainsAny(pattern, "*?[") {
				if part == pattern {
					return true
				}
				continue
			}
			if matched, err := filepath.Match(pattern, part); err == nil && matched {
				return true
			}
		}
	}
	return false
}

// matchesCustomPatterns checks the path (and its basename) against the -exclude patterns.
func (m *Matcher) matchesCustomPatterns(relativePath string) bool {
	baseName := filepath.Base(relativePath)
	for _, pattern := range m.customPatterns {
		if matched, err := filepath.Match(pattern, relativePath); err == nil && matched {
			return true
		}
		if matched, err := filepath.Match(pattern, baseName); err == nil && matched {
			return true
		}
	}
	return false
}

// Reload re-reads .gitignore and .docsignore from disk.
// Used when the watcher detects changes to these files.
func (m *Matcher) Reload() {
	newGitIgnore := loadIgnoreFile(filepath.Join(m.rootDir, ".gitignore"), m.rootDir)
	newDocsIgnore := loadIgnoreFile(filepath.Join(m.rootDir, DocsIgnoreFile), m.rootDir)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.gitIgnore = newGitIgnore
	m.docsIgnore = newDocsIgnore
}

// loadIgnoreFile reads an ignore file through an io.Reader so the handle is
// closed before returning.
func loadIgnoreFile(filePath string, baseDir string) gitignore.GitIgnore {
	f, err := os.Open(filePath)
	if err != nil {
		return nil
	}
	defer f.Close()

	return gitignore.New(f, baseDir, nil)
}
