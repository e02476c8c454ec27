// Package resolve maps requested logical paths to files under the content
// root. It is the only traversal-safety boundary: every other package works
// with ResolvedFile values produced here.
package resolve

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"go.trai.ch/zerr"
)

var (
	// ErrNotFound is returned when a path does not name a readable regular file
	// inside the content root.
	ErrNotFound = zerr.New("not found")

	// ErrReadFailure is returned when a resolved file cannot be read or is not
	// valid UTF-8 text.
	ErrReadFailure = zerr.New("read failure")
)

// IgnoreChecker hides paths that exist on disk but must never be served.
type IgnoreChecker interface {
	ShouldIgnore(absolutePath string) bool
}

// ResolvedFile is a validated reference to a regular file inside the content root.
type ResolvedFile struct {
	AbsolutePath string    // Real path on disk (symlinks evaluated)
	RelativePath string    // Path relative to the content root (forward slashes)
	ModTime      time.Time // Last modification time at resolution
	Size         int64
}

// Resolver resolves paths against a fixed content root.
type Resolver struct {
	root   string
	ignore IgnoreChecker
}

// New creates a resolver for rootDir. The root must exist; its real path is
// used for containment checks so that a symlinked root still works.
func New(rootDir string, ignore IgnoreChecker) (*Resolver, error) {
	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("resolving content root %s: %w", rootDir, err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("evaluating content root %s: %w", abs, err)
	}
	info, err := os.Stat(real)
	if err != nil {
		return nil, fmt.Errorf("stat content root %s: %w", real, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content root %s is not a directory", real)
	}
	return &Resolver{root: real, ignore: ignore}, nil
}

// Root returns the absolute, symlink-free content root.
func (r *Resolver) Root() string {
	return r.root
}

// Clean normalizes a requested path to a root-relative, slash-separated path.
// It returns false when the path is empty, names the root itself or escapes it.
func Clean(requestedPath string) (string, bool) {
	if strings.ContainsRune(requestedPath, 0) {
		return "", false
	}
	p := strings.ReplaceAll(requestedPath, "\\", "/")
	p = strings.TrimLeft(p, "/")
	if p == "" {
		return "", false
	}
	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", false
	}
	return cleaned, true
}

// Resolve returns the ResolvedFile for requestedPath or an error wrapping ErrNotFound.
func (r *Resolver) Resolve(requestedPath string) (*ResolvedFile, error) {
	relativePath, ok := Clean(requestedPath)
	if !ok {
		return nil, fmt.Errorf("resolve %q: %w", requestedPath, ErrNotFound)
	}

	joined := filepath.Join(r.root, filepath.FromSlash(relativePath))
	if !r.contains(joined) {
		return nil, fmt.Errorf("resolve %q: outside content root: %w", requestedPath, ErrNotFound)
	}

	real, err := filepath.EvalSymlinks(joined)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", requestedPath, ErrNotFound)
	}
	if !r.contains(real) {
		return nil, fmt.Errorf("resolve %q: symlink escapes content root: %w", requestedPath, ErrNotFound)
	}

	if r.ignore != nil && (r.ignore.ShouldIgnore(joined) || r.ignore.ShouldIgnore(real)) {
		return nil, fmt.Errorf("resolve %q: ignored path: %w", requestedPath, ErrNotFound)
	}

	info, err := os.Stat(real)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", requestedPath, ErrNotFound)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("resolve %q: not a regular file: %w", requestedPath, ErrNotFound)
	}

	return &ResolvedFile{
		AbsolutePath: real,
		RelativePath: relativePath,
		ModTime:      info.ModTime(),
		Size:         info.Size(),
	}, nil
}

// ReadText resolves requestedPath and returns its content as UTF-8 text.
func (r *Resolver) ReadText(requestedPath string) (*ResolvedFile, string, error) {
	file, err := r.Resolve(requestedPath)
	if err != nil {
		return nil, "", err
	}
	content, err := ReadFile(file)
	if err != nil {
		return nil, "", err
	}
	return file, content, nil
}

// ReadFile reads an already resolved file as UTF-8 text.
func ReadFile(file *ResolvedFile) (string, error) {
	data, err := os.ReadFile(file.AbsolutePath)
	if err != nil {
		return "", fmt.Errorf("reading %s: %v: %w", file.RelativePath, err, ErrReadFailure)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("reading %s: invalid UTF-8: %w", file.RelativePath, ErrReadFailure)
	}
	return string(data), nil
}

// contains reports whether absolutePath is strictly inside the root.
func (r *Resolver) contains(absolutePath string) bool {
	rel, err := filepath.Rel(r.root, absolutePath)
	if err != nil {
		return false
	}
	if rel == "." || filepath.IsAbs(rel) {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
