// Package cache holds rendered pages and digests for the lifetime of the
// process, mirrored to the cache directory on disk.
package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/natefinch/atomic"
)

// Namespace separates independent key spaces.
type Namespace string

const (
	// NamespaceHTML is keyed by the slash-separated source path of a page.
	NamespaceHTML Namespace = "html"
	// NamespaceDigest is keyed by digest file name (llms.txt, llms-full.txt).
	NamespaceDigest Namespace = "digest"
)

// Entry is one cached payload.
type Entry struct {
	Key           string    `json:"key"`
	Payload       string    `json:"payload"`
	CreatedAt     time.Time `json:"created_at"`
	SourceModTime time.Time `json:"source_mod_time,omitzero"`
	ETag          string    `json:"etag"`
}

// NewEntry builds an entry stamped with the current time and payload ETag.
func NewEntry(key, payload string, sourceModTime time.Time) *Entry {
	return &Entry{
		Key:           key,
		Payload:       payload,
		CreatedAt:     time.Now(),
		SourceModTime: sourceModTime,
		ETag:          ETag(payload),
	}
}

// ETag returns the quoted xxhash64 of payload.
func ETag(payload string) string {
	return fmt.Sprintf(`"%016x"`, xxhash.Sum64String(payload))
}

// Store is a namespaced key/value cache. Writes replace whole entries.
type Store interface {
	Get(ns Namespace, key string) (*Entry, bool)
	Put(ns Namespace, entry *Entry)
	Invalidate(ns Namespace, key string)
	Purge(ns Namespace)
	Len(ns Namespace) int
}

// Cache is the in-memory Store with an optional disk mirror.
type Cache struct {
	mu      sync.RWMutex
	entries map[Namespace]map[string]*Entry

	// generation changes on every removal so a mirror read racing an
	// invalidation is not resurrected
	generation uint64

	dir    string
	logger *slog.Logger
}

// New creates a Cache. An empty dir disables the disk mirror.
func New(dir string, logger *slog.Logger) *Cache {
	return &Cache{
		entries: make(map[Namespace]map[string]*Entry),
		dir:     dir,
		logger:  logger,
	}
}

// Get returns the entry for key, consulting the disk mirror on a memory miss.
func (c *Cache) Get(ns Namespace, key string) (*Entry, bool) {
	c.mu.RLock()
	entry, ok := c.entries[ns][key]
	generation := c.generation
	c.mu.RUnlock()
	if ok {
		return entry, true
	}

	entry, ok = c.readMirror(ns, key)
	if !ok {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, exists := c.entries[ns][key]; exists {
		return current, true
	}
	if generation != c.generation {
		return nil, false
	}
	c.bucket(ns)[key] = entry
	return entry, true
}

// Put stores entry under entry.Key, replacing any previous value.
func (c *Cache) Put(ns Namespace, entry *Entry) {
	if entry == nil {
		return
	}
	if entry.ETag == "" {
		entry.ETag = ETag(entry.Payload)
	}
	c.mu.Lock()
	c.bucket(ns)[entry.Key] = entry
	c.mu.Unlock()

	c.writeMirror(ns, entry)
}

// Invalidate drops one key.
func (c *Cache) Invalidate(ns Namespace, key string) {
	c.mu.Lock()
	delete(c.entries[ns], key)
	c.generation++
	c.mu.Unlock()

	if c.dir == "" {
		return
	}
	if err := os.Remove(c.mirrorPath(ns, key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		c.logger.Warn("cache mirror remove failed", "namespace", ns, "key", key, "error", err)
	}
}

// Purge drops every key of a namespace.
func (c *Cache) Purge(ns Namespace) {
	c.mu.Lock()
	delete(c.entries, ns)
	c.generation++
	c.mu.Unlock()

	if c.dir == "" {
		return
	}
	if err := os.RemoveAll(filepath.Join(c.dir, string(ns))); err != nil {
		c.logger.Warn("cache mirror purge failed", "namespace", ns, "error", err)
	}
}

// Len returns the number of in-memory entries of a namespace.
func (c *Cache) Len(ns Namespace) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries[ns])
}

// bucket must be called with mu held for writing.
func (c *Cache) bucket(ns Namespace) map[string]*Entry {
	b, ok := c.entries[ns]
	if !ok {
		b = make(map[string]*Entry)
		c.entries[ns] = b
	}
	return b
}

func (c *Cache) mirrorPath(ns Namespace, key string) string {
	return filepath.Join(c.dir, string(ns), url.PathEscape(key)+".json")
}

func (c *Cache) writeMirror(ns Namespace, entry *Entry) {
	if c.dir == "" {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.Warn("cache mirror encode failed", "namespace", ns, "key", entry.Key, "error", err)
		return
	}
	if err := os.MkdirAll(filepath.Join(c.dir, string(ns)), 0755); err != nil {
		c.logger.Warn("cache mirror mkdir failed", "namespace", ns, "error", err)
		return
	}
	if err := atomic.WriteFile(c.mirrorPath(ns, entry.Key), bytes.NewReader(data)); err != nil {
		c.logger.Warn("cache mirror write failed", "namespace", ns, "key", entry.Key, "error", err)
	}
}

func (c *Cache) readMirror(ns Namespace, key string) (*Entry, bool) {
	if c.dir == "" {
		return nil, false
	}
	data, err := os.ReadFile(c.mirrorPath(ns, key))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("cache mirror read failed", "namespace", ns, "key", key, "error", err)
		}
		return nil, false
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil || entry.Key != key {
		c.logger.Warn("cache mirror entry unreadable", "namespace", ns, "key", key, "error", err)
		return nil, false
	}
	return &entry, true
}
