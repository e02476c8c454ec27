package watcher

import (
	"sort"
	"sync"
	"time"
)

// Event is a settled change to one path.
type Event struct {
	Path string
	Op   Op
}

// Op is the kind of change.
type Op int

const (
	OpCreate Op = iota
	OpWrite
	OpRemove
	OpRename
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	}
	return "unknown"
}

// Debouncer collapses bursts of changes and emits them as one batch, sorted
// by path, once no change arrived for the quiet interval. Later changes to a
// path replace earlier ones.
type Debouncer struct {
	quiet   time.Duration
	mu      sync.Mutex
	pending map[string]Op
	timer   *time.Timer
	out     chan []Event
}

// NewDebouncer creates a Debouncer with the given quiet interval.
func NewDebouncer(quiet time.Duration) *Debouncer {
	return &Debouncer{
		quiet:   quiet,
		pending: make(map[string]Op),
		out:     make(chan []Event, 16),
	}
}

// Batches returns the channel of settled batches.
func (d *Debouncer) Batches() <-chan []Event {
	return d.out
}

// Add records a change and restarts the quiet interval.
func (d *Debouncer) Add(path string, op Op) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending[path] = op
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.quiet, d.flush)
}

// Stop cancels a pending flush.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	if len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	batch := make([]Event, 0, len(d.pending))
	for path, op := range d.pending {
		batch = append(batch, Event{Path: path, Op: op})
	}
	d.pending = make(map[string]Op)
	d.mu.Unlock()

	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
	d.out <- batch
}
