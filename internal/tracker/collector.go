package tracker

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/docudepthai/docudepth/internal/ignore"
	"github.com/docudepthai/docudepth/internal/watcher"
)

// Collector converts raw watcher events into pending changes.
//
// At most one pending change exists per path; a later event replaces the
// earlier one in place, keeping the original insertion position. Batches
// are taken in insertion order.
type Collector struct {
	root        string
	matcher     *ignore.Matcher
	maxFileSize int64

	// onRecord is invoked after each recorded change, outside the lock.
	// The scheduler's Notify hangs off this.
	onRecord func()

	mu      sync.Mutex
	pending map[string]*PendingChange
	order   []string
}

// NewCollector creates a collector for the workspace rooted at root.
// maxFileSize caps the content size of Added/Modified changes.
func NewCollector(root string, matcher *ignore.Matcher, maxFileSize int64, onRecord func()) *Collector {
	return &Collector{
		root:        root,
		matcher:     matcher,
		maxFileSize: maxFileSize,
		onRecord:    onRecord,
		pending:     make(map[string]*PendingChange),
	}
}

// HandleEvent filters and records a single watcher event.
// Irrelevant events (directories, excluded paths, oversized content,
// vanished files) are dropped silently.
func (c *Collector) HandleEvent(ev watcher.FileEvent) {
	if ev.IsDir {
		return
	}

	relPath := filepath.ToSlash(ev.Path)
	if c.matcher.Excluded(relPath) {
		return
	}

	change := PendingChange{Path: relPath}
	switch ev.Operation {
	case watcher.OpCreate:
		change.Kind = Added
	case watcher.OpModify:
		change.Kind = Modified
	case watcher.OpDelete:
		change.Kind = Deleted
	default:
		return
	}

	if change.Kind != Deleted {
		content, err := os.ReadFile(filepath.Join(c.root, ev.Path))
		if err != nil {
			// The file vanished (or became unreadable) between the
			// notification and the read; skip the event, a delete will
			// follow if it is really gone.
			slog.Debug("skipping unread change",
				slog.String("path", relPath),
				slog.String("error", err.Error()))
			return
		}
		if int64(len(content)) > c.maxFileSize {
			slog.Debug("skipping oversized file",
				slog.String("path", relPath),
				slog.Int("size", len(content)))
			return
		}
		change.Content = content
	}

	c.Record(change)
}

// Record inserts or overwrites the pending change for its path.
func (c *Collector) Record(change PendingChange) {
	c.mu.Lock()
	if existing, ok := c.pending[change.Path]; ok {
		// Last write wins; keep the original insertion position.
		*existing = change
	} else {
		c.pending[change.Path] = &change
		c.order = append(c.order, change.Path)
	}
	c.mu.Unlock()

	if c.onRecord != nil {
		c.onRecord()
	}
}

// Take removes and returns up to max pending changes in insertion order.
// The remainder stays pending for the next flush cycle.
func (c *Collector) Take(max int) []PendingChange {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.order)
	if n == 0 {
		return nil
	}
	if max > 0 && n > max {
		n = max
	}

	batch := make([]PendingChange, 0, n)
	for _, path := range c.order[:n] {
		batch = append(batch, *c.pending[path])
		delete(c.pending, path)
	}
	c.order = append([]string(nil), c.order[n:]...)

	return batch
}

// Restore puts consumed changes back after a failed submit. A change is
// only restored if no newer change for the same path arrived meanwhile;
// restored changes precede the newer ones in flush order.
func (c *Collector) Restore(batch []PendingChange) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var restored []string
	for i := range batch {
		change := batch[i]
		if _, ok := c.pending[change.Path]; ok {
			// A newer edit for this path superseded the failed one.
			continue
		}
		c.pending[change.Path] = &change
		restored = append(restored, change.Path)
	}

	if len(restored) > 0 {
		c.order = append(restored, c.order...)
	}
}

// Len returns the number of pending changes.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}
