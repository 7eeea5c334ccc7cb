package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"
)

// PollingWatcher watches for file changes by periodically rescanning the
// directory. Used as a fallback when fsnotify is not available.
//
// Only regular files are tracked: the sync engine has no use for
// directory events, and a removed directory shows up as deletes of the
// files it contained.
type PollingWatcher struct {
	interval  time.Duration
	fileState map[string]fileSnapshot
	events    chan FileEvent
	errors    chan error
	stopCh    chan struct{}
	mu        sync.RWMutex
	stopped   bool
	rootPath  string
}

type fileSnapshot struct {
	modTime time.Time
	size    int64
}

// NewPollingWatcher creates a new polling watcher with the given interval.
func NewPollingWatcher(interval time.Duration) *PollingWatcher {
	return &PollingWatcher{
		interval:  interval,
		fileState: make(map[string]fileSnapshot),
		events:    make(chan FileEvent, 100),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
	}
}

// Start establishes the baseline scan, then polls on a background
// goroutine. When Start returns, any later mutation will be picked up by
// a subsequent poll.
func (p *PollingWatcher) Start(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	p.rootPath = absPath

	// Baseline before returning so no pre-Start file reads as a create
	baseline, err := p.snapshot()
	if err != nil {
		return fmt.Errorf("perform initial scan: %w", err)
	}
	p.mu.Lock()
	p.fileState = baseline
	p.mu.Unlock()

	go p.run(ctx)
	return nil
}

// run drives the poll loop until the watcher stops.
func (p *PollingWatcher) run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = p.Stop()
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			if err := p.detectChanges(); err != nil {
				p.emitError(err)
			}
		}
	}
}

// Stop stops the polling watcher.
func (p *PollingWatcher) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil
	}

	p.stopped = true
	close(p.stopCh)
	close(p.events)
	close(p.errors)
	return nil
}

// Events returns the channel of file events.
func (p *PollingWatcher) Events() <-chan FileEvent {
	return p.events
}

// Errors returns the channel of errors.
func (p *PollingWatcher) Errors() <-chan error {
	return p.errors
}

// snapshot walks the tree and records every regular file.
func (p *PollingWatcher) snapshot() (map[string]fileSnapshot, error) {
	files := make(map[string]fileSnapshot)

	err := filepath.WalkDir(p.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip entries we can't access
		}
		if !d.Type().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(p.rootPath, path)
		if err != nil {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		files[filepath.ToSlash(relPath)] = fileSnapshot{
			modTime: info.ModTime(),
			size:    info.Size(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// detectChanges diffs the current tree against the previous scan and
// emits create/modify/delete events for files.
func (p *PollingWatcher) detectChanges() error {
	current, err := p.snapshot()
	if err != nil {
		return fmt.Errorf("walk directory for changes: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for path, snap := range current {
		prev, exists := p.fileState[path]
		switch {
		case !exists:
			p.emitEventLocked(FileEvent{
				Path:      path,
				Operation: OpCreate,
				Timestamp: time.Now(),
			})
		case prev.modTime != snap.modTime || prev.size != snap.size:
			p.emitEventLocked(FileEvent{
				Path:      path,
				Operation: OpModify,
				Timestamp: time.Now(),
			})
		}
	}

	for path := range p.fileState {
		if _, exists := current[path]; !exists {
			p.emitEventLocked(FileEvent{
				Path:      path,
				Operation: OpDelete,
				Timestamp: time.Now(),
			})
		}
	}

	p.fileState = current
	return nil
}

// emitEventLocked sends an event without blocking.
// Must be called with mu held, which serializes against Stop's close.
func (p *PollingWatcher) emitEventLocked(event FileEvent) {
	if p.stopped {
		return
	}

	select {
	case p.events <- event:
	default:
		slog.Warn("polling watcher buffer full, dropping event",
			slog.String("path", event.Path),
			slog.String("op", event.Operation.String()),
		)
	}
}

// emitError sends an error without blocking.
func (p *PollingWatcher) emitError(err error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return
	}

	select {
	case p.errors <- err:
	default:
	}
}
