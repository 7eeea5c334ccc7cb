package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/docudepthai/docudepth/internal/cache"
	"github.com/docudepthai/docudepth/internal/config"
	"github.com/docudepthai/docudepth/internal/ignore"
	"github.com/docudepthai/docudepth/internal/remote"
	"github.com/docudepthai/docudepth/internal/tracker"
	"github.com/docudepthai/docudepth/internal/watcher"
)

// Engine owns the full sync pipeline for one workspace: watcher events
// feed the collector, the scheduler debounces them into flush signals,
// and the run loop executes sync cycles one at a time.
//
// Flush signals pass through a buffered channel of size one. A signal
// arriving mid-cycle parks there and runs as the next cycle; it is never
// dropped, and cycles never overlap.
type Engine struct {
	cfg     *config.Config
	root    string
	matcher *ignore.Matcher

	collector    *tracker.Collector
	scheduler    *tracker.Scheduler
	watch        watcher.Watcher
	orchestrator *Orchestrator
	session      *Session
	store        *cache.Store
	lock         *cache.FileLock

	flushCh chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}

	mu      sync.Mutex
	running bool
}

// New builds an engine for the workspace rooted at root.
func New(cfg *config.Config, root string, notify NotifyFunc) (*Engine, error) {
	matcher, err := ignore.New(cfg.Paths.ExcludeDirs, cfg.Paths.ExcludeGlobs)
	if err != nil {
		return nil, fmt.Errorf("build exclusion matcher: %w", err)
	}

	client := remote.NewClient(remote.ClientConfig{
		Endpoint:       cfg.API.Endpoint,
		Token:          cfg.API.Token,
		RequestTimeout: cfg.RequestTimeout(),
	})
	poller := remote.NewPoller(client, cfg.PollInterval(), cfg.Sync.PollMaxAttempts)

	cacheDir := cfg.CachePath(root)
	store := cache.NewStore(cacheDir)
	session := NewSession()

	e := &Engine{
		cfg:     cfg,
		root:    root,
		matcher: matcher,
		session: session,
		store:   store,
		lock:    cache.NewFileLock(cacheDir),
		flushCh: make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}

	e.scheduler = tracker.NewScheduler(cfg.DebounceDelay(), e.requestFlush)
	e.collector = tracker.NewCollector(root, matcher, config.MaxFileSize, e.scheduler.Notify)
	e.orchestrator = NewOrchestrator(client, poller, e.collector, store, session, cfg.Sync.MaxFilesPerBatch, notify)

	w, err := watcher.NewHybridWatcher(watcher.Options{})
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	e.watch = w

	return e, nil
}

// Initialize runs the full analysis flow for the workspace. It can run
// before Start; the resulting job association carries into incremental
// sync.
func (e *Engine) Initialize(ctx context.Context, onProgress remote.ProgressFunc) error {
	return e.orchestrator.Initialize(ctx, e.root, e.matcher, config.MaxFileSize, onProgress)
}

// Start acquires the workspace lock, resumes state from the cache, and
// registers the watch. Edits made after Start returns are tracked; Stop
// shuts the engine down.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return fmt.Errorf("engine already running")
	}
	e.running = true
	e.mu.Unlock()

	acquired, err := e.lock.TryLock()
	if err != nil || !acquired {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		if err != nil {
			return fmt.Errorf("acquire workspace lock: %w", err)
		}
		return fmt.Errorf("another engine instance is syncing this workspace (lock: %s)", e.lock.Path())
	}

	e.resumeFromCache()

	// Watch registration completes before Start returns, so edits made
	// from this point on are never missed.
	if err := e.watch.Start(ctx, e.root); err != nil {
		_ = e.lock.Unlock()
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		return fmt.Errorf("start watcher: %w", err)
	}

	go e.consumeEvents()
	go e.run(ctx)

	slog.Info("engine started",
		slog.String("root", e.root),
		slog.String("status", string(e.session.Snapshot(0).Status)))
	return nil
}

// resumeFromCache seeds the session from the cache on disk.
func (e *Engine) resumeFromCache() {
	snap, err := e.store.Load()
	if err != nil {
		slog.Warn("cache unreadable, starting fresh", slog.String("error", err.Error()))
		return
	}
	if snap == nil {
		return
	}
	if snap.Degraded() {
		e.session.SetDegraded()
		slog.Warn("cached artifact has no metadata, run a full analysis to resume sync")
		return
	}
	e.session.Resume(snap.Meta.JobID, snap.Meta.Version)
	slog.Info("resumed from cache",
		slog.String("job_id", snap.Meta.JobID),
		slog.String("version", snap.Meta.Version))
}

// consumeEvents drains the watcher channels into the collector.
func (e *Engine) consumeEvents() {
	events := e.watch.Events()
	errs := e.watch.Errors()
	for events != nil || errs != nil {
		select {
		case <-e.stopCh:
			return
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			e.collector.HandleEvent(ev)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			slog.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}

// run is the sync loop. Each flush signal triggers exactly one cycle.
func (e *Engine) run(ctx context.Context) {
	defer close(e.doneCh)

	for {
		select {
		case <-e.stopCh:
			return
		case <-ctx.Done():
			return
		case <-e.flushCh:
			e.orchestrator.RunCycle(ctx)
			// Batch-cap overflow and restored batches stay in the
			// collector; schedule another cycle so they ship without
			// waiting for a new edit.
			if e.collector.Len() > 0 {
				e.scheduler.Notify()
			}
		}
	}
}

// requestFlush queues a flush signal. When one is already queued the
// extra signal folds into it.
func (e *Engine) requestFlush() {
	select {
	case e.flushCh <- struct{}{}:
	default:
	}
}

// Flush bypasses the debounce window and requests an immediate cycle.
func (e *Engine) Flush() {
	e.scheduler.FlushNow()
}

// Status returns the current session snapshot.
func (e *Engine) Status() SessionSnapshot {
	return e.session.Snapshot(e.collector.Len())
}

// Stop shuts the engine down. Unshipped pending changes are abandoned;
// they reappear as fresh edits on the next run's watcher or via a full
// analysis.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = false
	e.mu.Unlock()

	e.scheduler.Stop()
	_ = e.watch.Stop()
	close(e.stopCh)
	<-e.doneCh

	if err := e.lock.Unlock(); err != nil {
		return fmt.Errorf("release workspace lock: %w", err)
	}

	slog.Info("engine stopped")
	return nil
}
