package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/docudepthai/docudepth/internal/cache"
	"github.com/docudepthai/docudepth/internal/ignore"
	"github.com/docudepthai/docudepth/internal/remote"
	"github.com/docudepthai/docudepth/internal/tracker"
	"github.com/docudepthai/docudepth/internal/workspace"
)

// Client is the slice of the remote API the orchestrator needs.
type Client interface {
	SubmitAnalysis(ctx context.Context, repo remote.RepoMeta, files []remote.File) (string, error)
	SubmitUpdate(ctx context.Context, jobID string, changes []remote.ChangeUpload) (*remote.UpdateResult, error)
	GetStatus(ctx context.Context, jobID string) (*remote.JobStatus, error)
	GetResult(ctx context.Context, jobID string) (json.RawMessage, string, error)
}

// NotifyFunc surfaces a condition that needs user attention. Transient
// failures are logged, not notified; they resolve themselves on retry.
type NotifyFunc func(message string)

// Orchestrator runs sync cycles: it consumes batches from the collector,
// ships them to the analysis service, and lands the refreshed artifact
// in the local cache. Cycles never overlap; the engine run loop executes
// them one at a time.
type Orchestrator struct {
	client    Client
	poller    *remote.Poller
	collector *tracker.Collector
	store     *cache.Store
	session   *Session
	batchSize int
	notify    NotifyFunc
}

// NewOrchestrator wires a sync orchestrator.
func NewOrchestrator(client Client, poller *remote.Poller, collector *tracker.Collector, store *cache.Store, session *Session, batchSize int, notify NotifyFunc) *Orchestrator {
	return &Orchestrator{
		client:    client,
		poller:    poller,
		collector: collector,
		store:     store,
		session:   session,
		batchSize: batchSize,
		notify:    notify,
	}
}

// Initialize performs the full analysis flow: snapshot the workspace,
// submit it, poll the job to completion, fetch the artifact, and persist
// it. On success the session is associated with the job, ready for
// incremental updates.
func (o *Orchestrator) Initialize(ctx context.Context, root string, matcher *ignore.Matcher, maxFileSize int64, onProgress remote.ProgressFunc) error {
	files, err := workspace.Collect(ctx, root, matcher, maxFileSize)
	if err != nil {
		return fmt.Errorf("snapshot workspace: %w", err)
	}

	repo := remote.RepoMeta{
		Name:      filepath.Base(root),
		FileCount: len(files),
	}

	uploads := make([]remote.File, len(files))
	for i, f := range files {
		uploads[i] = remote.File{Path: f.Path, Content: f.Content}
	}

	jobID, err := o.client.SubmitAnalysis(ctx, repo, uploads)
	if err != nil {
		return fmt.Errorf("submit analysis: %w", err)
	}
	slog.Info("analysis submitted",
		slog.String("job_id", jobID),
		slog.Int("files", len(files)))

	status, err := o.poller.Wait(ctx, jobID, onProgress)
	if err != nil {
		// Timed out or canceled; the cache stays untouched
		return fmt.Errorf("await analysis: %w", err)
	}
	if status.State == remote.StateFailed {
		return fmt.Errorf("analysis failed: %s", status.ErrorMessage)
	}

	artifact, version, err := o.client.GetResult(ctx, jobID)
	if err != nil {
		return fmt.Errorf("fetch result: %w", err)
	}

	if err := o.store.Save(artifact, cache.Metadata{JobID: jobID, Version: version}); err != nil {
		return fmt.Errorf("persist artifact: %w", err)
	}

	o.session.CompleteCycle(jobID, version)
	slog.Info("analysis complete",
		slog.String("job_id", jobID),
		slog.String("version", version))
	return nil
}

// RunCycle executes one incremental sync cycle. An empty batch is a
// no-op. On submit failure the consumed changes are restored so the next
// cycle retries them; permanent failures additionally raise a
// notification since retrying alone will not fix them.
func (o *Orchestrator) RunCycle(ctx context.Context) {
	batch := o.collector.Take(o.batchSize)
	if len(batch) == 0 {
		return
	}

	jobID := o.session.JobID()
	if jobID == "" {
		// No job to update against. Put the changes back; they ship
		// after the next full analysis establishes a job.
		o.collector.Restore(batch)
		slog.Warn("sync skipped, no analysis job associated",
			slog.Int("pending", o.collector.Len()))
		return
	}

	o.session.BeginCycle()

	changes := make([]remote.ChangeUpload, len(batch))
	for i, ch := range batch {
		changes[i] = remote.ChangeUpload{
			Path: ch.Path,
			Kind: ch.Kind.String(),
		}
		if ch.Kind != tracker.Deleted {
			changes[i].Content = ch.Content
		}
	}

	result, err := o.client.SubmitUpdate(ctx, jobID, changes)
	if err != nil {
		o.collector.Restore(batch)
		o.session.FailCycle(err.Error())

		if remote.IsPermanent(err) {
			slog.Error("sync failed permanently",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()))
			if o.notify != nil {
				o.notify(fmt.Sprintf("sync failed: %v", err))
			}
		} else {
			slog.Warn("sync failed, will retry",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()))
		}
		return
	}

	if err := o.store.Save(result.Artifact, cache.Metadata{JobID: result.JobID, Version: result.Version}); err != nil {
		// The remote accepted the update; resubmitting the batch would
		// double-apply it. Record the failure and move on.
		o.session.FailCycle(err.Error())
		slog.Error("artifact persist failed",
			slog.String("error", err.Error()))
		return
	}

	o.session.CompleteCycle(result.JobID, result.Version)
	slog.Info("sync cycle complete",
		slog.String("version", result.Version),
		slog.Int("changes", len(batch)),
		slog.Int("remaining", o.collector.Len()))
}
