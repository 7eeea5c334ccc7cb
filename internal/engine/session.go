// Package engine ties the change tracker, the remote client, and the
// local cache into the sync lifecycle.
package engine

import (
	"sync"
	"time"
)

// SyncStatus represents the overall sync state of the engine.
type SyncStatus string

const (
	// StatusIdle indicates no sync cycle has run yet.
	StatusIdle SyncStatus = "idle"
	// StatusSyncing indicates a sync cycle is in flight.
	StatusSyncing SyncStatus = "syncing"
	// StatusSynced indicates the last sync cycle succeeded.
	StatusSynced SyncStatus = "synced"
	// StatusDegraded indicates a cached artifact exists without usable
	// metadata, so incremental sync cannot run until a full analysis.
	StatusDegraded SyncStatus = "degraded"
	// StatusError indicates the last sync cycle failed.
	StatusError SyncStatus = "error"
)

// SessionSnapshot is an immutable view of the sync session.
type SessionSnapshot struct {
	Status         SyncStatus `json:"status"`
	JobID          string     `json:"job_id,omitempty"`
	Version        string     `json:"version,omitempty"`
	PendingChanges int        `json:"pending_changes"`
	CyclesRun      int        `json:"cycles_run"`
	LastSyncAt     time.Time  `json:"last_sync_at"`
	LastError      string     `json:"last_error,omitempty"`
}

// Session tracks the sync state across cycles. All methods are safe for
// concurrent use.
type Session struct {
	mu sync.RWMutex

	status     SyncStatus
	jobID      string
	version    string
	cyclesRun  int
	lastSyncAt time.Time
	lastError  string
}

// NewSession creates an idle session with no known job.
func NewSession() *Session {
	return &Session{status: StatusIdle}
}

// Resume seeds the session from cached metadata so incremental sync can
// continue where a previous run left off.
func (s *Session) Resume(jobID, version string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobID = jobID
	s.version = version
	s.status = StatusSynced
}

// SetDegraded marks the session as degraded. The job association is
// cleared; only a full analysis can restore it.
func (s *Session) SetDegraded() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobID = ""
	s.version = ""
	s.status = StatusDegraded
}

// JobID returns the current job association, empty when none exists.
func (s *Session) JobID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobID
}

// BeginCycle marks a sync cycle as in flight.
func (s *Session) BeginCycle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = StatusSyncing
}

// CompleteCycle records a successful sync cycle.
func (s *Session) CompleteCycle(jobID, version string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobID = jobID
	s.version = version
	s.status = StatusSynced
	s.cyclesRun++
	s.lastSyncAt = time.Now().UTC()
	s.lastError = ""
}

// FailCycle records a failed sync cycle.
func (s *Session) FailCycle(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = StatusError
	s.cyclesRun++
	s.lastError = message
}

// Snapshot returns a point-in-time copy of the session state.
// pendingChanges is supplied by the caller since the collector owns it.
func (s *Session) Snapshot(pendingChanges int) SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return SessionSnapshot{
		Status:         s.status,
		JobID:          s.jobID,
		Version:        s.version,
		PendingChanges: pendingChanges,
		CyclesRun:      s.cyclesRun,
		LastSyncAt:     s.lastSyncAt,
		LastError:      s.lastError,
	}
}
