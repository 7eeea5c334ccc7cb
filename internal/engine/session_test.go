package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSession_LifecycleTransitions(t *testing.T) {
	s := NewSession()
	assert.Equal(t, StatusIdle, s.Snapshot(0).Status)

	s.Resume("job-1", "v1")
	assert.Equal(t, StatusSynced, s.Snapshot(0).Status)
	assert.Equal(t, "job-1", s.JobID())

	s.BeginCycle()
	assert.Equal(t, StatusSyncing, s.Snapshot(0).Status)

	s.CompleteCycle("job-1", "v2")
	snap := s.Snapshot(3)
	assert.Equal(t, StatusSynced, snap.Status)
	assert.Equal(t, "v2", snap.Version)
	assert.Equal(t, 1, snap.CyclesRun)
	assert.Equal(t, 3, snap.PendingChanges)
	assert.False(t, snap.LastSyncAt.IsZero())
}

func TestSession_FailCycleRecordsError(t *testing.T) {
	s := NewSession()
	s.Resume("job-1", "v1")

	s.BeginCycle()
	s.FailCycle("backend exploded")

	snap := s.Snapshot(0)
	assert.Equal(t, StatusError, snap.Status)
	assert.Equal(t, "backend exploded", snap.LastError)

	// A later success clears the error
	s.CompleteCycle("job-1", "v2")
	snap = s.Snapshot(0)
	assert.Equal(t, StatusSynced, snap.Status)
	assert.Empty(t, snap.LastError)
}

func TestSession_DegradedClearsJobAssociation(t *testing.T) {
	s := NewSession()
	s.Resume("job-1", "v1")

	s.SetDegraded()

	snap := s.Snapshot(0)
	assert.Equal(t, StatusDegraded, snap.Status)
	assert.Empty(t, s.JobID())
}
