package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveAndLoad(t *testing.T) {
	// Given a store in a fresh directory
	store := NewStore(filepath.Join(t.TempDir(), "cache"))

	artifact := json.RawMessage(`{"symbols":{"main":"func"}}`)
	meta := Metadata{JobID: "job-42", Version: "v3"}

	// When saving and loading
	require.NoError(t, store.Save(artifact, meta))

	snap, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, snap)

	// Then the artifact and metadata round-trip
	assert.JSONEq(t, string(artifact), string(snap.Artifact))
	require.NotNil(t, snap.Meta)
	assert.Equal(t, "job-42", snap.Meta.JobID)
	assert.Equal(t, "v3", snap.Meta.Version)
	assert.False(t, snap.Meta.SavedAt.IsZero())
	assert.False(t, snap.Degraded())
}

func TestStore_LoadEmpty(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "cache"))

	snap, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestStore_MissingMetadataIsDegraded(t *testing.T) {
	// Given an artifact written without metadata, as a crash between the
	// two renames would leave it
	dir := filepath.Join(t.TempDir(), "cache")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, artifactFileName), []byte(`{"ok":true}`), 0644))

	store := NewStore(dir)
	snap, err := store.Load()

	// Then the artifact loads but the snapshot is degraded
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.JSONEq(t, `{"ok":true}`, string(snap.Artifact))
	assert.Nil(t, snap.Meta)
	assert.True(t, snap.Degraded())
}

func TestStore_CorruptMetadataIsDegraded(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	store := NewStore(dir)
	require.NoError(t, store.Save(json.RawMessage(`{}`), Metadata{JobID: "job-1", Version: "v1"}))

	// Corrupt the metadata file in place
	require.NoError(t, os.WriteFile(filepath.Join(dir, metadataFileName), []byte("{not json"), 0644))

	snap, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Nil(t, snap.Meta)
	assert.True(t, snap.Degraded())
}

func TestStore_CrashMidSaveNeverMismatches(t *testing.T) {
	// Given a fully saved cache for job-1
	dir := filepath.Join(t.TempDir(), "cache")
	store := NewStore(dir)
	require.NoError(t, store.Save(json.RawMessage(`{"v":1}`), Metadata{JobID: "job-1", Version: "v1"}))

	// Simulate a crash during a second save for job-2: the new artifact
	// was promoted but the metadata write never happened
	require.NoError(t, os.Remove(filepath.Join(dir, metadataFileName)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, artifactFileName), []byte(`{"v":2}`), 0644))

	// Then the load must never pair the new artifact with job-1 metadata
	snap, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.JSONEq(t, `{"v":2}`, string(snap.Artifact))
	assert.True(t, snap.Degraded())
}

func TestStore_SaveOverwritesPrevious(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "cache"))

	require.NoError(t, store.Save(json.RawMessage(`{"v":1}`), Metadata{JobID: "job-1", Version: "v1"}))
	require.NoError(t, store.Save(json.RawMessage(`{"v":2}`), Metadata{JobID: "job-2", Version: "v2"}))

	snap, err := store.Load()
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(snap.Artifact))
	assert.Equal(t, "v2", snap.Meta.Version)
}

func TestStore_NoTempFilesLeftBehind(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	store := NewStore(dir)
	require.NoError(t, store.Save(json.RawMessage(`{}`), Metadata{JobID: "job-1", Version: "v1"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

func TestStore_SavedAtDefaultsToNow(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "cache"))
	before := time.Now().UTC().Add(-time.Second)

	require.NoError(t, store.Save(json.RawMessage(`{}`), Metadata{JobID: "job-1", Version: "v1"}))

	snap, err := store.Load()
	require.NoError(t, err)
	assert.True(t, snap.Meta.SavedAt.After(before))
}

func TestFileLock_TryLockAndUnlock(t *testing.T) {
	dir := t.TempDir()

	lock := NewFileLock(dir)
	acquired, err := lock.TryLock()
	require.NoError(t, err)
	assert.True(t, acquired)

	// A second lock on the same directory must fail while held
	other := NewFileLock(dir)
	acquired2, err := other.TryLock()
	require.NoError(t, err)
	assert.False(t, acquired2)

	// After release the second lock succeeds
	require.NoError(t, lock.Unlock())
	acquired3, err := other.TryLock()
	require.NoError(t, err)
	assert.True(t, acquired3)
	require.NoError(t, other.Unlock())
}

func TestFileLock_UnlockWithoutLockIsNoop(t *testing.T) {
	lock := NewFileLock(t.TempDir())
	assert.NoError(t, lock.Unlock())
	assert.NoError(t, lock.Unlock())
}
