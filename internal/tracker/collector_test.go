package tracker

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docudepthai/docudepth/internal/ignore"
	"github.com/docudepthai/docudepth/internal/watcher"
)

func newTestCollector(t *testing.T, root string) *Collector {
	t.Helper()
	m, err := ignore.New(nil, nil)
	require.NoError(t, err)
	return NewCollector(root, m, 100*1024, nil)
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCollector_RecordsQualifyingEvent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main")
	c := newTestCollector(t, root)

	c.HandleEvent(watcher.FileEvent{Path: "main.go", Operation: watcher.OpCreate, Timestamp: time.Now()})

	batch := c.Take(0)
	require.Len(t, batch, 1)
	assert.Equal(t, "main.go", batch[0].Path)
	assert.Equal(t, Added, batch[0].Kind)
	assert.Equal(t, []byte("package main"), batch[0].Content)
}

func TestCollector_ExcludedPathsNeverRecorded(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "node_modules/pkg/index.js", "x")
	writeFile(t, root, "Cargo.lock", "x")
	c := newTestCollector(t, root)

	for _, op := range []watcher.Operation{watcher.OpCreate, watcher.OpModify, watcher.OpDelete} {
		c.HandleEvent(watcher.FileEvent{Path: filepath.Join("node_modules", "pkg", "index.js"), Operation: op})
		c.HandleEvent(watcher.FileEvent{Path: "Cargo.lock", Operation: op})
	}

	assert.Zero(t, c.Len())
}

func TestCollector_OversizedFileSkipped(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "big.txt", strings.Repeat("a", 100*1024+1))
	c := newTestCollector(t, root)

	c.HandleEvent(watcher.FileEvent{Path: "big.txt", Operation: watcher.OpModify})

	assert.Zero(t, c.Len())
}

func TestCollector_DeleteBypassesSizeCheck(t *testing.T) {
	root := t.TempDir()
	c := newTestCollector(t, root)

	// The file does not exist on disk; deletes carry no content and need
	// no read.
	c.HandleEvent(watcher.FileEvent{Path: "gone.go", Operation: watcher.OpDelete})

	batch := c.Take(0)
	require.Len(t, batch, 1)
	assert.Equal(t, Deleted, batch[0].Kind)
	assert.Nil(t, batch[0].Content)
}

func TestCollector_VanishedFileSkipped(t *testing.T) {
	root := t.TempDir()
	c := newTestCollector(t, root)

	// Modify event for a file that no longer exists: the read races the
	// deletion and the event is dropped rather than erroring.
	c.HandleEvent(watcher.FileEvent{Path: "racy.go", Operation: watcher.OpModify})

	assert.Zero(t, c.Len())
}

func TestCollector_DirectoryEventsIgnored(t *testing.T) {
	root := t.TempDir()
	c := newTestCollector(t, root)

	c.HandleEvent(watcher.FileEvent{Path: "src", Operation: watcher.OpCreate, IsDir: true})

	assert.Zero(t, c.Len())
}

func TestCollector_ModifiedThenDeletedCoalesces(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a")
	c := newTestCollector(t, root)

	c.HandleEvent(watcher.FileEvent{Path: "a.go", Operation: watcher.OpModify})
	require.NoError(t, os.Remove(filepath.Join(root, "a.go")))
	c.HandleEvent(watcher.FileEvent{Path: "a.go", Operation: watcher.OpDelete})

	batch := c.Take(0)
	require.Len(t, batch, 1)
	assert.Equal(t, Deleted, batch[0].Kind)
	assert.Nil(t, batch[0].Content)
}

func TestCollector_TakePreservesInsertionOrder(t *testing.T) {
	root := t.TempDir()
	c := newTestCollector(t, root)

	c.Record(PendingChange{Path: "b.go", Kind: Deleted})
	c.Record(PendingChange{Path: "a.go", Kind: Deleted})
	c.Record(PendingChange{Path: "c.go", Kind: Deleted})
	// Overwriting b.go must not move it to the back
	c.Record(PendingChange{Path: "b.go", Kind: Modified, Content: []byte("x")})

	batch := c.Take(0)
	require.Len(t, batch, 3)
	assert.Equal(t, "b.go", batch[0].Path)
	assert.Equal(t, Modified, batch[0].Kind)
	assert.Equal(t, "a.go", batch[1].Path)
	assert.Equal(t, "c.go", batch[2].Path)
}

func TestCollector_TakeCapRetainsOverflow(t *testing.T) {
	root := t.TempDir()
	c := newTestCollector(t, root)

	c.Record(PendingChange{Path: "1.go", Kind: Deleted})
	c.Record(PendingChange{Path: "2.go", Kind: Deleted})
	c.Record(PendingChange{Path: "3.go", Kind: Deleted})

	first := c.Take(2)
	require.Len(t, first, 2)
	assert.Equal(t, "1.go", first[0].Path)
	assert.Equal(t, "2.go", first[1].Path)

	// The overflow is retained, never dropped
	require.Equal(t, 1, c.Len())
	second := c.Take(2)
	require.Len(t, second, 1)
	assert.Equal(t, "3.go", second[0].Path)
	assert.Zero(t, c.Len())
}

func TestCollector_RestoreKeepsNewerEdits(t *testing.T) {
	root := t.TempDir()
	c := newTestCollector(t, root)

	c.Record(PendingChange{Path: "a.go", Kind: Modified, Content: []byte("old")})
	c.Record(PendingChange{Path: "b.go", Kind: Deleted})
	batch := c.Take(0)
	require.Len(t, batch, 2)

	// While the batch is in flight, a newer edit for a.go arrives
	c.Record(PendingChange{Path: "a.go", Kind: Modified, Content: []byte("new")})

	// The submit fails; the batch is restored
	c.Restore(batch)

	out := c.Take(0)
	require.Len(t, out, 2)
	byPath := map[string]PendingChange{}
	for _, ch := range out {
		byPath[ch.Path] = ch
	}
	// The newer content wins for a.go; b.go is restored as it was
	assert.Equal(t, []byte("new"), byPath["a.go"].Content)
	assert.Equal(t, Deleted, byPath["b.go"].Kind)
	// Restored changes flush before the newer edits
	assert.Equal(t, "b.go", out[0].Path)
}

func TestCollector_OnRecordSignal(t *testing.T) {
	root := t.TempDir()
	m, err := ignore.New(nil, nil)
	require.NoError(t, err)

	var signals int
	c := NewCollector(root, m, 100*1024, func() { signals++ })

	c.Record(PendingChange{Path: "a.go", Kind: Deleted})
	c.Record(PendingChange{Path: "a.go", Kind: Deleted})

	assert.Equal(t, 2, signals)
}
