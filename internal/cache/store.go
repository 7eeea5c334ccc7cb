// Package cache persists the context map artifact and its metadata on
// disk, under the workspace cache directory.
//
// The artifact is an opaque JSON document produced remotely; metadata
// records which job and version produced it. Both are written atomically
// (temp file + rename), artifact first. A cache with an artifact but no
// readable metadata is degraded, not broken: the artifact still serves
// reads, but incremental sync cannot resume until a full analysis runs.
package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const (
	// artifactFileName is the context map artifact within the cache dir.
	artifactFileName = "contextmap.json"

	// metadataFileName is the sync metadata within the cache dir.
	metadataFileName = "metadata.json"
)

// Metadata records the provenance of the cached artifact.
type Metadata struct {
	JobID   string    `json:"job_id"`
	Version string    `json:"version"`
	SavedAt time.Time `json:"saved_at"`
}

// Snapshot is the loaded cache state. Meta is nil when the metadata file
// is missing or unreadable, which marks the cache as degraded.
type Snapshot struct {
	Artifact json.RawMessage
	Meta     *Metadata
}

// Degraded reports whether the artifact lacks usable metadata.
func (s *Snapshot) Degraded() bool {
	return s.Meta == nil
}

// Store reads and writes the cache directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir. The directory is created on
// first save, not here.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the cache directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Save persists the artifact and its metadata atomically.
//
// The stale metadata is removed before the new artifact is promoted, so
// a crash anywhere in the sequence leaves either the old pair, or the
// new artifact in the degraded no-metadata state. A mismatched pair
// (new artifact, old metadata) is never readable. A metadata write
// failure is logged and swallowed for the same reason: the degraded
// state is recoverable, a mismatch is not.
func (s *Store) Save(artifact json.RawMessage, meta Metadata) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	artifactPath := filepath.Join(s.dir, artifactFileName)
	metadataPath := filepath.Join(s.dir, metadataFileName)

	tmpPath := artifactPath + ".tmp"
	if err := os.WriteFile(tmpPath, artifact, 0644); err != nil {
		return fmt.Errorf("failed to save artifact: %w", err)
	}
	if err := os.Remove(metadataPath); err != nil && !os.IsNotExist(err) {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to invalidate metadata: %w", err)
	}
	if err := os.Rename(tmpPath, artifactPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save artifact: %w", err)
	}

	if meta.SavedAt.IsZero() {
		meta.SavedAt = time.Now().UTC()
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if err := writeAtomic(metadataPath, data); err != nil {
		slog.Warn("metadata write failed, cache is stale until next sync",
			slog.String("path", metadataPath),
			slog.String("error", err.Error()))
	}

	return nil
}

// Load reads the cache state. Returns (nil, nil) when no artifact exists.
// A missing or unreadable metadata file yields a Snapshot with Meta nil
// rather than an error.
func (s *Store) Load() (*Snapshot, error) {
	artifactPath := filepath.Join(s.dir, artifactFileName)

	artifact, err := os.ReadFile(artifactPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	snap := &Snapshot{Artifact: artifact}

	metadataPath := filepath.Join(s.dir, metadataFileName)
	data, err := os.ReadFile(metadataPath)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("metadata unreadable, treating cache as degraded",
				slog.String("path", metadataPath),
				slog.String("error", err.Error()))
		}
		return snap, nil
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		slog.Warn("metadata corrupted, treating cache as degraded",
			slog.String("path", metadataPath),
			slog.String("error", err.Error()))
		return snap, nil
	}

	snap.Meta = &meta
	return snap, nil
}

// writeAtomic writes data to path via a temp file and rename.
func writeAtomic(path string, data []byte) error {
	tmpPath := path + ".tmp"

	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		// Clean up temp file on failure
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename into place: %w", err)
	}

	return nil
}
