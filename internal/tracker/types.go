// Package tracker accumulates workspace changes between flushes.
//
// The Collector converts raw watcher events into pending changes,
// filtering noise and coalescing per path. The Scheduler decides when the
// accumulated changes are handed off as a batch.
package tracker

// Kind is the kind of change recorded for a path.
type Kind int

const (
	// Added indicates the file is new since the last flush.
	Added Kind = iota
	// Modified indicates the file's content changed.
	Modified
	// Deleted indicates the file was removed. Deleted changes carry no
	// content.
	Deleted
)

// String returns the wire name of the change kind.
func (k Kind) String() string {
	switch k {
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// PendingChange is one accumulated change for a path. A later event for
// the same path overwrites the earlier one; Modified then Deleted
// collapses to Deleted with no content.
type PendingChange struct {
	// Path is the normalized slash-separated path relative to the
	// workspace root.
	Path string

	// Kind is the change kind.
	Kind Kind

	// Content is the file content at event time. Nil for Deleted.
	Content []byte
}
