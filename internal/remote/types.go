// Package remote is the client for the DocuDepth analysis service.
//
// The service is an opaque job API: a full analysis or an incremental
// update is submitted, the job progresses through status states, and the
// finished context map is fetched as an opaque JSON document. Errors are
// classified here, at the transport boundary, as transient or permanent.
package remote

import "encoding/json"

// JobState is the remote-reported state of an analysis job.
type JobState string

const (
	// StateQueued indicates the job is waiting to be processed.
	StateQueued JobState = "queued"
	// StateProcessing indicates the job is being processed.
	StateProcessing JobState = "processing"
	// StateCompleted indicates the job finished successfully.
	StateCompleted JobState = "completed"
	// StateFailed indicates the job terminated with a failure.
	StateFailed JobState = "failed"
)

// Terminal reports whether the state is a terminal one.
func (s JobState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// JobStatus is one status poll result.
type JobStatus struct {
	JobID           string   `json:"job_id"`
	State           JobState `json:"state"`
	ProgressPercent int      `json:"progress_percent"`
	ProgressMessage string   `json:"progress_message"`
	ErrorMessage    string   `json:"error_message,omitempty"`
}

// File is one workspace file snapshot for a full analysis submission.
type File struct {
	Path    string `json:"path"`
	Content []byte `json:"content"`
}

// RepoMeta describes the workspace being analyzed.
type RepoMeta struct {
	Name      string `json:"name"`
	FileCount int    `json:"file_count"`
}

// ChangeUpload is one incremental change shipped to the update endpoint.
// Content is omitted for deletions.
type ChangeUpload struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"`
	Content []byte `json:"content,omitempty"`
}

// UpdateResult is the response of a successful incremental update.
type UpdateResult struct {
	JobID    string          `json:"job_id"`
	Version  string          `json:"version"`
	Artifact json.RawMessage `json:"artifact"`
}

// analyzeRequest is the full-analysis submission body.
type analyzeRequest struct {
	Repo  RepoMeta `json:"repo"`
	Files []File   `json:"files"`
}

// analyzeResponse is the full-analysis submission response.
type analyzeResponse struct {
	JobID string `json:"job_id"`
}

// updateRequest is the incremental-update submission body.
type updateRequest struct {
	Changes []ChangeUpload `json:"changes"`
}

// resultResponse wraps the fetched artifact.
type resultResponse struct {
	Version  string          `json:"version"`
	Artifact json.RawMessage `json:"artifact"`
}
