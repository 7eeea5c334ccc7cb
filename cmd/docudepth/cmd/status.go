package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/docudepthai/docudepth/internal/cache"
	"github.com/docudepthai/docudepth/internal/config"
)

// statusInfo is what 'docudepth status' reports about the local cache.
type statusInfo struct {
	Root         string    `json:"root"`
	CacheDir     string    `json:"cache_dir"`
	HasArtifact  bool      `json:"has_artifact"`
	Degraded     bool      `json:"degraded"`
	JobID        string    `json:"job_id,omitempty"`
	Version      string    `json:"version,omitempty"`
	LastSyncedAt time.Time `json:"last_synced_at,omitempty"`
}

func newStatusCmd() *cobra.Command {
	var dir string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of the cached context map",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, dir, jsonOutput)
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Workspace root to inspect")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runStatus(cmd *cobra.Command, dir string, jsonOutput bool) error {
	root, err := resolveRoot(dir)
	if err != nil {
		return err
	}

	cfg, err := config.Load(root)
	if err != nil {
		return err
	}

	info := statusInfo{
		Root:     root,
		CacheDir: cfg.CachePath(root),
	}

	snap, err := cache.NewStore(info.CacheDir).Load()
	if err != nil {
		return fmt.Errorf("read cache: %w", err)
	}
	if snap != nil {
		info.HasArtifact = true
		info.Degraded = snap.Degraded()
		if snap.Meta != nil {
			info.JobID = snap.Meta.JobID
			info.Version = snap.Meta.Version
			info.LastSyncedAt = snap.Meta.SavedAt
		}
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	if !info.HasArtifact {
		_, _ = fmt.Fprintf(out, "No context map in %s\nRun 'docudepth init' to create one\n", info.CacheDir)
		return nil
	}

	if info.Degraded {
		_, _ = fmt.Fprintf(out, "Context map: present (metadata missing)\n")
		_, _ = fmt.Fprintf(out, "Sync:        unavailable until 'docudepth init' runs again\n")
		return nil
	}

	_, _ = fmt.Fprintf(out, "Context map: %s\n", info.Version)
	_, _ = fmt.Fprintf(out, "Job:         %s\n", info.JobID)
	_, _ = fmt.Fprintf(out, "Last synced: %s\n", info.LastSyncedAt.Local().Format(time.RFC1123))
	return nil
}
