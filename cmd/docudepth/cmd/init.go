package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/docudepthai/docudepth/configs"
	"github.com/docudepthai/docudepth/internal/config"
	"github.com/docudepthai/docudepth/internal/engine"
	"github.com/docudepthai/docudepth/internal/remote"
	"github.com/docudepthai/docudepth/internal/ui"
)

func newInitCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Analyze the workspace and build the initial context map",
		Long: `Snapshot the workspace, submit it to the analysis service, and wait
for the context map to be computed. The map is cached locally and
incremental sync picks up from it.

Requires DOCUDEPTH_TOKEN (or api.token in .docudepth.yaml) to be set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.Context(), cmd, dir)
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Workspace root to analyze")

	return cmd
}

func runInit(ctx context.Context, cmd *cobra.Command, dir string) error {
	root, err := resolveRoot(dir)
	if err != nil {
		return err
	}

	if created, err := scaffoldConfig(root); err != nil {
		return err
	} else if created {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", config.FileName)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return err
	}

	eng, err := engine.New(cfg, root, nil)
	if err != nil {
		return err
	}

	progress := ui.NewProgress(cmd.OutOrStdout())
	progress.Update(ui.StageCollecting, 0, root)

	err = eng.Initialize(ctx, func(status remote.JobStatus) {
		progress.Update(ui.StageAnalyzing, status.ProgressPercent, status.ProgressMessage)
	})
	if err != nil {
		return fmt.Errorf("initial analysis: %w", err)
	}

	progress.Done(fmt.Sprintf("Context map ready in %s", cfg.CachePath(root)))
	return nil
}

// scaffoldConfig writes the embedded config template when the workspace
// has none yet. Reports whether a file was created.
func scaffoldConfig(root string) (bool, error) {
	path := filepath.Join(root, config.FileName)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("check %s: %w", config.FileName, err)
	}

	if err := os.WriteFile(path, []byte(configs.ProjectConfigTemplate), 0644); err != nil {
		return false, fmt.Errorf("write %s: %w", config.FileName, err)
	}
	return true, nil
}

// resolveRoot turns a --dir argument into an absolute workspace root.
func resolveRoot(dir string) (string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("workspace root %q: %w", dir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("workspace root %q is not a directory", dir)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	return abs, nil
}
