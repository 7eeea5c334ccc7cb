package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/docudepthai/docudepth/internal/config"
	"github.com/docudepthai/docudepth/internal/engine"
)

func newWatchCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the workspace and sync edits continuously",
		Long: `Watch the workspace for edits and ship them to the analysis service
in debounced batches, keeping the cached context map current.

Runs until interrupted. Only one instance may sync a workspace at a
time; a second instance exits immediately.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), cmd, dir)
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Workspace root to watch")

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, dir string) error {
	root, err := resolveRoot(dir)
	if err != nil {
		return err
	}

	cfg, err := config.Load(root)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	notify := func(message string) {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "docudepth: %s\n", message)
	}

	eng, err := engine.New(cfg, root, notify)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := eng.Start(ctx); err != nil {
		return err
	}

	status := eng.Status()
	if status.Status == engine.StatusIdle {
		_, _ = fmt.Fprintln(out, "No context map yet; run 'docudepth init' to create one. Edits will queue meanwhile.")
	} else {
		_, _ = fmt.Fprintf(out, "Watching %s (map version %s)\n", root, status.Version)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		_, _ = fmt.Fprintf(out, "\nReceived %s, shutting down\n", sig)
	case <-ctx.Done():
	}

	return eng.Stop()
}
