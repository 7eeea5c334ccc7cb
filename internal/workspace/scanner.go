// Package workspace snapshots the files of a workspace for full
// analysis submission.
package workspace

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/docudepthai/docudepth/internal/ignore"
)

// File is one workspace file with its content.
type File struct {
	Path    string // relative, slash-separated
	Content []byte
}

// Collect walks the workspace rooted at root and reads every qualifying
// file. Exclusion rules and the size ceiling match what the change
// tracker applies, so the initial snapshot and later incremental updates
// describe the same file population. Oversized and vanished files are
// skipped silently. Results are sorted by path for a stable submission
// order.
func Collect(ctx context.Context, root string, matcher *ignore.Matcher, maxFileSize int64) ([]File, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path is not a directory: %s", absRoot)
	}

	// Discovery is a single walk; reads fan out to workers
	paths := make(chan string, runtime.NumCPU()*4)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(paths)
		return filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				// Skip inaccessible entries
				return nil
			}

			rel, relErr := filepath.Rel(absRoot, path)
			if relErr != nil {
				return nil
			}
			rel = filepath.ToSlash(rel)

			if d.IsDir() {
				if rel != "." && matcher.Excluded(rel) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			if matcher.Excluded(rel) {
				return nil
			}

			select {
			case paths <- rel:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	})

	var mu sync.Mutex
	var files []File

	workers := runtime.NumCPU()
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for rel := range paths {
				full := filepath.Join(absRoot, filepath.FromSlash(rel))

				fi, err := os.Stat(full)
				if err != nil || fi.Size() > maxFileSize {
					continue
				}

				content, err := os.ReadFile(full)
				if err != nil {
					// Vanished between stat and read
					continue
				}
				if int64(len(content)) > maxFileSize {
					continue
				}

				mu.Lock()
				files = append(files, File{Path: rel, Content: content})
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}
