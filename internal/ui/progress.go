// Package ui provides terminal progress output for long-running
// commands.
package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
)

// Stage represents a phase of the initial analysis flow.
type Stage int

const (
	// StageCollecting is the workspace snapshot stage.
	StageCollecting Stage = iota
	// StageUploading is the analysis submission stage.
	StageUploading
	// StageAnalyzing is the remote processing stage.
	StageAnalyzing
	// StageComplete indicates analysis is complete.
	StageComplete
)

// String returns the human-readable stage name.
func (s Stage) String() string {
	switch s {
	case StageCollecting:
		return "Collecting"
	case StageUploading:
		return "Uploading"
	case StageAnalyzing:
		return "Analyzing"
	case StageComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// Progress renders stage and percent updates. On a terminal it rewrites
// a single line in place; on a pipe or in CI it prints a line only when
// the stage or percent changes, so logs stay readable.
type Progress struct {
	mu        sync.Mutex
	out       io.Writer
	tty       bool
	lastStage Stage
	lastPct   int
	started   bool
}

// NewProgress creates a progress reporter writing to out.
func NewProgress(out io.Writer) *Progress {
	return &Progress{
		out:     out,
		tty:     IsTTY(out),
		lastPct: -1,
	}
}

// Update reports the current stage, percent, and optional message.
func (p *Progress) Update(stage Stage, percent int, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.tty {
		// Only emit on change to keep piped output quiet
		if p.started && stage == p.lastStage && percent == p.lastPct {
			return
		}
		p.printPlain(stage, percent, message)
	} else {
		p.printLine(stage, percent, message)
	}

	p.started = true
	p.lastStage = stage
	p.lastPct = percent
}

// Done finishes the progress display.
func (p *Progress) Done(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tty {
		_, _ = fmt.Fprintf(p.out, "\r\033[K%s\n", message)
	} else {
		_, _ = fmt.Fprintln(p.out, message)
	}
}

func (p *Progress) printPlain(stage Stage, percent int, message string) {
	if message != "" {
		_, _ = fmt.Fprintf(p.out, "%s: %d%% - %s\n", stage, percent, message)
	} else {
		_, _ = fmt.Fprintf(p.out, "%s: %d%%\n", stage, percent)
	}
}

func (p *Progress) printLine(stage Stage, percent int, message string) {
	if message != "" {
		_, _ = fmt.Fprintf(p.out, "\r\033[K%s... %d%% %s", stage, percent, message)
	} else {
		_, _ = fmt.Fprintf(p.out, "\r\033[K%s... %d%%", stage, percent)
	}
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}

	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	return false
}
