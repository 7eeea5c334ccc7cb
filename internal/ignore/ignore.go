// Package ignore decides which workspace paths take part in sync.
//
// Two rule families apply: directory names matched as whole path segments
// (dependency dirs, VCS metadata, build output), and wildcard suffix
// patterns on the file name (lockfiles, logs). Verdicts are cached per
// path because the same files fire events repeatedly during editing.
package ignore

import (
	"fmt"
	"path"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// verdictCacheSize bounds the per-path verdict cache. Editing sessions
// touch a small working set, so a modest cache covers nearly all lookups.
const verdictCacheSize = 4096

// DefaultDirs are directory segments that are never synced.
var DefaultDirs = []string{
	"node_modules",
	".git",
	".hg",
	".svn",
	"vendor",
	"dist",
	"build",
	"out",
	"target",
	"__pycache__",
	".venv",
	"venv",
	".idea",
	".vscode",
	".docudepth",
}

// DefaultGlobs are file name patterns that are never synced.
// A leading "*" matches any prefix; plain names match exactly.
var DefaultGlobs = []string{
	"*.lock",
	"*.log",
	"package-lock.json",
	"yarn.lock",
	"pnpm-lock.yaml",
}

// Matcher reports whether a relative path is excluded from sync.
type Matcher struct {
	dirs     map[string]struct{}
	suffixes []string
	exact    []string
	verdicts *lru.Cache[string, bool]
}

// New creates a Matcher from directory segments and file glob patterns.
// Empty slices fall back to the defaults.
func New(dirs, globs []string) (*Matcher, error) {
	if len(dirs) == 0 {
		dirs = DefaultDirs
	}
	if len(globs) == 0 {
		globs = DefaultGlobs
	}

	cache, err := lru.New[string, bool](verdictCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create verdict cache: %w", err)
	}

	m := &Matcher{
		dirs:     make(map[string]struct{}, len(dirs)),
		verdicts: cache,
	}
	for _, d := range dirs {
		m.dirs[d] = struct{}{}
	}
	for _, g := range globs {
		if strings.HasPrefix(g, "*") {
			m.suffixes = append(m.suffixes, strings.TrimPrefix(g, "*"))
		} else {
			m.exact = append(m.exact, g)
		}
	}

	return m, nil
}

// Excluded reports whether relPath is excluded from sync.
// relPath must be slash-separated and relative to the workspace root.
func (m *Matcher) Excluded(relPath string) bool {
	if v, ok := m.verdicts.Get(relPath); ok {
		return v
	}

	v := m.match(relPath)
	m.verdicts.Add(relPath, v)
	return v
}

func (m *Matcher) match(relPath string) bool {
	// Directory segments are matched whole, never as substrings:
	// "node_modules/a.js" is excluded, "my_node_modules_doc.md" is not.
	for _, seg := range strings.Split(relPath, "/") {
		if _, ok := m.dirs[seg]; ok {
			return true
		}
	}

	base := path.Base(relPath)
	for _, name := range m.exact {
		if base == name {
			return true
		}
	}
	for _, suffix := range m.suffixes {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}

	return false
}
