package ignore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_ExcludedDirSegments(t *testing.T) {
	m, err := New(nil, nil)
	require.NoError(t, err)

	tests := []struct {
		path string
		want bool
	}{
		{"node_modules/lodash/index.js", true},
		{"src/node_modules/pkg/a.js", true},
		{".git/HEAD", true},
		{"vendor/github.com/pkg/errors/errors.go", true},
		{"dist/bundle.js", true},
		{".docudepth/contextmap.json", true},
		{"src/main.go", false},
		{"docs/readme.md", false},
		// Segment match, not substring match
		{"my_node_modules_doc.md", false},
		{"src/distillery/still.go", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, m.Excluded(tt.path), "path %q", tt.path)
	}
}

func TestMatcher_ExcludedGlobs(t *testing.T) {
	m, err := New(nil, nil)
	require.NoError(t, err)

	assert.True(t, m.Excluded("Cargo.lock"))
	assert.True(t, m.Excluded("sub/dir/poetry.lock"))
	assert.True(t, m.Excluded("debug.log"))
	assert.True(t, m.Excluded("package-lock.json"))
	assert.True(t, m.Excluded("yarn.lock"))

	assert.False(t, m.Excluded("lockfile_parser.go"))
	assert.False(t, m.Excluded("src/logger.go"))
}

func TestMatcher_CustomRules(t *testing.T) {
	m, err := New([]string{"generated"}, []string{"*.tmp"})
	require.NoError(t, err)

	assert.True(t, m.Excluded("generated/api.go"))
	assert.True(t, m.Excluded("scratch.tmp"))

	// Custom rules replace the defaults
	assert.False(t, m.Excluded("node_modules/a.js"))
	assert.False(t, m.Excluded("Cargo.lock"))
}

func TestMatcher_VerdictsAreStable(t *testing.T) {
	m, err := New(nil, nil)
	require.NoError(t, err)

	// Repeated lookups go through the cache and must agree
	for i := 0; i < 3; i++ {
		assert.True(t, m.Excluded("node_modules/a.js"))
		assert.False(t, m.Excluded("src/a.js"))
	}
}
