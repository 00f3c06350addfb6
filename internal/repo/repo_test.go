package repo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("# "+rel+"\n"), 0o644))
}

func TestDiscoverFindsMarkdownSorted(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README.md")
	writeFile(t, root, "docs/guide.md")
	writeFile(t, root, "docs/api.mdx")
	writeFile(t, root, "docs/notes.txt")

	paths, err := Discover(root, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"README.md", "docs/api.mdx", "docs/guide.md"}, paths)
}

func TestDiscoverExclusions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README.md")
	writeFile(t, root, "node_modules/pkg/README.md")
	writeFile(t, root, ".github/PULL_REQUEST_TEMPLATE.md")
	writeFile(t, root, "build/output.md")
	writeFile(t, root, "tests/fixtures.md")
	writeFile(t, root, "LICENSE.md")
	writeFile(t, root, "CONTRIBUTING.md")
	writeFile(t, root, "docs/SECURITY.md")
	writeFile(t, root, "docs/real.md")

	paths, err := Discover(root, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"README.md", "docs/real.md"}, paths)
}

func TestDiscoverIncludeFolders(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README.md")
	writeFile(t, root, "docs/guide.md")
	writeFile(t, root, "examples/demo.md")

	paths, err := Discover(root, []string{"docs"})
	require.NoError(t, err)
	// Root documents always survive the allow-list
	assert.Equal(t, []string{"README.md", "docs/guide.md"}, paths)
}

func TestPrepareLocalDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README.md")

	snap, err := Prepare(context.Background(), zap.NewNop(), root, t.TempDir(), false)
	require.NoError(t, err)
	assert.Equal(t, root, snap.Root)
	assert.False(t, snap.Cloned)
	assert.NotEmpty(t, snap.Key)
}

func TestPrepareMissingSource(t *testing.T) {
	_, err := Prepare(context.Background(), zap.NewNop(), "/does/not/exist", t.TempDir(), false)
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

func TestReadOverview(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README.md")
	writeFile(t, root, "docs/intro.md")

	assert.Contains(t, ReadOverview(root, ""), "README.md")
	assert.Contains(t, ReadOverview(root, "docs/intro.md"), "docs/intro.md")
	assert.Empty(t, ReadOverview(root, "missing.md"))
}

func TestRepoNameFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://github.com/acme/widgets.git", "widgets"},
		{"https://github.com/acme/widgets", "widgets"},
		{"git@github.com:acme/widgets.git", "widgets"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, repoNameFromURL(tt.url), tt.url)
	}
}

func TestSourceKeyStable(t *testing.T) {
	a := sourceKey("https://github.com/acme/widgets.git")
	b := sourceKey("https://github.com/acme/widgets")
	assert.Equal(t, a, b)
}

func TestIsGitURL(t *testing.T) {
	assert.True(t, isGitURL("https://github.com/acme/widgets.git"))
	assert.True(t, isGitURL("git@github.com:acme/widgets.git"))
	assert.False(t, isGitURL("/home/user/docs"))
	assert.False(t, isGitURL("./relative"))
}
