package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/coursecraft/coursecraft-mcp/internal/classify"
	"github.com/coursecraft/coursecraft-mcp/internal/course"
	"github.com/coursecraft/coursecraft-mcp/internal/storage"
	"github.com/coursecraft/coursecraft-mcp/pkg/types"
)

func staticFactory() classify.Factory {
	return func() (classify.Service, error) {
		return classify.NewStaticService(nil), nil
	}
}

func docRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"README.md":      "# Demo Project\n\nAn example project.\n",
		"docs/guide.md":  "# Guide\n\nHow to use it.\n",
		"docs/api.md":    "# API Reference\n\nEndpoints.\n",
		"docs/addons.md": "# Addons\n\nExtending the project.\n",
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func newPipeline(t *testing.T) (*Pipeline, storage.Storage) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return New(store, staticFactory(), t.TempDir(), zap.NewNop()), store
}

func TestRunEndToEnd(t *testing.T) {
	p, _ := newPipeline(t)
	out := t.TempDir()

	result, err := p.Run(context.Background(), Options{
		Source: docRepo(t),
		Output: out,
		Levels: []types.Complexity{types.Beginner},
	})
	require.NoError(t, err)

	assert.Equal(t, 4, result.Documents)
	assert.False(t, result.FromCache)
	assert.Equal(t, []types.Complexity{types.Beginner}, result.Courses)

	// The export is complete and scannable
	scanner := course.NewScanner(out)
	state, err := scanner.FreshState(types.Beginner)
	require.NoError(t, err)
	assert.NotEmpty(t, state.Modules)
	assert.Equal(t, types.StatusNotStarted, state.Modules[0].Status)
}

func TestRunUsesCacheOnSecondRun(t *testing.T) {
	p, _ := newPipeline(t)
	src := docRepo(t)

	first, err := p.Run(context.Background(), Options{
		Source: src, Output: t.TempDir(),
		Levels: []types.Complexity{types.Beginner},
	})
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := p.Run(context.Background(), Options{
		Source: src, Output: t.TempDir(),
		Levels: []types.Complexity{types.Beginner},
	})
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Documents, second.Documents)
}

func TestRunRebuildBypassesCache(t *testing.T) {
	p, _ := newPipeline(t)
	src := docRepo(t)

	_, err := p.Run(context.Background(), Options{
		Source: src, Output: t.TempDir(),
		Levels: []types.Complexity{types.Beginner},
	})
	require.NoError(t, err)

	result, err := p.Run(context.Background(), Options{
		Source: src, Output: t.TempDir(), Rebuild: true,
		Levels: []types.Complexity{types.Beginner},
	})
	require.NoError(t, err)
	assert.False(t, result.FromCache)
}

func TestRunFailsWithoutDocuments(t *testing.T) {
	p, _ := newPipeline(t)

	_, err := p.Run(context.Background(), Options{
		Source: t.TempDir(), Output: t.TempDir(),
	})
	assert.ErrorIs(t, err, ErrNoDocuments)
}

func TestRunWithoutStore(t *testing.T) {
	p := New(nil, staticFactory(), t.TempDir(), zap.NewNop())

	result, err := p.Run(context.Background(), Options{
		Source: docRepo(t), Output: t.TempDir(),
		Levels: []types.Complexity{types.Intermediate},
	})
	require.NoError(t, err)
	assert.Equal(t, []types.Complexity{types.Intermediate}, result.Courses)
}

func TestRunAllLevelsByDefault(t *testing.T) {
	p, _ := newPipeline(t)
	out := t.TempDir()

	result, err := p.Run(context.Background(), Options{
		Source: docRepo(t), Output: out,
	})
	require.NoError(t, err)
	assert.Len(t, result.Courses, 3)

	scanner := course.NewScanner(out)
	levels, err := scanner.ListCourses()
	require.NoError(t, err)
	assert.Len(t, levels, 3)
}
