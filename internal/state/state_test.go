package state

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursecraft/coursecraft-mcp/pkg/types"
)

func TestProfileLifecycle(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Profile()
	assert.ErrorIs(t, err, ErrNotFound)

	created, err := store.CreateProfile("user@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, created.UserID)
	assert.Len(t, created.Secret, 64) // 32 bytes hex encoded

	loaded, err := store.Profile()
	require.NoError(t, err)
	assert.Equal(t, created.UserID, loaded.UserID)
	assert.Equal(t, created.Secret, loaded.Secret)
	assert.Equal(t, "user@example.com", loaded.Email)
}

func TestProfileFilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not meaningful on windows")
	}

	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	_, err = store.CreateProfile("")
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, "profile.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestCourseStateRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.CourseState()
	assert.ErrorIs(t, err, ErrNotFound)

	cs := &types.CourseState{
		Title: "Demo", Level: types.Beginner,
		Modules: []types.ModuleState{
			{Name: "basics", Steps: []types.StepState{
				{Name: "introduction", Status: types.StatusInProgress},
			}},
		},
		CurrentModule: "basics",
		TotalSteps:    1,
	}
	require.NoError(t, store.SaveCourseState(cs))

	loaded, err := store.CourseState()
	require.NoError(t, err)
	assert.Equal(t, "Demo", loaded.Title)
	assert.Equal(t, types.Beginner, loaded.Level)
	assert.Equal(t, types.StatusInProgress, loaded.Modules[0].Steps[0].Status)
	assert.False(t, loaded.UpdatedAt.IsZero())
}

func TestClearCourseState(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	existed, err := store.ClearCourseState()
	require.NoError(t, err)
	assert.False(t, existed)

	require.NoError(t, store.SaveCourseState(&types.CourseState{Title: "Demo"}))

	existed, err = store.ClearCourseState()
	require.NoError(t, err)
	assert.True(t, existed)

	_, err = store.CourseState()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClearCourseStateKeepsProfile(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.CreateProfile("")
	require.NoError(t, err)
	require.NoError(t, store.SaveCourseState(&types.CourseState{Title: "Demo"}))

	_, err = store.ClearCourseState()
	require.NoError(t, err)

	_, err = store.Profile()
	assert.NoError(t, err)
}

func TestCorruptStateSurfacesError(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "course_state.json"),
		[]byte("{not json"), 0o600))

	_, err = store.CourseState()
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
