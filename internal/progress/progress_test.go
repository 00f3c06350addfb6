package progress

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/coursecraft/coursecraft-mcp/internal/state"
	"github.com/coursecraft/coursecraft-mcp/pkg/types"
)

// fakeContent is an in-memory ContentSource
type fakeContent struct {
	modules map[types.Complexity][]fakeModule
	title   string
}

type fakeModule struct {
	name  string
	steps []string
}

func newFakeContent() *fakeContent {
	return &fakeContent{
		title:   "Demo Course",
		modules: map[types.Complexity][]fakeModule{},
	}
}

func (f *fakeContent) setCourse(level types.Complexity, modules ...fakeModule) {
	f.modules[level] = modules
}

func (f *fakeContent) ListCourses() ([]types.Complexity, error) {
	var levels []types.Complexity
	for l := range f.modules {
		levels = append(levels, l)
	}
	return levels, nil
}

func (f *fakeContent) FreshState(level types.Complexity) (*types.CourseState, error) {
	mods, ok := f.modules[level]
	if !ok {
		return nil, fmt.Errorf("no %s course", level)
	}
	cs := &types.CourseState{Title: f.title, Level: level}
	for _, m := range mods {
		ms := types.ModuleState{Name: m.name}
		for _, s := range m.steps {
			ms.Steps = append(ms.Steps, types.StepState{Name: s})
		}
		ms.Recompute()
		cs.Modules = append(cs.Modules, ms)
		cs.TotalSteps += len(m.steps)
	}
	if len(cs.Modules) > 0 {
		cs.CurrentModule = cs.Modules[0].Name
	}
	return cs, nil
}

func (f *fakeContent) ReadStep(level types.Complexity, module, step string) (string, error) {
	return fmt.Sprintf("content of %s/%s/%s", level, module, step), nil
}

func (f *fakeContent) ReadWelcome(types.Complexity) string    { return "welcome" }
func (f *fakeContent) ReadConclusion(types.Complexity) string { return "conclusion" }

func newTracker(t *testing.T, content ContentSource) *Tracker {
	t.Helper()
	store, err := state.NewStore(t.TempDir())
	require.NoError(t, err)
	return NewTracker(store, content, zap.NewNop())
}

func registeredTracker(t *testing.T, content ContentSource) *Tracker {
	t.Helper()
	tr := newTracker(t, content)
	_, err := tr.Register("")
	require.NoError(t, err)
	return tr
}

func twoModuleContent() *fakeContent {
	f := newFakeContent()
	f.setCourse(types.Beginner,
		fakeModule{name: "basics", steps: []string{"introduction", "main-content"}},
		fakeModule{name: "advanced", steps: []string{"introduction", "summary"}},
	)
	return f
}

func TestRegisterTwiceFails(t *testing.T) {
	tr := newTracker(t, newFakeContent())

	p, err := tr.Register("a@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, p.UserID)

	_, err = tr.Register("a@example.com")
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestStartRequiresRegistration(t *testing.T) {
	tr := newTracker(t, twoModuleContent())
	_, err := tr.StartOrResume(types.Beginner)
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestStartUnknownCourse(t *testing.T) {
	tr := registeredTracker(t, twoModuleContent())
	_, err := tr.StartOrResume(types.Advanced)
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestStartFreshPromotesFirstStep(t *testing.T) {
	tr := registeredTracker(t, twoModuleContent())

	step, err := tr.StartOrResume(types.Beginner)
	require.NoError(t, err)

	assert.Equal(t, "basics", step.Module)
	assert.Equal(t, "introduction", step.Step)
	assert.Contains(t, step.Content, "basics/introduction")
	assert.False(t, step.Completed)
	assert.Equal(t, 0, step.CompletedSteps)
	assert.Equal(t, 4, step.TotalSteps)
}

func TestFreshStartShowsWelcome(t *testing.T) {
	tr := registeredTracker(t, twoModuleContent())

	step, err := tr.StartOrResume(types.Beginner)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(step.Content, "welcome"))

	// Resuming skips the welcome and shows only the step
	step, err = tr.StartOrResume(types.Beginner)
	require.NoError(t, err)
	assert.NotContains(t, step.Content, "welcome")
}

func TestWalkthroughToCompletion(t *testing.T) {
	tr := registeredTracker(t, twoModuleContent())

	_, err := tr.StartOrResume(types.Beginner)
	require.NoError(t, err)

	expected := [][2]string{
		{"basics", "main-content"},
		{"advanced", "introduction"},
		{"advanced", "summary"},
	}
	for i, want := range expected {
		step, err := tr.Advance()
		require.NoError(t, err)
		assert.Equal(t, want[0], step.Module, "advance %d", i)
		assert.Equal(t, want[1], step.Step, "advance %d", i)
		assert.Equal(t, i+1, step.CompletedSteps)
	}

	// Completing the last step reports course completion
	final, err := tr.Advance()
	require.NoError(t, err)
	assert.True(t, final.Completed)
	assert.Equal(t, 4, final.CompletedSteps)
	assert.Equal(t, "conclusion", final.Content)
}

func TestTerminalAdvanceIsIdempotent(t *testing.T) {
	tr := registeredTracker(t, twoModuleContent())
	_, err := tr.StartOrResume(types.Beginner)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := tr.Advance()
		require.NoError(t, err)
	}

	// Repeated advances at the end change nothing and never error
	for i := 0; i < 3; i++ {
		step, err := tr.Advance()
		require.NoError(t, err)
		assert.True(t, step.Completed)
		assert.Equal(t, 4, step.CompletedSteps)
	}

	report, err := tr.Status()
	require.NoError(t, err)
	assert.True(t, report.Completed)
}

func TestProgressIsMonotonic(t *testing.T) {
	tr := registeredTracker(t, twoModuleContent())
	_, err := tr.StartOrResume(types.Beginner)
	require.NoError(t, err)

	prev := 0
	for i := 0; i < 4; i++ {
		step, err := tr.Advance()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, step.CompletedSteps, prev)
		prev = step.CompletedSteps
	}
}

func TestAdvanceWithoutProgress(t *testing.T) {
	tr := registeredTracker(t, twoModuleContent())
	_, err := tr.Advance()
	assert.ErrorIs(t, err, ErrNoProgress)
}

func TestStatusWithoutProgress(t *testing.T) {
	tr := registeredTracker(t, twoModuleContent())
	_, err := tr.Status()
	assert.ErrorIs(t, err, ErrNoProgress)
}

func TestStatusReport(t *testing.T) {
	tr := registeredTracker(t, twoModuleContent())
	_, err := tr.StartOrResume(types.Beginner)
	require.NoError(t, err)
	_, err = tr.Advance()
	require.NoError(t, err)

	report, err := tr.Status()
	require.NoError(t, err)

	assert.Equal(t, "Demo Course", report.Title)
	assert.Equal(t, types.Beginner, report.Level)
	assert.Equal(t, 1, report.CompletedSteps)
	assert.Equal(t, 4, report.TotalSteps)
	assert.Equal(t, "basics", report.CurrentModule)
	assert.Equal(t, "main-content", report.CurrentStep)
	require.Len(t, report.Modules, 2)
	assert.Equal(t, types.StatusInProgress, report.Modules[0].Status)
	assert.Equal(t, types.StatusNotStarted, report.Modules[1].Status)
}

func TestResumeKeepsPosition(t *testing.T) {
	content := twoModuleContent()
	tr := registeredTracker(t, content)

	_, err := tr.StartOrResume(types.Beginner)
	require.NoError(t, err)
	_, err = tr.Advance()
	require.NoError(t, err)

	// Resuming lands on the same step, not the beginning
	step, err := tr.StartOrResume(types.Beginner)
	require.NoError(t, err)
	assert.Equal(t, "basics", step.Module)
	assert.Equal(t, "main-content", step.Step)
	assert.Equal(t, 1, step.CompletedSteps)
}

func TestResumeAfterCourseRegeneration(t *testing.T) {
	content := twoModuleContent()
	tr := registeredTracker(t, content)

	_, err := tr.StartOrResume(types.Beginner)
	require.NoError(t, err)
	_, err = tr.Advance() // basics/introduction completed
	require.NoError(t, err)

	// The course is regenerated with a new module in the middle and one
	// module renamed away
	content.setCourse(types.Beginner,
		fakeModule{name: "basics", steps: []string{"introduction", "main-content"}},
		fakeModule{name: "intermediate", steps: []string{"introduction"}},
		fakeModule{name: "mastery", steps: []string{"introduction", "summary"}},
	)

	step, err := tr.StartOrResume(types.Beginner)
	require.NoError(t, err)

	// Completed work survives, position continues in the kept module
	assert.Equal(t, "basics", step.Module)
	assert.Equal(t, "main-content", step.Step)
	assert.Equal(t, 1, step.CompletedSteps)
	assert.Equal(t, 5, step.TotalSteps)

	report, err := tr.Status()
	require.NoError(t, err)
	require.Len(t, report.Modules, 3)
	assert.Equal(t, "intermediate", report.Modules[1].Name)
	assert.Equal(t, types.StatusNotStarted, report.Modules[1].Status)
}

func TestResumeStaysInPointerModule(t *testing.T) {
	content := twoModuleContent()
	tr := registeredTracker(t, content)

	_, err := tr.StartOrResume(types.Beginner)
	require.NoError(t, err)
	for i := 0; i < 3; i++ { // finish basics, land mid-advanced
		_, err = tr.Advance()
		require.NoError(t, err)
	}

	// Regeneration removes the step the learner was on and adds a new
	// step to the earlier, already-finished module
	content.setCourse(types.Beginner,
		fakeModule{name: "basics", steps: []string{"introduction", "main-content", "extras"}},
		fakeModule{name: "advanced", steps: []string{"introduction", "review"}},
	)

	// Resume continues inside the module the learner was working in,
	// not at the earlier module's new step
	step, err := tr.StartOrResume(types.Beginner)
	require.NoError(t, err)
	assert.Equal(t, "advanced", step.Module)
	assert.Equal(t, "review", step.Step)
}

func TestSwitchingLevelDiscardsProgress(t *testing.T) {
	content := twoModuleContent()
	content.setCourse(types.Advanced,
		fakeModule{name: "deep", steps: []string{"introduction"}})
	tr := registeredTracker(t, content)

	_, err := tr.StartOrResume(types.Beginner)
	require.NoError(t, err)
	_, err = tr.Advance()
	require.NoError(t, err)

	step, err := tr.StartOrResume(types.Advanced)
	require.NoError(t, err)
	assert.Equal(t, types.Advanced, step.Level)
	assert.Equal(t, 0, step.CompletedSteps)
	assert.Equal(t, "deep", step.Module)
}

func TestResetRequiresConfirmation(t *testing.T) {
	tr := registeredTracker(t, twoModuleContent())
	_, err := tr.StartOrResume(types.Beginner)
	require.NoError(t, err)

	_, err = tr.Reset(false)
	assert.ErrorIs(t, err, ErrConfirmationRequired)

	// The unconfirmed call touched nothing
	report, err := tr.Status()
	require.NoError(t, err)
	assert.Equal(t, 4, report.TotalSteps)

	existed, err := tr.Reset(true)
	require.NoError(t, err)
	assert.True(t, existed)

	_, err = tr.Status()
	assert.ErrorIs(t, err, ErrNoProgress)

	// Reset with nothing saved reports existed=false
	existed, err = tr.Reset(true)
	require.NoError(t, err)
	assert.False(t, existed)
}
