// Package progress implements the course progression state machine:
// registration, start or resume, status reporting, advancing through
// steps, and reset. Persisted state is reconciled against the exported
// course on every resume, so regenerated courses never strand a learner.
package progress

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/coursecraft/coursecraft-mcp/internal/state"
	"github.com/coursecraft/coursecraft-mcp/pkg/types"
)

// State machine errors
var (
	ErrNotRegistered        = errors.New("no learner profile, register first")
	ErrAlreadyRegistered    = errors.New("learner already registered")
	ErrCourseNotFound       = errors.New("course not found")
	ErrNoProgress           = errors.New("no course in progress")
	ErrNoActiveStep         = errors.New("no active step")
	ErrConfirmationRequired = errors.New("reset requires confirmation")
)

// ContentSource provides exported course content. Satisfied by
// course.Scanner.
type ContentSource interface {
	ListCourses() ([]types.Complexity, error)
	FreshState(level types.Complexity) (*types.CourseState, error)
	ReadStep(level types.Complexity, module, step string) (string, error)
	ReadWelcome(level types.Complexity) string
	ReadConclusion(level types.Complexity) string
}

// StepContent is the learner-facing result of starting or advancing
type StepContent struct {
	Level          types.Complexity
	Module         string
	Step           string
	Content        string
	Completed      bool // the whole course is finished
	CompletedSteps int
	TotalSteps     int
}

// Report is a read-only progression snapshot
type Report struct {
	Title          string
	Level          types.Complexity
	CurrentModule  string
	CurrentStep    string
	CompletedSteps int
	TotalSteps     int
	Completed      bool
	Modules        []ModuleReport
}

// ModuleReport is one module's line in a status report
type ModuleReport struct {
	Name           string
	Status         types.StepStatus
	CompletedSteps int
	TotalSteps     int
}

// Tracker drives the progression state machine over a state store and a
// content source
type Tracker struct {
	store   *state.Store
	content ContentSource
	logger  *zap.Logger
}

// NewTracker creates a Tracker
func NewTracker(store *state.Store, content ContentSource, logger *zap.Logger) *Tracker {
	return &Tracker{store: store, content: content, logger: logger}
}

// Register creates the learner profile. Registering twice is an error;
// the existing profile is never overwritten.
func (t *Tracker) Register(email string) (*state.Profile, error) {
	if _, err := t.store.Profile(); err == nil {
		return nil, ErrAlreadyRegistered
	} else if !errors.Is(err, state.ErrNotFound) {
		return nil, err
	}

	p, err := t.store.CreateProfile(email)
	if err != nil {
		return nil, err
	}
	t.logger.Info("registered learner", zap.String("user_id", p.UserID))
	return p, nil
}

// StartOrResume begins the course at the given level, or resumes saved
// progress. Saved state for the same level is merged against the fresh
// course; saved state for a different level is discarded in favor of a
// fresh start. The returned content is the step to work on now; a fresh
// start is prefixed with the course welcome.
func (t *Tracker) StartOrResume(level types.Complexity) (*StepContent, error) {
	if _, err := t.store.Profile(); err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return nil, ErrNotRegistered
		}
		return nil, err
	}

	fresh, err := t.content.FreshState(level)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCourseNotFound, err)
	}

	cs := fresh
	resumed := false
	saved, err := t.store.CourseState()
	switch {
	case err == nil && saved.Level == level:
		cs = Merge(saved, fresh)
		resumed = true
	case err == nil:
		t.logger.Info("switching course level, discarding saved progress",
			zap.String("from", string(saved.Level)), zap.String("to", string(level)))
	case !errors.Is(err, state.ErrNotFound):
		// Corrupt state is a fresh start, not a dead end
		t.logger.Warn("saved state unreadable, starting fresh", zap.Error(err))
	}

	t.activate(cs)
	if err := t.store.SaveCourseState(cs); err != nil {
		return nil, err
	}

	step, err := t.currentContent(cs)
	if err != nil {
		return nil, err
	}
	if !resumed && !step.Completed {
		if welcome := t.content.ReadWelcome(level); welcome != "" {
			step.Content = welcome + "\n\n" + step.Content
		}
	}
	return step, nil
}

// Status renders the saved progression without mutating it
func (t *Tracker) Status() (*Report, error) {
	cs, err := t.store.CourseState()
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return nil, ErrNoProgress
		}
		return nil, err
	}

	report := &Report{
		Title:          cs.Title,
		Level:          cs.Level,
		CompletedSteps: cs.CompletedSteps(),
		TotalSteps:     cs.TotalSteps,
		Completed:      cs.Terminal(),
	}
	if mod, step, ok := cs.ActiveStep(); ok {
		report.CurrentModule = mod
		report.CurrentStep = step
	}

	for _, m := range cs.Modules {
		done := 0
		for _, st := range m.Steps {
			if st.Status == types.StatusCompleted {
				done++
			}
		}
		report.Modules = append(report.Modules, ModuleReport{
			Name:           m.Name,
			Status:         m.Status,
			CompletedSteps: done,
			TotalSteps:     len(m.Steps),
		})
	}

	return report, nil
}

// Advance completes the active step and promotes the next one. On a
// finished course it reports completion without mutating anything, so
// repeated calls at the end are harmless. A non-terminal course with no
// active step is a state the learner must resolve by resuming.
func (t *Tracker) Advance() (*StepContent, error) {
	cs, err := t.store.CourseState()
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return nil, ErrNoProgress
		}
		return nil, err
	}

	if cs.Terminal() {
		return t.completedContent(cs), nil
	}

	modName, stepName, ok := cs.ActiveStep()
	if !ok {
		return nil, fmt.Errorf("%w: resume the course to pick up where you left off", ErrNoActiveStep)
	}

	mod, _ := cs.Module(modName)
	for i := range mod.Steps {
		if mod.Steps[i].Name == stepName {
			mod.Steps[i].Status = types.StatusCompleted
			break
		}
	}
	mod.Recompute()

	t.activate(cs)
	if err := t.store.SaveCourseState(cs); err != nil {
		return nil, err
	}

	t.logger.Info("advanced course",
		zap.String("completed", modName+"/"+stepName),
		zap.Int("done", cs.CompletedSteps()),
		zap.Int("total", cs.TotalSteps))

	return t.currentContent(cs)
}

// Reset clears saved progression. Without confirmation nothing is
// touched. Reports whether state existed.
func (t *Tracker) Reset(confirm bool) (bool, error) {
	if !confirm {
		return false, ErrConfirmationRequired
	}
	existed, err := t.store.ClearCourseState()
	if err != nil {
		return false, err
	}
	if existed {
		t.logger.Info("cleared course progress")
	}
	return existed, nil
}

// activate ensures exactly one step is in progress on a non-terminal
// course: the existing active step, or the first non-completed step of
// the module named by the pointer promoted. The module pointer follows
// the active step.
func (t *Tracker) activate(cs *types.CourseState) {
	if mod, _, ok := cs.ActiveStep(); ok {
		cs.CurrentModule = mod
		return
	}
	modName, stepName, ok := cs.FirstPending()
	if !ok {
		return // terminal
	}
	mod, _ := cs.Module(modName)
	for i := range mod.Steps {
		if mod.Steps[i].Name == stepName {
			mod.Steps[i].Status = types.StatusInProgress
			break
		}
	}
	mod.Recompute()
	cs.CurrentModule = modName
}

// currentContent loads the content for the active step, or the course
// conclusion when everything is done
func (t *Tracker) currentContent(cs *types.CourseState) (*StepContent, error) {
	if cs.Terminal() {
		return t.completedContent(cs), nil
	}

	modName, stepName, ok := cs.ActiveStep()
	if !ok {
		return nil, ErrNoActiveStep
	}

	content, err := t.content.ReadStep(cs.Level, modName, stepName)
	if err != nil {
		return nil, err
	}

	return &StepContent{
		Level:          cs.Level,
		Module:         modName,
		Step:           stepName,
		Content:        content,
		CompletedSteps: cs.CompletedSteps(),
		TotalSteps:     cs.TotalSteps,
	}, nil
}

func (t *Tracker) completedContent(cs *types.CourseState) *StepContent {
	content := t.content.ReadConclusion(cs.Level)
	if content == "" {
		content = fmt.Sprintf("You have completed %s. Congratulations!", cs.Title)
	}
	return &StepContent{
		Level:          cs.Level,
		Content:        content,
		Completed:      true,
		CompletedSteps: cs.CompletedSteps(),
		TotalSteps:     cs.TotalSteps,
	}
}
