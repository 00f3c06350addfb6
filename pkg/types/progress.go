package types

import "time"

// StepStatus is the progression state of a step or module
type StepStatus int

const (
	StatusNotStarted StepStatus = 0
	StatusInProgress StepStatus = 1
	StatusCompleted  StepStatus = 2
)

// String returns the human-readable form used in status reports
func (s StepStatus) String() string {
	switch s {
	case StatusInProgress:
		return "in progress"
	case StatusCompleted:
		return "completed"
	default:
		return "not started"
	}
}

// StepState is one step's progression record
type StepState struct {
	Name   string     `json:"name"`
	Status StepStatus `json:"status"`
}

// ModuleState is one module's progression record. Status is never stored
// independently; it is recomputed from Steps via DeriveStatus whenever
// the steps change.
type ModuleState struct {
	Name   string      `json:"name"`
	Status StepStatus  `json:"status"`
	Steps  []StepState `json:"steps"`
}

// DeriveStatus computes a module's status from its steps: completed when
// every step is completed, not started when every step is not started,
// in progress otherwise. An empty module counts as completed.
func DeriveStatus(steps []StepState) StepStatus {
	if len(steps) == 0 {
		return StatusCompleted
	}
	allDone := true
	anyTouched := false
	for _, st := range steps {
		if st.Status != StatusCompleted {
			allDone = false
		}
		if st.Status != StatusNotStarted {
			anyTouched = true
		}
	}
	switch {
	case allDone:
		return StatusCompleted
	case anyTouched:
		return StatusInProgress
	default:
		return StatusNotStarted
	}
}

// Recompute updates the module status from its steps
func (m *ModuleState) Recompute() {
	m.Status = DeriveStatus(m.Steps)
}

// CourseState is the persisted progression snapshot for one learner's
// course. CurrentModule points at the module holding the active step;
// it is a hint, not an authority, and is re-validated on every resume.
type CourseState struct {
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	Level         Complexity    `json:"level"`
	Modules       []ModuleState `json:"modules"`
	CurrentModule string        `json:"current_module"`
	TotalSteps    int           `json:"total_steps"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Module returns the module state with the given name
func (c *CourseState) Module(name string) (*ModuleState, bool) {
	for i := range c.Modules {
		if c.Modules[i].Name == name {
			return &c.Modules[i], true
		}
	}
	return nil, false
}

// CompletedSteps counts steps marked completed across all modules
func (c *CourseState) CompletedSteps() int {
	n := 0
	for _, m := range c.Modules {
		for _, st := range m.Steps {
			if st.Status == StatusCompleted {
				n++
			}
		}
	}
	return n
}

// ActiveStep returns the module and step currently in progress. It scans
// the CurrentModule first, then the remaining modules in order, so a
// stale pointer never hides an active step elsewhere.
func (c *CourseState) ActiveStep() (module, step string, ok bool) {
	if m, found := c.Module(c.CurrentModule); found {
		for _, st := range m.Steps {
			if st.Status == StatusInProgress {
				return m.Name, st.Name, true
			}
		}
	}
	for i := range c.Modules {
		m := &c.Modules[i]
		if m.Name == c.CurrentModule {
			continue
		}
		for _, st := range m.Steps {
			if st.Status == StatusInProgress {
				return m.Name, st.Name, true
			}
		}
	}
	return "", "", false
}

// FirstPending returns the first non-completed step, looking inside the
// module named by CurrentModule before the remaining modules in order.
// A learner resumes inside the module they were working in; only a stale
// or exhausted pointer falls through to module order.
func (c *CourseState) FirstPending() (module, step string, ok bool) {
	if m, found := c.Module(c.CurrentModule); found {
		for _, st := range m.Steps {
			if st.Status != StatusCompleted {
				return m.Name, st.Name, true
			}
		}
	}
	for i := range c.Modules {
		m := &c.Modules[i]
		if m.Name == c.CurrentModule {
			continue
		}
		for _, st := range m.Steps {
			if st.Status != StatusCompleted {
				return m.Name, st.Name, true
			}
		}
	}
	return "", "", false
}

// Terminal reports whether every step in the course is completed
func (c *CourseState) Terminal() bool {
	for _, m := range c.Modules {
		for _, st := range m.Steps {
			if st.Status != StatusCompleted {
				return false
			}
		}
	}
	return true
}
