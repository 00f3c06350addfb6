package course

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/coursecraft/coursecraft-mcp/pkg/types"
)

// Scanner errors
var (
	ErrCourseNotFound = errors.New("course not found")
	ErrStepNotFound   = errors.New("step not found")
)

// Numeric ordering prefixes are layout detail, not identity; state and
// tool arguments use the stripped names
var orderPrefixRe = regexp.MustCompile(`^\d+-`)

// StripOrderPrefix removes a leading NN- ordering prefix from a module or
// step name
func StripOrderPrefix(name string) string {
	return orderPrefixRe.ReplaceAllString(name, "")
}

// Scanner reads exported courses back from disk. The manifest is the
// authority; content files are read on demand.
type Scanner struct {
	root string
}

// NewScanner creates a Scanner over an export root
func NewScanner(root string) *Scanner {
	return &Scanner{root: root}
}

// ListCourses returns the levels with an exported course, sorted
func (s *Scanner) ListCourses() ([]types.Complexity, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", s.root, err)
	}

	var levels []types.Complexity
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.root, e.Name(), ManifestFile)); err != nil {
			continue
		}
		levels = append(levels, types.Complexity(e.Name()))
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })
	return levels, nil
}

// Manifest reads the manifest for a level
func (s *Scanner) Manifest(level types.Complexity) (*types.Manifest, error) {
	data, err := os.ReadFile(filepath.Join(s.root, string(level), ManifestFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: no %s course under %s", ErrCourseNotFound, level, s.root)
		}
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m types.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: corrupt manifest for %s: %v", ErrCourseNotFound, level, err)
	}
	if len(m.Modules) == 0 {
		return nil, fmt.Errorf("%w: %s manifest lists no modules", ErrCourseNotFound, level)
	}
	return &m, nil
}

// FreshState builds an all-not-started course state from an exported
// course. Module and step names carry no ordering prefixes.
func (s *Scanner) FreshState(level types.Complexity) (*types.CourseState, error) {
	m, err := s.Manifest(level)
	if err != nil {
		return nil, err
	}

	state := &types.CourseState{
		Title:       m.Title,
		Description: m.Description,
		Level:       level,
		UpdatedAt:   time.Now(),
	}

	for _, mod := range m.Modules {
		ms := types.ModuleState{Name: StripOrderPrefix(mod.Directory)}
		for _, step := range mod.Steps {
			name := StripOrderPrefix(strings.TrimSuffix(step, filepath.Ext(step)))
			ms.Steps = append(ms.Steps, types.StepState{Name: name})
		}
		ms.Recompute()
		state.Modules = append(state.Modules, ms)
		state.TotalSteps += len(ms.Steps)
	}

	if len(state.Modules) > 0 {
		state.CurrentModule = state.Modules[0].Name
	}
	return state, nil
}

// ReadStep resolves prefix-stripped module and step names back to the
// exported file and returns its content
func (s *Scanner) ReadStep(level types.Complexity, module, step string) (string, error) {
	m, err := s.Manifest(level)
	if err != nil {
		return "", err
	}

	for _, mod := range m.Modules {
		if StripOrderPrefix(mod.Directory) != module {
			continue
		}
		for _, stepFile := range mod.Steps {
			name := StripOrderPrefix(strings.TrimSuffix(stepFile, filepath.Ext(stepFile)))
			if name != step {
				continue
			}
			data, err := os.ReadFile(filepath.Join(s.root, string(level), mod.Directory, stepFile))
			if err != nil {
				return "", fmt.Errorf("reading step %s/%s: %w", module, step, err)
			}
			return string(data), nil
		}
		return "", fmt.Errorf("%w: %s in module %s", ErrStepNotFound, step, module)
	}
	return "", fmt.Errorf("%w: module %s at level %s", ErrStepNotFound, module, level)
}

// ReadWelcome returns the course welcome message, empty when missing
func (s *Scanner) ReadWelcome(level types.Complexity) string {
	data, err := os.ReadFile(filepath.Join(s.root, string(level), WelcomeFile))
	if err != nil {
		return ""
	}
	return string(data)
}

// ReadConclusion returns the course conclusion, empty when missing
func (s *Scanner) ReadConclusion(level types.Complexity) string {
	data, err := os.ReadFile(filepath.Join(s.root, string(level), ConclusionFile))
	if err != nil {
		return ""
	}
	return string(data)
}
