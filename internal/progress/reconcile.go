package progress

import (
	"github.com/coursecraft/coursecraft-mcp/pkg/types"
)

// Merge reconciles saved progression against a freshly scanned course.
// The fresh course is the authority for structure: its module order,
// titles, and step lists are adopted wholesale. Saved step statuses are
// copied onto same-name steps, module statuses are recomputed from the
// merged steps, and modules that exist only in the saved state are
// dropped. The module pointer survives when its module still exists,
// otherwise it falls back to the first module.
func Merge(saved, fresh *types.CourseState) *types.CourseState {
	merged := &types.CourseState{
		Title:       fresh.Title,
		Description: fresh.Description,
		Level:       fresh.Level,
		TotalSteps:  fresh.TotalSteps,
	}

	savedModules := make(map[string]*types.ModuleState, len(saved.Modules))
	for i := range saved.Modules {
		savedModules[saved.Modules[i].Name] = &saved.Modules[i]
	}

	for _, freshMod := range fresh.Modules {
		mod := types.ModuleState{Name: freshMod.Name}

		var savedSteps map[string]types.StepStatus
		if sm, ok := savedModules[freshMod.Name]; ok {
			savedSteps = make(map[string]types.StepStatus, len(sm.Steps))
			for _, st := range sm.Steps {
				savedSteps[st.Name] = st.Status
			}
		}

		for _, st := range freshMod.Steps {
			status := types.StatusNotStarted
			if s, ok := savedSteps[st.Name]; ok {
				status = s
			}
			mod.Steps = append(mod.Steps, types.StepState{Name: st.Name, Status: status})
		}

		mod.Recompute()
		merged.Modules = append(merged.Modules, mod)
	}

	merged.CurrentModule = fresh.CurrentModule
	if _, ok := merged.Module(saved.CurrentModule); ok {
		merged.CurrentModule = saved.CurrentModule
	} else if len(merged.Modules) > 0 {
		merged.CurrentModule = merged.Modules[0].Name
	}

	return merged
}
