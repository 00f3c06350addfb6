// Package course generates, exports, and scans course content. The
// assembler expands a module plan into full section prose, the exporter
// writes the canonical on-disk layout, and the scanner reads exported
// courses back into fresh progression state.
package course

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/coursecraft/coursecraft-mcp/internal/classify"
	"github.com/coursecraft/coursecraft-mcp/internal/cluster"
	"github.com/coursecraft/coursecraft-mcp/pkg/types"
)

// IntroModuleTitle is the generated module prepended to every course
const IntroModuleTitle = "Course Introduction"

// Limit on concurrent module generation tasks
const defaultModuleWorkers = 4

// Excerpts passed to main-content generation per module
const maxExcerpts = 3

// Assembler generates the section prose for a planned course
type Assembler struct {
	factory classify.Factory
	logger  *zap.Logger
	workers int
}

// NewAssembler creates an Assembler. The factory yields one service
// client per module task.
func NewAssembler(factory classify.Factory, logger *zap.Logger) *Assembler {
	return &Assembler{factory: factory, logger: logger, workers: defaultModuleWorkers}
}

// Assemble expands a course plan into generated content. A course
// introduction module is prepended and a course conclusion appended.
// Modules generate concurrently; within a module all five sections
// complete before the module is considered done. Section generation
// failure degrades to a template and is never fatal.
func (a *Assembler) Assemble(ctx context.Context, tree *types.DocumentTree, course types.Course) (*types.GeneratedCourse, error) {
	modules := withIntroModule(course)
	course.Modules = modules

	gen := &types.GeneratedCourse{
		Course:  course,
		Content: make(map[string]*types.ModuleContent, len(modules)),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)

	for i := range modules {
		mod := modules[i]
		g.Go(func() error {
			content, err := a.assembleModule(gctx, tree, course, mod)
			if err != nil {
				return err
			}
			mu.Lock()
			gen.Content[mod.ID] = content
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	gen.Conclusion = a.generateWithFallback(ctx, nil, classify.SectionRequest{
		Kind:        classify.KindCourseConclusion,
		CourseTitle: course.Title,
		Level:       course.Level,
	})
	gen.BuiltAt = time.Now()

	a.logger.Info("assembled course",
		zap.String("level", string(course.Level)),
		zap.Int("modules", len(modules)))

	return gen, nil
}

// assembleModule generates the five sections for one module. The task
// owns its service client; the five sections run concurrently and all
// finish before the module returns.
func (a *Assembler) assembleModule(ctx context.Context, tree *types.DocumentTree, course types.Course, mod types.LearningModule) (*types.ModuleContent, error) {
	svc, err := a.factory()
	if err != nil {
		a.logger.Warn("content service unavailable, module falls back to templates",
			zap.String("module", mod.Title), zap.Error(err))
		svc = nil
	} else {
		defer svc.Close()
	}

	excerpts := excerptsFor(tree, mod)
	isIntro := mod.Title == IntroModuleTitle

	kinds := []classify.SectionKind{
		classify.KindIntroduction,
		classify.KindMainContent,
		classify.KindConclusion,
		classify.KindAssessment,
		classify.KindSummary,
	}

	content := &types.ModuleContent{}
	targets := map[classify.SectionKind]*string{
		classify.KindIntroduction: &content.Introduction,
		classify.KindMainContent:  &content.MainContent,
		classify.KindConclusion:   &content.Conclusion,
		classify.KindAssessment:   &content.Assessment,
		classify.KindSummary:      &content.Summary,
	}

	var wg sync.WaitGroup
	for _, kind := range kinds {
		kind := kind
		wg.Add(1)
		go func() {
			defer wg.Done()

			req := classify.SectionRequest{
				Kind:        kind,
				CourseTitle: course.Title,
				Level:       course.Level,
				Module:      &mod,
			}
			if kind == classify.KindMainContent {
				req.Excerpts = excerpts
				if isIntro {
					// The introduction module teaches the course itself
					req.Kind = classify.KindCourseIntroduction
					req.Module = nil
				}
			}

			*targets[kind] = a.generateWithFallback(ctx, svc, req)
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return content, nil
}

// generateWithFallback tries the service and falls back to the template.
// A nil service goes straight to the template. The fallback request is
// normalized so the template always has a module to describe.
func (a *Assembler) generateWithFallback(ctx context.Context, svc classify.Service, req classify.SectionRequest) string {
	if svc != nil {
		text, err := svc.GenerateSection(ctx, req)
		if err == nil && strings.TrimSpace(text) != "" {
			return text
		}
		if err != nil {
			a.logger.Warn("section generation failed, using template",
				zap.String("kind", string(req.Kind)), zap.Error(err))
		}
	}

	text, err := classify.TemplateSection(req)
	if err != nil {
		return fmt.Sprintf("# %s\n\nContent unavailable.", req.Kind)
	}
	return text
}

// withIntroModule prepends the course introduction and renumbers
func withIntroModule(course types.Course) []types.LearningModule {
	intro := types.LearningModule{
		Title:       IntroModuleTitle,
		Description: fmt.Sprintf("What %s covers and how to get the most out of it.", course.Title),
		Objectives:  []string{"Understand the course structure", "Know what each module covers"},
	}

	modules := make([]types.LearningModule, 0, len(course.Modules)+1)
	modules = append(modules, intro)
	modules = append(modules, course.Modules...)

	for i := range modules {
		modules[i].Order = i + 1
		modules[i].ID = fmt.Sprintf("%02d-%s", i+1, cluster.Slug(modules[i].Title))
	}
	return modules
}

// excerptsFor collects source excerpts for main-content generation
func excerptsFor(tree *types.DocumentTree, mod types.LearningModule) []string {
	if tree == nil {
		return nil
	}
	excerpts := make([]string, 0, maxExcerpts)
	for _, path := range mod.DocumentPaths {
		rec, ok := tree.Get(path)
		if !ok {
			continue
		}
		excerpts = append(excerpts, rec.Content)
		if len(excerpts) == maxExcerpts {
			break
		}
	}
	return excerpts
}
