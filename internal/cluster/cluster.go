// Package cluster groups a document tree into ordered learning modules.
// Module plans come from the content service; every plan is validated
// against the tree, and a failed or empty plan degrades to a heuristic
// grouping so clustering itself never fails on service trouble.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/coursecraft/coursecraft-mcp/internal/classify"
	"github.com/coursecraft/coursecraft-mcp/pkg/types"
)

// ErrNoModules is returned when not even the fallback can produce a module
var ErrNoModules = errors.New("no learning modules could be formed")

// Cap on documents in the heuristic catch-all module
const fallbackModuleSize = 12

// Cap on concepts carried by one assessment descriptor
const maxAssessmentConcepts = 5

// Type priority for heuristic ordering; lower sorts first
var docTypePriority = map[types.DocumentType]int{
	types.DocOverview:        0,
	types.DocTutorial:        1,
	types.DocGuide:           2,
	types.DocConfiguration:   3,
	types.DocReference:       4,
	types.DocAPI:             5,
	types.DocExample:         6,
	types.DocTroubleshooting: 7,
	types.DocChangelog:       8,
	types.DocOther:           9,
}

// Clusterer plans modules over a document tree
type Clusterer struct {
	svc    classify.Service
	logger *zap.Logger
}

// New creates a Clusterer using the given content service
func New(svc classify.Service, logger *zap.Logger) *Clusterer {
	return &Clusterer{svc: svc, logger: logger}
}

// Cluster returns an ordered module plan for one complexity level. The
// service proposal is validated reference by reference: unknown document
// paths are dropped with a warning while the module survives, and a
// module that loses all its documents is dropped entirely.
func (c *Clusterer) Cluster(ctx context.Context, tree *types.DocumentTree, level types.Complexity, overview string) ([]types.LearningModule, error) {
	proposals, err := c.svc.ProposeModules(ctx, classify.ProposeRequest{
		RepoName:  tree.RepoName,
		Overview:  overview,
		Level:     level,
		Documents: summarize(tree),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Warn("module proposal failed, using heuristic grouping",
			zap.String("level", string(level)), zap.Error(err))
		proposals = nil
	}

	modules := c.validate(tree, proposals)
	if len(modules) == 0 {
		modules = c.heuristicModules(tree)
	}
	if len(modules) == 0 {
		return nil, fmt.Errorf("%w: %d documents at level %s", ErrNoModules, tree.Len(), level)
	}

	for i := range modules {
		modules[i].Order = i + 1
		modules[i].ID = moduleID(i+1, modules[i].Title)
	}
	return modules, nil
}

// BuildCourse wraps a module plan into a Course with a welcome message.
// Welcome generation failure degrades to the template.
func (c *Clusterer) BuildCourse(ctx context.Context, tree *types.DocumentTree, level types.Complexity, modules []types.LearningModule) types.Course {
	title := courseTitle(tree.RepoName)
	req := classify.SectionRequest{
		Kind:        classify.KindWelcome,
		CourseTitle: title,
		Level:       level,
	}

	welcome, err := c.svc.GenerateSection(ctx, req)
	if err != nil || strings.TrimSpace(welcome) == "" {
		if err != nil {
			c.logger.Warn("welcome generation failed, using template",
				zap.String("level", string(level)), zap.Error(err))
		}
		welcome, _ = classify.TemplateSection(req)
	}

	return types.Course{
		Title:       title,
		Description: fmt.Sprintf("A %s-level course generated from the %s documentation.", level, tree.RepoName),
		Level:       level,
		Welcome:     welcome,
		Modules:     modules,
	}
}

// validate filters proposals down to modules whose references resolve
func (c *Clusterer) validate(tree *types.DocumentTree, proposals []classify.ModuleProposal) []types.LearningModule {
	modules := make([]types.LearningModule, 0, len(proposals))

	for _, p := range proposals {
		if strings.TrimSpace(p.Title) == "" {
			c.logger.Warn("dropping untitled module proposal")
			continue
		}

		valid := make([]string, 0, len(p.DocumentPaths))
		seen := make(map[string]bool)
		for _, path := range p.DocumentPaths {
			if seen[path] {
				continue
			}
			seen[path] = true
			if _, ok := tree.Get(path); !ok {
				c.logger.Warn("dropping unknown document reference",
					zap.String("module", p.Title), zap.String("path", path))
				continue
			}
			valid = append(valid, path)
		}
		if len(valid) == 0 {
			c.logger.Warn("dropping module with no surviving documents",
				zap.String("module", p.Title))
			continue
		}

		modules = append(modules, types.LearningModule{
			Title:         p.Title,
			Description:   p.Description,
			Objectives:    p.Objectives,
			DocumentPaths: valid,
			Assessment:    assessmentFor(tree, p.Title, p.Assessment, valid),
		})
	}

	return modules
}

// heuristicModules builds the single catch-all module used when the
// service plan is unusable: documents ordered by type priority, capped
func (c *Clusterer) heuristicModules(tree *types.DocumentTree) []types.LearningModule {
	paths := tree.Paths()
	if len(paths) == 0 {
		return nil
	}

	sort.SliceStable(paths, func(i, j int) bool {
		pi := priorityOf(tree, paths[i])
		pj := priorityOf(tree, paths[j])
		if pi != pj {
			return pi < pj
		}
		return paths[i] < paths[j]
	})
	if len(paths) > fallbackModuleSize {
		paths = paths[:fallbackModuleSize]
	}

	title := fmt.Sprintf("Exploring %s", tree.RepoName)
	return []types.LearningModule{{
		Title:         title,
		Description:   fmt.Sprintf("A guided tour through the %s documentation, from overview to reference.", tree.RepoName),
		Objectives:    []string{fmt.Sprintf("Navigate and understand the %s documentation", tree.RepoName)},
		DocumentPaths: paths,
		Assessment:    assessmentFor(tree, title, types.Assessment{}, paths),
	}}
}

// assessmentFor completes a proposed assessment descriptor: a missing
// title gets the standard heading, missing concepts are gathered from
// the key concepts of the module's documents.
func assessmentFor(tree *types.DocumentTree, moduleTitle string, proposed types.Assessment, paths []string) types.Assessment {
	a := proposed
	if strings.TrimSpace(a.Title) == "" {
		a.Title = fmt.Sprintf("Check Your Understanding: %s", moduleTitle)
	}
	if len(a.Concepts) > maxAssessmentConcepts {
		a.Concepts = a.Concepts[:maxAssessmentConcepts]
	}
	if len(a.Concepts) > 0 {
		return a
	}

	seen := make(map[string]bool)
	for _, p := range paths {
		rec, ok := tree.Get(p)
		if !ok {
			continue
		}
		for _, concept := range rec.Meta.KeyConcepts {
			if concept == "" || seen[concept] {
				continue
			}
			seen[concept] = true
			a.Concepts = append(a.Concepts, concept)
			if len(a.Concepts) == maxAssessmentConcepts {
				return a
			}
		}
	}
	return a
}

func priorityOf(tree *types.DocumentTree, path string) int {
	rec, ok := tree.Get(path)
	if !ok {
		return 99
	}
	if p, ok := docTypePriority[rec.Meta.DocType]; ok {
		return p
	}
	return 9
}

func summarize(tree *types.DocumentTree) []classify.DocumentSummary {
	paths := tree.Paths()
	docs := make([]classify.DocumentSummary, 0, len(paths))
	for _, p := range paths {
		rec := tree.Records[p]
		docs = append(docs, classify.DocumentSummary{
			Path:    rec.Path,
			Title:   rec.Meta.Title,
			DocType: string(rec.Meta.DocType),
			Summary: rec.Meta.Summary,
		})
	}
	return docs
}

func courseTitle(repoName string) string {
	name := strings.NewReplacer("-", " ", "_", " ").Replace(repoName)
	words := strings.Fields(name)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	if len(words) == 0 {
		return "Documentation Course"
	}
	return strings.Join(words, " ") + " Course"
}

// moduleID builds the stable slug used in directory names and state
func moduleID(order int, title string) string {
	return fmt.Sprintf("%02d-%s", order, Slug(title))
}

// Slug lowercases a title into a filesystem-safe identifier
func Slug(title string) string {
	var sb strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				sb.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(sb.String(), "-")
}
