package classify

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/coursecraft/coursecraft-mcp/pkg/types"
)

// ProviderStatic is the deterministic local provider
const ProviderStatic = "static"

// Cap on documents grouped into one static module
const staticModuleSize = 8

// StaticService is a deterministic, offline content service. It builds
// analyses from structural heuristics, groups documents by folder, and
// fills sections from templates. Used when no API key is configured and
// throughout the tests.
type StaticService struct {
	cache *Cache
}

// NewStaticService creates the deterministic local provider
func NewStaticService(cache *Cache) *StaticService {
	return &StaticService{cache: cache}
}

func (s *StaticService) Provider() string { return ProviderStatic }

func (s *StaticService) Close() error { return nil }

func (s *StaticService) AnalyzeDocument(_ context.Context, req AnalyzeRequest) (*Analysis, error) {
	if err := ValidateAnalyzeRequest(req); err != nil {
		return nil, err
	}

	hash := ComputeHash(req.Content)
	if s.cache != nil {
		if a, ok := s.cache.Get(hash); ok {
			return a, nil
		}
	}

	meta := types.DocumentMeta{Title: req.Title, Headings: req.Headings}
	a := FallbackAnalysis(req.Path, meta)
	if first := firstParagraph(req.Content); first != "" {
		a.Summary = truncate(first, 300)
	}

	if s.cache != nil {
		s.cache.Set(hash, a)
	}
	return a, nil
}

// ProposeModules groups documents by top-level folder, with root-level
// documents forming a "Fundamentals" module that always sorts first.
func (s *StaticService) ProposeModules(_ context.Context, req ProposeRequest) ([]ModuleProposal, error) {
	if len(req.Documents) == 0 {
		return nil, fmt.Errorf("%w: no documents provided", ErrInvalidInput)
	}

	groups := make(map[string][]DocumentSummary)
	for _, d := range req.Documents {
		key := "."
		if i := strings.Index(d.Path, "/"); i > 0 {
			key = d.Path[:i]
		}
		groups[key] = append(groups[key], d)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i] == "." {
			return true
		}
		if keys[j] == "." {
			return false
		}
		return keys[i] < keys[j]
	})

	proposals := make([]ModuleProposal, 0, len(keys))
	for _, k := range keys {
		docs := groups[k]
		sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
		if len(docs) > staticModuleSize {
			docs = docs[:staticModuleSize]
		}

		title := humanizeSegment(k)
		if k == "." {
			title = "Fundamentals"
		}

		paths := make([]string, 0, len(docs))
		concepts := make([]string, 0, len(docs))
		for _, d := range docs {
			paths = append(paths, d.Path)
			concepts = append(concepts, d.Title)
		}

		proposals = append(proposals, ModuleProposal{
			Title:         title,
			Description:   fmt.Sprintf("Covers %s", strings.Join(firstN(concepts, 3), ", ")),
			Objectives:    []string{fmt.Sprintf("Understand %s in %s", title, req.RepoName)},
			DocumentPaths: paths,
			Assessment: types.Assessment{
				Title:    fmt.Sprintf("Check Your Understanding: %s", title),
				Concepts: firstN(concepts, 5),
			},
		})
	}

	return proposals, nil
}

func (s *StaticService) GenerateSection(_ context.Context, req SectionRequest) (string, error) {
	return TemplateSection(req)
}

// TemplateSection renders the deterministic fallback text for a section.
// It is total for valid requests; callers in degraded paths use it
// directly when a provider fails.
func TemplateSection(req SectionRequest) (string, error) {
	level := req.Level
	if level == "" {
		level = types.Beginner
	}

	switch req.Kind {
	case KindWelcome:
		return fmt.Sprintf("# Welcome to %s\n\nThis %s-level course walks you through the documentation step by step. Work through each module in order, and use the assessments to check your understanding.", req.CourseTitle, level), nil
	case KindCourseIntroduction:
		return fmt.Sprintf("# About This Course\n\n%s is organized into focused modules, each built from the project's own documentation. This %s-level track assumes no prior familiarity with the material beyond general technical background.", req.CourseTitle, level), nil
	case KindCourseConclusion:
		return fmt.Sprintf("# Course Conclusion\n\nYou have completed %s. Revisit any module where you want more depth, and explore the source documentation directly for details beyond this course.", req.CourseTitle), nil
	}

	if req.Module == nil {
		return "", fmt.Errorf("%w: module section without module", ErrInvalidInput)
	}
	m := req.Module

	switch req.Kind {
	case KindIntroduction:
		return fmt.Sprintf("# %s\n\n%s\n\nIn this module you will work toward:\n\n%s", m.Title, m.Description, bulletList(m.Objectives)), nil
	case KindMainContent:
		var sb strings.Builder
		fmt.Fprintf(&sb, "# %s: Core Material\n\n%s\n", m.Title, m.Description)
		for i, ex := range req.Excerpts {
			fmt.Fprintf(&sb, "\n## Reading %d\n\n%s\n", i+1, truncate(ex, 4000))
		}
		if len(req.Excerpts) == 0 {
			sb.WriteString("\nStudy the referenced documentation for this module before moving on.\n")
		}
		return sb.String(), nil
	case KindConclusion:
		return fmt.Sprintf("# Wrapping Up %s\n\nYou covered the material for this module. Make sure you can explain each objective before continuing:\n\n%s", m.Title, bulletList(m.Objectives)), nil
	case KindAssessment:
		var sb strings.Builder
		title := m.Assessment.Title
		if title == "" {
			title = fmt.Sprintf("Check Your Understanding: %s", m.Title)
		}
		fmt.Fprintf(&sb, "# %s\n\n", title)
		n := 0
		for _, concept := range m.Assessment.Concepts {
			n++
			fmt.Fprintf(&sb, "%d. Explain %s and how it is used in %s.\n", n, concept, m.Title)
		}
		for _, obj := range m.Objectives {
			n++
			fmt.Fprintf(&sb, "%d. %s. Explain how you would demonstrate this.\n", n, strings.TrimSuffix(obj, "."))
		}
		if n == 0 {
			fmt.Fprintf(&sb, "1. In your own words, what does %s cover and when would you use it?\n", m.Title)
		}
		return sb.String(), nil
	case KindSummary:
		return fmt.Sprintf("# %s: Summary\n\nKey points from this module:\n\n%s", m.Title, bulletList(m.Objectives)), nil
	default:
		return "", fmt.Errorf("%w: unknown section kind %q", ErrInvalidInput, req.Kind)
	}
}

func firstParagraph(content string) string {
	for _, para := range strings.Split(content, "\n\n") {
		p := strings.TrimSpace(para)
		if p == "" || strings.HasPrefix(p, "#") || strings.HasPrefix(p, "---") ||
			strings.HasPrefix(p, "```") {
			continue
		}
		return strings.Join(strings.Fields(p), " ")
	}
	return ""
}

func humanizeSegment(seg string) string {
	s := strings.NewReplacer("-", " ", "_", " ").Replace(seg)
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return "- Review the module material"
	}
	var sb strings.Builder
	for _, it := range items {
		fmt.Fprintf(&sb, "- %s\n", it)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func firstN(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
