package classify

import (
	"context"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursecraft/coursecraft-mcp/pkg/types"
)

func TestFallbackAnalysisIsTotal(t *testing.T) {
	tests := []struct {
		name string
		path string
		meta types.DocumentMeta
	}{
		{
			name: "empty metadata",
			path: "docs/thing.md",
			meta: types.DocumentMeta{},
		},
		{
			name: "full metadata",
			path: "docs/guide.md",
			meta: types.DocumentMeta{
				Title:    "User Guide",
				Headings: []string{"# User Guide", "## Setup", "## Usage"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := FallbackAnalysis(tt.path, tt.meta)
			require.NotNil(t, a)
			assert.NotEmpty(t, a.Summary)
			assert.NotEmpty(t, a.Objectives)
			assert.NotEmpty(t, a.DocType)
		})
	}
}

func TestFallbackAnalysisSummaryFormat(t *testing.T) {
	a := FallbackAnalysis("docs/guide.md", types.DocumentMeta{Title: "User Guide"})
	assert.Equal(t, "Documentation for User Guide", a.Summary)
}

func TestGuessDocType(t *testing.T) {
	tests := []struct {
		path string
		meta types.DocumentMeta
		want types.DocumentType
	}{
		{path: "README.md", want: types.DocOverview},
		{path: "docs/tutorial/first-steps.md", want: types.DocTutorial},
		{path: "docs/getting-started.md", want: types.DocTutorial},
		{path: "CHANGELOG.md", want: types.DocChangelog},
		{path: "docs/configuration.md", want: types.DocConfiguration},
		{path: "docs/troubleshooting.md", want: types.DocTroubleshooting},
		{path: "docs/endpoints.md", meta: types.DocumentMeta{HasAPIDocs: true}, want: types.DocAPI},
		{path: "docs/reference/cli.md", want: types.DocReference},
		{path: "docs/user-guide.md", want: types.DocGuide},
		{path: "docs/notes.md", want: types.DocOther},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, guessDocType(tt.path, tt.meta))
		})
	}
}

func TestCacheRoundTrip(t *testing.T) {
	cache := NewCache(10)
	a := &Analysis{Summary: "s", KeyConcepts: []string{"a"}}
	hash := ComputeHash("content")

	cache.Set(hash, a)
	got, ok := cache.Get(hash)
	require.True(t, ok)
	assert.Equal(t, "s", got.Summary)

	// Returned copy must not alias the cached slices
	got.KeyConcepts[0] = "mutated"
	again, _ := cache.Get(hash)
	assert.Equal(t, "a", again.KeyConcepts[0])
}

func TestStaticAnalyzeUsesCache(t *testing.T) {
	cache := NewCache(10)
	svc := NewStaticService(cache)

	req := AnalyzeRequest{Path: "docs/a.md", Title: "A", Content: "Some body text.\n"}
	first, err := svc.AnalyzeDocument(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Size())

	second, err := svc.AnalyzeDocument(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.Summary, second.Summary)
}

func TestStaticAnalyzeRejectsEmptyContent(t *testing.T) {
	svc := NewStaticService(nil)
	_, err := svc.AnalyzeDocument(context.Background(), AnalyzeRequest{Path: "a.md"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestStaticProposeModulesGroupsByFolder(t *testing.T) {
	svc := NewStaticService(nil)
	proposals, err := svc.ProposeModules(context.Background(), ProposeRequest{
		RepoName: "demo",
		Documents: []DocumentSummary{
			{Path: "README.md", Title: "Readme"},
			{Path: "guides/install.md", Title: "Install"},
			{Path: "guides/usage.md", Title: "Usage"},
			{Path: "api/rest.md", Title: "REST"},
		},
	})
	require.NoError(t, err)
	require.Len(t, proposals, 3)

	// Root documents always lead
	assert.Equal(t, "Fundamentals", proposals[0].Title)
	assert.Equal(t, []string{"README.md"}, proposals[0].DocumentPaths)
	assert.Equal(t, "Api", proposals[1].Title)
	assert.Equal(t, "Guides", proposals[2].Title)

	// Every proposal carries an assessment descriptor
	assert.Equal(t, "Check Your Understanding: Guides", proposals[2].Assessment.Title)
	assert.Equal(t, []string{"Install", "Usage"}, proposals[2].Assessment.Concepts)
}

func TestTemplateSectionCoversAllKinds(t *testing.T) {
	module := &types.LearningModule{
		Title:       "Basics",
		Description: "Core concepts",
		Objectives:  []string{"Understand the basics"},
	}

	kinds := []SectionKind{
		KindWelcome, KindCourseIntroduction, KindCourseConclusion,
		KindIntroduction, KindMainContent, KindConclusion, KindAssessment, KindSummary,
	}
	for _, kind := range kinds {
		t.Run(string(kind), func(t *testing.T) {
			text, err := TemplateSection(SectionRequest{
				Kind:        kind,
				CourseTitle: "Demo Course",
				Level:       types.Beginner,
				Module:      module,
			})
			require.NoError(t, err)
			assert.NotEmpty(t, text)
		})
	}
}

func TestTemplateAssessmentProbesConcepts(t *testing.T) {
	module := &types.LearningModule{
		Title: "Basics",
		Assessment: types.Assessment{
			Title:    "Quiz: Basics",
			Concepts: []string{"configuration files", "startup order"},
		},
	}

	text, err := TemplateSection(SectionRequest{Kind: KindAssessment, Module: module})
	require.NoError(t, err)
	assert.Contains(t, text, "# Quiz: Basics")
	assert.Contains(t, text, "configuration files")
	assert.Contains(t, text, "startup order")

	// Without a descriptor the template still asks something
	text, err = TemplateSection(SectionRequest{Kind: KindAssessment, Module: &types.LearningModule{Title: "Bare"}})
	require.NoError(t, err)
	assert.Contains(t, text, "# Check Your Understanding: Bare")
	assert.Contains(t, text, "1.")
}

func TestTemplateSectionModuleRequired(t *testing.T) {
	_, err := TemplateSection(SectionRequest{Kind: KindIntroduction, CourseTitle: "C"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	s := "héllo wörld über docs"
	for max := 0; max <= len(s); max++ {
		out := truncate(s, max)
		assert.True(t, utf8.ValidString(out), "max=%d", max)
		assert.LessOrEqual(t, len(out), max)
	}
	assert.Equal(t, s, truncate(s, len(s)+10))
}

func TestNewSelectsProvider(t *testing.T) {
	svc, err := New(Config{Provider: ProviderStatic})
	require.NoError(t, err)
	assert.Equal(t, ProviderStatic, svc.Provider())

	svc, err = New(Config{})
	require.NoError(t, err)
	assert.Equal(t, ProviderStatic, svc.Provider())

	svc, err = New(Config{Provider: ProviderOpenAI, APIKey: "test-key"})
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, svc.Provider())

	_, err = New(Config{Provider: ProviderOpenAI})
	assert.ErrorIs(t, err, ErrNoProviderEnabled)

	_, err = New(Config{Provider: "bogus"})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestFactoryProducesIndependentServices(t *testing.T) {
	factory := FactoryFor(Config{Provider: ProviderStatic, CacheSize: 10})

	a, err := factory()
	require.NoError(t, err)
	b, err := factory()
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}
