// Package classify provides semantic analysis of documentation through
// pluggable providers: per-document classification, module proposals, and
// section prose generation, with an LRU cache keyed by content hash and a
// deterministic fallback for every operation.
package classify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/coursecraft/coursecraft-mcp/pkg/types"
)

// Common errors
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrProviderFailed    = errors.New("content provider failed")
	ErrNoProviderEnabled = errors.New("no content provider configured")
	ErrUnknownProvider   = errors.New("unknown provider")
)

// SectionKind identifies which piece of course prose to generate
type SectionKind string

const (
	KindWelcome            SectionKind = "welcome"
	KindCourseIntroduction SectionKind = "course_introduction"
	KindIntroduction       SectionKind = "introduction"
	KindMainContent        SectionKind = "main_content"
	KindConclusion         SectionKind = "conclusion"
	KindAssessment         SectionKind = "assessment"
	KindSummary            SectionKind = "summary"
	KindCourseConclusion   SectionKind = "course_conclusion"
)

// AnalyzeRequest asks for semantic metadata about one document
type AnalyzeRequest struct {
	Path     string
	Title    string
	Content  string
	Headings []string
}

// Analysis is the semantic metadata for one document. Callers must treat
// any provider response as possibly invalid and fall back per field.
type Analysis struct {
	Summary     string   `json:"summary"`
	KeyConcepts []string `json:"key_concepts"`
	Objectives  []string `json:"objectives"`
	DocType     string   `json:"doc_type"`
}

// DocumentSummary is the compact per-document view given to ProposeModules
type DocumentSummary struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	DocType string `json:"doc_type"`
	Summary string `json:"summary"`
}

// ProposeRequest asks for an ordered module plan over a document set
type ProposeRequest struct {
	RepoName  string
	Overview  string
	Level     types.Complexity
	Documents []DocumentSummary
}

// ModuleProposal is one proposed module. DocumentPaths are unvalidated
// references into the caller's document tree. Assessment may be empty;
// the caller fills in a default descriptor.
type ModuleProposal struct {
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	Objectives    []string         `json:"objectives"`
	DocumentPaths []string         `json:"document_paths"`
	Assessment    types.Assessment `json:"assessment"`
}

// SectionRequest asks for one piece of course prose
type SectionRequest struct {
	Kind        SectionKind
	CourseTitle string
	Level       types.Complexity
	Module      *types.LearningModule
	Excerpts    []string // source document excerpts for grounding
}

// Service is the external content collaborator. Implementations may fail
// at any call; callers own their fallbacks.
type Service interface {
	// AnalyzeDocument returns semantic metadata for one document
	AnalyzeDocument(ctx context.Context, req AnalyzeRequest) (*Analysis, error)

	// ProposeModules returns an ordered module plan for a document set
	ProposeModules(ctx context.Context, req ProposeRequest) ([]ModuleProposal, error)

	// GenerateSection returns one piece of course prose
	GenerateSection(ctx context.Context, req SectionRequest) (string, error)

	// Provider returns the provider name
	Provider() string

	// Close releases any resources held by the service
	Close() error
}

// Factory produces a fresh Service. Batch workers call it once per
// worker so each goroutine owns its client.
type Factory func() (Service, error)

// Cache provides in-memory LRU caching of analyses by content hash
type Cache struct {
	cache *lru.Cache[string, *Analysis]
}

// NewCache creates an analysis cache with LRU eviction
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = 10000
	}
	cache, err := lru.New[string, *Analysis](maxLen)
	if err != nil {
		cache, _ = lru.New[string, *Analysis](10000)
	}
	return &Cache{cache: cache}
}

// Get retrieves a copy of a cached analysis
func (c *Cache) Get(hash string) (*Analysis, bool) {
	a, ok := c.cache.Get(hash)
	if !ok {
		return nil, false
	}
	cp := *a
	cp.KeyConcepts = append([]string(nil), a.KeyConcepts...)
	cp.Objectives = append([]string(nil), a.Objectives...)
	return &cp, true
}

// Set stores an analysis with automatic LRU eviction
func (c *Cache) Set(hash string, a *Analysis) {
	c.cache.Add(hash, a)
}

// Size returns the current cache size
func (c *Cache) Size() int {
	return c.cache.Len()
}

// ComputeHash computes the SHA-256 content hash used as the cache key
func ComputeHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// ValidateAnalyzeRequest rejects requests with no content
func ValidateAnalyzeRequest(req AnalyzeRequest) error {
	if strings.TrimSpace(req.Content) == "" {
		return fmt.Errorf("%w: content cannot be empty", ErrInvalidInput)
	}
	return nil
}

// FallbackAnalysis derives semantic metadata from structural metadata
// alone. It is total: it succeeds for every document and never calls out.
func FallbackAnalysis(path string, meta types.DocumentMeta) *Analysis {
	concepts := make([]string, 0, 5)
	for _, h := range meta.Headings {
		text := strings.TrimSpace(strings.TrimLeft(h, "# "))
		if text == "" || strings.EqualFold(text, meta.Title) {
			continue
		}
		concepts = append(concepts, text)
		if len(concepts) == 5 {
			break
		}
	}

	summary := fmt.Sprintf("Documentation for %s", meta.Title)
	title := meta.Title
	if title == "" {
		title = path
		summary = fmt.Sprintf("Documentation for %s", path)
	}

	return &Analysis{
		Summary:     summary,
		KeyConcepts: concepts,
		Objectives:  []string{fmt.Sprintf("Understand %s", title)},
		DocType:     string(guessDocType(path, meta)),
	}
}

// guessDocType infers a document type from path and structure
func guessDocType(path string, meta types.DocumentMeta) types.DocumentType {
	lower := strings.ToLower(path)
	switch {
	case strings.Contains(lower, "readme") || strings.Contains(lower, "overview") ||
		strings.Contains(lower, "index"):
		return types.DocOverview
	case strings.Contains(lower, "tutorial") || strings.Contains(lower, "getting-started") ||
		strings.Contains(lower, "quickstart"):
		return types.DocTutorial
	case strings.Contains(lower, "changelog") || strings.Contains(lower, "release"):
		return types.DocChangelog
	case strings.Contains(lower, "troubleshoot") || strings.Contains(lower, "faq"):
		return types.DocTroubleshooting
	case strings.Contains(lower, "config"):
		return types.DocConfiguration
	case meta.HasAPIDocs:
		return types.DocAPI
	case strings.Contains(lower, "example") || meta.HasExamples && meta.WordCount < 300:
		return types.DocExample
	case strings.Contains(lower, "reference"):
		return types.DocReference
	case strings.Contains(lower, "guide") || strings.Contains(lower, "howto") ||
		strings.Contains(lower, "how-to"):
		return types.DocGuide
	default:
		return types.DocOther
	}
}
