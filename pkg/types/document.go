package types

import (
	"sort"
	"time"
)

// DocumentType classifies what kind of documentation a record is
type DocumentType string

const (
	DocOverview        DocumentType = "overview"
	DocGuide           DocumentType = "guide"
	DocTutorial        DocumentType = "tutorial"
	DocReference       DocumentType = "reference"
	DocAPI             DocumentType = "api"
	DocExample         DocumentType = "example"
	DocConfiguration   DocumentType = "configuration"
	DocTroubleshooting DocumentType = "troubleshooting"
	DocChangelog       DocumentType = "changelog"
	DocOther           DocumentType = "other"
)

// ParseDocumentType maps a free-form string to a DocumentType, falling back
// to the provided default when the value is not recognized
func ParseDocumentType(s string, fallback DocumentType) DocumentType {
	switch DocumentType(s) {
	case DocOverview, DocGuide, DocTutorial, DocReference, DocAPI, DocExample,
		DocConfiguration, DocTroubleshooting, DocChangelog, DocOther:
		return DocumentType(s)
	default:
		return fallback
	}
}

// Complexity is the target difficulty of a course
type Complexity string

const (
	Beginner     Complexity = "beginner"
	Intermediate Complexity = "intermediate"
	Advanced     Complexity = "advanced"
)

// AllComplexities lists the complexity levels in course-generation order
func AllComplexities() []Complexity {
	return []Complexity{Beginner, Intermediate, Advanced}
}

// ParseComplexity maps a free-form string to a Complexity
func ParseComplexity(s string, fallback Complexity) Complexity {
	switch Complexity(s) {
	case Beginner, Intermediate, Advanced:
		return Complexity(s)
	default:
		return fallback
	}
}

// CodeBlock is a fenced code block extracted from a document
type CodeBlock struct {
	Language string `json:"language"`
	Content  string `json:"content"`
}

// Link is a markdown link extracted from a document
type Link struct {
	Text     string `json:"text"`
	URL      string `json:"url"`
	Internal bool   `json:"internal"`
}

// DocumentMeta holds structural and semantic metadata for one document.
// The structural fields come from deterministic extraction; the semantic
// fields are set at most once per build, either by the classification
// service or by the heuristic fallback (Fallback=true).
type DocumentMeta struct {
	// Structural metadata
	Title           string         `json:"title"`
	Headings        []string       `json:"headings"`
	CodeBlocks      []CodeBlock    `json:"code_blocks"`
	Links           []Link         `json:"links"`
	FrontMatter     map[string]any `json:"front_matter"`
	WordCount       int            `json:"word_count"`
	ReadingMinutes  int            `json:"reading_minutes"`
	PrimaryLanguage string         `json:"primary_language,omitempty"`
	HasExamples     bool           `json:"has_examples"`
	HasAPIDocs      bool           `json:"has_api_docs"`

	// Semantic metadata
	DocType     DocumentType `json:"doc_type"`
	Summary     string       `json:"summary"`
	KeyConcepts []string     `json:"key_concepts"`
	Objectives  []string     `json:"objectives"`
	Fallback    bool         `json:"fallback"`
}

// DocumentRecord is a single ingested documentation file. Owned exclusively
// by its DocumentTree and immutable once the tree is built.
type DocumentRecord struct {
	ID        string       `json:"id"`
	Path      string       `json:"path"` // relative to repository root
	Filename  string       `json:"filename"`
	ParentDir string       `json:"parent_dir"`
	Content   string       `json:"content"`
	Meta      DocumentMeta `json:"meta"`
}

// DocumentTree is the keyed collection of documents from one repository
// build. Records are keyed by repository-relative path; the key set is
// exactly the set of successfully extracted documents.
type DocumentTree struct {
	RepoKey  string                     `json:"repo_key"` // stable repository identity
	RepoName string                     `json:"repo_name"`
	RootPath string                     `json:"root_path"`
	Records  map[string]*DocumentRecord `json:"records"`
	Folders  map[string][]string        `json:"folders"` // folder -> child document paths
	BuiltAt  time.Time                  `json:"built_at"`
}

// NewDocumentTree creates an empty tree for the given repository identity
func NewDocumentTree(repoKey, repoName, rootPath string) *DocumentTree {
	return &DocumentTree{
		RepoKey:  repoKey,
		RepoName: repoName,
		RootPath: rootPath,
		Records:  make(map[string]*DocumentRecord),
		Folders:  make(map[string][]string),
		BuiltAt:  time.Now(),
	}
}

// Add inserts a record and updates the folder index
func (t *DocumentTree) Add(rec *DocumentRecord) {
	t.Records[rec.Path] = rec
	dir := rec.ParentDir
	if dir == "" {
		dir = "."
	}
	t.Folders[dir] = append(t.Folders[dir], rec.Path)
}

// Get returns the record at the given relative path
func (t *DocumentTree) Get(path string) (*DocumentRecord, bool) {
	rec, ok := t.Records[path]
	return rec, ok
}

// Len returns the number of documents in the tree
func (t *DocumentTree) Len() int {
	return len(t.Records)
}

// Paths returns all document paths in sorted order
func (t *DocumentTree) Paths() []string {
	paths := make([]string, 0, len(t.Records))
	for p := range t.Records {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
