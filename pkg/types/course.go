package types

import "time"

// Section filenames within an exported module directory, in reading order
const (
	SectionIntroduction = "introduction"
	SectionMainContent  = "main-content"
	SectionConclusion   = "conclusion"
	SectionAssessment   = "assessment"
	SectionSummary      = "summary"
)

// SectionNames returns the five module section names in reading order
func SectionNames() []string {
	return []string{
		SectionIntroduction,
		SectionMainContent,
		SectionConclusion,
		SectionAssessment,
		SectionSummary,
	}
}

// Assessment describes what a module's assessment section should probe:
// a heading and the concepts the questions must cover
type Assessment struct {
	Title    string   `json:"title"`
	Concepts []string `json:"concepts,omitempty"`
}

// LearningModule is an ordered grouping of related documents proposed by the
// clusterer. DocumentPaths reference DocumentTree records and are validated
// before the module is accepted.
type LearningModule struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Objectives    []string   `json:"objectives"`
	DocumentPaths []string   `json:"document_paths"`
	Assessment    Assessment `json:"assessment"`
	Order         int        `json:"order"`
}

// ModuleContent holds the five generated sections for one module.
// Every field is always populated; section generation degrades to a
// template instead of leaving a gap.
type ModuleContent struct {
	Introduction string `json:"introduction"`
	MainContent  string `json:"main_content"`
	Conclusion   string `json:"conclusion"`
	Assessment   string `json:"assessment"`
	Summary      string `json:"summary"`
}

// Sections returns the section bodies keyed by section name
func (c *ModuleContent) Sections() map[string]string {
	return map[string]string{
		SectionIntroduction: c.Introduction,
		SectionMainContent:  c.MainContent,
		SectionConclusion:   c.Conclusion,
		SectionAssessment:   c.Assessment,
		SectionSummary:      c.Summary,
	}
}

// Course is one difficulty level's module plan plus its welcome message
type Course struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Level       Complexity       `json:"level"`
	Welcome     string           `json:"welcome"`
	Modules     []LearningModule `json:"modules"`
}

// GeneratedCourse pairs a course plan with its generated module content,
// ready for export. Content is keyed by module ID.
type GeneratedCourse struct {
	Course     Course                    `json:"course"`
	Content    map[string]*ModuleContent `json:"content"`
	Conclusion string                    `json:"conclusion"`
	BuiltAt    time.Time                 `json:"built_at"`
}

// ManifestModule is one module entry in an exported course_info.json
type ManifestModule struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Objectives  []string   `json:"objectives"`
	Assessment  Assessment `json:"assessment"`
	Directory   string     `json:"directory"`
	Steps       []string   `json:"steps"` // ordered section filenames
}

// Manifest is the course_info.json written next to exported content.
// It is the authority the scanner rebuilds course state from.
type Manifest struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Level       Complexity       `json:"level"`
	Modules     []ManifestModule `json:"modules"`
	GeneratedAt time.Time        `json:"generated_at"`
}
