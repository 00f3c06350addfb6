package course

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/coursecraft/coursecraft-mcp/pkg/types"
)

// Canonical filenames inside an exported course
const (
	ManifestFile   = "course_info.json"
	WelcomeFile    = "00-welcome.md"
	ConclusionFile = "99-conclusion.md"
)

// ErrNothingToExport is returned for a course with no modules
var ErrNothingToExport = errors.New("course has no modules to export")

// sectionFiles are the ordered step filenames inside a module directory
var sectionFiles = []string{
	"01-introduction.md",
	"02-main-content.md",
	"03-conclusion.md",
	"04-assessment.md",
	"05-summary.md",
}

// Exporter writes generated courses into the canonical layout
type Exporter struct {
	logger *zap.Logger
}

// NewExporter creates an Exporter
func NewExporter(logger *zap.Logger) *Exporter {
	return &Exporter{logger: logger}
}

// Export writes one generated course under outRoot/<level>/ and returns
// the course directory. The layout is the contract the scanner and the
// progression tracker depend on: a manifest, a welcome file, one
// numbered directory of five numbered steps per module, and a trailing
// conclusion file.
func (e *Exporter) Export(gen *types.GeneratedCourse, outRoot string) (string, error) {
	if len(gen.Course.Modules) == 0 {
		return "", fmt.Errorf("%w: level %s", ErrNothingToExport, gen.Course.Level)
	}

	dir := filepath.Join(outRoot, string(gen.Course.Level))
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("clearing %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}

	if err := writeFile(filepath.Join(dir, WelcomeFile), gen.Course.Welcome); err != nil {
		return "", err
	}

	manifest := types.Manifest{
		Title:       gen.Course.Title,
		Description: gen.Course.Description,
		Level:       gen.Course.Level,
		GeneratedAt: time.Now(),
	}

	for _, mod := range gen.Course.Modules {
		content, ok := gen.Content[mod.ID]
		if !ok {
			return "", fmt.Errorf("module %s has no generated content", mod.ID)
		}

		modDir := filepath.Join(dir, mod.ID)
		if err := os.MkdirAll(modDir, 0o755); err != nil {
			return "", fmt.Errorf("creating %s: %w", modDir, err)
		}

		sections := content.Sections()
		for i, name := range types.SectionNames() {
			if err := writeFile(filepath.Join(modDir, sectionFiles[i]), sections[name]); err != nil {
				return "", err
			}
		}

		manifest.Modules = append(manifest.Modules, types.ManifestModule{
			ID:          mod.ID,
			Title:       mod.Title,
			Description: mod.Description,
			Objectives:  mod.Objectives,
			Assessment:  mod.Assessment,
			Directory:   mod.ID,
			Steps:       append([]string(nil), sectionFiles...),
		})
	}

	if err := writeFile(filepath.Join(dir, ConclusionFile), gen.Conclusion); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding manifest: %w", err)
	}
	if err := writeFile(filepath.Join(dir, ManifestFile), string(data)); err != nil {
		return "", err
	}

	e.logger.Info("exported course",
		zap.String("level", string(gen.Course.Level)),
		zap.String("dir", dir),
		zap.Int("modules", len(manifest.Modules)))

	return dir, nil
}

func writeFile(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
