// Package extract performs deterministic structural extraction over
// markdown documents: front matter, title, headings, code blocks, links,
// and reading statistics. Extraction never calls external services and
// never fails a document; malformed input degrades to weaker metadata.
package extract

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/coursecraft/coursecraft-mcp/pkg/types"
)

// Reading speed used for the reading-minutes estimate
const wordsPerMinute = 200

var (
	headingRe   = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)
	codeFenceRe = regexp.MustCompile("(?s)```([a-zA-Z0-9_+-]*)\n(.*?)```")
	linkRe      = regexp.MustCompile(`\[([^\]]*)\]\(([^)\s]+)\)`)
)

// Extract parses a document's content into structural metadata. The
// filename is used for the title fallback and is never read from disk.
func Extract(content, filename string) types.DocumentMeta {
	frontMatter, body := splitFrontMatter(content)

	meta := types.DocumentMeta{
		FrontMatter: frontMatter,
		Headings:    extractHeadings(body),
		CodeBlocks:  extractCodeBlocks(body),
		Links:       extractLinks(body),
	}

	meta.Title = resolveTitle(frontMatter, meta.Headings, filename)
	meta.WordCount = countWords(stripCode(body))
	meta.ReadingMinutes = (meta.WordCount + wordsPerMinute - 1) / wordsPerMinute
	meta.PrimaryLanguage = primaryLanguage(meta.CodeBlocks)
	meta.HasExamples = len(meta.CodeBlocks) > 0 || containsHeading(meta.Headings, "example")
	meta.HasAPIDocs = containsHeading(meta.Headings, "api") ||
		strings.Contains(strings.ToLower(filename), "api")

	return meta
}

// splitFrontMatter separates a leading YAML front-matter block from the
// body. Malformed YAML is ignored and the full content is returned as
// the body.
func splitFrontMatter(content string) (map[string]any, string) {
	if !strings.HasPrefix(content, "---\n") && !strings.HasPrefix(content, "---\r\n") {
		return nil, content
	}
	rest := content[strings.Index(content, "\n")+1:]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return nil, content
	}
	block := rest[:end]
	body := rest[end+len("\n---"):]
	if i := strings.Index(body, "\n"); i >= 0 {
		body = body[i+1:]
	} else {
		body = ""
	}

	var fm map[string]any
	if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
		return nil, content
	}
	return fm, body
}

// resolveTitle prefers front-matter title, then the first H1, then a
// humanized filename
func resolveTitle(fm map[string]any, headings []string, filename string) string {
	if fm != nil {
		if t, ok := fm["title"].(string); ok && strings.TrimSpace(t) != "" {
			return strings.TrimSpace(t)
		}
	}
	for _, h := range headings {
		if strings.HasPrefix(h, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(h, "# "))
		}
	}
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	return strings.TrimSpace(base)
}

func extractHeadings(body string) []string {
	clean := stripCode(body)
	matches := headingRe.FindAllStringSubmatch(clean, -1)
	headings := make([]string, 0, len(matches))
	for _, m := range matches {
		headings = append(headings, m[1]+" "+strings.TrimSpace(m[2]))
	}
	return headings
}

func extractCodeBlocks(body string) []types.CodeBlock {
	matches := codeFenceRe.FindAllStringSubmatch(body, -1)
	blocks := make([]types.CodeBlock, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, types.CodeBlock{
			Language: strings.ToLower(m[1]),
			Content:  strings.TrimRight(m[2], "\n"),
		})
	}
	return blocks
}

func extractLinks(body string) []types.Link {
	matches := linkRe.FindAllStringSubmatch(body, -1)
	links := make([]types.Link, 0, len(matches))
	for _, m := range matches {
		url := m[2]
		internal := !strings.HasPrefix(url, "http://") &&
			!strings.HasPrefix(url, "https://") &&
			!strings.HasPrefix(url, "mailto:")
		links = append(links, types.Link{Text: m[1], URL: url, Internal: internal})
	}
	return links
}

// stripCode removes fenced code blocks so headings and word counts only
// see prose
func stripCode(body string) string {
	return codeFenceRe.ReplaceAllString(body, "")
}

func countWords(s string) int {
	return len(strings.Fields(s))
}

// primaryLanguage picks the language with the most code-block characters
func primaryLanguage(blocks []types.CodeBlock) string {
	if len(blocks) == 0 {
		return ""
	}
	mass := make(map[string]int)
	for _, b := range blocks {
		if b.Language == "" {
			continue
		}
		mass[b.Language] += len(b.Content)
	}
	if len(mass) == 0 {
		return ""
	}
	langs := make([]string, 0, len(mass))
	for l := range mass {
		langs = append(langs, l)
	}
	// Sort for a stable winner when masses tie
	sort.Strings(langs)
	best := langs[0]
	for _, l := range langs[1:] {
		if mass[l] > mass[best] {
			best = l
		}
	}
	return best
}

func containsHeading(headings []string, needle string) bool {
	for _, h := range headings {
		if strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	return false
}
