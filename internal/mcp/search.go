package mcp

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/coursecraft/coursecraft-mcp/internal/course"
	"github.com/coursecraft/coursecraft-mcp/pkg/types"
)

// Context shown around a match
const snippetRadius = 120

// SearchResult is one match in generated course content
type SearchResult struct {
	Level   string `json:"level"`
	Module  string `json:"module"`
	Step    string `json:"step"`
	Score   int    `json:"score"`
	Snippet string `json:"snippet"`
}

// handleSearchCourseContent handles the search_course_content tool
// invocation: a keyword scan over every exported step, scored by term
// frequency
func (s *Server) handleSearchCourseContent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	query := strings.TrimSpace(getStringDefault(args, "query", ""))
	if query == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", 10)
	if limit < 1 || limit > 50 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 50", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	levels, err := s.scanner.ListCourses()
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list courses", errData(err))
	}
	if levelFilter := getStringDefault(args, "level", ""); levelFilter != "" {
		filtered := levels[:0]
		for _, l := range levels {
			if string(l) == levelFilter {
				filtered = append(filtered, l)
			}
		}
		levels = filtered
	}
	if len(levels) == 0 {
		return guidance("No courses to search. Use build_course to generate one first."), nil
	}

	results := s.searchCourses(levels, query)
	if len(results) == 0 {
		return guidance(fmt.Sprintf("No course content matched %q.", query)), nil
	}
	if len(results) > limit {
		results = results[:limit]
	}

	out := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		out = append(out, map[string]interface{}{
			"level":   r.Level,
			"module":  r.Module,
			"step":    r.Step,
			"score":   r.Score,
			"snippet": r.Snippet,
		})
	}
	return jsonResult(map[string]interface{}{
		"query":   query,
		"results": out,
	}), nil
}

// searchCourses scans every step of the given levels for the query terms
func (s *Server) searchCourses(levels []types.Complexity, query string) []SearchResult {
	terms := strings.Fields(strings.ToLower(query))
	var results []SearchResult

	for _, level := range levels {
		manifest, err := s.scanner.Manifest(level)
		if err != nil {
			continue
		}
		for _, mod := range manifest.Modules {
			modName := course.StripOrderPrefix(mod.Directory)
			for _, stepFile := range mod.Steps {
				stepName := course.StripOrderPrefix(
					strings.TrimSuffix(stepFile, filepath.Ext(stepFile)))

				content, err := s.scanner.ReadStep(level, modName, stepName)
				if err != nil {
					if !errors.Is(err, course.ErrStepNotFound) {
						s.logger.Warn("skipping unreadable step during search")
					}
					continue
				}

				score, offset := scoreContent(content, terms)
				if score == 0 {
					continue
				}
				results = append(results, SearchResult{
					Level:   string(level),
					Module:  modName,
					Step:    stepName,
					Score:   score,
					Snippet: snippet(content, offset),
				})
			}
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// scoreContent counts term occurrences and returns the offset of the
// first match for snippet extraction. Zero score means no term matched.
func scoreContent(content string, terms []string) (int, int) {
	lower := strings.ToLower(content)
	score := 0
	first := -1
	for _, term := range terms {
		n := strings.Count(lower, term)
		if n == 0 {
			continue
		}
		score += n
		if idx := strings.Index(lower, term); first == -1 || idx < first {
			first = idx
		}
	}
	if first == -1 {
		return 0, 0
	}
	return score, first
}

// snippet extracts readable context around an offset, keeping the cut
// points on rune boundaries
func snippet(content string, offset int) string {
	start := offset - snippetRadius
	if start < 0 {
		start = 0
	}
	end := offset + snippetRadius
	if end > len(content) {
		end = len(content)
	}
	for start > 0 && !utf8.RuneStart(content[start]) {
		start--
	}
	for end < len(content) && !utf8.RuneStart(content[end]) {
		end++
	}

	text := strings.Join(strings.Fields(content[start:end]), " ")
	if start > 0 {
		text = "…" + text
	}
	if end < len(content) {
		text += "…"
	}
	return text
}
