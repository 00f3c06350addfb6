package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFrontMatter(t *testing.T) {
	content := `---
title: Getting Started
tags:
  - intro
---
# Ignored H1

Some body text here.
`
	meta := Extract(content, "getting-started.md")

	require.NotNil(t, meta.FrontMatter)
	assert.Equal(t, "Getting Started", meta.Title)
	assert.Equal(t, "Getting Started", meta.FrontMatter["title"])
}

func TestExtractMalformedFrontMatterDegrades(t *testing.T) {
	content := `---
title: [unclosed
---
# Real Title

Body.
`
	meta := Extract(content, "doc.md")

	assert.Nil(t, meta.FrontMatter)
	assert.Equal(t, "Real Title", meta.Title)
}

func TestTitleFallbackChain(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		filename string
		want     string
	}{
		{
			name:     "first H1 wins without front matter",
			content:  "intro text\n# Install Guide\n## Section",
			filename: "install.md",
			want:     "Install Guide",
		},
		{
			name:     "filename humanized when no headings",
			content:  "just some text",
			filename: "docs/api_reference-v2.md",
			want:     "api reference v2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := Extract(tt.content, tt.filename)
			assert.Equal(t, tt.want, meta.Title)
		})
	}
}

func TestExtractHeadingsSkipCodeBlocks(t *testing.T) {
	content := "# Top\n\n```bash\n# not a heading\necho hi\n```\n\n## Second\n"
	meta := Extract(content, "doc.md")

	assert.Equal(t, []string{"# Top", "## Second"}, meta.Headings)
}

func TestExtractCodeBlocks(t *testing.T) {
	content := "```go\nfmt.Println(\"hi\")\n```\n\n```python\nprint('hi')\nprint('again')\n```\n"
	meta := Extract(content, "doc.md")

	require.Len(t, meta.CodeBlocks, 2)
	assert.Equal(t, "go", meta.CodeBlocks[0].Language)
	assert.Equal(t, "python", meta.CodeBlocks[1].Language)
	assert.True(t, meta.HasExamples)
	// python has more character mass
	assert.Equal(t, "python", meta.PrimaryLanguage)
}

func TestExtractLinks(t *testing.T) {
	content := "See [the guide](docs/guide.md) and [upstream](https://example.com/docs)."
	meta := Extract(content, "doc.md")

	require.Len(t, meta.Links, 2)
	assert.True(t, meta.Links[0].Internal)
	assert.False(t, meta.Links[1].Internal)
	assert.Equal(t, "the guide", meta.Links[0].Text)
}

func TestWordCountExcludesCode(t *testing.T) {
	content := "one two three\n\n```go\nthese words do not count at all here\n```\n"
	meta := Extract(content, "doc.md")

	assert.Equal(t, 3, meta.WordCount)
	assert.Equal(t, 1, meta.ReadingMinutes)
}

func TestHasAPIDocs(t *testing.T) {
	meta := Extract("## API Reference\n\ntext", "doc.md")
	assert.True(t, meta.HasAPIDocs)

	meta = Extract("plain text", "rest-api.md")
	assert.True(t, meta.HasAPIDocs)

	meta = Extract("plain text", "notes.md")
	assert.False(t, meta.HasAPIDocs)
}
