package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/coursecraft/coursecraft-mcp/pkg/types"
)

// OpenAI provider defaults
const (
	ProviderOpenAI = "openai"

	DefaultOpenAIModel   = "gpt-4o-mini"
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"

	// Keeps ProposeModules prompts inside the context window
	maxProposalDocuments = 200
)

// OpenAIService implements Service against the OpenAI chat completions
// API. Analyses are cached by content hash; generation calls are not
// cached because their inputs rarely repeat.
type OpenAIService struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	cache      *Cache
}

// OpenAIOption customizes the service
type OpenAIOption func(*OpenAIService)

// WithModel overrides the default chat model
func WithModel(model string) OpenAIOption {
	return func(s *OpenAIService) {
		if model != "" {
			s.model = model
		}
	}
}

// WithBaseURL points the client at a compatible gateway
func WithBaseURL(url string) OpenAIOption {
	return func(s *OpenAIService) {
		if url != "" {
			s.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// NewOpenAIService creates an OpenAI-backed content service
func NewOpenAIService(apiKey string, cache *Cache, opts ...OpenAIOption) (*OpenAIService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY not set", ErrNoProviderEnabled)
	}

	s := &OpenAIService{
		apiKey:  apiKey,
		model:   DefaultOpenAIModel,
		baseURL: DefaultOpenAIBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache: cache,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *OpenAIService) Provider() string { return ProviderOpenAI }

func (s *OpenAIService) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}

func (s *OpenAIService) AnalyzeDocument(ctx context.Context, req AnalyzeRequest) (*Analysis, error) {
	if err := ValidateAnalyzeRequest(req); err != nil {
		return nil, err
	}

	hash := ComputeHash(req.Content)
	if s.cache != nil {
		if a, ok := s.cache.Get(hash); ok {
			return a, nil
		}
	}

	prompt := fmt.Sprintf(`Analyze this documentation file and respond with JSON:
{"summary": "...", "key_concepts": ["..."], "objectives": ["..."], "doc_type": "..."}

doc_type must be one of: overview, guide, tutorial, reference, api, example, configuration, troubleshooting, changelog, other.
Keep the summary under 50 words and list at most 5 key concepts and 3 learning objectives.

File: %s
Title: %s
Headings: %s

Content:
%s`, req.Path, req.Title, strings.Join(req.Headings, "; "), truncate(req.Content, 8000))

	var analysis Analysis
	if err := s.completeJSON(ctx, prompt, &analysis); err != nil {
		return nil, err
	}
	if strings.TrimSpace(analysis.Summary) == "" {
		return nil, fmt.Errorf("%w: empty analysis", ErrProviderFailed)
	}

	if s.cache != nil {
		s.cache.Set(hash, &analysis)
	}
	return &analysis, nil
}

func (s *OpenAIService) ProposeModules(ctx context.Context, req ProposeRequest) ([]ModuleProposal, error) {
	if len(req.Documents) == 0 {
		return nil, fmt.Errorf("%w: no documents provided", ErrInvalidInput)
	}

	docs := req.Documents
	if len(docs) > maxProposalDocuments {
		docs = docs[:maxProposalDocuments]
	}

	var sb strings.Builder
	for _, d := range docs {
		fmt.Fprintf(&sb, "- %s [%s] %s: %s\n", d.Path, d.DocType, d.Title, truncate(d.Summary, 200))
	}

	prompt := fmt.Sprintf(`Group these documentation files into 3-8 ordered learning modules for a %s-level course about %s.
Respond with JSON: {"modules": [{"title": "...", "description": "...", "objectives": ["..."], "document_paths": ["..."], "assessment": {"title": "...", "concepts": ["..."]}}]}
Order modules from foundational to advanced. Every document_path must be copied verbatim from the list below.
For each module, assessment.concepts lists at most 5 concepts its assessment should probe.

Project overview:
%s

Documents:
%s`, req.Level, req.RepoName, truncate(req.Overview, 2000), sb.String())

	var out struct {
		Modules []ModuleProposal `json:"modules"`
	}
	if err := s.completeJSON(ctx, prompt, &out); err != nil {
		return nil, err
	}
	if len(out.Modules) == 0 {
		return nil, fmt.Errorf("%w: empty module proposal", ErrProviderFailed)
	}
	return out.Modules, nil
}

func (s *OpenAIService) GenerateSection(ctx context.Context, req SectionRequest) (string, error) {
	prompt, err := sectionPrompt(req)
	if err != nil {
		return "", err
	}

	text, err := s.complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty section", ErrProviderFailed)
	}
	return text, nil
}

// sectionPrompt builds the generation prompt for one section kind
func sectionPrompt(req SectionRequest) (string, error) {
	level := req.Level
	if level == "" {
		level = types.Beginner
	}

	var sb strings.Builder
	switch req.Kind {
	case KindWelcome:
		fmt.Fprintf(&sb, "Write a warm welcome message in markdown for a %s-level course titled %q. Explain what the learner will gain and how the course is organized.", level, req.CourseTitle)
	case KindCourseIntroduction:
		fmt.Fprintf(&sb, "Write the opening module content in markdown for a %s-level course titled %q. Introduce the subject, the intended audience, and the prerequisites.", level, req.CourseTitle)
	case KindCourseConclusion:
		fmt.Fprintf(&sb, "Write a closing message in markdown for a %s-level course titled %q. Recap the journey and suggest next steps.", level, req.CourseTitle)
	case KindIntroduction, KindMainContent, KindConclusion, KindAssessment, KindSummary:
		if req.Module == nil {
			return "", fmt.Errorf("%w: module section without module", ErrInvalidInput)
		}
		switch req.Kind {
		case KindIntroduction:
			fmt.Fprintf(&sb, "Write the introduction section in markdown for the module %q (%s). Motivate the topic and preview what the learner will cover.", req.Module.Title, req.Module.Description)
		case KindMainContent:
			fmt.Fprintf(&sb, "Write the main teaching content in markdown for the module %q (%s) at %s level. Teach the concepts with short examples.", req.Module.Title, req.Module.Description, level)
		case KindConclusion:
			fmt.Fprintf(&sb, "Write the conclusion section in markdown for the module %q. Reinforce the key takeaways.", req.Module.Title)
		case KindAssessment:
			title := req.Module.Assessment.Title
			if title == "" {
				title = fmt.Sprintf("Check Your Understanding: %s", req.Module.Title)
			}
			fmt.Fprintf(&sb, "Write an assessment section in markdown titled %q for the module %q: 3 short questions with answers that test the module's objectives.", title, req.Module.Title)
			if concepts := req.Module.Assessment.Concepts; len(concepts) > 0 {
				fmt.Fprintf(&sb, " The questions must probe these concepts: %s.", strings.Join(concepts, "; "))
			}
		case KindSummary:
			fmt.Fprintf(&sb, "Write a compact summary section in markdown for the module %q: a bullet list of the essential points.", req.Module.Title)
		}
		if len(req.Module.Objectives) > 0 {
			fmt.Fprintf(&sb, "\nObjectives: %s", strings.Join(req.Module.Objectives, "; "))
		}
	default:
		return "", fmt.Errorf("%w: unknown section kind %q", ErrInvalidInput, req.Kind)
	}

	for i, ex := range req.Excerpts {
		if i == 0 {
			sb.WriteString("\n\nSource material:\n")
		}
		sb.WriteString(truncate(ex, 3000))
		sb.WriteString("\n---\n")
	}

	return sb.String(), nil
}

// chat completions wire types
type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// complete sends one chat completion with retry and returns the text
func (s *OpenAIService) complete(ctx context.Context, prompt string) (string, error) {
	return s.doComplete(ctx, prompt, nil)
}

// completeJSON sends one chat completion in JSON mode and decodes the
// response into out
func (s *OpenAIService) completeJSON(ctx context.Context, prompt string, out any) error {
	text, err := s.doComplete(ctx, prompt, &respFormat{Type: "json_object"})
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrProviderFailed, err)
	}
	return nil
}

func (s *OpenAIService) doComplete(ctx context.Context, prompt string, format *respFormat) (string, error) {
	config := DefaultRetryConfig()
	text, err := retryWithBackoff(ctx, config, func() (string, error) {
		return s.callAPI(ctx, prompt, format)
	})
	if err != nil {
		return "", fmt.Errorf("%w after %d retries: %v", ErrProviderFailed, MaxRetries, err)
	}
	return text, nil
}

func (s *OpenAIService) callAPI(ctx context.Context, prompt string, format *respFormat) (string, error) {
	reqBody := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a technical course author. Follow the requested output format exactly."},
			{Role: "user", Content: prompt},
		},
		Temperature:    0.3,
		ResponseFormat: format,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(string(body), 500))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return parsed.Choices[0].Message.Content, nil
}

// truncate cuts s to at most max bytes without splitting a rune
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
