package classify

import (
	"fmt"
	"os"
	"strings"
)

// Config holds content service configuration
type Config struct {
	Provider  string
	APIKey    string
	Model     string
	BaseURL   string
	CacheSize int
}

// New creates a content service with explicit configuration
func New(cfg Config) (Service, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		return NewOpenAIService(cfg.APIKey, cache,
			WithModel(cfg.Model), WithBaseURL(cfg.BaseURL))
	case ProviderStatic, "":
		return NewStaticService(cache), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}

// NewFromEnv creates a content service based on environment variables.
// Priority:
// 1. COURSECRAFT_PROVIDER (openai, static)
// 2. OPENAI_API_KEY present
// 3. Default to the static provider
func NewFromEnv() (Service, error) {
	cfg := Config{
		Provider:  os.Getenv("COURSECRAFT_PROVIDER"),
		APIKey:    os.Getenv("OPENAI_API_KEY"),
		Model:     os.Getenv("OPENAI_MODEL"),
		BaseURL:   os.Getenv("OPENAI_BASE_URL"),
		CacheSize: 10000,
	}

	if cfg.Provider == "" && cfg.APIKey != "" {
		cfg.Provider = ProviderOpenAI
	}
	return New(cfg)
}

// DetectProvider returns the provider NewFromEnv would select
func DetectProvider() string {
	if p := os.Getenv("COURSECRAFT_PROVIDER"); p != "" {
		return strings.ToLower(p)
	}
	if os.Getenv("OPENAI_API_KEY") != "" {
		return ProviderOpenAI
	}
	return ProviderStatic
}

// FactoryFor returns a Factory producing services with the given
// configuration. Batch workers call the factory once each so every
// goroutine re-establishes its own client.
func FactoryFor(cfg Config) Factory {
	return func() (Service, error) {
		return New(cfg)
	}
}
