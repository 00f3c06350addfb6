// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration. It is constructed once in
// main and passed down; packages never read the environment themselves.
type Config struct {
	// StateDir holds learner profile and course progression state.
	StateDir string
	// CacheDir holds repository snapshots and the document tree cache.
	CacheDir string
	// CoursesDir is the default export root for generated courses.
	CoursesDir string
	// BatchSize is the classification batch size for builds.
	BatchSize int
	// Provider selects the content service: "openai" or "static".
	Provider string
	// OpenAIAPIKey enables the OpenAI provider when set.
	OpenAIAPIKey string
	// OpenAIModel overrides the default chat model.
	OpenAIModel string
	// OpenAIBaseURL overrides the API endpoint, for compatible gateways.
	OpenAIBaseURL string
}

// Load reads configuration from the environment, with .env support.
// A missing .env file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolving home directory: %w", err)
	}
	base := filepath.Join(home, ".coursecraft")

	cfg := &Config{
		StateDir:      getEnv("COURSECRAFT_STATE_DIR", filepath.Join(base, "state")),
		CacheDir:      getEnv("COURSECRAFT_CACHE_DIR", filepath.Join(base, "cache")),
		CoursesDir:    getEnv("COURSECRAFT_COURSES_DIR", filepath.Join(base, "courses")),
		BatchSize:     getEnvInt("COURSECRAFT_BATCH_SIZE", 10),
		Provider:      getEnv("COURSECRAFT_PROVIDER", ""),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("COURSECRAFT_BATCH_SIZE must be > 0")
	}
	switch c.Provider {
	case "", "openai", "static":
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.Provider == "openai" && c.OpenAIAPIKey == "" {
		return fmt.Errorf("provider openai requires OPENAI_API_KEY")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
