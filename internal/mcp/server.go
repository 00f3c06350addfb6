// Package mcp exposes course building and progression as MCP tools over
// stdio. Handlers translate domain sentinel errors into guidance text so
// a conversational client can always tell the learner what to do next.
package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/coursecraft/coursecraft-mcp/internal/classify"
	"github.com/coursecraft/coursecraft-mcp/internal/config"
	"github.com/coursecraft/coursecraft-mcp/internal/course"
	"github.com/coursecraft/coursecraft-mcp/internal/pipeline"
	"github.com/coursecraft/coursecraft-mcp/internal/progress"
	"github.com/coursecraft/coursecraft-mcp/internal/state"
	"github.com/coursecraft/coursecraft-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "coursecraft-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp     *server.MCPServer
	cfg     *config.Config
	store   storage.Storage
	scanner *course.Scanner
	tracker *progress.Tracker
	pipe    *pipeline.Pipeline
	logger  *zap.Logger
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	store, err := storage.NewSQLiteStorage(filepath.Join(cfg.CacheDir, "trees.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tree cache: %w", err)
	}

	stateStore, err := state.NewStore(cfg.StateDir)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize state store: %w", err)
	}

	factory := classify.FactoryFor(classify.Config{
		Provider:  cfg.Provider,
		APIKey:    cfg.OpenAIAPIKey,
		Model:     cfg.OpenAIModel,
		BaseURL:   cfg.OpenAIBaseURL,
		CacheSize: 10000,
	})

	scanner := course.NewScanner(cfg.CoursesDir)
	tracker := progress.NewTracker(stateStore, scanner, logger)
	pipe := pipeline.New(store, factory, cfg.CacheDir, logger)

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:     mcpServer,
		cfg:     cfg,
		store:   store,
		scanner: scanner,
		tracker: tracker,
		pipe:    pipe,
		logger:  logger,
	}

	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.store.Close() }()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(registerUserTool(), s.handleRegisterUser)
	s.mcp.AddTool(startCourseTool(), s.handleStartCourse)
	s.mcp.AddTool(getCourseStatusTool(), s.handleGetCourseStatus)
	s.mcp.AddTool(nextCourseStepTool(), s.handleNextCourseStep)
	s.mcp.AddTool(clearCourseHistoryTool(), s.handleClearCourseHistory)
	s.mcp.AddTool(listCoursesTool(), s.handleListCourses)
	s.mcp.AddTool(buildCourseTool(), s.handleBuildCourse)
	s.mcp.AddTool(searchCourseContentTool(), s.handleSearchCourseContent)
}
