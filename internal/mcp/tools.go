package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/coursecraft/coursecraft-mcp/internal/pipeline"
	"github.com/coursecraft/coursecraft-mcp/internal/progress"
	"github.com/coursecraft/coursecraft-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
)

// handleRegisterUser handles the register_user tool invocation
func (s *Server) handleRegisterUser(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	email := getStringDefault(args, "email", "")

	profile, err := s.tracker.Register(email)
	if errors.Is(err, progress.ErrAlreadyRegistered) {
		return guidance("You are already registered. Use start_course to begin or resume a course."), nil
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "registration failed", errData(err))
	}

	return jsonResult(map[string]interface{}{
		"registered": true,
		"user_id":    profile.UserID,
		"message":    "Registration complete. Use start_course to begin learning.",
	}), nil
}

// handleStartCourse handles the start_course tool invocation
func (s *Server) handleStartCourse(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	level := types.ParseComplexity(getStringDefault(args, "level", "beginner"), "")
	if level == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid level", map[string]interface{}{
			"param":   "level",
			"allowed": []string{"beginner", "intermediate", "advanced"},
		})
	}

	step, err := s.tracker.StartOrResume(level)
	switch {
	case errors.Is(err, progress.ErrNotRegistered):
		return guidance("No learner profile found. Call register_user first."), nil
	case errors.Is(err, progress.ErrCourseNotFound):
		return guidance(fmt.Sprintf("No %s course has been generated yet. Use build_course to create one from a documentation repository.", level)), nil
	case err != nil:
		return nil, newMCPError(ErrorCodeInternalError, "failed to start course", errData(err))
	}

	return stepResult(step), nil
}

// handleGetCourseStatus handles the get_course_status tool invocation
func (s *Server) handleGetCourseStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.tracker.Status()
	if errors.Is(err, progress.ErrNoProgress) {
		return guidance("No course in progress. Use start_course to begin one."), nil
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to read status", errData(err))
	}

	modules := make([]map[string]interface{}, 0, len(report.Modules))
	for _, m := range report.Modules {
		modules = append(modules, map[string]interface{}{
			"name":            m.Name,
			"status":          m.Status.String(),
			"completed_steps": m.CompletedSteps,
			"total_steps":     m.TotalSteps,
		})
	}

	response := map[string]interface{}{
		"title":           report.Title,
		"level":           string(report.Level),
		"completed_steps": report.CompletedSteps,
		"total_steps":     report.TotalSteps,
		"completed":       report.Completed,
		"modules":         modules,
	}
	if report.CurrentModule != "" {
		response["current_module"] = report.CurrentModule
		response["current_step"] = report.CurrentStep
	}

	return jsonResult(response), nil
}

// handleNextCourseStep handles the next_course_step tool invocation
func (s *Server) handleNextCourseStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	step, err := s.tracker.Advance()
	switch {
	case errors.Is(err, progress.ErrNoProgress):
		return guidance("No course in progress. Use start_course to begin one."), nil
	case errors.Is(err, progress.ErrNoActiveStep):
		return guidance("No step is currently active. Use start_course to resume from where you left off."), nil
	case err != nil:
		return nil, newMCPError(ErrorCodeInternalError, "failed to advance", errData(err))
	}

	return stepResult(step), nil
}

// handleClearCourseHistory handles the clear_course_history tool invocation
func (s *Server) handleClearCourseHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	confirm := getBoolDefault(args, "confirm", false)

	existed, err := s.tracker.Reset(confirm)
	if errors.Is(err, progress.ErrConfirmationRequired) {
		return guidance("This erases all course progress. Call again with confirm=true to proceed."), nil
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to clear history", errData(err))
	}

	message := "No course progress existed."
	if existed {
		message = "Course progress cleared. Use start_course to begin fresh."
	}
	return jsonResult(map[string]interface{}{
		"cleared": existed,
		"message": message,
	}), nil
}

// handleListCourses handles the list_courses tool invocation
func (s *Server) handleListCourses(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	levels, err := s.scanner.ListCourses()
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list courses", errData(err))
	}
	if len(levels) == 0 {
		return guidance("No courses have been generated yet. Use build_course to create one from a documentation repository."), nil
	}

	courses := make([]map[string]interface{}, 0, len(levels))
	for _, level := range levels {
		entry := map[string]interface{}{"level": string(level)}
		if m, err := s.scanner.Manifest(level); err == nil {
			entry["title"] = m.Title
			entry["description"] = m.Description
			entry["modules"] = len(m.Modules)
		}
		courses = append(courses, entry)
	}

	return jsonResult(map[string]interface{}{"courses": courses}), nil
}

// handleBuildCourse handles the build_course tool invocation
func (s *Server) handleBuildCourse(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	path := getStringDefault(args, "path", "")
	if path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	batchSize := getIntDefault(args, "batch_size", s.cfg.BatchSize)
	if batchSize < 1 || batchSize > 50 {
		return nil, newMCPError(ErrorCodeInvalidParams, "batch_size must be between 1 and 50", map[string]interface{}{
			"param": "batch_size",
			"value": batchSize,
		})
	}

	opts := pipeline.Options{
		Source:         path,
		Output:         getStringDefault(args, "output_dir", s.cfg.CoursesDir),
		Rebuild:        getBoolDefault(args, "rebuild", false),
		Update:         getBoolDefault(args, "update", false),
		IncludeFolders: getStringSlice(args, "include_folders"),
		OverviewDoc:    getStringDefault(args, "overview_doc", ""),
		BatchSize:      batchSize,
	}

	result, err := s.pipe.Run(ctx, opts)
	switch {
	case errors.Is(err, pipeline.ErrNoDocuments):
		return guidance("No markdown documentation was found in that repository. Check the path or the include_folders filter."), nil
	case errors.Is(err, pipeline.ErrNoCourses):
		return guidance("The documentation could not be formed into any course. Try a repository with more substantial docs."), nil
	case err != nil:
		return nil, newMCPError(ErrorCodeInternalError, "build failed", errData(err))
	}

	courses := make([]string, 0, len(result.Courses))
	for _, c := range result.Courses {
		courses = append(courses, string(c))
	}

	return jsonResult(map[string]interface{}{
		"built":         true,
		"repo":          result.RepoName,
		"documents":     result.Documents,
		"soft_failures": result.SoftFailures,
		"hard_failures": result.HardFailures,
		"from_cache":    result.FromCache,
		"courses":       courses,
		"duration_ms":   result.Duration.Milliseconds(),
		"message":       "Courses built. Use start_course to begin learning.",
	}), nil
}

// Helper functions

// arguments extracts the raw argument map from a request
func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	return args
}

// guidance wraps learner-facing instruction text in a tool result
func guidance(text string) *mcp.CallToolResult {
	return mcp.NewToolResultText(text)
}

// stepResult formats a progression step for the client
func stepResult(step *progress.StepContent) *mcp.CallToolResult {
	response := map[string]interface{}{
		"level":           string(step.Level),
		"completed":       step.Completed,
		"completed_steps": step.CompletedSteps,
		"total_steps":     step.TotalSteps,
		"content":         step.Content,
	}
	if !step.Completed {
		response["module"] = step.Module
		response["step"] = step.Step
	}
	return jsonResult(response)
}

// jsonResult formats a map as an indented JSON tool result
func jsonResult(data map[string]interface{}) *mcp.CallToolResult {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("%v", data))
	}
	return mcp.NewToolResultText(string(bytes))
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func errData(err error) map[string]interface{} {
	return map[string]interface{}{"error": err.Error()}
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a string array parameter
func getStringSlice(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
