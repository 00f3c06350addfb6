package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// registerUserTool returns the tool definition for register_user
func registerUserTool() mcp.Tool {
	return mcp.Tool{
		Name:        "register_user",
		Description: "Register the learner profile. Required once before starting any course",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"email": map[string]interface{}{
					"type":        "string",
					"description": "Optional contact email stored with the profile",
				},
			},
		},
	}
}

// startCourseTool returns the tool definition for start_course
func startCourseTool() mcp.Tool {
	return mcp.Tool{
		Name:        "start_course",
		Description: "Start a course at the given level, or resume saved progress. Returns the step to work on now",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"level": map[string]interface{}{
					"type":        "string",
					"description": "Course difficulty level",
					"enum":        []string{"beginner", "intermediate", "advanced"},
					"default":     "beginner",
				},
			},
		},
	}
}

// getCourseStatusTool returns the tool definition for get_course_status
func getCourseStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_course_status",
		Description: "Report course progress: per-module status, completed steps, and the current position",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// nextCourseStepTool returns the tool definition for next_course_step
func nextCourseStepTool() mcp.Tool {
	return mcp.Tool{
		Name:        "next_course_step",
		Description: "Complete the current step and return the next one. On a finished course, reports completion",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// clearCourseHistoryTool returns the tool definition for clear_course_history
func clearCourseHistoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "clear_course_history",
		Description: "Erase saved course progress. Destructive; requires confirm=true",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"confirm": map[string]interface{}{
					"type":        "boolean",
					"description": "Must be true to actually erase progress",
					"default":     false,
				},
			},
		},
	}
}

// listCoursesTool returns the tool definition for list_courses
func listCoursesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_courses",
		Description: "List the generated courses available to start",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// buildCourseTool returns the tool definition for build_course
func buildCourseTool() mcp.Tool {
	return mcp.Tool{
		Name:        "build_course",
		Description: "Build courses from a documentation repository (local path or git URL)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Local directory or git URL of the documentation repository",
				},
				"output_dir": map[string]interface{}{
					"type":        "string",
					"description": "Export root for generated courses (defaults to the configured courses directory)",
				},
				"rebuild": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, ignore the cached document tree and rebuild from source",
					"default":     false,
				},
				"update": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, refresh an existing clone before building",
					"default":     false,
				},
				"include_folders": map[string]interface{}{
					"type":        "array",
					"description": "Restrict discovery to these folders (root documents always included)",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"overview_doc": map[string]interface{}{
					"type":        "string",
					"description": "Relative path of the document to use as project overview context",
				},
				"batch_size": map[string]interface{}{
					"type":        "integer",
					"description": "Classification batch size (1-50)",
					"default":     10,
					"minimum":     1,
					"maximum":     50,
				},
			},
			Required: []string{"path"},
		},
	}
}

// searchCourseContentTool returns the tool definition for search_course_content
func searchCourseContentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_course_content",
		Description: "Keyword search across generated course content",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search terms",
				},
				"level": map[string]interface{}{
					"type":        "string",
					"description": "Restrict to one course level",
					"enum":        []string{"beginner", "intermediate", "advanced"},
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results (1-50)",
					"default":     10,
					"minimum":     1,
					"maximum":     50,
				},
			},
			Required: []string{"query"},
		},
	}
}
