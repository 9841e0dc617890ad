// Package kgtools provides the MCP tool handlers for the knowledge graph.
//
// Each handler follows the same pattern:
// - A struct with dependencies injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() processes the request and returns a result
//
// Handlers render their payloads as JSON text so callers get a structured
// result even on partial failure; only hard failures (unresolved entity,
// storage unavailable) surface as tool errors.
package kgtools

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// projectArg resolves the project scope for a request: an explicit
// project_path argument wins, otherwise the configured default applies.
func projectArg(req mcp.CallToolRequest, defaultPath string) string {
	if p := req.GetString("project_path", ""); p != "" {
		return p
	}
	return defaultPath
}

// jsonResult marshals a payload into a text tool result.
func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err))
	}
	return mcp.NewToolResultText(string(data))
}
