package kgtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cbuntingde/knowgraph/internal/knowledge"
	"github.com/cbuntingde/knowgraph/internal/session"
	"github.com/mark3labs/mcp-go/mcp"
)

// ─── ListSessionsTool ───────────────────────────────────────────────────────

// ListSessionsTool handles the kg_list_sessions MCP tool.
type ListSessionsTool struct {
	store          *knowledge.Store
	defaultProject string
}

// NewListSessionsTool creates a ListSessionsTool.
func NewListSessionsTool(store *knowledge.Store, defaultProject string) *ListSessionsTool {
	return &ListSessionsTool{store: store, defaultProject: defaultProject}
}

// Definition returns the MCP tool definition for kg_list_sessions.
func (t *ListSessionsTool) Definition() mcp.Tool {
	return mcp.NewTool("kg_list_sessions",
		mcp.WithDescription(
			"List recent work sessions for the project, newest first.",
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum sessions to return (default 10)"),
		),
		mcp.WithString("project_path",
			mcp.Description("Project scope (default: the configured project)"),
		),
	)
}

type sessionEntry struct {
	ID            string   `json:"id"`
	StartTime     string   `json:"startTime"`
	EndTime       *string  `json:"endTime"`
	Summary       *string  `json:"summary"`
	KeyDecisions  *string  `json:"keyDecisions"`
	FilesModified []string `json:"filesModified"`
}

type listSessionsResponse struct {
	Count    int            `json:"count"`
	Sessions []sessionEntry `json:"sessions"`
}

// Handle processes the kg_list_sessions tool call.
func (t *ListSessionsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project := projectArg(req, t.defaultProject)
	limit := intArg(req, "limit", 10)

	sessions, err := t.store.RecentSessions(project, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list sessions: %v", err)), nil
	}

	resp := listSessionsResponse{Count: len(sessions), Sessions: []sessionEntry{}}
	for _, s := range sessions {
		resp.Sessions = append(resp.Sessions, sessionEntry{
			ID:            s.ID,
			StartTime:     s.StartTime,
			EndTime:       s.EndTime,
			Summary:       s.Summary,
			KeyDecisions:  s.KeyDecisions,
			FilesModified: s.FilesModified,
		})
	}

	return jsonResult(resp), nil
}

// ─── SummarizeSessionTool ───────────────────────────────────────────────────

// SummarizeSessionTool handles the kg_summarize_session MCP tool.
type SummarizeSessionTool struct {
	tracker *session.Tracker
}

// NewSummarizeSessionTool creates a SummarizeSessionTool.
func NewSummarizeSessionTool(tracker *session.Tracker) *SummarizeSessionTool {
	return &SummarizeSessionTool{tracker: tracker}
}

// Definition returns the MCP tool definition for kg_summarize_session.
func (t *SummarizeSessionTool) Definition() mcp.Tool {
	return mcp.NewTool("kg_summarize_session",
		mcp.WithDescription(
			"Record a summary for the current session: what was done, key "+
				"decisions, and files modified. Calling again updates the same "+
				"session rather than creating a new one.",
		),
		mcp.WithString("summary",
			mcp.Required(),
			mcp.Description("What the session accomplished"),
		),
		mcp.WithString("decisions",
			mcp.Required(),
			mcp.Description("Key decisions made during the session"),
		),
		mcp.WithString("files",
			mcp.Required(),
			mcp.Description("Comma-separated list of files modified"),
		),
	)
}

type summarizeResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId"`
}

// Handle processes the kg_summarize_session tool call.
func (t *SummarizeSessionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary := req.GetString("summary", "")
	decisions := req.GetString("decisions", "")
	files := req.GetString("files", "")

	if summary == "" {
		return mcp.NewToolResultError("'summary' is required"), nil
	}
	if decisions == "" {
		return mcp.NewToolResultError("'decisions' is required"), nil
	}

	id, err := t.tracker.Summarize(summary, decisions, splitFiles(files))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to summarize session: %v", err)), nil
	}

	return jsonResult(summarizeResponse{Success: true, SessionID: id}), nil
}

// splitFiles parses a comma-separated file list, dropping empties.
func splitFiles(files string) []string {
	var out []string
	for _, f := range strings.Split(files, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
