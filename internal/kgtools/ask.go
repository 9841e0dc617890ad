package kgtools

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/cbuntingde/knowgraph/internal/knowledge"
	"github.com/mark3labs/mcp-go/mcp"
)

// askContextLimit is how many decisions and documentation entities each
// contribute to the answer context.
const askContextLimit = 5

// AskTool handles the kg_ask MCP tool.
//
// Retrieval here is recency-only by contract: the most recent decisions and
// documentation sections are returned regardless of whether they mention
// terms from the question. No ranking is performed.
type AskTool struct {
	store          *knowledge.Store
	defaultProject string
}

// NewAskTool creates an AskTool.
func NewAskTool(store *knowledge.Store, defaultProject string) *AskTool {
	return &AskTool{store: store, defaultProject: defaultProject}
}

// Definition returns the MCP tool definition for kg_ask.
func (t *AskTool) Definition() mcp.Tool {
	return mcp.NewTool("kg_ask",
		mcp.WithDescription(
			"Ask a question against the knowledge graph. Returns the most "+
				"recent recorded decisions and documentation sections as relevant "+
				"context. Questions are logged to the query audit trail.",
		),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The question to answer"),
		),
		mcp.WithString("project_path",
			mcp.Description("Project scope (default: the configured project)"),
		),
	)
}

type askResponse struct {
	Question        string `json:"question"`
	RelevantContext string `json:"relevantContext"`
	SearchQuery     string `json:"searchQuery"`
	Timestamp       string `json:"timestamp"`
}

// Handle processes the kg_ask tool call.
func (t *AskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question := req.GetString("question", "")
	if question == "" {
		return mcp.NewToolResultError("'question' is required"), nil
	}

	project := projectArg(req, t.defaultProject)

	// Fire-and-forget audit entry; a failed write never fails the ask.
	if err := t.store.LogQuery(project, question); err != nil {
		log.Printf("WARNING: query audit log: %v", err)
	}

	decisions, err := t.store.RecentEntities(project, "decision", askContextLimit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ask failed: %v", err)), nil
	}
	docs, err := t.store.RecentEntities(project, "documentation", askContextLimit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ask failed: %v", err)), nil
	}

	return jsonResult(askResponse{
		Question:        question,
		RelevantContext: buildContext(decisions, docs),
		SearchQuery:     question,
		Timestamp:       knowledge.Now(),
	}), nil
}

// buildContext concatenates recent decisions and documentation into a
// single context block.
func buildContext(decisions, docs []knowledge.Entity) string {
	var b strings.Builder

	if len(decisions) > 0 {
		b.WriteString("Recent decisions:\n")
		for _, e := range decisions {
			b.WriteString("- " + formatDecision(e.Content) + "\n")
		}
	}

	if len(docs) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Documentation:\n")
		for _, e := range docs {
			fmt.Fprintf(&b, "- %s: %s\n", e.Name, knowledge.Truncate(e.Content, 200))
		}
	}

	if b.Len() == 0 {
		return "No recorded decisions or documentation yet."
	}
	return b.String()
}

// formatDecision renders stored decision content as "decision: rationale".
// Content that does not decode as a DecisionRecord is used raw — the
// defined fallback for auto-captured decisions, which are plain text.
func formatDecision(content string) string {
	var rec DecisionRecord
	if err := json.Unmarshal([]byte(content), &rec); err != nil || rec.Decision == "" {
		return content
	}
	s := rec.Decision + ": " + rec.Rationale
	if rec.Alternatives != "" {
		s += " (alternatives: " + rec.Alternatives + ")"
	}
	return s
}
