package kgtools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cbuntingde/knowgraph/internal/knowledge"
	"github.com/mark3labs/mcp-go/mcp"
)

// DecisionRecord is the structured content stored for recorded decisions.
// It round-trips through the entity content column as JSON text; kg_ask
// parses it back out when assembling context.
type DecisionRecord struct {
	Decision     string `json:"decision"`
	Rationale    string `json:"rationale"`
	Alternatives string `json:"alternatives,omitempty"`
	Timestamp    string `json:"timestamp"`
}

// RecordDecisionTool handles the kg_record_decision MCP tool.
type RecordDecisionTool struct {
	store          *knowledge.Store
	defaultProject string
}

// NewRecordDecisionTool creates a RecordDecisionTool.
func NewRecordDecisionTool(store *knowledge.Store, defaultProject string) *RecordDecisionTool {
	return &RecordDecisionTool{store: store, defaultProject: defaultProject}
}

// Definition returns the MCP tool definition for kg_record_decision.
func (t *RecordDecisionTool) Definition() mcp.Tool {
	return mcp.NewTool("kg_record_decision",
		mcp.WithDescription(
			"Record a project decision with its rationale and any alternatives "+
				"considered. Decisions are surfaced by kg_ask and in session "+
				"continuity context.",
		),
		mcp.WithString("decision",
			mcp.Required(),
			mcp.Description("The decision that was made"),
		),
		mcp.WithString("rationale",
			mcp.Required(),
			mcp.Description("Why this decision was made"),
		),
		mcp.WithString("alternatives",
			mcp.Description("Alternatives that were considered and rejected"),
		),
		mcp.WithString("project_path",
			mcp.Description("Project scope (default: the configured project)"),
		),
	)
}

type recordDecisionResponse struct {
	Success    bool   `json:"success"`
	DecisionID string `json:"decisionId"`
	Decision   string `json:"decision"`
}

// Handle processes the kg_record_decision tool call.
func (t *RecordDecisionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	decision := req.GetString("decision", "")
	rationale := req.GetString("rationale", "")

	if decision == "" {
		return mcp.NewToolResultError("'decision' is required"), nil
	}
	if rationale == "" {
		return mcp.NewToolResultError("'rationale' is required"), nil
	}

	record := DecisionRecord{
		Decision:     decision,
		Rationale:    rationale,
		Alternatives: req.GetString("alternatives", ""),
		Timestamp:    knowledge.Now(),
	}
	content, err := json.Marshal(record)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding decision: %v", err)), nil
	}

	e, err := t.store.AddEntity(knowledge.AddEntityParams{
		ProjectPath: projectArg(req, t.defaultProject),
		Name:        fmt.Sprintf("decision-%d", time.Now().UnixNano()),
		Type:        "decision",
		Content:     string(content),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to record decision: %v", err)), nil
	}

	return jsonResult(recordDecisionResponse{
		Success:    true,
		DecisionID: e.ID,
		Decision:   knowledge.Truncate(decision, 100),
	}), nil
}
