package kgtools

import (
	"context"
	"fmt"

	"github.com/cbuntingde/knowgraph/internal/knowledge"
	"github.com/mark3labs/mcp-go/mcp"
)

// ConnectTool handles the kg_connect MCP tool.
type ConnectTool struct {
	store          *knowledge.Store
	defaultProject string
}

// NewConnectTool creates a ConnectTool.
func NewConnectTool(store *knowledge.Store, defaultProject string) *ConnectTool {
	return &ConnectTool{store: store, defaultProject: defaultProject}
}

// Definition returns the MCP tool definition for kg_connect.
func (t *ConnectTool) Definition() mcp.Tool {
	return mcp.NewTool("kg_connect",
		mcp.WithDescription(
			"Create a directed, typed relationship between two entities. "+
				"Source and target may be entity IDs, exact names, or unique "+
				"name fragments. Common types: depends_on, implements, contains, "+
				"related_to.",
		),
		mcp.WithString("source",
			mcp.Required(),
			mcp.Description("Source entity (id, name, or unique name fragment)"),
		),
		mcp.WithString("target",
			mcp.Required(),
			mcp.Description("Target entity (id, name, or unique name fragment)"),
		),
		mcp.WithString("relationship",
			mcp.Required(),
			mcp.Description("Relationship type"),
		),
		mcp.WithString("metadata",
			mcp.Description("Optional metadata as a JSON string, stored verbatim"),
		),
		mcp.WithString("project_path",
			mcp.Description("Project scope (default: the configured project)"),
		),
	)
}

type connectResponse struct {
	Success        bool   `json:"success"`
	RelationshipID string `json:"relationshipId"`
	From           string `json:"from"`
	To             string `json:"to"`
	Type           string `json:"type"`
}

// Handle processes the kg_connect tool call.
func (t *ConnectTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source := req.GetString("source", "")
	target := req.GetString("target", "")
	relType := req.GetString("relationship", "")

	if source == "" {
		return mcp.NewToolResultError("'source' is required"), nil
	}
	if target == "" {
		return mcp.NewToolResultError("'target' is required"), nil
	}
	if relType == "" {
		return mcp.NewToolResultError("'relationship' is required"), nil
	}

	res, err := t.store.Connect(knowledge.ConnectParams{
		ProjectPath: projectArg(req, t.defaultProject),
		Source:      source,
		Target:      target,
		Type:        relType,
		Metadata:    req.GetString("metadata", ""),
	})
	if err != nil {
		// The error already names the unresolved or ambiguous side(s).
		return mcp.NewToolResultError(fmt.Sprintf("failed to connect: %v", err)), nil
	}

	return jsonResult(connectResponse{
		Success:        true,
		RelationshipID: res.ID,
		From:           res.SourceName,
		To:             res.TargetName,
		Type:           res.Type,
	}), nil
}
