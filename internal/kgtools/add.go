package kgtools

import (
	"context"
	"fmt"

	"github.com/cbuntingde/knowgraph/internal/knowledge"
	"github.com/mark3labs/mcp-go/mcp"
)

// AddEntityTool handles the kg_add_entity MCP tool.
type AddEntityTool struct {
	store          *knowledge.Store
	defaultProject string
}

// NewAddEntityTool creates an AddEntityTool.
func NewAddEntityTool(store *knowledge.Store, defaultProject string) *AddEntityTool {
	return &AddEntityTool{store: store, defaultProject: defaultProject}
}

// Definition returns the MCP tool definition for kg_add_entity.
func (t *AddEntityTool) Definition() mcp.Tool {
	return mcp.NewTool("kg_add_entity",
		mcp.WithDescription(
			"Add an entity to the knowledge graph. Entities are named, typed "+
				"records (architecture, decision, pattern, component, concept, "+
				"documentation, or any custom type). Repeated adds with the same "+
				"name create distinct entities.",
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Entity name (display and lookup key)"),
		),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Entity type tag"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Entity content (free text)"),
		),
		mcp.WithString("metadata",
			mcp.Description("Optional metadata as a JSON string, stored verbatim"),
		),
		mcp.WithString("project_path",
			mcp.Description("Project scope (default: the configured project)"),
		),
	)
}

type addEntityResponse struct {
	Success  bool   `json:"success"`
	EntityID string `json:"entityId"`
	Name     string `json:"name"`
	Type     string `json:"type"`
}

// Handle processes the kg_add_entity tool call.
func (t *AddEntityTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	entityType := req.GetString("type", "")
	content := req.GetString("content", "")

	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}
	if entityType == "" {
		return mcp.NewToolResultError("'type' is required"), nil
	}
	if content == "" {
		return mcp.NewToolResultError("'content' is required"), nil
	}

	e, err := t.store.AddEntity(knowledge.AddEntityParams{
		ProjectPath: projectArg(req, t.defaultProject),
		Name:        name,
		Type:        entityType,
		Content:     content,
		Metadata:    req.GetString("metadata", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to add entity: %v", err)), nil
	}

	return jsonResult(addEntityResponse{
		Success:  true,
		EntityID: e.ID,
		Name:     e.Name,
		Type:     e.Type,
	}), nil
}
