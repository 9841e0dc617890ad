package kgtools

import (
	"context"
	"fmt"

	"github.com/cbuntingde/knowgraph/internal/knowledge"
	"github.com/mark3labs/mcp-go/mcp"
)

// ExportGraphTool handles the kg_export_graph MCP tool.
type ExportGraphTool struct {
	store          *knowledge.Store
	defaultProject string
}

// NewExportGraphTool creates an ExportGraphTool.
func NewExportGraphTool(store *knowledge.Store, defaultProject string) *ExportGraphTool {
	return &ExportGraphTool{store: store, defaultProject: defaultProject}
}

// Definition returns the MCP tool definition for kg_export_graph.
func (t *ExportGraphTool) Definition() mcp.Tool {
	return mcp.NewTool("kg_export_graph",
		mcp.WithDescription(
			"Export the knowledge graph as nodes and edges. Nodes may be "+
				"filtered by entity type; edges are always the full set for the "+
				"project, so a filtered export can contain edges whose endpoint "+
				"was excluded by the filter. With a type filter, depth > 1 "+
				"expands the node set along edges up to that many hops.",
		),
		mcp.WithString("entityType",
			mcp.Description("Optional entity type filter for nodes"),
		),
		mcp.WithNumber("depth",
			mcp.Description("Hop count for node expansion under a type filter (default 1, max 5)"),
		),
		mcp.WithString("project_path",
			mcp.Description("Project scope (default: the configured project)"),
		),
	)
}

// Handle processes the kg_export_graph tool call.
func (t *ExportGraphTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project := projectArg(req, t.defaultProject)
	entityType := req.GetString("entityType", "")
	depth := intArg(req, "depth", 1)

	graph, err := t.store.ProjectGraph(project, entityType, depth)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to export graph: %v", err)), nil
	}

	return jsonResult(graph), nil
}
