package kgtools

import (
	"context"
	"fmt"

	"github.com/cbuntingde/knowgraph/internal/knowledge"
	"github.com/mark3labs/mcp-go/mcp"
)

// SearchTool handles the kg_search MCP tool.
type SearchTool struct {
	store          *knowledge.Store
	defaultProject string
	defaultLimit   int
}

// NewSearchTool creates a SearchTool.
func NewSearchTool(store *knowledge.Store, defaultProject string, defaultLimit int) *SearchTool {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	return &SearchTool{store: store, defaultProject: defaultProject, defaultLimit: defaultLimit}
}

// Definition returns the MCP tool definition for kg_search.
func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("kg_search",
		mcp.WithDescription(
			"Search the knowledge graph for entities matching a query. "+
				"Matches entity names and content (case-insensitive substring), "+
				"most recently updated first.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search text matched against entity names and content"),
		),
		mcp.WithString("type",
			mcp.Description("Optional exact entity type filter (e.g. decision, documentation, component)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results to return (default 10)"),
		),
		mcp.WithString("project_path",
			mcp.Description("Project scope (default: the configured project)"),
		),
	)
}

type searchResultEntry struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	Updated string `json:"updated"`
}

type searchResponse struct {
	Query   string              `json:"query"`
	Count   int                 `json:"count"`
	Results []searchResultEntry `json:"results"`
}

// Handle processes the kg_search tool call.
func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}

	project := projectArg(req, t.defaultProject)
	entityType := req.GetString("type", "")
	limit := intArg(req, "limit", t.defaultLimit)

	entities, err := t.store.SearchEntities(project, query, entityType, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	resp := searchResponse{Query: query, Count: len(entities), Results: []searchResultEntry{}}
	for _, e := range entities {
		resp.Results = append(resp.Results, searchResultEntry{
			ID:      e.ID,
			Type:    e.Type,
			Name:    e.Name,
			Content: e.Content,
			Updated: e.UpdatedAt,
		})
	}

	return jsonResult(resp), nil
}
