// Package resources implements MCP resource handlers for the knowledge graph.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (knowgraph://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cbuntingde/knowgraph/internal/knowledge"
	"github.com/mark3labs/mcp-go/mcp"
)

// Handler manages knowledge graph resource endpoints.
type Handler struct {
	store *knowledge.Store
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(store *knowledge.Store) *Handler {
	return &Handler{store: store}
}

// StatsResource returns the MCP resource definition for store statistics.
func (h *Handler) StatsResource() mcp.Resource {
	return mcp.NewResource(
		"knowgraph://stats",
		"Knowledge Graph Statistics",
		mcp.WithResourceDescription("Entity, relationship, session, and query counts plus known project scopes"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleStats returns aggregate store statistics as JSON.
func (h *Handler) HandleStats(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	stats, err := h.store.Stats()
	if err != nil {
		return nil, fmt.Errorf("reading stats: %w", err)
	}

	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling stats: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
