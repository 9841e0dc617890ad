package knowledge

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ConnectParams holds the input for creating a directed edge. Source and
// Target are identifiers resolved via ResolveEntity (id, exact name, or
// unique substring).
type ConnectParams struct {
	ProjectPath string `json:"project_path"`
	Source      string `json:"source"`
	Target      string `json:"target"`
	Type        string `json:"type"`
	Metadata    string `json:"metadata,omitempty"`
}

// ConnectResult describes a created edge with both endpoints resolved.
type ConnectResult struct {
	ID         string `json:"id"`
	SourceID   string `json:"source_id"`
	SourceName string `json:"source_name"`
	TargetID   string `json:"target_id"`
	TargetName string `json:"target_name"`
	Type       string `json:"type"`
}

// GraphNode is one entity projected into the exported graph.
type GraphNode struct {
	ID       string  `json:"id"`
	Label    string  `json:"label"`
	Type     string  `json:"type"`
	Metadata *string `json:"metadata,omitempty"`
}

// GraphEdge is one relationship projected into the exported graph, with
// endpoint ids joined to entity names.
type GraphEdge struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	SourceID string `json:"source_id"`
	Target   string `json:"target"`
	TargetID string `json:"target_id"`
	Type     string `json:"type"`
}

// Graph is the full projection result.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// Connect resolves both identifiers and inserts a directed edge. When either
// side fails to resolve, the returned error names exactly the side(s) that
// failed. Duplicate edges and cycles are permitted — no uniqueness is
// enforced on (source, target, type).
func (s *Store) Connect(p ConnectParams) (*ConnectResult, error) {
	if p.Type == "" {
		p.Type = "related_to"
	}

	source, srcErr := s.ResolveEntity(p.ProjectPath, p.Source)
	target, tgtErr := s.ResolveEntity(p.ProjectPath, p.Target)

	switch {
	case srcErr != nil && tgtErr != nil:
		return nil, fmt.Errorf("source %q and target %q: %w", p.Source, p.Target, errors.Join(srcErr, tgtErr))
	case srcErr != nil:
		return nil, fmt.Errorf("source %q: %w", p.Source, srcErr)
	case tgtErr != nil:
		return nil, fmt.Errorf("target %q: %w", p.Target, tgtErr)
	}

	id := uuid.New().String()
	_, err := s.db.Exec(
		`INSERT INTO relationships (id, project_path, source_id, target_id, relationship_type, metadata)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, p.ProjectPath, source.ID, target.ID, p.Type, nullableString(p.Metadata),
	)
	if err != nil {
		return nil, fmt.Errorf("creating relationship: %w", err)
	}

	return &ConnectResult{
		ID:         id,
		SourceID:   source.ID,
		SourceName: source.Name,
		TargetID:   target.ID,
		TargetName: target.Name,
		Type:       p.Type,
	}, nil
}

// Relationships returns all edges in the project scope with endpoint names
// joined in, ordered by creation time.
func (s *Store) Relationships(projectPath string) ([]GraphEdge, error) {
	rows, err := s.db.Query(
		`SELECT r.id, se.name, r.source_id, te.name, r.target_id, r.relationship_type
		 FROM relationships r
		 JOIN entities se ON se.id = r.source_id
		 JOIN entities te ON te.id = r.target_id
		 WHERE r.project_path = ?
		 ORDER BY r.created_at ASC`,
		projectPath,
	)
	if err != nil {
		return nil, fmt.Errorf("querying relationships: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var edges []GraphEdge
	for rows.Next() {
		var e GraphEdge
		if err := rows.Scan(&e.ID, &e.Source, &e.SourceID, &e.Target, &e.TargetID, &e.Type); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// ProjectGraph returns the graph projection for a project scope.
//
// Nodes are all entities, optionally filtered by type. Edges are ALWAYS the
// full in-scope edge set — the type filter never applies to edges, so an
// edge may reference an endpoint that was filtered out of the node list.
//
// When a type filter is present and depth > 1, the node set is expanded
// breadth-first along edges: entities reachable within depth hops of the
// filtered seed set are added back as nodes. Depth clamps to [1, 5].
// Without a filter the full node set is already present and depth has no
// further effect.
func (s *Store) ProjectGraph(projectPath, typeFilter string, depth int) (*Graph, error) {
	if depth <= 0 {
		depth = 1
	}
	if depth > 5 {
		depth = 5
	}

	all, err := s.queryEntities(
		`SELECT id, project_path, entity_type, name, content, metadata, created_at, updated_at
		 FROM entities WHERE project_path = ? ORDER BY updated_at DESC`,
		projectPath,
	)
	if err != nil {
		return nil, fmt.Errorf("querying graph nodes: %w", err)
	}

	edges, err := s.Relationships(projectPath)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]Entity, len(all))
	for _, e := range all {
		byID[e.ID] = e
	}

	included := make(map[string]bool, len(all))
	for _, e := range all {
		if typeFilter == "" || e.Type == typeFilter {
			included[e.ID] = true
		}
	}

	if typeFilter != "" && depth > 1 {
		expandGraph(included, edges, depth-1)
	}

	g := &Graph{Nodes: []GraphNode{}, Edges: []GraphEdge{}}
	for _, e := range all {
		if !included[e.ID] {
			continue
		}
		g.Nodes = append(g.Nodes, GraphNode{
			ID:       e.ID,
			Label:    e.Name,
			Type:     e.Type,
			Metadata: e.Metadata,
		})
	}
	g.Edges = edges
	return g, nil
}

// expandGraph grows the included node set breadth-first along edges
// (either direction) for at most hops rounds.
func expandGraph(included map[string]bool, edges []GraphEdge, hops int) {
	frontier := make([]string, 0, len(included))
	for id := range included {
		frontier = append(frontier, id)
	}

	adjacency := make(map[string][]string)
	for _, e := range edges {
		adjacency[e.SourceID] = append(adjacency[e.SourceID], e.TargetID)
		adjacency[e.TargetID] = append(adjacency[e.TargetID], e.SourceID)
	}

	for i := 0; i < hops && len(frontier) > 0; i++ {
		var next []string
		for _, id := range frontier {
			for _, neighbor := range adjacency[id] {
				if included[neighbor] {
					continue
				}
				included[neighbor] = true
				next = append(next, neighbor)
			}
		}
		frontier = next
	}
}
