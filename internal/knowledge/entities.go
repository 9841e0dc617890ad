package knowledge

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// AddEntityParams holds the input for creating a new entity.
type AddEntityParams struct {
	ProjectPath string `json:"project_path"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Content     string `json:"content"`
	Metadata    string `json:"metadata,omitempty"`
}

// AddEntity inserts a new entity with a fresh id. It always inserts:
// repeated calls with the same name create distinct rows. Callers that want
// insert-if-absent semantics (the auto-capture path) check TouchEntity first.
func (s *Store) AddEntity(p AddEntityParams) (*Entity, error) {
	id := uuid.New().String()
	_, err := s.db.Exec(
		`INSERT INTO entities (id, project_path, entity_type, name, content, metadata)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, p.ProjectPath, p.Type, p.Name, p.Content, nullableString(p.Metadata),
	)
	if err != nil {
		return nil, fmt.Errorf("add entity %q: %w", p.Name, err)
	}
	return s.GetEntity(p.ProjectPath, id)
}

// GetEntity retrieves a single entity by id within the project scope.
func (s *Store) GetEntity(projectPath, id string) (*Entity, error) {
	row := s.db.QueryRow(
		`SELECT id, project_path, entity_type, name, content, metadata, created_at, updated_at
		 FROM entities WHERE project_path = ? AND id = ?`,
		projectPath, id,
	)
	var e Entity
	if err := row.Scan(&e.ID, &e.ProjectPath, &e.Type, &e.Name, &e.Content, &e.Metadata, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %q", ErrEntityNotFound, id)
		}
		return nil, err
	}
	return &e, nil
}

// SearchEntities performs a case-insensitive substring match against entity
// name OR content, optionally filtered by exact type. Results are ordered by
// updated_at descending and capped at limit; content is truncated for display.
func (s *Store) SearchEntities(projectPath, query, entityType string, limit int) ([]Entity, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > s.cfg.MaxSearchResults {
		limit = s.cfg.MaxSearchResults
	}

	pattern := "%" + escapeLike(query) + "%"

	sqlStr := `
		SELECT id, project_path, entity_type, name, content, metadata, created_at, updated_at
		FROM entities
		WHERE project_path = ?
		  AND (name LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\')
	`
	args := []any{projectPath, pattern, pattern}

	if entityType != "" {
		sqlStr += " AND entity_type = ?"
		args = append(args, entityType)
	}

	sqlStr += " ORDER BY updated_at DESC, created_at DESC LIMIT ?"
	args = append(args, limit)

	results, err := s.queryEntities(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("search entities: %w", err)
	}
	for i := range results {
		results[i].Content = Truncate(results[i].Content, s.cfg.MaxDisplayContent)
	}
	return results, nil
}

// RecentEntities returns the most recently updated entities in scope,
// optionally filtered by type. Content is returned untruncated — callers
// that feed retrieval context need the full text.
func (s *Store) RecentEntities(projectPath, entityType string, limit int) ([]Entity, error) {
	if limit <= 0 {
		limit = 10
	}

	sqlStr := `
		SELECT id, project_path, entity_type, name, content, metadata, created_at, updated_at
		FROM entities
		WHERE project_path = ?
	`
	args := []any{projectPath}

	if entityType != "" {
		sqlStr += " AND entity_type = ?"
		args = append(args, entityType)
	}

	sqlStr += " ORDER BY updated_at DESC, created_at DESC LIMIT ?"
	args = append(args, limit)

	return s.queryEntities(sqlStr, args...)
}

// TouchEntity looks up an entity by exact name within scope. When found it
// refreshes updated_at and returns (id, true); when absent it returns
// ("", false) and the caller decides whether to insert. Content is never
// refreshed here.
func (s *Store) TouchEntity(projectPath, name string) (string, bool, error) {
	var id string
	err := s.db.QueryRow(
		`SELECT id FROM entities WHERE project_path = ? AND name = ?
		 ORDER BY updated_at DESC LIMIT 1`,
		projectPath, name,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	if _, err := s.db.Exec(
		`UPDATE entities SET updated_at = datetime('now') WHERE id = ?`, id,
	); err != nil {
		return "", false, err
	}
	return id, true, nil
}

// ResolveEntity resolves an identifier to exactly one entity: exact id
// match first, then exact name, then case-insensitive substring on name.
// A substring that matches several entities is an error — resolution must
// be unique, and the error carries the candidate names so the caller can
// disambiguate.
func (s *Store) ResolveEntity(projectPath, identifier string) (*Entity, error) {
	if e, err := s.GetEntity(projectPath, identifier); err == nil {
		return e, nil
	}

	exact, err := s.queryEntities(
		`SELECT id, project_path, entity_type, name, content, metadata, created_at, updated_at
		 FROM entities WHERE project_path = ? AND name = ?
		 ORDER BY updated_at DESC`,
		projectPath, identifier,
	)
	if err != nil {
		return nil, err
	}
	if len(exact) > 0 {
		return &exact[0], nil
	}

	pattern := "%" + escapeLike(identifier) + "%"
	fuzzy, err := s.queryEntities(
		`SELECT id, project_path, entity_type, name, content, metadata, created_at, updated_at
		 FROM entities WHERE project_path = ? AND name LIKE ? ESCAPE '\'
		 ORDER BY updated_at DESC`,
		projectPath, pattern,
	)
	if err != nil {
		return nil, err
	}

	switch len(fuzzy) {
	case 0:
		return nil, fmt.Errorf("%w: %q", ErrEntityNotFound, identifier)
	case 1:
		return &fuzzy[0], nil
	default:
		names := make([]string, 0, len(fuzzy))
		for i, e := range fuzzy {
			if i == 5 {
				names = append(names, "...")
				break
			}
			names = append(names, e.Name)
		}
		return nil, fmt.Errorf("%w: %q matches %s", ErrAmbiguousEntity, identifier, strings.Join(names, ", "))
	}
}

func (s *Store) queryEntities(query string, args ...any) ([]Entity, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []Entity
	for rows.Next() {
		var e Entity
		if err := rows.Scan(&e.ID, &e.ProjectPath, &e.Type, &e.Name, &e.Content, &e.Metadata, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}
