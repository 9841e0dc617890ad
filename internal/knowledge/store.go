// Package knowledge implements the persistent knowledge graph for knowgraph.
//
// It uses SQLite to store project-scoped entities, directed relationships
// between them, session history, and an append-only audit log of questions
// asked against the graph. All reads and writes are scoped to a single
// project path; cross-project lookups never occur.
package knowledge

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// ErrEntityNotFound is returned when an identifier resolves to no entity
// within the project scope.
var ErrEntityNotFound = errors.New("entity not found")

// ErrAmbiguousEntity is returned when a fuzzy identifier matches more than
// one entity. Resolution requires a unique match — callers get the candidate
// names so they can disambiguate instead of the store silently guessing.
var ErrAmbiguousEntity = errors.New("ambiguous entity")

// ─── Types ───────────────────────────────────────────────────────────────────

// Entity is a named, typed knowledge record scoped to one project.
type Entity struct {
	ID          string  `json:"id"`
	ProjectPath string  `json:"project_path"`
	Type        string  `json:"type"`
	Name        string  `json:"name"`
	Content     string  `json:"content"`
	Metadata    *string `json:"metadata,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// Relationship is a directed, typed edge between two entities in the same
// project scope.
type Relationship struct {
	ID          string  `json:"id"`
	ProjectPath string  `json:"project_path"`
	SourceID    string  `json:"source_id"`
	TargetID    string  `json:"target_id"`
	Type        string  `json:"type"`
	Metadata    *string `json:"metadata,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

// Session is one bounded unit of work, tracked from the host's "created"
// signal to its "deleted" signal.
type Session struct {
	ID            string   `json:"id"`
	ProjectPath   string   `json:"project_path"`
	StartTime     string   `json:"start_time"`
	EndTime       *string  `json:"end_time,omitempty"`
	Summary       *string  `json:"summary,omitempty"`
	KeyDecisions  *string  `json:"key_decisions,omitempty"`
	FilesModified []string `json:"files_modified"`
	Context       *string  `json:"context,omitempty"`
}

// Stats holds aggregate counts across the whole store.
type Stats struct {
	TotalEntities      int      `json:"total_entities"`
	TotalRelationships int      `json:"total_relationships"`
	TotalSessions      int      `json:"total_sessions"`
	TotalQueries       int      `json:"total_queries"`
	Projects           []string `json:"projects"`
}

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds knowledge store configuration.
type Config struct {
	DataDir string
	// MaxDisplayContent caps entity content returned by search results.
	MaxDisplayContent int
	// MaxSearchResults is the hard cap on search result counts.
	MaxSearchResults int
}

// DefaultConfig returns the default configuration for the knowledge store.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:           filepath.Join(home, ".knowgraph"),
		MaxDisplayContent: 500,
		MaxSearchResults:  50,
	}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the durable knowledge graph backed by SQLite.
type Store struct {
	db  *sql.DB
	cfg Config
}

// Open creates the data directory if needed, opens SQLite with WAL mode,
// and runs the idempotent migrations. Failure here is fatal for the plugin:
// there is no degraded mode without durable storage.
func Open(cfg Config) (*Store, error) {
	if cfg.MaxDisplayContent <= 0 {
		cfg.MaxDisplayContent = 500
	}
	if cfg.MaxSearchResults <= 0 {
		cfg.MaxSearchResults = 50
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("knowledge: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "knowledge.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("knowledge: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("knowledge: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("knowledge: migration: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─── Migrations ──────────────────────────────────────────────────────────────

// migrate creates the four tables and their indexes. Safe to run on every
// startup against an existing database: everything is IF NOT EXISTS and
// nothing destructive happens here.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS entities (
			id           TEXT PRIMARY KEY,
			project_path TEXT NOT NULL,
			entity_type  TEXT NOT NULL,
			name         TEXT NOT NULL,
			content      TEXT NOT NULL DEFAULT '',
			metadata     TEXT,
			created_at   TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at   TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_entities_type    ON entities(entity_type);
		CREATE INDEX IF NOT EXISTS idx_entities_project ON entities(project_path);
		CREATE INDEX IF NOT EXISTS idx_entities_name    ON entities(project_path, name);
		CREATE INDEX IF NOT EXISTS idx_entities_updated ON entities(updated_at DESC);

		CREATE TABLE IF NOT EXISTS relationships (
			id                TEXT PRIMARY KEY,
			project_path      TEXT NOT NULL,
			source_id         TEXT NOT NULL,
			target_id         TEXT NOT NULL,
			relationship_type TEXT NOT NULL DEFAULT 'related_to',
			metadata          TEXT,
			created_at        TEXT NOT NULL DEFAULT (datetime('now')),
			FOREIGN KEY (source_id) REFERENCES entities(id),
			FOREIGN KEY (target_id) REFERENCES entities(id)
		);

		CREATE INDEX IF NOT EXISTS idx_rel_source  ON relationships(source_id);
		CREATE INDEX IF NOT EXISTS idx_rel_target  ON relationships(target_id);
		CREATE INDEX IF NOT EXISTS idx_rel_project ON relationships(project_path);

		CREATE TABLE IF NOT EXISTS sessions (
			id             TEXT PRIMARY KEY,
			project_path   TEXT NOT NULL,
			start_time     TEXT NOT NULL DEFAULT (datetime('now')),
			end_time       TEXT,
			summary        TEXT,
			key_decisions  TEXT,
			files_modified TEXT,
			context        TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project_path);

		CREATE TABLE IF NOT EXISTS queries (
			id             TEXT PRIMARY KEY,
			project_path   TEXT NOT NULL,
			query_text     TEXT NOT NULL,
			result_summary TEXT,
			timestamp      TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_queries_project ON queries(project_path);
	`
	// Note: relationships deliberately has no unique index — duplicate edges
	// and cycles are permitted by contract.
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// ─── Stats ───────────────────────────────────────────────────────────────────

// Stats returns aggregate counts plus the known project scopes, ordered by
// most recent entity activity.
func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{}

	_ = s.db.QueryRow("SELECT COUNT(*) FROM entities").Scan(&stats.TotalEntities)
	_ = s.db.QueryRow("SELECT COUNT(*) FROM relationships").Scan(&stats.TotalRelationships)
	_ = s.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&stats.TotalSessions)
	_ = s.db.QueryRow("SELECT COUNT(*) FROM queries").Scan(&stats.TotalQueries)

	rows, err := s.db.Query(
		"SELECT project_path FROM entities GROUP BY project_path ORDER BY MAX(updated_at) DESC",
	)
	if err != nil {
		return stats, nil
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err == nil {
			stats.Projects = append(stats.Projects, p)
		}
	}

	return stats, nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Truncate shortens a string to at most max bytes.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// escapeLike escapes LIKE wildcards in user input so substring search
// treats them literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// Now returns the current time formatted for SQLite.
func Now() string {
	return time.Now().UTC().Format("2006-01-02 15:04:05")
}
