package knowledge

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// SessionUpsertParams holds the input for creating or updating a session row.
type SessionUpsertParams struct {
	ID            string   `json:"id"`
	ProjectPath   string   `json:"project_path"`
	Summary       string   `json:"summary"`
	KeyDecisions  string   `json:"key_decisions"`
	FilesModified []string `json:"files_modified"`
	Context       string   `json:"context,omitempty"`
}

// UpsertSession inserts a session row, or on id conflict updates summary,
// key decisions, and modified files in place. The row is created lazily on
// the first summarize call, not when the host mints the session id.
func (s *Store) UpsertSession(p SessionUpsertParams) error {
	files, err := json.Marshal(p.FilesModified)
	if err != nil {
		return fmt.Errorf("encoding files_modified: %w", err)
	}
	if p.FilesModified == nil {
		files = []byte("[]")
	}

	_, err = s.db.Exec(
		`INSERT INTO sessions (id, project_path, summary, key_decisions, files_modified, context)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     summary        = excluded.summary,
		     key_decisions  = excluded.key_decisions,
		     files_modified = excluded.files_modified`,
		p.ID, p.ProjectPath,
		nullableString(p.Summary), nullableString(p.KeyDecisions),
		string(files), nullableString(p.Context),
	)
	if err != nil {
		return fmt.Errorf("upsert session %s: %w", p.ID, err)
	}
	return nil
}

// EndSession stamps end_time on a session row. A missing row is a silent
// no-op: there is nothing to close.
func (s *Store) EndSession(id string) error {
	_, err := s.db.Exec(
		`UPDATE sessions SET end_time = datetime('now') WHERE id = ?`, id,
	)
	return err
}

// GetSession retrieves a session by id. Returns (nil, nil) when the row
// does not exist — absence is an expected state for lazily persisted
// sessions, not an error.
func (s *Store) GetSession(id string) (*Session, error) {
	row := s.db.QueryRow(
		`SELECT id, project_path, start_time, end_time, summary, key_decisions, files_modified, context
		 FROM sessions WHERE id = ?`, id,
	)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// RecentSessions returns the most recently started sessions for a project.
func (s *Store) RecentSessions(projectPath string, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.db.Query(
		`SELECT id, project_path, start_time, end_time, summary, key_decisions, files_modified, context
		 FROM sessions WHERE project_path = ?
		 ORDER BY start_time DESC, id DESC LIMIT ?`,
		projectPath, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *sess)
	}
	return results, rows.Err()
}

// SessionCount returns the number of session rows for a project.
func (s *Store) SessionCount(projectPath string) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM sessions WHERE project_path = ?`, projectPath,
	).Scan(&n)
	return n, err
}

type rowLike interface {
	Scan(dest ...any) error
}

func scanSession(row rowLike) (*Session, error) {
	var sess Session
	var files *string
	if err := row.Scan(
		&sess.ID, &sess.ProjectPath, &sess.StartTime, &sess.EndTime,
		&sess.Summary, &sess.KeyDecisions, &files, &sess.Context,
	); err != nil {
		return nil, err
	}
	sess.FilesModified = decodeFileList(files)
	return &sess, nil
}

// decodeFileList decodes the serialized files_modified column. A NULL or
// malformed value decodes to an empty list — the defined fallback for this
// call site.
func decodeFileList(raw *string) []string {
	if raw == nil || *raw == "" {
		return []string{}
	}
	var files []string
	if err := json.Unmarshal([]byte(*raw), &files); err != nil {
		return []string{}
	}
	if files == nil {
		return []string{}
	}
	return files
}

// ─── Query audit log ─────────────────────────────────────────────────────────

// LogQuery appends a question to the audit log. The log is write-only:
// nothing in the system reads it back.
func (s *Store) LogQuery(projectPath, queryText string) error {
	_, err := s.db.Exec(
		`INSERT INTO queries (id, project_path, query_text) VALUES (?, ?, ?)`,
		uuid.New().String(), projectPath, queryText,
	)
	if err != nil {
		return fmt.Errorf("log query: %w", err)
	}
	return nil
}
