// Package session drives the session lifecycle state machine.
//
// A Tracker holds the current session id as explicit struct state — one
// tracker per plugin instance, constructed with its project scope. The id
// lives only in process memory until the first summarize call lazily
// persists a row; host lifecycle signals move the session through
// Begin (created) → Resume (compacted) → End (deleted).
package session

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cbuntingde/knowgraph/internal/knowledge"
	"github.com/google/uuid"
)

// Options sizes the continuity context computed at session start.
type Options struct {
	ContextSessions int
	ContextEntities int
}

// Tracker owns the current-session pointer for one project scope.
type Tracker struct {
	mu          sync.Mutex
	store       *knowledge.Store
	projectPath string
	opts        Options

	currentID string
}

// Continuity is the context injected when a new session starts.
type Continuity struct {
	SessionID      string              `json:"session_id"`
	RecentSessions []knowledge.Session `json:"recent_sessions"`
	RecentEntities []knowledge.Entity  `json:"recent_entities"`

	// Set only when a prior session exists for the project.
	DaysSinceLast int    `json:"days_since_last,omitempty"`
	LastSummary   string `json:"last_summary,omitempty"`
	LastDecisions string `json:"last_decisions,omitempty"`
}

// Restored is the context re-surfaced when the host compacts its history.
type Restored struct {
	SessionID    string `json:"session_id"`
	Summary      string `json:"summary,omitempty"`
	KeyDecisions string `json:"key_decisions,omitempty"`
}

// Closing is the final output surfaced when a session ends.
type Closing struct {
	SessionID string `json:"session_id"`
	Summary   string `json:"summary,omitempty"`
	Decisions string `json:"decisions,omitempty"`
}

// sessionContext is the shape of the free-form context blob a session row
// may carry. Only summary and decisions are surfaced at close.
type sessionContext struct {
	Summary   string `json:"summary"`
	Decisions string `json:"decisions"`
}

// NewTracker creates a Tracker for one project scope.
func NewTracker(store *knowledge.Store, projectPath string, opts Options) *Tracker {
	if opts.ContextSessions <= 0 {
		opts.ContextSessions = 5
	}
	if opts.ContextEntities <= 0 {
		opts.ContextEntities = 10
	}
	return &Tracker{store: store, projectPath: projectPath, opts: opts}
}

// ProjectPath returns the tracker's project scope.
func (t *Tracker) ProjectPath() string {
	return t.projectPath
}

// CurrentID returns the in-memory current session id, or "" when idle.
func (t *Tracker) CurrentID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentID
}

// Begin handles the session-created signal. It records the session id in
// process memory (no row is written yet) and computes the continuity
// context: recent sessions, recently updated entities, and — when a prior
// session exists — elapsed days plus its summary and key decisions.
func (t *Tracker) Begin(sessionID string) (*Continuity, error) {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	t.mu.Lock()
	t.currentID = sessionID
	t.mu.Unlock()

	sessions, err := t.store.RecentSessions(t.projectPath, t.opts.ContextSessions)
	if err != nil {
		return nil, fmt.Errorf("session begin: %w", err)
	}
	entities, err := t.store.RecentEntities(t.projectPath, "", t.opts.ContextEntities)
	if err != nil {
		return nil, fmt.Errorf("session begin: %w", err)
	}

	c := &Continuity{
		SessionID:      sessionID,
		RecentSessions: sessions,
		RecentEntities: entities,
	}

	if len(sessions) > 0 {
		prior := sessions[0]
		c.DaysSinceLast = daysSince(prior.StartTime)
		if prior.Summary != nil {
			c.LastSummary = *prior.Summary
		}
		if prior.KeyDecisions != nil {
			c.LastDecisions = *prior.KeyDecisions
		}
	}

	return c, nil
}

// Resume handles the session-compacted signal: when the current session has
// a stored row, its summary and key decisions are re-surfaced so the host
// can re-inject them after truncating history. No stored row (or no current
// session) is a silent no-op and returns nil.
func (t *Tracker) Resume() (*Restored, error) {
	id := t.CurrentID()
	if id == "" {
		return nil, nil
	}

	sess, err := t.store.GetSession(id)
	if err != nil {
		return nil, fmt.Errorf("session resume: %w", err)
	}
	if sess == nil {
		return nil, nil
	}

	r := &Restored{SessionID: id}
	if sess.Summary != nil {
		r.Summary = *sess.Summary
	}
	if sess.KeyDecisions != nil {
		r.KeyDecisions = *sess.KeyDecisions
	}
	return r, nil
}

// End handles the session-deleted signal: it stamps end_time on the stored
// row and clears the current pointer. When the row carries a context blob
// that decodes as JSON, its summary/decisions fields become the final
// output; a blob that fails to decode contributes nothing — that is the
// defined fallback, not an error.
func (t *Tracker) End() (*Closing, error) {
	t.mu.Lock()
	id := t.currentID
	t.currentID = ""
	t.mu.Unlock()

	if id == "" {
		return nil, nil
	}

	sess, err := t.store.GetSession(id)
	if err != nil {
		return nil, fmt.Errorf("session end: %w", err)
	}
	if sess == nil {
		return nil, nil
	}

	if err := t.store.EndSession(id); err != nil {
		return nil, fmt.Errorf("session end: %w", err)
	}

	c := &Closing{SessionID: id}
	if sess.Context != nil {
		var ctx sessionContext
		if err := json.Unmarshal([]byte(*sess.Context), &ctx); err == nil {
			c.Summary = ctx.Summary
			c.Decisions = ctx.Decisions
		}
	}
	return c, nil
}

// Summarize upserts the current session row with summary, key decisions,
// and modified files. When no session id has been minted yet (the host
// never signaled creation), one is minted here so manual summaries still
// land somewhere.
func (t *Tracker) Summarize(summary, decisions string, files []string) (string, error) {
	t.mu.Lock()
	if t.currentID == "" {
		t.currentID = uuid.New().String()
	}
	id := t.currentID
	t.mu.Unlock()

	err := t.store.UpsertSession(knowledge.SessionUpsertParams{
		ID:            id,
		ProjectPath:   t.projectPath,
		Summary:       summary,
		KeyDecisions:  decisions,
		FilesModified: files,
	})
	if err != nil {
		return "", fmt.Errorf("session summarize: %w", err)
	}
	return id, nil
}

// daysSince computes whole days elapsed since an SQLite timestamp. Zero on
// parse failure.
func daysSince(ts string) int {
	t, err := time.Parse("2006-01-02 15:04:05", ts)
	if err != nil {
		return 0
	}
	d := time.Since(t)
	if d < 0 {
		return 0
	}
	return int(d.Hours() / 24)
}
