// Package lifecycle routes host lifecycle events to the plugin components.
//
// The host is an external event source: it signals session creation,
// compaction, and teardown, and reports tool executions after they run.
// The dispatcher decodes those events and serializes their handling — the
// plugin owns a single storage connection, and host callbacks must never
// interleave on it.
package lifecycle

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/cbuntingde/knowgraph/internal/capture"
	"github.com/cbuntingde/knowgraph/internal/session"
)

// Event names accepted from the host.
const (
	EventSessionCreated   = "session.created"
	EventSessionCompacted = "session.compacted"
	EventSessionDeleted   = "session.deleted"
	EventToolExecuteAfter = "tool.execute.after"
)

// Event is one host lifecycle signal.
type Event struct {
	Type        string         `json:"type"`
	SessionID   string         `json:"sessionId,omitempty"`
	ProjectPath string         `json:"projectPath,omitempty"`
	Tool        *ToolExecution `json:"tool,omitempty"`
}

// ToolExecution describes a completed tool call reported by the host.
type ToolExecution struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	FilePath string `json:"filePath,omitempty"`
	Command  string `json:"command,omitempty"`
	Output   string `json:"output,omitempty"`
}

// Result is the dispatcher's response to one event. Exactly one of the
// payload fields is set, matching the event type; all may be nil when the
// event was a no-op.
type Result struct {
	Event      string                    `json:"event"`
	Continuity *session.Continuity       `json:"continuity,omitempty"`
	Restored   *session.Restored         `json:"restored,omitempty"`
	Closing    *session.Closing          `json:"closing,omitempty"`
	Capture    *capture.CheckpointResult `json:"capture,omitempty"`
	CapturedID string                    `json:"captured_id,omitempty"`
}

// Dispatcher decodes and routes host events.
type Dispatcher struct {
	mu       sync.Mutex
	tracker  *session.Tracker
	ingestor *capture.Ingestor
}

// NewDispatcher creates a Dispatcher over the tracker and ingestor.
func NewDispatcher(tracker *session.Tracker, ingestor *capture.Ingestor) *Dispatcher {
	return &Dispatcher{tracker: tracker, ingestor: ingestor}
}

// Decode reads a single JSON event from r.
func Decode(r io.Reader) (*Event, error) {
	var ev Event
	if err := json.NewDecoder(r).Decode(&ev); err != nil {
		return nil, fmt.Errorf("lifecycle: decode event: %w", err)
	}
	if ev.Type == "" {
		return nil, fmt.Errorf("lifecycle: event has no type")
	}
	return &ev, nil
}

// Dispatch handles one event. Events are processed under a mutex so
// concurrent host callbacks execute one at a time against the store.
// Unknown event types are an error; recognized events with missing payload
// fields degrade to no-ops.
func (d *Dispatcher) Dispatch(ev *Event) (*Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	res := &Result{Event: ev.Type}

	switch ev.Type {
	case EventSessionCreated:
		c, err := d.tracker.Begin(ev.SessionID)
		if err != nil {
			return nil, err
		}
		res.Continuity = c

	case EventSessionCompacted:
		r, err := d.tracker.Resume()
		if err != nil {
			return nil, err
		}
		res.Restored = r

	case EventSessionDeleted:
		c, err := d.tracker.End()
		if err != nil {
			return nil, err
		}
		res.Closing = c

	case EventToolExecuteAfter:
		if err := d.toolExecuted(ev, res); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("lifecycle: unknown event type %q", ev.Type)
	}

	return res, nil
}

// toolExecuted fires auto-capture for successful read and shell tools.
// Failed tools and tools the ingestor has no interest in are ignored.
func (d *Dispatcher) toolExecuted(ev *Event, res *Result) error {
	tool := ev.Tool
	if tool == nil || (tool.Status != "" && tool.Status != "success") {
		return nil
	}

	projectPath := ev.ProjectPath
	if projectPath == "" {
		projectPath = d.tracker.ProjectPath()
	}

	switch {
	case tool.FilePath != "":
		id, _, err := d.ingestor.FileRead(projectPath, tool.FilePath, tool.Output)
		if err != nil {
			return err
		}
		res.CapturedID = id

	case tool.Command != "":
		checkpoint, err := d.ingestor.Command(projectPath, tool.Command)
		if err != nil {
			return err
		}
		res.Capture = checkpoint
	}

	return nil
}
