// Package server wires all knowgraph components and creates the MCP server.
//
// This is the composition root: it creates concrete implementations and
// injects them into the tools/prompts/resources that depend on them.
// No business logic lives here — only wiring.
package server

import (
	"fmt"
	"log"

	"github.com/cbuntingde/knowgraph/internal/capture"
	"github.com/cbuntingde/knowgraph/internal/config"
	"github.com/cbuntingde/knowgraph/internal/kgtools"
	"github.com/cbuntingde/knowgraph/internal/knowledge"
	"github.com/cbuntingde/knowgraph/internal/lifecycle"
	"github.com/cbuntingde/knowgraph/internal/prompts"
	"github.com/cbuntingde/knowgraph/internal/resources"
	"github.com/cbuntingde/knowgraph/internal/session"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

// App holds the wired plugin components. The hook subcommand uses it
// directly without starting an MCP server.
type App struct {
	Config     config.Config
	Store      *knowledge.Store
	Tracker    *session.Tracker
	Ingestor   *capture.Ingestor
	Dispatcher *lifecycle.Dispatcher
}

// NewApp opens the store and wires the tracker, ingestor, and dispatcher.
// The returned cleanup function closes the store's database connection and
// must be called on shutdown (typically via defer). It is always non-nil.
func NewApp(cfg config.Config) (*App, func(), error) {
	store, err := knowledge.Open(knowledge.Config{
		DataDir:          cfg.DataDir,
		MaxSearchResults: 50,
	})
	if err != nil {
		return nil, noop, fmt.Errorf("opening knowledge store: %w", err)
	}

	cleanup := func() {
		if err := store.Close(); err != nil {
			log.Printf("WARNING: knowledge store close: %v", err)
		}
	}

	tracker := session.NewTracker(store, cfg.ProjectPath, session.Options{
		ContextSessions: cfg.ContextSessions,
		ContextEntities: cfg.ContextEntities,
	})
	ingestor := capture.NewIngestor(store, cfg.CheckpointTriggers, cfg.CaptureContentLimit)

	return &App{
		Config:     cfg,
		Store:      store,
		Tracker:    tracker,
		Ingestor:   ingestor,
		Dispatcher: lifecycle.NewDispatcher(tracker, ingestor),
	}, cleanup, nil
}

// New creates and configures the MCP server with all tools, prompts, and
// resources registered. This is the single place where all dependencies
// are resolved.
func New(cfg config.Config) (*server.MCPServer, func(), error) {
	app, cleanup, err := NewApp(cfg)
	if err != nil {
		return nil, cleanup, err
	}

	s := server.NewMCPServer(
		"knowgraph",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	registerTools(s, app)

	// --- Register prompts ---

	startPrompt := prompts.NewSessionStartPrompt(app.Tracker)
	s.AddPrompt(startPrompt.Definition(), startPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(app.Store)
	s.AddResource(resourceHandler.StatsResource(), resourceHandler.HandleStats)

	return s, cleanup, nil
}

// noop is the default cleanup when store initialization failed.
func noop() {}

// registerTools registers the 8 knowledge-graph MCP tools with the server.
func registerTools(s *server.MCPServer, app *App) {
	project := app.Config.ProjectPath

	// --- Query & retrieval ---
	searchTool := kgtools.NewSearchTool(app.Store, project, app.Config.SearchLimit)
	s.AddTool(searchTool.Definition(), searchTool.Handle)

	askTool := kgtools.NewAskTool(app.Store, project)
	s.AddTool(askTool.Definition(), askTool.Handle)

	graphTool := kgtools.NewExportGraphTool(app.Store, project)
	s.AddTool(graphTool.Definition(), graphTool.Handle)

	// --- Graph mutation ---
	addTool := kgtools.NewAddEntityTool(app.Store, project)
	s.AddTool(addTool.Definition(), addTool.Handle)

	connectTool := kgtools.NewConnectTool(app.Store, project)
	s.AddTool(connectTool.Definition(), connectTool.Handle)

	decisionTool := kgtools.NewRecordDecisionTool(app.Store, project)
	s.AddTool(decisionTool.Definition(), decisionTool.Handle)

	// --- Sessions ---
	listSessionsTool := kgtools.NewListSessionsTool(app.Store, project)
	s.AddTool(listSessionsTool.Definition(), listSessionsTool.Handle)

	summarizeTool := kgtools.NewSummarizeSessionTool(app.Tracker)
	s.AddTool(summarizeTool.Definition(), summarizeTool.Handle)
}

// serverInstructions returns the system instructions that tell the AI how
// to use the knowledge graph effectively.
func serverInstructions() string {
	return `You have access to knowgraph, a persistent knowledge graph for this project.
The graph survives between conversations — use it to build project knowledge over time.

## WHEN TO SAVE (call these PROACTIVELY)

- kg_record_decision: after any architectural decision, tradeoff, or tech choice.
  Always include the rationale; include alternatives when any were considered.
- kg_add_entity: for concepts worth remembering — components, patterns, gotchas,
  configuration quirks. Pick a short, searchable name.
- kg_connect: after adding related entities, connect them with a typed relationship
  ("depends_on", "implements", "supersedes", "relates_to"). Relationships turn flat
  notes into a navigable graph.

## WHEN TO RETRIEVE

- kg_ask: at the start of work on a topic — returns recent decisions and
  documentation as context. Check BEFORE making a decision that may already exist.
- kg_search: substring search over entity names and content, newest first.
  Filter by type ("decision", "documentation", "file") to narrow results.
- kg_export_graph: to see how entities connect. Pass entity_type and depth to
  expand outward from a type's neighborhood.

## SESSION LIFECYCLE

1. The kg-session-start prompt begins a session and injects continuity context:
   the previous session's summary, key decisions, and recently active entities.
2. Before finishing, call kg_summarize_session with what was done, key decisions,
   and files modified. Calling it again updates the same session — never a duplicate.
3. kg_list_sessions shows prior sessions, newest first.

## AUTO-CAPTURE

File reads and checkpoint commands (git log/diff/status/show) reported by the host
are captured automatically — you do not need to save files by hand. Mark inline
decisions in content with a "decision:" line and they will be picked up at the
next checkpoint.

## IMPORTANT

- Entity names should be unique within a project; kg_connect resolves by exact id,
  then exact name, then substring — ambiguous references fail with the candidates.
- Everything is scoped to the current project path. Pass project_path only to
  operate on a different project.`
}
