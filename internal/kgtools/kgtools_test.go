package kgtools

import (
	"context"
	"strings"
	"testing"

	"github.com/cbuntingde/knowgraph/internal/knowledge"
	"github.com/cbuntingde/knowgraph/internal/session"
	"github.com/mark3labs/mcp-go/mcp"
)

const testProject = "/test/project"

// ─── Test helpers ────────────────────────────────────────────────────────────

// newTestStore creates a knowledge.Store in a temp directory for testing.
func newTestStore(t *testing.T) *knowledge.Store {
	t.Helper()
	store, err := knowledge.Open(knowledge.Config{
		DataDir:           t.TempDir(),
		MaxDisplayContent: 500,
		MaxSearchResults:  50,
	})
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// makeReq builds a mcp.CallToolRequest with the given arguments.
func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// mustNotError fails the test when the tool call failed at either level.
func mustNotError(t *testing.T, r *mcp.CallToolResult, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if r != nil && r.IsError {
		t.Fatalf("tool error: %s", resultText(r))
	}
}

// seedEntity inserts an entity directly into the store.
func seedEntity(t *testing.T, s *knowledge.Store, name, entityType, content string) *knowledge.Entity {
	t.Helper()
	e, err := s.AddEntity(knowledge.AddEntityParams{
		ProjectPath: testProject,
		Name:        name,
		Type:        entityType,
		Content:     content,
	})
	if err != nil {
		t.Fatalf("seed entity %q: %v", name, err)
	}
	return e
}

// ─── SearchTool ──────────────────────────────────────────────────────────────

func TestSearchTool_Definition(t *testing.T) {
	tool := NewSearchTool(newTestStore(t), testProject, 10)
	def := tool.Definition()

	if def.Name != "kg_search" {
		t.Errorf("tool name = %q, want kg_search", def.Name)
	}
	props := def.InputSchema.Properties
	for _, p := range []string{"query", "type", "limit", "project_path"} {
		if _, ok := props[p]; !ok {
			t.Errorf("missing %q parameter", p)
		}
	}
}

func TestSearchTool_MissingQuery(t *testing.T) {
	tool := NewSearchTool(newTestStore(t), testProject, 10)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("missing query should be a tool error")
	}
}

func TestSearchTool_FindsByFragment(t *testing.T) {
	store := newTestStore(t)
	seedEntity(t, store, "auth-service", "component", "handles JWT login")
	seedEntity(t, store, "billing", "component", "invoices")
	tool := NewSearchTool(store, testProject, 10)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"query": "auth",
	}))
	mustNotError(t, result, err)

	text := resultText(result)
	if !strings.Contains(text, "auth-service") {
		t.Errorf("expected auth-service in results: %s", text)
	}
	if strings.Contains(text, "billing") {
		t.Errorf("billing should not match: %s", text)
	}
	if !strings.Contains(text, `"count": 1`) {
		t.Errorf("count should be 1: %s", text)
	}
}

func TestSearchTool_TypeFilter(t *testing.T) {
	store := newTestStore(t)
	seedEntity(t, store, "shared-a", "decision", "common term")
	seedEntity(t, store, "shared-b", "documentation", "common term")
	tool := NewSearchTool(store, testProject, 10)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"query": "common",
		"type":  "decision",
	}))
	mustNotError(t, result, err)

	text := resultText(result)
	if !strings.Contains(text, "shared-a") || strings.Contains(text, "shared-b") {
		t.Errorf("type filter failed: %s", text)
	}
}

// ─── AddEntityTool ───────────────────────────────────────────────────────────

func TestAddEntityTool_Basic(t *testing.T) {
	store := newTestStore(t)
	tool := NewAddEntityTool(store, testProject)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"name":    "cache-layer",
		"type":    "architecture",
		"content": "Redis in front of Postgres",
	}))
	mustNotError(t, result, err)

	text := resultText(result)
	if !strings.Contains(text, `"success": true`) || !strings.Contains(text, "cache-layer") {
		t.Errorf("unexpected response: %s", text)
	}

	found, err := store.SearchEntities(testProject, "cache-layer", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 {
		t.Errorf("got %d entities, want 1", len(found))
	}
}

func TestAddEntityTool_RequiredFields(t *testing.T) {
	tool := NewAddEntityTool(newTestStore(t), testProject)

	for _, args := range []map[string]interface{}{
		{"type": "x", "content": "y"},
		{"name": "x", "content": "y"},
		{"name": "x", "type": "y"},
	} {
		result, err := tool.Handle(context.Background(), makeReq(args))
		if err != nil {
			t.Fatal(err)
		}
		if !result.IsError {
			t.Errorf("args %v should be a tool error", args)
		}
	}
}

func TestAddEntityTool_MetadataRoundTrip(t *testing.T) {
	store := newTestStore(t)
	tool := NewAddEntityTool(store, testProject)

	meta := `{"owner":"platform","reviewed":true}`
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"name":     "meta-entity",
		"type":     "concept",
		"content":  "x",
		"metadata": meta,
	}))
	mustNotError(t, result, err)

	found, err := store.SearchEntities(testProject, "meta-entity", "", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 || found[0].Metadata == nil || *found[0].Metadata != meta {
		t.Errorf("metadata not stored verbatim: %+v", found)
	}
}

func TestAddEntityTool_DuplicateNamesAllowed(t *testing.T) {
	store := newTestStore(t)
	tool := NewAddEntityTool(store, testProject)

	args := map[string]interface{}{"name": "dup", "type": "concept", "content": "x"}
	for i := 0; i < 2; i++ {
		result, err := tool.Handle(context.Background(), makeReq(args))
		mustNotError(t, result, err)
	}

	found, err := store.SearchEntities(testProject, "dup", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 2 {
		t.Errorf("got %d entities, want 2 distinct rows", len(found))
	}
}

// ─── ConnectTool ─────────────────────────────────────────────────────────────

func TestConnectTool_Basic(t *testing.T) {
	store := newTestStore(t)
	seedEntity(t, store, "UserService", "component", "")
	seedEntity(t, store, "Database", "component", "")
	tool := NewConnectTool(store, testProject)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"source":       "UserService",
		"target":       "Database",
		"relationship": "depends_on",
	}))
	mustNotError(t, result, err)

	text := resultText(result)
	if !strings.Contains(text, `"from": "UserService"`) || !strings.Contains(text, `"to": "Database"`) {
		t.Errorf("response should name both resolved endpoints: %s", text)
	}
}

func TestConnectTool_UnknownTargetNamed(t *testing.T) {
	store := newTestStore(t)
	seedEntity(t, store, "known", "component", "")
	tool := NewConnectTool(store, testProject)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"source":       "known",
		"target":       "missing",
		"relationship": "uses",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Fatal("unresolved target should be a tool error")
	}
	text := resultText(result)
	if !strings.Contains(text, `target "missing"`) {
		t.Errorf("error should name the failing side: %s", text)
	}
}

func TestConnectTool_AmbiguousSourceListsCandidates(t *testing.T) {
	store := newTestStore(t)
	seedEntity(t, store, "auth-service", "component", "")
	seedEntity(t, store, "auth-middleware", "component", "")
	seedEntity(t, store, "db", "component", "")
	tool := NewConnectTool(store, testProject)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"source":       "auth",
		"target":       "db",
		"relationship": "uses",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Fatal("ambiguous source should be a tool error")
	}
	text := resultText(result)
	if !strings.Contains(text, "auth-service") || !strings.Contains(text, "auth-middleware") {
		t.Errorf("error should list candidates: %s", text)
	}
}

// ─── ExportGraphTool ─────────────────────────────────────────────────────────

func TestExportGraphTool_TwoNodesOneEdge(t *testing.T) {
	store := newTestStore(t)
	seedEntity(t, store, "UserService", "component", "")
	seedEntity(t, store, "Database", "component", "")
	if _, err := store.Connect(knowledge.ConnectParams{
		ProjectPath: testProject, Source: "UserService", Target: "Database", Type: "depends_on",
	}); err != nil {
		t.Fatal(err)
	}

	tool := NewExportGraphTool(store, testProject)
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	mustNotError(t, result, err)

	text := resultText(result)
	if !strings.Contains(text, `"source": "UserService"`) || !strings.Contains(text, `"target": "Database"`) {
		t.Errorf("edge should carry endpoint names: %s", text)
	}
	if strings.Count(text, `"label"`) != 2 {
		t.Errorf("want 2 nodes: %s", text)
	}
}

func TestExportGraphTool_FilterKeepsEdges(t *testing.T) {
	store := newTestStore(t)
	seedEntity(t, store, "the-decision", "decision", "")
	seedEntity(t, store, "the-component", "component", "")
	if _, err := store.Connect(knowledge.ConnectParams{
		ProjectPath: testProject, Source: "the-decision", Target: "the-component", Type: "motivates",
	}); err != nil {
		t.Fatal(err)
	}

	tool := NewExportGraphTool(store, testProject)
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"entityType": "decision",
	}))
	mustNotError(t, result, err)

	text := resultText(result)
	if strings.Count(text, `"label"`) != 1 {
		t.Errorf("want 1 filtered node: %s", text)
	}
	if !strings.Contains(text, `"motivates"`) {
		t.Errorf("edges survive the node filter: %s", text)
	}
}

// ─── ListSessionsTool / SummarizeSessionTool ────────────────────────────────

func TestSummarizeSessionTool_UpsertsAndLists(t *testing.T) {
	store := newTestStore(t)
	tracker := session.NewTracker(store, testProject, session.Options{})
	sumTool := NewSummarizeSessionTool(tracker)
	listTool := NewListSessionsTool(store, testProject)

	result, err := sumTool.Handle(context.Background(), makeReq(map[string]interface{}{
		"summary":   "wired the exporter",
		"decisions": "edges stay unfiltered",
		"files":     "graph.go, export.go",
	}))
	mustNotError(t, result, err)

	// Summarizing again updates the same session.
	result, err = sumTool.Handle(context.Background(), makeReq(map[string]interface{}{
		"summary":   "wired the exporter and tests",
		"decisions": "edges stay unfiltered",
		"files":     "graph.go, export.go, graph_test.go",
	}))
	mustNotError(t, result, err)

	n, err := store.SessionCount(testProject)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("session count = %d, want 1", n)
	}

	listResult, err := listTool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	mustNotError(t, listResult, err)

	text := resultText(listResult)
	if !strings.Contains(text, "wired the exporter and tests") {
		t.Errorf("list should carry the updated summary: %s", text)
	}
	if !strings.Contains(text, "graph_test.go") {
		t.Errorf("list should carry the updated file list: %s", text)
	}
	if !strings.Contains(text, `"count": 1`) {
		t.Errorf("count should be 1: %s", text)
	}
}

func TestSummarizeSessionTool_RequiredFields(t *testing.T) {
	store := newTestStore(t)
	tracker := session.NewTracker(store, testProject, session.Options{})
	tool := NewSummarizeSessionTool(tracker)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"decisions": "d", "files": "f",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("missing summary should be a tool error")
	}
}

func TestListSessionsTool_Empty(t *testing.T) {
	store := newTestStore(t)
	tool := NewListSessionsTool(store, testProject)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	mustNotError(t, result, err)

	if !strings.Contains(resultText(result), `"count": 0`) {
		t.Errorf("empty project should list zero sessions: %s", resultText(result))
	}
}

// ─── RecordDecisionTool / AskTool ───────────────────────────────────────────

func TestRecordDecisionTool_Basic(t *testing.T) {
	store := newTestStore(t)
	tool := NewRecordDecisionTool(store, testProject)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"decision":     "Use PostgreSQL",
		"rationale":    "ACID needed",
		"alternatives": "MongoDB",
	}))
	mustNotError(t, result, err)

	if !strings.Contains(resultText(result), `"success": true`) {
		t.Errorf("unexpected response: %s", resultText(result))
	}

	decisions, err := store.RecentEntities(testProject, "decision", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(decisions) != 1 {
		t.Fatalf("got %d decision entities, want 1", len(decisions))
	}
	if !strings.Contains(decisions[0].Content, "ACID needed") {
		t.Errorf("stored content = %q", decisions[0].Content)
	}
}

func TestAskTool_SurfacesRecordedDecision(t *testing.T) {
	store := newTestStore(t)
	recordTool := NewRecordDecisionTool(store, testProject)
	askTool := NewAskTool(store, testProject)

	result, err := recordTool.Handle(context.Background(), makeReq(map[string]interface{}{
		"decision":  "Use PostgreSQL",
		"rationale": "ACID needed",
	}))
	mustNotError(t, result, err)

	result, err = askTool.Handle(context.Background(), makeReq(map[string]interface{}{
		"question": "what database do we use?",
	}))
	mustNotError(t, result, err)

	text := resultText(result)
	if !strings.Contains(text, "Use PostgreSQL: ACID needed") {
		t.Errorf("ask should render the decision with its rationale: %s", text)
	}

	// The question lands in the audit log.
	stats, err := store.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalQueries != 1 {
		t.Errorf("TotalQueries = %d, want 1", stats.TotalQueries)
	}
}

func TestAskTool_IncludesDocumentation(t *testing.T) {
	store := newTestStore(t)
	seedEntity(t, store, "Deployment", "documentation", "Ships via goreleaser.")
	askTool := NewAskTool(store, testProject)

	result, err := askTool.Handle(context.Background(), makeReq(map[string]interface{}{
		"question": "how do we deploy?",
	}))
	mustNotError(t, result, err)

	text := resultText(result)
	if !strings.Contains(text, "Deployment") || !strings.Contains(text, "goreleaser") {
		t.Errorf("documentation should appear in context: %s", text)
	}
}

func TestAskTool_EmptyGraph(t *testing.T) {
	askTool := NewAskTool(newTestStore(t), testProject)

	result, err := askTool.Handle(context.Background(), makeReq(map[string]interface{}{
		"question": "anything?",
	}))
	mustNotError(t, result, err)

	if !strings.Contains(resultText(result), "No recorded decisions or documentation yet.") {
		t.Errorf("empty graph should say so: %s", resultText(result))
	}
}

func TestAskTool_RawContentFallback(t *testing.T) {
	store := newTestStore(t)
	// Auto-captured decisions are plain text, not structured records.
	seedEntity(t, store, "decision-auto", "decision", "decision: ship it friday")
	askTool := NewAskTool(store, testProject)

	result, err := askTool.Handle(context.Background(), makeReq(map[string]interface{}{
		"question": "when do we ship?",
	}))
	mustNotError(t, result, err)

	if !strings.Contains(resultText(result), "ship it friday") {
		t.Errorf("plain-text decisions render raw: %s", resultText(result))
	}
}
