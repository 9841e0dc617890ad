// Package capture derives entities from observed host tool activity.
//
// Nothing here is user-initiated: the host reports tool executions after
// the fact, and the ingestor turns successful file reads into file entities
// and recognized checkpoint commands into decision/documentation entities.
package capture

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/cbuntingde/knowgraph/internal/knowledge"
)

// Ingestor performs auto-capture against the knowledge store.
type Ingestor struct {
	store *knowledge.Store

	// triggers are command substrings that mark a checkpoint. Matching any
	// of them fires decision and documentation capture.
	triggers []string

	// maxContent caps how much file content is stored per captured entity.
	maxContent int

	// recentScan is how many recently updated entities a checkpoint scans.
	recentScan int
}

// CheckpointResult reports what a shell-command event captured.
type CheckpointResult struct {
	Matched      bool `json:"matched"`
	Decisions    int  `json:"decisions"`
	DocSections  int  `json:"doc_sections"`
	EntitiesSeen int  `json:"entities_seen"`
}

// NewIngestor creates an Ingestor. Empty triggers fall back to the git
// commands the capture heuristics were designed around.
func NewIngestor(store *knowledge.Store, triggers []string, maxContent int) *Ingestor {
	if len(triggers) == 0 {
		triggers = []string{"git log", "git diff", "git status", "git show"}
	}
	if maxContent <= 0 {
		maxContent = 1000
	}
	return &Ingestor{
		store:      store,
		triggers:   triggers,
		maxContent: maxContent,
		recentScan: 5,
	}
}

// ─── File reads ──────────────────────────────────────────────────────────────

// FileRead captures a successful file read. The path is normalized and used
// as the entity name; when a row already exists only its updated_at is
// refreshed — content is never overwritten by a re-read. Returns the entity
// id and whether a new row was created.
func (g *Ingestor) FileRead(projectPath, filePath, content string) (string, bool, error) {
	name := NormalizePath(projectPath, filePath)
	if name == "" {
		return "", false, nil
	}

	id, found, err := g.store.TouchEntity(projectPath, name)
	if err != nil {
		return "", false, fmt.Errorf("capture file read: %w", err)
	}
	if found {
		return id, false, nil
	}

	e, err := g.store.AddEntity(knowledge.AddEntityParams{
		ProjectPath: projectPath,
		Name:        name,
		Type:        ClassifyFile(name),
		Content:     knowledge.Truncate(content, g.maxContent),
	})
	if err != nil {
		return "", false, fmt.Errorf("capture file read: %w", err)
	}
	return e.ID, true, nil
}

// NormalizePath cleans a file path and makes it project-relative when it
// sits under the project root.
func NormalizePath(projectPath, filePath string) string {
	p := filepath.Clean(strings.TrimSpace(filePath))
	if p == "" || p == "." {
		return ""
	}
	if projectPath != "" && filepath.IsAbs(p) {
		if rel, err := filepath.Rel(projectPath, p); err == nil && !strings.HasPrefix(rel, "..") {
			return rel
		}
	}
	return p
}

// ClassifyFile maps a file name to an entity type by extension.
func ClassifyFile(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".ts", ".tsx", ".mts", ".cts":
		return "typescript"
	case ".js", ".jsx", ".mjs", ".cjs":
		return "javascript"
	case ".json", ".yaml", ".yml", ".toml", ".ini", ".env":
		return "config"
	default:
		return "file"
	}
}

// ─── Checkpoint commands ─────────────────────────────────────────────────────

// Command captures from a successful shell command. Commands that match no
// checkpoint trigger are ignored. On a match, the most recently updated
// entities are scanned for inline decision markers and for README/
// ARCHITECTURE documents whose sections become documentation entities.
func (g *Ingestor) Command(projectPath, command string) (*CheckpointResult, error) {
	result := &CheckpointResult{}
	if !g.isCheckpoint(command) {
		return result, nil
	}
	result.Matched = true

	recent, err := g.store.RecentEntities(projectPath, "", g.recentScan)
	if err != nil {
		return result, fmt.Errorf("capture checkpoint scan: %w", err)
	}
	result.EntitiesSeen = len(recent)

	for _, e := range recent {
		// Never re-mine captured decisions; their content carries the marker.
		if e.Type == "decision" {
			continue
		}

		n, err := g.captureDecisions(projectPath, e)
		if err != nil {
			return result, err
		}
		result.Decisions += n

		if isDocFile(e.Name) {
			n, err := g.captureDocSections(projectPath, e.Content)
			if err != nil {
				return result, err
			}
			result.DocSections += n
		}
	}

	return result, nil
}

func (g *Ingestor) isCheckpoint(command string) bool {
	for _, trig := range g.triggers {
		if strings.Contains(command, trig) {
			return true
		}
	}
	return false
}

func isDocFile(name string) bool {
	return strings.HasSuffix(name, "README.md") || strings.HasSuffix(name, "ARCHITECTURE.md")
}

// decisionMarker is the literal inline tag that flags a decision in
// captured content.
const decisionMarker = "decision:"

// captureDecisions extracts a small window of lines around each decision
// marker in the entity's content and stores it as a decision entity,
// insert-if-absent under a timestamp-scoped name.
func (g *Ingestor) captureDecisions(projectPath string, e knowledge.Entity) (int, error) {
	if !strings.Contains(e.Content, decisionMarker) {
		return 0, nil
	}

	lines := strings.Split(e.Content, "\n")
	captured := 0
	for i, line := range lines {
		if !strings.Contains(line, decisionMarker) {
			continue
		}

		start := i - 1
		if start < 0 {
			start = 0
		}
		end := i + 2
		if end > len(lines) {
			end = len(lines)
		}
		window := strings.TrimSpace(strings.Join(lines[start:end], "\n"))

		name := decisionName(e, i)
		if _, found, err := g.store.TouchEntity(projectPath, name); err != nil {
			return captured, fmt.Errorf("capture decision: %w", err)
		} else if found {
			continue
		}

		if _, err := g.store.AddEntity(knowledge.AddEntityParams{
			ProjectPath: projectPath,
			Name:        name,
			Type:        "decision",
			Content:     window,
		}); err != nil {
			return captured, fmt.Errorf("capture decision: %w", err)
		}
		captured++
	}
	return captured, nil
}

// decisionName builds a stable, timestamp-scoped name for a captured
// decision so re-scanning the same entity does not duplicate it.
func decisionName(e knowledge.Entity, line int) string {
	ts := strings.NewReplacer(" ", "-", ":", "").Replace(e.UpdatedAt)
	if ts == "" {
		ts = time.Now().UTC().Format("2006-01-02-150405")
	}
	short := e.ID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("decision-%s-%s-%d", ts, short, line)
}

// captureDocSections splits document content on second-level markdown
// headers and stores each section as a documentation entity (header text as
// name, following lines as content), insert-if-absent by name.
func (g *Ingestor) captureDocSections(projectPath, content string) (int, error) {
	captured := 0
	for _, sec := range SplitSections(content) {
		if _, found, err := g.store.TouchEntity(projectPath, sec.Header); err != nil {
			return captured, fmt.Errorf("capture doc section: %w", err)
		} else if found {
			continue
		}

		if _, err := g.store.AddEntity(knowledge.AddEntityParams{
			ProjectPath: projectPath,
			Name:        sec.Header,
			Type:        "documentation",
			Content:     sec.Body,
		}); err != nil {
			return captured, fmt.Errorf("capture doc section: %w", err)
		}
		captured++
	}
	return captured, nil
}

// Section is one "## " block of a markdown document.
type Section struct {
	Header string
	Body   string
}

// sectionBodyLines is how many lines of each section body are kept.
const sectionBodyLines = 10

// SplitSections extracts second-level markdown sections from content.
// Each section's body is capped at sectionBodyLines lines.
func SplitSections(content string) []Section {
	lines := strings.Split(content, "\n")
	var sections []Section

	for i, line := range lines {
		if !strings.HasPrefix(line, "## ") {
			continue
		}
		header := strings.TrimSpace(strings.TrimPrefix(line, "## "))
		if header == "" {
			continue
		}

		var body []string
		for j := i + 1; j < len(lines) && len(body) < sectionBodyLines; j++ {
			if strings.HasPrefix(lines[j], "## ") {
				break
			}
			body = append(body, lines[j])
		}

		sections = append(sections, Section{
			Header: header,
			Body:   strings.TrimSpace(strings.Join(body, "\n")),
		})
	}

	return sections
}
