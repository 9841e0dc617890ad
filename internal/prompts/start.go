// Package prompts implements MCP prompt handlers for the knowledge graph.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// inject content into the conversation. Unlike tools (which the AI calls),
// prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/cbuntingde/knowgraph/internal/session"
	"github.com/mark3labs/mcp-go/mcp"
)

// SessionStartPrompt handles the kg-session-start MCP prompt. It begins a
// session on the tracker and renders the continuity context — prior
// session summary, key decisions, and recently touched entities — as
// markdown for injection.
type SessionStartPrompt struct {
	tracker *session.Tracker
}

// NewSessionStartPrompt creates a SessionStartPrompt.
func NewSessionStartPrompt(tracker *session.Tracker) *SessionStartPrompt {
	return &SessionStartPrompt{tracker: tracker}
}

// Definition returns the MCP prompt definition for registration.
func (p *SessionStartPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("kg-session-start",
		mcp.WithPromptDescription(
			"Start a knowledge-graph session and inject continuity context "+
				"from previous sessions: last summary, key decisions, and "+
				"recently active entities.",
		),
		mcp.WithArgument("session_id",
			mcp.ArgumentDescription("Session identifier from the host (minted when omitted)"),
		),
	)
}

// Handle processes the kg-session-start prompt request.
func (p *SessionStartPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	sessionID := ""
	if args := req.Params.Arguments; args != nil {
		sessionID = args["session_id"]
	}

	c, err := p.tracker.Begin(sessionID)
	if err != nil {
		return nil, fmt.Errorf("starting session: %w", err)
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Session %s started", c.SessionID),
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(renderContinuity(c)),
			},
		},
	}, nil
}

// renderContinuity formats the continuity context as markdown.
func renderContinuity(c *session.Continuity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session %s started.\n\n", c.SessionID)

	if c.LastSummary == "" && len(c.RecentEntities) == 0 {
		b.WriteString("No previous sessions or entities for this project yet.\n")
		return b.String()
	}

	if c.LastSummary != "" {
		fmt.Fprintf(&b, "## Previous Session (%d day(s) ago)\n\n%s\n\n", c.DaysSinceLast, c.LastSummary)
	}
	if c.LastDecisions != "" {
		fmt.Fprintf(&b, "## Key Decisions\n\n%s\n\n", c.LastDecisions)
	}

	if len(c.RecentEntities) > 0 {
		b.WriteString("## Recently Active Entities\n\n")
		for _, e := range c.RecentEntities {
			fmt.Fprintf(&b, "- [%s] %s\n", e.Type, e.Name)
		}
	}

	return b.String()
}
