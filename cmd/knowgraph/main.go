// Knowgraph: persistent knowledge graph MCP server
//
// A project-scoped knowledge graph that integrates with any AI coding tool
// (Claude Code, OpenCode, Gemini CLI, Codex, Cursor, VS Code Copilot) to
// give sessions durable memory: entities, relationships, decisions, and
// session continuity, persisted in SQLite.
//
// Usage:
//
//	knowgraph serve         # Start MCP server (stdio transport)
//	knowgraph hook <event>  # Handle one host lifecycle event (JSON on stdin)
//	knowgraph update        # Update to the latest version
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cbuntingde/knowgraph/internal/config"
	"github.com/cbuntingde/knowgraph/internal/lifecycle"
	kgserver "github.com/cbuntingde/knowgraph/internal/server"
	"github.com/cbuntingde/knowgraph/internal/updater"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "hook":
		if err := runHook(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "update":
		runUpdate()
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("knowgraph v%s\n", kgserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("KNOWGRAPH_DATA_DIR"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	s, cleanup, err := kgserver.New(cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Background version check — prints to stderr so it doesn't
	// interfere with MCP's stdio transport on stdout.
	go checkForUpdates()

	// Graceful shutdown on interrupt.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	_ = ctx // stdio server manages its own lifecycle

	return server.ServeStdio(s)
}

// runHook handles one host lifecycle event. The event arrives as a single
// JSON object on stdin; when an event type argument is given it overrides
// (or supplies) the type field. The dispatch result is written to stdout
// as JSON for the host to consume.
func runHook(args []string) error {
	cfg, err := config.Load(os.Getenv("KNOWGRAPH_DATA_DIR"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	app, cleanup, err := kgserver.NewApp(cfg)
	if err != nil {
		return fmt.Errorf("initializing: %w", err)
	}
	defer cleanup()

	// The event type may come from the stdin payload, the argument, or
	// both — the argument wins. A bare event type argument with no stdin
	// payload is a valid invocation for the session lifecycle signals.
	var ev lifecycle.Event
	if err := json.NewDecoder(os.Stdin).Decode(&ev); err != nil && len(args) == 0 {
		return fmt.Errorf("decoding event: %w", err)
	}
	if len(args) > 0 && args[0] != "" {
		ev.Type = args[0]
	}
	if ev.Type == "" {
		return fmt.Errorf("no event type given")
	}

	res, err := app.Dispatcher.Dispatch(&ev)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// checkForUpdates runs a non-blocking version check and prints a notice
// to stderr if an update is available. This runs in a goroutine during
// "serve" and is best-effort — network failures are silently ignored.
func checkForUpdates() {
	result := updater.CheckVersion(kgserver.Version)
	if result.UpdateAvailable {
		fmt.Fprintf(os.Stderr,
			"\n  📦 Update available: v%s → v%s\n"+
				"     Run: knowgraph update\n"+
				"     Release: %s\n\n",
			result.CurrentVersion, result.LatestVersion, result.ReleaseURL,
		)
	}
}

// runUpdate performs a self-update to the latest version.
func runUpdate() {
	fmt.Fprintf(os.Stderr, "🔍 Checking for updates...\n")

	result := updater.CheckVersion(kgserver.Version)
	if !result.UpdateAvailable {
		fmt.Fprintf(os.Stderr, "✅ Already at the latest version (v%s)\n", result.CurrentVersion)
		return
	}

	fmt.Fprintf(os.Stderr, "📦 New version available: v%s → v%s\n", result.CurrentVersion, result.LatestVersion)
	fmt.Fprintf(os.Stderr, "⬇️  Downloading...\n")

	if err := updater.SelfUpdate(kgserver.Version); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Update failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "\n   You can download manually from:\n   %s\n", result.ReleaseURL)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "✅ Updated to v%s!\n", result.LatestVersion)
	fmt.Fprintf(os.Stderr, "   Restart knowgraph to use the new version.\n")
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Knowgraph v%s — persistent knowledge graph MCP server

Usage:
  knowgraph serve         Start the MCP server (stdio transport)
  knowgraph hook <event>  Handle one host lifecycle event (JSON on stdin)
  knowgraph update        Update to the latest version

Events:
  session.created     Begin a session; prints continuity context
  session.compacted   Re-surface the current session's summary
  session.deleted     End the session; prints its final output
  tool.execute.after  Auto-capture from a completed tool call

Configuration:
  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "knowgraph": {
        "command": "knowgraph",
        "args": ["serve"]
      }
    }
  }

  Settings are read from ~/.knowgraph/config.yaml (override the data
  directory with KNOWGRAPH_DATA_DIR).

Learn more: https://github.com/cbuntingde/knowgraph
`, kgserver.Version)
}
