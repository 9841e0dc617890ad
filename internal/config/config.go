// Package config loads the knowgraph configuration file.
//
// Configuration lives at <data dir>/config.yaml (or .yml). A missing file
// means defaults; a malformed file is an error rather than a silent
// fallback, so typos don't quietly disable capture triggers.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all tunable settings for the plugin.
type Config struct {
	// DataDir is where the SQLite database and config file live.
	DataDir string `yaml:"data_dir"`

	// ProjectPath is the default project scope when the host does not
	// supply one. Empty means the current working directory.
	ProjectPath string `yaml:"project_path"`

	// SearchLimit is the default result cap for search when the caller
	// does not pass one.
	SearchLimit int `yaml:"search_limit"`

	// ContextSessions / ContextEntities size the continuity context
	// computed at session start.
	ContextSessions int `yaml:"context_sessions"`
	ContextEntities int `yaml:"context_entities"`

	// CaptureContentLimit caps how much file content auto-capture stores
	// per entity.
	CaptureContentLimit int `yaml:"capture_content_limit"`

	// CheckpointTriggers are command substrings that mark a "meaningful
	// checkpoint" and fire documentation/decision capture. Configurable
	// rather than hardcoded so hosts can add their own triggers.
	CheckpointTriggers []string `yaml:"checkpoint_triggers"`
}

// Default returns the built-in configuration.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:             filepath.Join(home, ".knowgraph"),
		SearchLimit:         10,
		ContextSessions:     5,
		ContextEntities:     10,
		CaptureContentLimit: 1000,
		CheckpointTriggers: []string{
			"git log",
			"git diff",
			"git status",
			"git show",
		},
	}
}

// candidates returns the config file paths probed in order.
func candidates(dataDir string) []string {
	return []string{
		filepath.Join(dataDir, "config.yaml"),
		filepath.Join(dataDir, "config.yml"),
	}
}

// Load reads the config file under dataDir, falling back to defaults for
// any field the file leaves unset. An empty dataDir means the default
// location.
func Load(dataDir string) (Config, error) {
	cfg := Default()
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	var path string
	for _, p := range candidates(cfg.DataDir) {
		if _, err := os.Stat(p); err == nil {
			path = p
			break
		}
	}
	if path == "" {
		return cfg.normalized(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg.normalized(), nil
}

// normalized fills zero values with defaults so a partial config file
// never produces broken limits.
func (c Config) normalized() Config {
	def := Default()
	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	if c.SearchLimit <= 0 {
		c.SearchLimit = def.SearchLimit
	}
	if c.ContextSessions <= 0 {
		c.ContextSessions = def.ContextSessions
	}
	if c.ContextEntities <= 0 {
		c.ContextEntities = def.ContextEntities
	}
	if c.CaptureContentLimit <= 0 {
		c.CaptureContentLimit = def.CaptureContentLimit
	}
	if len(c.CheckpointTriggers) == 0 {
		c.CheckpointTriggers = def.CheckpointTriggers
	}
	if c.ProjectPath == "" {
		if wd, err := os.Getwd(); err == nil {
			c.ProjectPath = wd
		}
	}
	return c
}
