// Package config loads tool configuration by layering
// defaults < config file < environment < flags.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
)

// Config holds all application configuration.
type Config struct {
	// Agent home roots. ClaudeHome honors $CLAUDE_CONFIG_DIR.
	ClaudeHome string `json:"claude_home"`
	CodexHome  string `json:"codex_home"`

	// DataDir is the per-user state directory (config file,
	// search index, index sidecar state).
	DataDir string `json:"-"`

	// ExportDir overrides the per-cwd default export root
	// (<cwd>/exported-sessions) when set.
	ExportDir string `json:"export_dir,omitempty"`

	// IndexDirOverride overrides the default index location
	// (DataDir/index) when set.
	IndexDirOverride string `json:"index_dir,omitempty"`

	// Model selection. SubagentModel drives parallel analysis
	// workers; the rollover models drive cross-agent
	// continuation (small model for summarization, default
	// model for the interactive handoff, "" = agent default).
	SubagentModel         string `json:"subagent_model"`
	RolloverAnalysisModel string `json:"rollover_analysis_model"`
	RolloverDefaultModel  string `json:"rollover_default_model"`

	// Launcher is a shell-style command template used to spawn
	// agent CLIs. Empty means `$SHELL -i -c <command>`.
	Launcher string `json:"launcher,omitempty"`
}

// Default returns a Config with default values.
func Default() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf(
			"determining home directory: %w", err,
		)
	}
	return Config{
		ClaudeHome:            filepath.Join(home, ".claude"),
		CodexHome:             filepath.Join(home, ".codex"),
		DataDir:               filepath.Join(home, ".agentsess"),
		SubagentModel:         "haiku",
		RolloverAnalysisModel: "gpt-5.1-codex-mini",
		RolloverDefaultModel:  "",
	}, nil
}

// Load builds a Config by layering: defaults < config file <
// env < flags. The provided FlagSet must already be parsed by
// the caller; pass nil to skip the flag layer.
func Load(fs *pflag.FlagSet) (Config, error) {
	cfg, err := Default()
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("AGENTSESS_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if err := cfg.loadFile(); err != nil {
		return cfg, fmt.Errorf("loading config file: %w", err)
	}
	cfg.loadEnv()
	applyFlags(&cfg, fs)
	return cfg, nil
}

func (c *Config) configPath() string {
	return filepath.Join(c.DataDir, "config.json")
}

// IndexDir returns the search index directory.
func (c *Config) IndexDir() string {
	if c.IndexDirOverride != "" {
		return c.IndexDirOverride
	}
	return filepath.Join(c.DataDir, "index")
}

func (c *Config) loadFile() error {
	data, err := os.ReadFile(c.configPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var file struct {
		ClaudeHome            string `json:"claude_home"`
		CodexHome             string `json:"codex_home"`
		ExportDir             string `json:"export_dir"`
		IndexDir              string `json:"index_dir"`
		SubagentModel         string `json:"subagent_model"`
		RolloverAnalysisModel string `json:"rollover_analysis_model"`
		RolloverDefaultModel  *string `json:"rollover_default_model"`
		Launcher              string `json:"launcher"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	if file.ClaudeHome != "" {
		c.ClaudeHome = file.ClaudeHome
	}
	if file.CodexHome != "" {
		c.CodexHome = file.CodexHome
	}
	if file.ExportDir != "" {
		c.ExportDir = file.ExportDir
	}
	if file.IndexDir != "" {
		c.IndexDirOverride = file.IndexDir
	}
	if file.SubagentModel != "" {
		c.SubagentModel = file.SubagentModel
	}
	if file.RolloverAnalysisModel != "" {
		c.RolloverAnalysisModel = file.RolloverAnalysisModel
	}
	// Empty string is a meaningful value here (agent default),
	// so distinguish "absent" from "set to empty".
	if file.RolloverDefaultModel != nil {
		c.RolloverDefaultModel = *file.RolloverDefaultModel
	}
	if file.Launcher != "" {
		c.Launcher = file.Launcher
	}
	return nil
}

func (c *Config) loadEnv() {
	if v := os.Getenv("CLAUDE_CONFIG_DIR"); v != "" {
		c.ClaudeHome = v
	}
	if v := os.Getenv("AGENTSESS_EXPORT_DIR"); v != "" {
		c.ExportDir = v
	}
	if v := os.Getenv("AGENTSESS_SUBAGENT_MODEL"); v != "" {
		c.SubagentModel = v
	}
}

// applyFlags copies explicitly-set flags from fs into cfg.
func applyFlags(cfg *Config, fs *pflag.FlagSet) {
	if fs == nil {
		return
	}
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "claude-home":
			cfg.ClaudeHome = f.Value.String()
		case "codex-home":
			cfg.CodexHome = f.Value.String()
		case "export-dir":
			cfg.ExportDir = f.Value.String()
		case "subagent-model":
			cfg.SubagentModel = f.Value.String()
		}
	})
}

// Save persists the file-backed fields to the config file,
// preserving unrecognized keys already present.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.DataDir, 0o700); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	existing := make(map[string]any)
	data, err := os.ReadFile(c.configPath())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err == nil {
		if err := json.Unmarshal(data, &existing); err != nil {
			return fmt.Errorf(
				"existing config is invalid, cannot update: %w",
				err,
			)
		}
	}

	existing["subagent_model"] = c.SubagentModel
	existing["rollover_analysis_model"] = c.RolloverAnalysisModel
	existing["rollover_default_model"] = c.RolloverDefaultModel
	if c.ExportDir != "" {
		existing["export_dir"] = c.ExportDir
	}
	if c.Launcher != "" {
		existing["launcher"] = c.Launcher
	}

	out, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(c.configPath(), out, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
