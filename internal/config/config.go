// Package config loads Ralph's YAML configuration: core paths and
// guardrails injected into every prompt, the completion sentinel,
// iteration and idle-timeout bounds, and the hat/event topology.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// CoreYAML is the `core` config section.
type CoreYAML struct {
	Scratchpad string   `mapstructure:"scratchpad"`
	SpecsDir   string   `mapstructure:"specs_dir"`
	Guardrails []string `mapstructure:"guardrails"`
}

// HatYAML is one entry of the `hats` map.
type HatYAML struct {
	Name         string   `mapstructure:"name"`
	Triggers     []string `mapstructure:"triggers"`
	Publishes    []string `mapstructure:"publishes"`
	Instructions string   `mapstructure:"instructions"`
}

// EventYAML is one entry of the `events` map.
type EventYAML struct {
	OnTrigger string `mapstructure:"on_trigger"`
	OnPublish string `mapstructure:"on_publish"`
}

// EventLoopYAML is the `event_loop` config section.
type EventLoopYAML struct {
	InitialPromptTemplate string `mapstructure:"initial_prompt_template"`
}

// ExecutorYAML is the `executor` config section. Not part of the
// minimal key set spec.md §6 enumerates, but a natural home for the
// PTY sizing and mode knobs spec.md §4.4 describes as config-driven.
type ExecutorYAML struct {
	Cols        int  `mapstructure:"cols"`
	Rows        int  `mapstructure:"rows"`
	Interactive bool `mapstructure:"interactive"`
}

// BackendYAML is the `backend` config section: which adapter to spawn
// and its own sub-settings, keyed by adapter name.
type BackendYAML struct {
	Name   string                 `mapstructure:"name"`
	Claude map[string]string      `mapstructure:"claude_code"`
	Codex  map[string]interface{} `mapstructure:"codex"`
	Aider  map[string]string      `mapstructure:"aider"`
}

// Config is the root of Ralph's configuration document.
type Config struct {
	Core              CoreYAML            `mapstructure:"core"`
	CompletionPromise string               `mapstructure:"completion_promise"`
	IdleTimeoutSecs   int                  `mapstructure:"idle_timeout_secs"`
	MaxIterations     int                  `mapstructure:"max_iterations"`
	Hats              map[string]HatYAML   `mapstructure:"hats"`
	Events            map[string]EventYAML `mapstructure:"events"`
	EventLoop         EventLoopYAML        `mapstructure:"event_loop"`
	Executor          ExecutorYAML         `mapstructure:"executor"`
	Backend           BackendYAML          `mapstructure:"backend"`
	JournalPath       string               `mapstructure:"journal_path"`
}

// Load reads the YAML document at path (or the working directory's
// .ralph.yaml when path is empty) and applies Ralph's defaults to any
// field the document leaves unset.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("config: getwd: %w", err)
		}
		v.AddConfigPath(cwd)
		v.SetConfigType("yaml")
		v.SetConfigName(".ralph")
	}

	v.SetEnvPrefix("RALPH")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Core.Scratchpad == "" {
		cfg.Core.Scratchpad = ".agent/scratchpad.md"
	}
	if cfg.Core.SpecsDir == "" {
		cfg.Core.SpecsDir = "./specs/"
	}
	if cfg.CompletionPromise == "" {
		cfg.CompletionPromise = "LOOP_COMPLETE"
	}
	if cfg.Executor.Cols == 0 {
		cfg.Executor.Cols = 80
	}
	if cfg.Executor.Rows == 0 {
		cfg.Executor.Rows = 24
	}
	if cfg.Backend.Name == "" {
		cfg.Backend.Name = "claude-code"
	}
	if cfg.JournalPath == "" {
		cfg.JournalPath = ".agent/journal.jsonl"
	}
}

// Validate rejects a configuration document with malformed hat
// references: a configuration-class error per the exit code taxonomy,
// fatal at startup.
func (c *Config) Validate() error {
	if c.MaxIterations < 0 {
		return fmt.Errorf("config: max_iterations must not be negative")
	}
	if c.IdleTimeoutSecs < 0 {
		return fmt.Errorf("config: idle_timeout_secs must not be negative")
	}

	validBackends := map[string]bool{"claude-code": true, "aider": true, "codex": true}
	if c.Backend.Name != "" && !validBackends[c.Backend.Name] {
		return fmt.Errorf("config: unknown backend %q (must be claude-code, aider, or codex)", c.Backend.Name)
	}

	for id, h := range c.Hats {
		if h.Name == "" {
			return fmt.Errorf("config: hat %q has no name", id)
		}
	}

	return nil
}
