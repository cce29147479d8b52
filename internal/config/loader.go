package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

// Dir is the name of the configuration directory, both under the home
// directory and in the working directory.
const Dir = ".runebot"

// Load reads and merges configuration from global and project paths.
// Order of precedence (highest to lowest): project config, global config, defaults.
// A file only overrides the fields it sets. Missing files are not errors;
// malformed files return an error.
func Load(globalPath, projectPath string) (*BotConfig, error) {
	// Start with defaults
	cfg := DefaultConfig()

	// Merge global config if exists
	if globalPath != "" {
		if err := mergeConfigFile(cfg, globalPath); err != nil {
			return nil, fmt.Errorf("loading global config: %w", err)
		}
	}

	// Merge project config if exists (highest precedence)
	if projectPath != "" {
		if err := mergeConfigFile(cfg, projectPath); err != nil {
			return nil, fmt.Errorf("loading project config: %w", err)
		}
	}

	return cfg, nil
}

// GlobalPath returns ~/.runebot/config.json.
func GlobalPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(homeDir, Dir, "config.json"), nil
}

// ProjectPath returns .runebot/config.json relative to the working directory.
func ProjectPath() string {
	return filepath.Join(Dir, "config.json")
}

// LoadDefault loads configuration from conventional paths.
// Global: ~/.runebot/config.json
// Project: .runebot/config.json (relative to cwd)
func LoadDefault() (*BotConfig, error) {
	globalPath, err := GlobalPath()
	if err != nil {
		return nil, err
	}
	return Load(globalPath, ProjectPath())
}

// mergeConfigFile decodes a config file over base. Files ending in .yaml or
// .yml are YAML; anything else is JSON, which may carry comments and trailing
// commas. Missing files are silently skipped.
func mergeConfigFile(base *BotConfig, path string) error {
	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil // Missing file is not an error
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, base); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		std, err := hujson.Standardize(data)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		dec := json.NewDecoder(bytes.NewReader(std))
		dec.DisallowUnknownFields()
		if err := dec.Decode(base); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	return nil
}
