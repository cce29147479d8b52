package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/aristath/runebot/internal/world"
)

func TestSaveCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := DefaultConfig()
	cfg.Bot = "combat"
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Verify file contains valid JSON
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read config file: %v", err)
	}
	var loaded BotConfig
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("Config file contains invalid JSON: %v", err)
	}
	if loaded.Bot != "combat" {
		t.Errorf("Expected bot 'combat', got '%s'", loaded.Bot)
	}
}

func TestSaveCreatesParentDir(t *testing.T) {
	// Nested path that doesn't exist yet
	path := filepath.Join(t.TempDir(), "nested", "deep", "config.json")

	if err := Save(DefaultConfig(), path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatalf("Config file was not created: %s", path)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			cfg := DefaultConfig()
			cfg.Bot = "cooking"
			cfg.Mining.Rocks = []string{"coal", "mithril"}
			cfg.Mining.HoverNextRock = true
			cfg.Cooking.Range = world.NewWorldPoint(3043, 4972, 1)
			cfg.Input.Command = "injector"
			cfg.Input.Args = []string{"--pipe", "/tmp/x"}
			cfg.Log.Format = "json"

			if err := Save(cfg, path); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			loaded, err := Load(path, "")
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}

			if loaded.Bot != "cooking" || loaded.Log.Format != "json" {
				t.Errorf("bot/log mismatch: %q %q", loaded.Bot, loaded.Log.Format)
			}
			if !slices.Equal(loaded.Mining.Rocks, cfg.Mining.Rocks) || !loaded.Mining.HoverNextRock {
				t.Errorf("mining mismatch: %+v", loaded.Mining)
			}
			if loaded.Cooking.Range != cfg.Cooking.Range {
				t.Errorf("range mismatch: got %v", loaded.Cooking.Range)
			}
			if !slices.Equal(loaded.Input.Args, cfg.Input.Args) {
				t.Errorf("args mismatch: got %v", loaded.Input.Args)
			}
		})
	}
}

func TestSaveYAMLIsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := Save(DefaultConfig(), path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read config file: %v", err)
	}
	if !strings.HasPrefix(string(data), "bot: mining") {
		t.Errorf("expected YAML output, got:\n%s", data)
	}
}

func TestSaveOverwritesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	first := DefaultConfig()
	first.Bridge.Listen = "127.0.0.1:1"
	if err := Save(first, path); err != nil {
		t.Fatalf("First save failed: %v", err)
	}
	second := DefaultConfig()
	second.Bridge.Listen = "127.0.0.1:2"
	if err := Save(second, path); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	loaded, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Bridge.Listen != "127.0.0.1:2" {
		t.Errorf("Expected '127.0.0.1:2', got '%s'", loaded.Bridge.Listen)
	}
}
