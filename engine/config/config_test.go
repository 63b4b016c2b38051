package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/lavoro/engine/config"
)

func TestDefaults(t *testing.T) {
	cfg := config.Default()
	if cfg.FontGen.SDFBasePadding != 3 {
		t.Errorf("SDFBasePadding = %d, want 3", cfg.FontGen.SDFBasePadding)
	}
	if cfg.FontGen.SDFEdgeValue != 191 {
		t.Errorf("SDFEdgeValue = %d, want 191", cfg.FontGen.SDFEdgeValue)
	}
	if cfg.Jobs.WorkerNamePrefix == "" {
		t.Error("WorkerNamePrefix is empty")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FontGen.SDFEdgeValue != 191 {
		t.Errorf("SDFEdgeValue = %d, want default 191", cfg.FontGen.SDFEdgeValue)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lavoro.toml")
	content := `
log_level = "warn"

[jobs]
worker_count = 4
worker_name_prefix = "glyphs"

[fontgen]
sdf_base_padding = 5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Jobs.WorkerCount != 4 {
		t.Errorf("WorkerCount = %d, want 4", cfg.Jobs.WorkerCount)
	}
	if cfg.Jobs.WorkerNamePrefix != "glyphs" {
		t.Errorf("WorkerNamePrefix = %q, want \"glyphs\"", cfg.Jobs.WorkerNamePrefix)
	}
	// Overridden value applied, untouched keys keep their defaults.
	if cfg.FontGen.SDFBasePadding != 5 {
		t.Errorf("SDFBasePadding = %d, want 5", cfg.FontGen.SDFBasePadding)
	}
	if cfg.FontGen.SDFEdgeValue != 191 {
		t.Errorf("SDFEdgeValue = %d, want 191", cfg.FontGen.SDFEdgeValue)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want \"warn\"", cfg.LogLevel)
	}
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[jobs\nworker_count = "), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := config.Load(path); err == nil {
		t.Fatal("expected an error for malformed TOML")
	}
}
