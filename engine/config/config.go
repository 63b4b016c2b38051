package config

import (
	"os"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/lavoro/engine/core"
)

// Scheduler settings.
type JobsConfig struct {
	// Number of worker goroutines. 0 runs all work inline in Update.
	WorkerCount uint32 `toml:"worker_count"`
	// Label used for the workers in log output.
	WorkerNamePrefix string `toml:"worker_name_prefix"`
	// Time budget in microseconds for a single Update call when running
	// without workers.
	UpdateBudgetUS uint64 `toml:"update_budget_us"`
}

// Settings for the glyph generation payloads.
type FontGenConfig struct {
	// Padding in pixels around each glyph in its SDF bitmap.
	SDFBasePadding int `toml:"sdf_base_padding"`
	// The distance-field value considered to be the glyph edge (0-255).
	SDFEdgeValue int `toml:"sdf_edge_value"`
	// Glyph raster size in pixels.
	PixelSize int `toml:"pixel_size"`
	// Directory watched for font file changes.
	AssetsDir string `toml:"assets_dir"`
}

type Config struct {
	LogLevel string        `toml:"log_level"`
	Jobs     JobsConfig    `toml:"jobs"`
	FontGen  FontGenConfig `toml:"fontgen"`
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		LogLevel: "debug",
		Jobs: JobsConfig{
			WorkerCount:      2,
			WorkerNamePrefix: "lavorojob",
			UpdateBudgetUS:   1000,
		},
		FontGen: FontGenConfig{
			SDFBasePadding: 3,
			SDFEdgeValue:   191,
			PixelSize:      32,
			AssetsDir:      "assets/fonts",
		},
	}
}

// Load reads a TOML file over the defaults. A missing file is not an error,
// the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			core.LogDebug("config: %s not found, using defaults", path)
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Level maps the configured log level name onto the logging package's
// levels. Unknown names fall back to debug.
func (c *Config) Level() core.LogLevel {
	switch c.LogLevel {
	case "info":
		return core.InfoLevel
	case "warn":
		return core.WarnLevel
	case "error":
		return core.ErrorLevel
	}
	return core.DebugLevel
}
