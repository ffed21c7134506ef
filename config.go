package docgraph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the docgraph engine.
type Config struct {
	// DBPath is the full path to the SQLite database file.
	// If empty, defaults to ~/.docgraph/<DBName>.db
	DBPath string `json:"db_path" yaml:"db_path"`

	// DBName is the name for the database (used when DBPath is empty).
	DBName string `json:"db_name" yaml:"db_name"`

	// StorageDir controls where the database is created when DBPath
	// is not explicitly set. Options: "home" (default) uses ~/.docgraph/,
	// "local" uses the current working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// Section hierarchy
	MaxHeadingLevels   int     `json:"max_heading_levels" yaml:"max_heading_levels"`       // 0 keeps every distinct font size as a level
	MinHeadingFontSize float64 `json:"min_heading_font_size" yaml:"min_heading_font_size"` // smaller candidates become chunks
	FontSizePrecision  int     `json:"font_size_precision" yaml:"font_size_precision"`     // decimals; -1 disables rounding

	// Record expansion
	ExpandListItems bool `json:"expand_list_items" yaml:"expand_list_items"`

	// Parallelism bounds concurrent documents in BuildAll. 0 uses GOMAXPROCS.
	Parallelism int `json:"parallelism" yaml:"parallelism"`
}

// DefaultConfig returns a Config with the defaults used by the CLI.
func DefaultConfig() Config {
	return Config{
		DBName:            "docgraph",
		StorageDir:        "home",
		FontSizePrecision: 2,
		ExpandListItems:   true,
	}
}

// LoadConfig reads a YAML or JSON (by extension) config file over the
// defaults and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &cfg)
	default:
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	return cfg, cfg.Validate()
}

// Validate reports the first out-of-range setting.
func (c Config) Validate() error {
	switch {
	case c.MaxHeadingLevels < 0:
		return fmt.Errorf("%w: max_heading_levels must be >= 0, got %d", ErrInvalidConfig, c.MaxHeadingLevels)
	case c.MinHeadingFontSize < 0:
		return fmt.Errorf("%w: min_heading_font_size must be >= 0, got %v", ErrInvalidConfig, c.MinHeadingFontSize)
	case c.FontSizePrecision < -1 || c.FontSizePrecision > 6:
		return fmt.Errorf("%w: font_size_precision must be in [-1, 6], got %d", ErrInvalidConfig, c.FontSizePrecision)
	case c.Parallelism < 0:
		return fmt.Errorf("%w: parallelism must be >= 0, got %d", ErrInvalidConfig, c.Parallelism)
	}
	return nil
}

func (c Config) parallelism() int {
	if c.Parallelism > 0 {
		return c.Parallelism
	}
	return runtime.GOMAXPROCS(0)
}

// ResolveDBPath computes the final database path from config fields.
func (c Config) ResolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "docgraph"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db" // fallback to cwd
		}
		return filepath.Join(home, ".docgraph", name+".db")
	}
}
