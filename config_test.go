package docgraph

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		check   func(t *testing.T, c Config)
	}{
		{
			name: "yaml",
			file: "docgraph.yaml",
			content: `db_name: manuals
max_heading_levels: 3
min_heading_font_size: 11.5
parallelism: 4
`,
			check: func(t *testing.T, c Config) {
				if c.DBName != "manuals" || c.MaxHeadingLevels != 3 || c.MinHeadingFontSize != 11.5 || c.Parallelism != 4 {
					t.Errorf("unexpected config: %+v", c)
				}
				if c.FontSizePrecision != 2 || !c.ExpandListItems {
					t.Errorf("defaults not kept: %+v", c)
				}
			},
		},
		{
			name:    "json",
			file:    "docgraph.json",
			content: `{"expand_list_items": false, "font_size_precision": -1}`,
			check: func(t *testing.T, c Config) {
				if c.ExpandListItems || c.FontSizePrecision != -1 {
					t.Errorf("unexpected config: %+v", c)
				}
				if c.DBName != "docgraph" {
					t.Errorf("db_name default lost: %q", c.DBName)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := LoadConfig(writeFile(t, tt.file, tt.content))
			if err != nil {
				t.Fatalf("LoadConfig: %v", err)
			}
			tt.check(t, c)
		})
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"bad yaml", "c.yaml", "max_heading_levels: [1"},
		{"bad json", "c.json", "{"},
		{"negative levels", "c.yaml", "max_heading_levels: -1"},
		{"precision out of range", "c.yaml", "font_size_precision: 9"},
		{"negative parallelism", "c.json", `{"parallelism": -2}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeFile(t, tt.file, tt.content))
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinHeadingFontSize = -1
	if _, err := New(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestResolveDBPath(t *testing.T) {
	c := Config{DBPath: "/tmp/x.db"}
	if got := c.ResolveDBPath(); got != "/tmp/x.db" {
		t.Errorf("explicit path: got %q", got)
	}

	c = Config{DBName: "manuals", StorageDir: "local"}
	if got := c.ResolveDBPath(); got != "manuals.db" {
		t.Errorf("local: got %q", got)
	}

	c = Config{}
	if got := c.ResolveDBPath(); !strings.HasSuffix(got, "docgraph.db") {
		t.Errorf("default: got %q", got)
	}
}

func TestParallelismDefault(t *testing.T) {
	if DefaultConfig().parallelism() < 1 {
		t.Error("parallelism must be at least 1")
	}
	if got := (Config{Parallelism: 3}).parallelism(); got != 3 {
		t.Errorf("got %d", got)
	}
}
