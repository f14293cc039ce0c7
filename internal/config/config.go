// Package config loads the application's layered configuration:
// defaults, then the YAML file under $XDG_CONFIG_HOME, then
// CLAUDESEARCH_* environment variables, then explicit CLI flags —
// each layer overriding the previous one, per spec.md §6.2.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// WebServerConfig configures the out-of-core aggregator this process
// may report results to; unused by the core search/index path.
type WebServerConfig struct {
	Path string `yaml:"path"`
	URL  string `yaml:"url"`
}

// IndexConfig controls corpus discovery and incremental indexing.
type IndexConfig struct {
	AutoIndexOnStartup bool   `yaml:"auto_index_on_startup"`
	WriterHeapMB       uint32 `yaml:"writer_heap_mb"`
	CacheDir           string `yaml:"cache_dir,omitempty"`
	ClaudeDir          string `yaml:"claude_dir,omitempty"`
}

// LockingConfig controls advisory file locking.
type LockingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	LockFile string `yaml:"lock_file,omitempty"`
}

// LimitsConfig bounds parsing and content-extraction sizes.
type LimitsConfig struct {
	PerFileChars      int `yaml:"per_file_chars"`
	ToolInputMaxChars int `yaml:"tool_input_max_chars"`
	ToolResultMaxChars int `yaml:"tool_result_max_chars"`
}

// SearchConfig controls search-time exclusions.
type SearchConfig struct {
	ExcludePatterns []string `yaml:"exclude_patterns,omitempty"`
}

// Config holds all application configuration, assembled by Load.
type Config struct {
	WebServer WebServerConfig `yaml:"web_server"`
	Index     IndexConfig     `yaml:"index"`
	Locking   LockingConfig   `yaml:"locking"`
	Limits    LimitsConfig    `yaml:"limits"`
	Search    SearchConfig    `yaml:"search"`
}

// Default returns a Config populated with spec.md §6.2's defaults.
func Default() Config {
	return Config{
		Index: IndexConfig{
			AutoIndexOnStartup: true,
			WriterHeapMB:       50,
		},
		Locking: LockingConfig{
			Enabled: true,
		},
		Limits: LimitsConfig{
			PerFileChars:       150_000,
			ToolInputMaxChars:  500,
			ToolResultMaxChars: 1000,
		},
	}
}

// configDir resolves $XDG_CONFIG_HOME/claudesearch, falling back to
// ~/.config/claudesearch when XDG_CONFIG_HOME is unset.
func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "claudesearch"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "claudesearch"), nil
}

// ConfigPath returns the resolved path to config.yaml.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load builds a Config by layering: defaults < config file < env <
// flags. The config file is auto-created with the serialized defaults
// if absent. Only flags explicitly set on fs override lower layers.
func Load(fs *pflag.FlagSet) (Config, error) {
	cfg, err := LoadMinimal()
	if err != nil {
		return cfg, err
	}
	if fs != nil {
		applyFlags(&cfg, fs)
	}
	return cfg, nil
}

// LoadMinimal builds a Config from defaults, the config file, and
// environment variables, without parsing CLI flags. Use this for
// subcommands that manage their own flag sets or none at all.
func LoadMinimal() (Config, error) {
	cfg := Default()
	if err := cfg.loadFile(); err != nil {
		return cfg, fmt.Errorf("loading config file: %w", err)
	}
	cfg.loadEnv()
	return cfg, nil
}

func (c *Config) loadFile() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c.writeDefault(path)
	}
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, c)
}

// writeDefault serializes the current (default) config to path,
// creating its parent directory, so the file becomes the editable
// source of truth on first run.
func (c *Config) writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) loadEnv() {
	if v := os.Getenv("CLAUDESEARCH_CLAUDE_DIR"); v != "" {
		c.Index.ClaudeDir = v
	}
	if v := os.Getenv("CLAUDESEARCH_CACHE_DIR"); v != "" {
		c.Index.CacheDir = v
	}
	if v := os.Getenv("CLAUDESEARCH_AUTO_INDEX_ON_STARTUP"); v != "" {
		c.Index.AutoIndexOnStartup = v == "true" || v == "1"
	}
	if v := os.Getenv("CLAUDESEARCH_LOCKING_ENABLED"); v != "" {
		c.Locking.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("CLAUDESEARCH_LOCK_FILE"); v != "" {
		c.Locking.LockFile = v
	}
	if v := os.Getenv("CLAUDESEARCH_PER_FILE_CHARS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Limits.PerFileChars = n
		}
	}
}

// RegisterFlags registers the subset of Config fields that are
// exposed as CLI flags on fs. The caller must call fs.Parse before
// passing fs to Load.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("claude-dir", "", "override the corpus root directory")
	fs.String("cache-dir", "", "override the index/cache directory")
	fs.Bool("no-lock", false, "disable advisory locking for this invocation")
	fs.Int("writer-heap-mb", 0, "indexer writer heap budget in MB")
}

// applyFlags copies explicitly-set flags from fs into cfg.
func applyFlags(cfg *Config, fs *pflag.FlagSet) {
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "claude-dir":
			cfg.Index.ClaudeDir = f.Value.String()
		case "cache-dir":
			cfg.Index.CacheDir = f.Value.String()
		case "no-lock":
			if f.Value.String() == "true" {
				cfg.Locking.Enabled = false
			}
		case "writer-heap-mb":
			if n, err := strconv.Atoi(f.Value.String()); err == nil && n > 0 {
				cfg.Index.WriterHeapMB = uint32(n)
			}
		}
	})
}
