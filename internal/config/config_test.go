package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return dir
}

func TestDefault_MatchesSpecDefaults(t *testing.T) {
	cfg := Default()
	assert.True(t, cfg.Index.AutoIndexOnStartup)
	assert.Equal(t, uint32(50), cfg.Index.WriterHeapMB)
	assert.True(t, cfg.Locking.Enabled)
	assert.Equal(t, 150_000, cfg.Limits.PerFileChars)
	assert.Equal(t, 500, cfg.Limits.ToolInputMaxChars)
	assert.Equal(t, 1000, cfg.Limits.ToolResultMaxChars)
}

func TestLoadMinimal_CreatesConfigFileOnFirstRun(t *testing.T) {
	setupTestEnv(t)

	_, err := LoadMinimal()
	require.NoError(t, err)

	path, err := ConfigPath()
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.NoError(t, err, "config file should be auto-created")
}

func TestLoadMinimal_FileOverridesDefault(t *testing.T) {
	dir := setupTestEnv(t)
	path := filepath.Join(dir, "claudesearch", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("index:\n  writer_heap_mb: 200\n"), 0o644))

	cfg, err := LoadMinimal()
	require.NoError(t, err)
	assert.Equal(t, uint32(200), cfg.Index.WriterHeapMB)
}

func TestLoadMinimal_EnvOverridesFile(t *testing.T) {
	dir := setupTestEnv(t)
	path := filepath.Join(dir, "claudesearch", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("index:\n  claude_dir: /from/file\n"), 0o644))
	t.Setenv("CLAUDESEARCH_CLAUDE_DIR", "/custom/claude")

	cfg, err := LoadMinimal()
	require.NoError(t, err)
	assert.Equal(t, "/custom/claude", cfg.Index.ClaudeDir)
}

func TestLoad_FlagsOverrideEverything(t *testing.T) {
	setupTestEnv(t)
	t.Setenv("CLAUDESEARCH_CLAUDE_DIR", "/from/env")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--claude-dir", "/from/flag"}))

	cfg, err := Load(fs)
	require.NoError(t, err)
	assert.Equal(t, "/from/flag", cfg.Index.ClaudeDir)
}

func TestLoad_UnsetFlagsDoNotOverride(t *testing.T) {
	setupTestEnv(t)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(nil))

	cfg, err := Load(fs)
	require.NoError(t, err)
	assert.True(t, cfg.Locking.Enabled)
}

func TestApplyFlags_NoLockDisablesLocking(t *testing.T) {
	setupTestEnv(t)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--no-lock"}))

	cfg, err := Load(fs)
	require.NoError(t, err)
	assert.False(t, cfg.Locking.Enabled)
}
