package pathutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectDirName(t *testing.T) {
	cases := map[string]string{
		"/home/me/proj":        "-home-me-proj",
		"/home/me/proj.v2":     "-home-me-proj-v2",
		"relative/path":        "relative-path",
	}
	for in, want := range cases {
		assert.Equal(t, want, ProjectDirName(in))
	}
}

func TestSessionLogPath(t *testing.T) {
	got := SessionLogPath("/corpus", "/home/me/proj", "aabbccdd-1122-3344-5566-778899001122")
	want := filepath.Join("/corpus", "projects", "-home-me-proj", "aabbccdd-1122-3344-5566-778899001122.jsonl")
	assert.Equal(t, want, got)
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "hello", TruncateString("hello", 10))
	assert.Equal(t, "hel…", TruncateString("hello", 3))
	assert.Equal(t, "", TruncateString("hello", 0))

	// Rune boundary safety: multi-byte runes must not be split.
	s := "日本語テスト"
	got := TruncateString(s, 3)
	assert.Equal(t, "日本語…", got)
}

func TestReadFileSkipBOM(t *testing.T) {
	dir := t.TempDir()

	withBOM := filepath.Join(dir, "bom.jsonl")
	require.NoError(t, os.WriteFile(withBOM, append([]byte{0xEF, 0xBB, 0xBF}, []byte(`{"a":1}`)...), 0o644))

	withoutBOM := filepath.Join(dir, "nobom.jsonl")
	require.NoError(t, os.WriteFile(withoutBOM, []byte(`{"a":1}`), 0o644))

	gotWithBOM, err := ReadFileSkipBOM(withBOM)
	require.NoError(t, err)
	gotWithoutBOM, err := ReadFileSkipBOM(withoutBOM)
	require.NoError(t, err)

	assert.Equal(t, gotWithoutBOM, gotWithBOM)
	assert.Equal(t, `{"a":1}`, string(gotWithBOM))
}

func TestReadFileSkipBOM_ShortFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "short.jsonl")
	require.NoError(t, os.WriteFile(p, []byte{0xEF}, 0o644))

	got, err := ReadFileSkipBOM(p)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xEF}, got)
}

func TestProjectNameFromPath(t *testing.T) {
	assert.Equal(t, "proj", ProjectNameFromPath("/home/me/proj"))
	assert.Equal(t, "proj", ProjectNameFromPath("/home/me/proj/src"))
	assert.Equal(t, "proj", ProjectNameFromPath("/home/me/proj/node_modules"))
	assert.Equal(t, "", ProjectNameFromPath(""))
}

func TestHomeToTilde(t *testing.T) {
	assert.Equal(t, "", HomeToTilde(""))
	assert.Equal(t, "unknown", HomeToTilde("unknown"))
}

func TestShortUUID(t *testing.T) {
	assert.Equal(t, "aabbccdd", ShortUUID("aabbccdd-1122-3344-5566-778899001122"))
	assert.Equal(t, "abc", ShortUUID("abc"))
}
