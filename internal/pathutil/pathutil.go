// Package pathutil provides the canonical filesystem helpers shared by
// every other component: corpus/index root resolution, project directory
// name encoding, BOM-aware file reads, and display formatting.
package pathutil

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// skippablePathComponents are directory names ignored when deriving a
// project's display name from its working directory.
var skippablePathComponents = map[string]bool{
	"src": true, "lib": true, "bin": true, "target": true,
	"node_modules": true, ".git": true,
}

// CorpusRoot resolves the root of the conversation log corpus. An
// explicit override takes precedence; otherwise the two conventional
// home-relative locations are tried in order, falling back to the first
// even if it does not yet exist.
func CorpusRoot(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	claudeDir := filepath.Join(home, ".claude")
	if info, statErr := os.Stat(claudeDir); statErr == nil && info.IsDir() {
		return claudeDir, nil
	}
	configClaudeDir := filepath.Join(home, ".config", "claude")
	if info, statErr := os.Stat(configClaudeDir); statErr == nil && info.IsDir() {
		return configClaudeDir, nil
	}
	return claudeDir, nil
}

// IndexRoot resolves the root directory for the on-disk index and its
// sidecar cache. An explicit override takes precedence; otherwise the
// user's cache directory is used.
func IndexRoot(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "claude-conversation-search"), nil
}

// DiscoverLogFiles lists every *.jsonl file recursively under
// <corpusRoot>/projects.
func DiscoverLogFiles(corpusRoot string) ([]string, error) {
	root := filepath.Join(corpusRoot, "projects")
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return nil // skip inaccessible entries, matching the sweep's tolerant walk
		}
		if !d.IsDir() && strings.HasSuffix(path, ".jsonl") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return files, nil
}

// ProjectDirName converts an absolute project path into the corpus's
// directory-encoded form: slashes and dots become dashes.
func ProjectDirName(projectPath string) string {
	replacer := strings.NewReplacer("/", "-", ".", "-")
	return replacer.Replace(projectPath)
}

// SessionLogPath builds the on-disk path to a session's source file
// given the corpus root, the session's project path, and its id.
func SessionLogPath(corpusRoot, projectPath, sessionID string) string {
	return filepath.Join(corpusRoot, "projects", ProjectDirName(projectPath), sessionID+".jsonl")
}

// FileModTime returns a file's modification time truncated to the
// precision the cache fingerprint compares against (seconds).
func FileModTime(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.ModTime().Unix(), nil
}

// ReadFileSkipBOM reads an entire file and strips a leading UTF-8 BOM
// (EF BB BF) if present. Files shorter than three bytes are returned
// verbatim.
func ReadFileSkipBOM(path string) ([]byte, error) {
	f, err := OpenNoFollow(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return bytes.TrimPrefix(data, utf8BOM), nil
}

// TruncateString truncates s to at most maxChars runes, appending a
// single ellipsis character when truncation occurs. Truncation happens
// on a rune boundary, never splitting a multi-byte character.
func TruncateString(s string, maxChars int) string {
	if maxChars <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxChars]) + "…"
}

// HomeToTilde replaces a leading $HOME prefix in path with "~" for
// display purposes.
func HomeToTilde(path string) string {
	if path == "" || path == "unknown" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}

// ShortUUID returns the first 8 characters of a UUID, used for compact
// display.
func ShortUUID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// ProjectNameFromPath derives a display project name from a working
// directory path: the deepest path component that is not a conventional
// build/VCS/dependency directory and not hidden.
func ProjectNameFromPath(cwd string) string {
	if cwd == "" {
		return ""
	}
	clean := filepath.Clean(cwd)
	parts := strings.Split(clean, string(filepath.Separator))
	for i := len(parts) - 1; i >= 0; i-- {
		p := parts[i]
		if p == "" {
			continue
		}
		if skippablePathComponents[p] {
			continue
		}
		if strings.HasPrefix(p, ".") {
			continue
		}
		return p
	}
	return ""
}

// ProjectNameFromLogPath falls back to the parent directory name of the
// log file itself when the record carries no cwd.
func ProjectNameFromLogPath(logPath string) string {
	return filepath.Base(filepath.Dir(logPath))
}
