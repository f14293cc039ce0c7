// Package summarize builds a prompt from a session's messages and
// invokes an external summarizer command to produce a markdown
// summary, backing the summarize_session tool-call. The command
// itself is a thin, out-of-core shell: spec.md §1 explicitly scopes
// "the subprocess invocation used to summarize a session" out of the
// core, specifying only the interface it consumes.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/google/shlex"

	"github.com/ticpu/claude-conversation-search-mcp/internal/model"
)

const maxMessagesInPrompt = 200

// DefaultCommand is the command line run when no override is
// configured, mirroring the teacher's claude-CLI invocation.
const DefaultCommand = "claude -p --output-format json"

// Result holds a summarizer invocation's output.
type Result struct {
	Content string
	Model   string
}

type claudeResponse struct {
	Result string `json:"result"`
	Model  string `json:"model"`
}

// BuildPrompt assembles a prompt describing sessionID's messages for
// the summarizer, in the teacher's plain markdown-section style.
func BuildPrompt(sessionID string, messages []model.MessageRecord) string {
	var b strings.Builder
	b.WriteString("You are summarizing a single AI coding assistant conversation. " +
		"Provide a concise markdown summary of what was accomplished, key " +
		"decisions made, and any errors encountered.\n\n")
	fmt.Fprintf(&b, "## Session: %s\n\n", sessionID)

	truncated := len(messages) > maxMessagesInPrompt
	if truncated {
		messages = messages[:maxMessagesInPrompt]
	}

	for _, m := range messages {
		if !m.IsDisplayable() {
			continue
		}
		fmt.Fprintf(&b, "### %s (%s)\n", m.Role.ShortName(), m.Timestamp.Format("15:04:05"))
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}
	if truncated {
		b.WriteString("(remaining messages in this session were omitted for length)\n")
	}

	return b.String()
}

// Run parses commandLine with shlex (so a user-configured command
// string behaves like a shell word-split without invoking a shell)
// and runs it with prompt on stdin, expecting the teacher's
// `claude -p --output-format json` wire shape back on stdout.
func Run(ctx context.Context, commandLine, prompt string) (Result, error) {
	if commandLine == "" {
		commandLine = DefaultCommand
	}
	args, err := shlex.Split(commandLine)
	if err != nil || len(args) == 0 {
		return Result{}, fmt.Errorf("parsing summarizer command %q: %w", commandLine, err)
	}

	path, err := exec.LookPath(args[0])
	if err != nil {
		return Result{}, fmt.Errorf("summarizer command not found: %w", err)
	}

	cmd := exec.CommandContext(ctx, path, args[1:]...)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Result{}, fmt.Errorf("summarizer command failed: %w\nstderr: %s", err, stderr.String())
	}

	var resp claudeResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		// Tolerate summarizers that aren't the teacher's claude CLI
		// and simply print plain text to stdout.
		return Result{Content: strings.TrimSpace(stdout.String())}, nil
	}

	return Result{Content: resp.Result, Model: resp.Model}, nil
}
