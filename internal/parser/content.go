package parser

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/ticpu/claude-conversation-search-mcp/internal/pathutil"
)

// blockResult is the outcome of extracting one content block: the text
// fragment it contributes, any tool name it mentions, and whether it
// signaled an error.
type blockResult struct {
	text     string
	toolName string
	isError  bool
}

// extractContent normalizes a message's content field, which is either a
// scalar string or an array of heterogeneous blocks. It returns the
// joined searchable text, the set of tool names mentioned in tool_use
// blocks, and whether any tool_result block signaled an error.
//
// Budgets bound how much of a tool_use input / tool_result content is
// retained verbatim in the index.
func extractContent(content gjson.Result, toolInputMaxChars, toolResultMaxChars int) (text string, toolNames []string, hasError bool) {
	if content.Type == gjson.String {
		return content.Str, nil, false
	}
	if !content.IsArray() {
		return "", nil, false
	}

	var parts []string
	seenTools := map[string]bool{}
	content.ForEach(func(_, block gjson.Result) bool {
		res := extractBlock(block, toolInputMaxChars, toolResultMaxChars)
		if res.text != "" {
			parts = append(parts, res.text)
		}
		if res.toolName != "" && !seenTools[res.toolName] {
			seenTools[res.toolName] = true
			toolNames = append(toolNames, res.toolName)
		}
		if res.isError {
			hasError = true
		}
		return true
	})
	return strings.Join(parts, "\n"), toolNames, hasError
}

func extractBlock(block gjson.Result, toolInputMaxChars, toolResultMaxChars int) blockResult {
	switch block.Get("type").Str {
	case "text":
		return blockResult{text: block.Get("text").Str}

	case "thinking":
		thinking := block.Get("thinking").Str
		if thinking == "" {
			return blockResult{}
		}
		return blockResult{text: "[thinking] " + thinking}

	case "tool_use":
		name := block.Get("name").Str
		input := pathutil.TruncateString(block.Get("input").Raw, toolInputMaxChars)
		return blockResult{
			text:     "[" + name + "] " + input,
			toolName: name,
		}

	case "tool_result":
		return extractToolResult(block, toolResultMaxChars)

	default:
		return blockResult{}
	}
}

func extractToolResult(block gjson.Result, maxChars int) blockResult {
	raw := toolResultText(block.Get("content"))
	isError := block.Get("is_error").Bool()

	if isError {
		return blockResult{
			text:    "[error] " + pathutil.TruncateString(raw, maxChars),
			isError: true,
		}
	}
	if raw == "" {
		return blockResult{}
	}
	return blockResult{text: "[result] " + pathutil.TruncateString(raw, maxChars)}
}

func toolResultText(content gjson.Result) string {
	if content.Type == gjson.String {
		return content.Str
	}
	if content.IsArray() {
		var parts []string
		content.ForEach(func(_, block gjson.Result) bool {
			if t := block.Get("text").Str; t != "" {
				parts = append(parts, t)
			}
			return true
		})
		return strings.Join(parts, "\n")
	}
	return ""
}
