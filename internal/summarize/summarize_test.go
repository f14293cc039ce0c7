package summarize

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticpu/claude-conversation-search-mcp/internal/model"
)

func TestBuildPrompt_SkipsNonDisplayable(t *testing.T) {
	messages := []model.MessageRecord{
		{UUID: "u1", Role: model.RoleUser, Content: "hello rust world", Timestamp: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)},
		{UUID: "u4", Role: model.RoleUser, Content: "Warmup", Timestamp: time.Date(2025, 1, 1, 10, 0, 2, 0, time.UTC)},
	}
	prompt := BuildPrompt("aabbccdd-1122-3344-5566-778899001122", messages)
	assert.Contains(t, prompt, "hello rust world")
	assert.NotContains(t, prompt, "Warmup")
}

func TestRun_UnknownCommandErrors(t *testing.T) {
	_, err := Run(context.Background(), "definitely-not-a-real-summarizer-binary --flag", "prompt")
	require.Error(t, err)
}

func TestRun_PlainTextFallback(t *testing.T) {
	result, err := Run(context.Background(), "cat", "hello from the session")
	require.NoError(t, err)
	assert.Equal(t, "hello from the session", result.Content)
}
