package gemini

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uitestgen/internal/llm"
)

func TestNewChatRequiresKey(t *testing.T) {
	t.Setenv("TEST_GEMINI_KEY", "")
	_, err := NewChat(context.Background(), Config{APIKeyEnv: "TEST_GEMINI_KEY"})
	assert.ErrorContains(t, err, "TEST_GEMINI_KEY")
}

func TestSplit(t *testing.T) {
	system, contents := split([]llm.Message{
		{Role: llm.RoleSystem, Content: "be terse"},
		{Role: llm.RoleUser, Content: "hello"},
		{Role: llm.RoleAssistant, Content: "hi"},
		{Role: llm.RoleUser, Content: "write a test"},
	})
	assert.Equal(t, "be terse", system)
	require.Len(t, contents, 3)
	assert.Equal(t, "user", string(contents[0].Role))
	assert.Equal(t, "model", string(contents[1].Role))
	assert.Equal(t, "write a test", contents[2].Parts[0].Text)
}
