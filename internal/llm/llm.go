// Package llm defines the chat-completion model used to write tests.
package llm

import "context"

// Roles understood by every ChatModel.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options tune a single completion.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// ChatModel completes a conversation.
type ChatModel interface {
	Name() string
	Complete(ctx context.Context, messages []Message, opts Options) (string, error)
}

// Conversation builds the usual system plus user message pair.
func Conversation(system, user string) []Message {
	msgs := make([]Message, 0, 2)
	if system != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: system})
	}
	return append(msgs, Message{Role: RoleUser, Content: user})
}
