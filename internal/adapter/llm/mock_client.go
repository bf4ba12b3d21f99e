package llm

import (
	"context"
	"fmt"
	"time"
)

// MockClient is an offline Completer for local runs and tests. Replies are
// canned but vary with the prompt, so transcripts stay readable.
type MockClient struct{}

// NewMockClient creates a new mock assistant client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

var _ Completer = (*MockClient)(nil)

var mockReplies = []string{
	"That's the word going around the room, anyway.",
	"I wouldn't pass that on without a second source.",
	"Hard to say. What did the rest of the room make of it?",
	"Take it with a grain of salt, but it lines up with what I've heard.",
}

// CreateChatCompletion returns a canned reply keyed off the latest user turn.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	prompt := lastUserTurn(req.Messages)

	content := "[MOCK] Nothing to go on yet. Ask me about the room."
	if prompt != "" {
		content = fmt.Sprintf("[MOCK] You asked %q. %s", truncate(prompt, 80), mockReplies[len(prompt)%len(mockReplies)])
	}

	promptTokens := 0
	for _, msg := range req.Messages {
		promptTokens += len(msg.Content) / 4
	}
	completionTokens := len(content) / 4

	return &ChatCompletionResponse{
		ID:      fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []Choice{
			{
				Index: 0,
				Message: &ChatMessage{
					Role:    "assistant",
					Content: content,
				},
				FinishReason: "stop",
			},
		},
		Usage: &Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	}, nil
}

func lastUserTurn(messages []ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}

// truncate shortens a string to maxLen with an ellipsis.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
