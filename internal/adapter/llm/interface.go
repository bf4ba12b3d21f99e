package llm

import "context"

// Completer abstracts the assistant endpoint so tests can substitute a mock.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error)
}
