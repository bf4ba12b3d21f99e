package llm

import (
	"log"
	"os"
	"time"
)

const (
	// EnvChatMode is the environment variable name for mode selection.
	EnvChatMode = "RUMORCHAT_MODE"
	// ModeMock indicates mock mode should be used.
	ModeMock = "MOCK"
)

// NewCompleter creates an assistant client based on the RUMORCHAT_MODE
// environment variable. If RUMORCHAT_MODE=MOCK, returns a MockClient;
// otherwise returns a real Client.
func NewCompleter(baseURL, apiKey string, timeout time.Duration) Completer {
	if os.Getenv(EnvChatMode) == ModeMock {
		log.Println("RUMORCHAT_MODE=MOCK detected, using mock assistant client")
		return NewMockClient()
	}

	return NewClient(baseURL, apiKey, timeout)
}
