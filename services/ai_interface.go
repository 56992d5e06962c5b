package services

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// AIProvider is the interface that all AI providers must implement.
// The orchestrator needs full chat-completion requests because it passes the
// function catalog and reads function-call decisions from the response.
type AIProvider interface {
	// CreateCompletion sends a chat completion request (messages + function
	// catalog) and returns the raw response.
	CreateCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)

	// GetProviderName returns the name of the provider (e.g., "openai", "openrouter")
	GetProviderName() string

	// GetModelName returns the model name being used
	GetModelName() string
}
