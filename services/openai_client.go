package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient talks to the OpenAI API directly
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIClient creates an OpenAI client from environment configuration
func NewOpenAIClient() (*OpenAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set in environment")
	}

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = openai.GPT4oMini
	}

	timeoutMs := 60000
	if t := os.Getenv("AI_TIMEOUT_MS"); t != "" {
		if parsed, err := strconv.Atoi(t); err == nil {
			timeoutMs = parsed
		}
	}

	log.Printf("[OpenAIClient] Initialized with model=%s, timeout=%dms", model, timeoutMs)

	return &OpenAIClient{
		client:  openai.NewClient(apiKey),
		model:   model,
		timeout: time.Duration(timeoutMs) * time.Millisecond,
	}, nil
}

// CreateCompletion sends a chat completion request and returns the raw response
func (oc *OpenAIClient) CreateCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, oc.timeout)
	defer cancel()

	if req.Model == "" {
		req.Model = oc.model
	}

	startTime := time.Now()
	resp, err := oc.client.CreateChatCompletion(timeoutCtx, req)
	if err != nil {
		return openai.ChatCompletionResponse{}, fmt.Errorf("OpenAI API error: %w", err)
	}

	latency := time.Since(startTime).Milliseconds()
	log.Printf("[OpenAIClient] Success | model=%s | latency=%dms | in=%d | out=%d",
		req.Model, latency, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	return resp, nil
}

// GetProviderName returns the provider name for logging
func (oc *OpenAIClient) GetProviderName() string {
	return "openai"
}

// GetModelName returns the model name being used
func (oc *OpenAIClient) GetModelName() string {
	return oc.model
}
