package services

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenRouterClient wraps OpenAI-compatible client for OpenRouter
type OpenRouterClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenRouterClient creates OpenAI-compatible client for OpenRouter
func NewOpenRouterClient() (*OpenRouterClient, error) {
	apiKey := os.Getenv("OPENROUTER_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY not set in environment")
	}

	model := os.Getenv("OPENROUTER_MODEL")
	if model == "" {
		model = "openai/gpt-4o-mini" // default model
	}

	timeoutMs := 60000 // default 60 seconds
	if t := os.Getenv("AI_TIMEOUT_MS"); t != "" {
		if parsed, err := strconv.Atoi(t); err == nil {
			timeoutMs = parsed
		}
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = "https://openrouter.ai/api/v1"

	// Add custom headers for OpenRouter
	referer := os.Getenv("OPENROUTER_HTTP_REFERER")
	if referer == "" {
		referer = "https://glowdesk.app"
	}

	title := os.Getenv("OPENROUTER_X_TITLE")
	if title == "" {
		title = "GlowDesk"
	}

	cfg.HTTPClient = &http.Client{
		Transport: &openRouterTransport{
			base:    http.DefaultTransport,
			referer: referer,
			title:   title,
		},
	}

	client := openai.NewClientWithConfig(cfg)

	log.Printf("[OpenRouterClient] Initialized with model=%s, timeout=%dms", model, timeoutMs)

	return &OpenRouterClient{
		client:  client,
		model:   model,
		timeout: time.Duration(timeoutMs) * time.Millisecond,
	}, nil
}

// openRouterTransport adds custom headers
type openRouterTransport struct {
	base    http.RoundTripper
	referer string
	title   string
}

func (t *openRouterTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("HTTP-Referer", t.referer)
	req.Header.Set("X-Title", t.title)
	return t.base.RoundTrip(req)
}

// CreateCompletion sends a chat completion request and returns the raw response
func (orc *OpenRouterClient) CreateCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, orc.timeout)
	defer cancel()

	if req.Model == "" {
		req.Model = orc.model
	}

	startTime := time.Now()
	resp, err := orc.client.CreateChatCompletion(timeoutCtx, req)
	if err != nil {
		return openai.ChatCompletionResponse{}, fmt.Errorf("OpenRouter API error: %w", err)
	}

	latency := time.Since(startTime).Milliseconds()
	log.Printf("[OpenRouterClient] Success | model=%s | latency=%dms | in=%d | out=%d | total=%d",
		req.Model, latency, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Usage.TotalTokens)

	return resp, nil
}

// GetProviderName returns the provider name for logging
func (orc *OpenRouterClient) GetProviderName() string {
	return "openrouter"
}

// GetModelName returns the model name being used
func (orc *OpenRouterClient) GetModelName() string {
	return orc.model
}
