package explain

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/miradorstack/churn-explainer/internal/utils"
)

// DefaultBaseURL is Groq's OpenAI-compatible endpoint.
const DefaultBaseURL = "https://api.groq.com/openai/v1"

// DefaultModel is the chat model used for explanations.
const DefaultModel = "llama-3.2-3b-preview"

// Generator turns a prompt into free text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ChatConfig configures the chat-completions client.
type ChatConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	// Timeout bounds the HTTP round trip; zero waits for the server.
	Timeout time.Duration
}

// ChatGenerator sends one user message per prompt to an OpenAI-compatible API.
type ChatGenerator struct {
	client *openai.Client
	model  string
}

// NewChatGenerator builds a generator for cfg.
func NewChatGenerator(cfg ChatConfig) (*ChatGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &ChatGenerator{client: openai.NewClientWithConfig(clientCfg), model: cfg.Model}, nil
}

// Model returns the chat model name.
func (g *ChatGenerator) Model() string { return g.model }

// Generate performs a single chat completion. There is no retry.
func (g *ChatGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	const op = "explain.Generate"
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", utils.NewAppError(utils.KindRemoteService, op, "chat completion rejected", err)
		}
		return "", utils.NewAppError(utils.KindRemoteService, op, "chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", utils.NewAppError(utils.KindRemoteService, op, "response has no choices", nil)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", utils.NewAppError(utils.KindRemoteService, op, "response content is empty", nil)
	}
	return text, nil
}
