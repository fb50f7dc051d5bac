package router

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAICaller executes chat-completion requests against the OpenAI API
// (or any compatible endpoint via base URL override).
type OpenAICaller struct {
	client *openai.Client
	logger *slog.Logger
}

// NewOpenAICaller creates the caller. baseURL may be empty for the
// default endpoint.
func NewOpenAICaller(apiKey, baseURL string, logger *slog.Logger) *OpenAICaller {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAICaller{
		client: openai.NewClientWithConfig(cfg),
		logger: logger.With("component", "openai_caller"),
	}
}

// Client exposes the underlying API client so other services (speech)
// can share the same credentials and endpoint.
func (c *OpenAICaller) Client() *openai.Client {
	return c.client
}

// Generate runs one chat completion, translating Params into the model's
// token-limit dialect.
func (c *OpenAICaller) Generate(ctx context.Context, model string, messages []Message, params Params) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: toOpenAIMessages(messages),
	}
	if params.LegacyTokenParam {
		req.MaxTokens = params.MaxTokens
	} else {
		req.MaxCompletionTokens = params.MaxTokens
	}
	if params.Temperature != nil {
		req.Temperature = *params.Temperature
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat completion returned no choices")
	}

	c.logger.DebugContext(ctx, "Chat completion succeeded", "model", resp.Model)
	return resp.Choices[0].Message.Content, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		switch role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			role = RoleUser
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}
