package router

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"google.golang.org/genai"
)

// GeminiCaller executes requests against Google's Gemini API. System
// messages become the system instruction; the rest map to user/model
// content entries.
type GeminiCaller struct {
	client *genai.Client
	logger *slog.Logger
}

// NewGeminiCaller creates the caller.
func NewGeminiCaller(ctx context.Context, apiKey string, logger *slog.Logger) (*GeminiCaller, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiCaller{
		client: client,
		logger: logger.With("component", "gemini_caller"),
	}, nil
}

// Generate runs one content generation call.
func (c *GeminiCaller) Generate(ctx context.Context, model string, messages []Message, params Params) (string, error) {
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(params.MaxTokens),
		Temperature:     params.Temperature,
	}

	var contents []*genai.Content
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			var existing string
			if cfg.SystemInstruction != nil && len(cfg.SystemInstruction.Parts) > 0 {
				existing = cfg.SystemInstruction.Parts[0].Text + "\n\n"
			}
			cfg.SystemInstruction = &genai.Content{
				Parts: []*genai.Part{{Text: existing + m.Content}},
			}
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		return "", fmt.Errorf("gemini request blocked: %v", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no content")
	}

	c.logger.DebugContext(ctx, "Gemini generation succeeded", "model", model)
	return resp.Text(), nil
}
