// Package router executes model requests across a primary and a single
// fallback model, hiding per-model parameter dialects behind a strategy
// table. When both tiers fail it hands back a locally synthesized filler
// line, so a turn never surfaces a model error to the learner.
package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// LocalModel is the sentinel model identifier reported when the reply was
// synthesized locally instead of by a model.
const LocalModel = "local"

// ErrEmptyReply marks a completion that came back empty or whitespace-only.
var ErrEmptyReply = errors.New("model returned empty reply")

// Message is one role-tagged entry of the model request.
type Message struct {
	Role    string
	Content string
}

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Caller executes a single model invocation for one provider.
type Caller interface {
	Generate(ctx context.Context, model string, messages []Message, params Params) (string, error)
}

// Config holds the router's tuning knobs.
type Config struct {
	PrimaryModel  string
	FallbackModel string
	MaxTokens     int
	CallTimeout   time.Duration
}

// Router is the two-tier model router. Exactly one fallback attempt, no
// backoff, no retries beyond that.
type Router struct {
	cfg     Config
	callers map[string]Caller
	logger  *slog.Logger
}

// New creates a Router over the given provider callers.
func New(cfg Config, callers map[string]Caller, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 80
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 8 * time.Second
	}
	return &Router{
		cfg:     cfg,
		callers: callers,
		logger:  logger.With("component", "router"),
	}
}

// Route attempts the primary model, then the fallback, then returns the
// supplied filler line with the LocalModel sentinel. The returned model
// identifier always names whichever source actually produced the text.
// The only error path is an empty filler, which is a caller defect.
func (r *Router) Route(ctx context.Context, messages []Message, filler string) (string, string, error) {
	if text, err := r.attempt(ctx, r.cfg.PrimaryModel, messages); err == nil {
		return text, r.cfg.PrimaryModel, nil
	} else {
		r.logger.WarnContext(ctx, "Primary model failed, trying fallback",
			"model", r.cfg.PrimaryModel, "fallback", r.cfg.FallbackModel, "error", err)
	}

	if text, err := r.attempt(ctx, r.cfg.FallbackModel, messages); err == nil {
		return text, r.cfg.FallbackModel, nil
	} else {
		r.logger.WarnContext(ctx, "Fallback model failed, using local filler",
			"model", r.cfg.FallbackModel, "error", err)
	}

	if strings.TrimSpace(filler) == "" {
		return "", "", fmt.Errorf("both model tiers failed and no filler line available")
	}
	return filler, LocalModel, nil
}

func (r *Router) attempt(ctx context.Context, model string, messages []Message) (string, error) {
	if model == "" {
		return "", fmt.Errorf("no model configured")
	}

	strategy := StrategyFor(model)
	caller, ok := r.callers[strategy.Provider]
	if !ok {
		return "", fmt.Errorf("no caller registered for provider %q", strategy.Provider)
	}

	callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	defer cancel()

	text, err := caller.Generate(callCtx, model, messages, strategy.Params(r.cfg.MaxTokens))
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}
