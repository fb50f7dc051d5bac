package router

import "strings"

// Providers understood by the router.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Params is the normalized call shape for one model invocation. Each
// caller translates it into its SDK's dialect.
type Params struct {
	// MaxTokens is the completion token budget.
	MaxTokens int
	// LegacyTokenParam selects the older "max_tokens" wire name instead
	// of "max_completion_tokens" for OpenAI-dialect models.
	LegacyTokenParam bool
	// Temperature is the sampling override; nil keeps the model default
	// (required for model families that reject explicit overrides).
	Temperature *float32
}

// Strategy maps a model identifier to its provider and a pure function
// producing the correct call parameters. Routing decisions live entirely
// in this table, not at call sites.
type Strategy struct {
	Provider string
	Params   func(maxTokens int) Params
}

var fallbackTemperature = float32(0.7)

var strategies = []struct {
	prefix   string
	strategy Strategy
}{
	// gpt-5 family: max_completion_tokens, temperature must stay at the
	// implicit default.
	{"gpt-5", Strategy{
		Provider: ProviderOpenAI,
		Params: func(maxTokens int) Params {
			return Params{MaxTokens: maxTokens}
		},
	}},
	{"o1", Strategy{
		Provider: ProviderOpenAI,
		Params: func(maxTokens int) Params {
			return Params{MaxTokens: maxTokens}
		},
	}},
	{"gemini", Strategy{
		Provider: ProviderGemini,
		Params: func(maxTokens int) Params {
			return Params{MaxTokens: maxTokens, Temperature: &fallbackTemperature}
		},
	}},
}

// defaultStrategy covers gpt-4o and other chat-completions models that
// still use max_tokens and accept a temperature override.
var defaultStrategy = Strategy{
	Provider: ProviderOpenAI,
	Params: func(maxTokens int) Params {
		return Params{MaxTokens: maxTokens, LegacyTokenParam: true, Temperature: &fallbackTemperature}
	},
}

// StrategyFor resolves the call strategy for a model identifier.
func StrategyFor(model string) Strategy {
	for _, e := range strategies {
		if strings.HasPrefix(model, e.prefix) {
			return e.strategy
		}
	}
	return defaultStrategy
}
