package llm

import (
	"context"
	"fmt"
	"strings"

	"feedbackapi/internal/config"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"
const defaultOpenAIModel = "gpt-4o-mini"
const defaultWorkersAIModel = "@cf/meta/llama-3-8b-instruct"

// Request is a single-turn text generation call.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
	// JSONOutput asks the provider for a JSON object response when it
	// supports a structured output mode.
	JSONOutput bool
}

// Generator produces free-form text for a prompt. The text should be JSON
// when asked for, but callers must not rely on it.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

func (u Usage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}

// NewGenerator builds the generator for cfg.LLMProvider. Provider "none"
// returns a nil Generator and no error.
func NewGenerator(cfg Config) (Generator, error) {
	model := strings.TrimSpace(cfg.LLMModel)
	switch cfg.LLMProvider {
	case config.ProviderAnthropic:
		if model == "" {
			model = defaultAnthropicModel
		}
		return NewAnthropicGenerator(cfg.AnthropicAPIKey, model), nil
	case config.ProviderOpenAI:
		if model == "" {
			model = defaultOpenAIModel
		}
		return NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, model), nil
	case config.ProviderWorkersAI, "":
		if model == "" {
			model = defaultWorkersAIModel
		}
		return NewWorkersAIGenerator(cfg.CloudflareAccountID, cfg.CloudflareAPIToken, model), nil
	case config.ProviderNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}

func maxTokensOrDefault(n int) int {
	if n <= 0 {
		return 256
	}
	return n
}
