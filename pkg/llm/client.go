// Package llm hides concrete LLM transport behind a two-method interface:
// generate(system, user) and an optional generateWithImage for
// vision-capable providers. Rate-limit retry is internal to each
// provider's transport; non-rate-limit errors propagate to the caller
// unchanged.
package llm

import "context"

// Client is the provider-agnostic surface every caller (planner, evaluator,
// agent loop) programs against.
type Client interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// ImageCapable is implemented by providers that support vision calls; a
// caller type-asserts for it and falls back to text-only when absent
//.
type ImageCapable interface {
	GenerateWithImage(ctx context.Context, system, user, imageBase64, mimeType string) (string, error)
}

// Config configures a provider client; constructed from pkg/config.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// New constructs the Client for cfg.Provider.
func New(cfg Config) (Client, error) {
	switch cfg.Provider {
	case "", "anthropic":
		return NewAnthropicClient(cfg), nil
	case "openai":
		return NewOpenAIClient(cfg), nil
	case "mock":
		return NewMockClient(nil), nil
	default:
		return nil, &UnknownProviderError{Provider: cfg.Provider}
	}
}

// UnknownProviderError is returned by New for an unrecognized provider name.
type UnknownProviderError struct {
	Provider string
}

func (e *UnknownProviderError) Error() string {
	return "llm: unknown provider " + e.Provider
}
