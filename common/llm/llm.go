package llm

import (
	"context"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Provider constants for LLM provider selection.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds LLM client configuration.
type Config struct {
	Provider string // "openai" or "anthropic"
	APIKey   string // Required: API key for the provider
	BaseURL  string // Optional: custom API endpoint
	Model    string // Model name (e.g., "gpt-4o-mini", "claude-sonnet-4-5-20250514")
}

// Client is a single-turn chat completion client. Callers that need a
// structured response set SchemaName/Schema on the request; the raw text
// content comes back unparsed so callers can validate shape themselves and
// keep the raw response for diagnostics.
type Client interface {
	Chat(ctx context.Context, req Request) (*Response, error)
	Model() string
}

// Request contains the prompts for one completion.
type Request struct {
	System      string
	User        string
	SchemaName  string // Optional: name for the response-format schema
	Schema      any    // Optional: JSON schema the response must match
	MaxTokens   int
	Temperature *float64 // nil = model default, explicit 0 = deterministic
}

// Response contains the completion text and token usage.
type Response struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// New creates a Client for the configured provider.
// Defaults to OpenAI if no provider is specified.
func New(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	provider := cfg.Provider
	if provider == "" {
		provider = ProviderOpenAI
	}

	switch provider {
	case ProviderOpenAI:
		return newOpenAIClient(cfg)
	case ProviderAnthropic:
		return newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}

// GenerateSchema generates a JSON schema for T suitable for structured
// response formats. Additional properties are disallowed and definitions
// are inlined so the schema is self-contained.
func GenerateSchema[T any]() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// Temp is a helper to set Request.Temperature inline.
func Temp(t float64) *float64 {
	return &t
}
