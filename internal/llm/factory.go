package llm

import (
	"context"
	"fmt"
	"os"
)

// Providers lists the provider names NewProvider accepts.
var Providers = []string{"anthropic", "openai", "google", "ollama"}

// NewProvider creates a new LLM provider based on the given provider type and model.
// Credentials come from the provider's usual environment variable.
func NewProvider(ctx context.Context, providerType string, model string) (Provider, error) {
	switch providerType {
	case "anthropic":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		return NewAnthropicProvider(apiKey, model), nil

	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		return NewOpenAIProvider(apiKey, model), nil

	case "google":
		apiKey := os.Getenv("GOOGLE_API_KEY")
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("GOOGLE_API_KEY environment variable is not set")
		}
		return NewGoogleProvider(ctx, apiKey, model)

	case "ollama":
		host := os.Getenv("OLLAMA_HOST")
		if host == "" {
			host = "http://localhost:11434"
		}
		return NewOllamaProvider(host, model), nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}

// IsSupported reports whether NewProvider knows the provider name.
func IsSupported(providerType string) bool {
	for _, p := range Providers {
		if p == providerType {
			return true
		}
	}
	return false
}
