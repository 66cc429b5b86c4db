// Package llm wraps chat-completion providers behind one interface. The
// screener only uses it to map pasted statement rows to canonical fields.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Provider is the interface for all LLM providers.
type Provider interface {
	// GenerateResponse returns the model's text reply. Options recognised by
	// every provider: "model" (string) and "json" (bool, request a JSON reply).
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
}

// Settings selects and configures a provider.
type Settings struct {
	Provider      string // "gemini" or "openai"
	GeminiAPIKey  string
	GeminiModel   string
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
}

// NewProvider builds the provider named in s. ok is false when the selected
// provider has no API key, in which case callers fall back to deterministic
// mapping.
func NewProvider(s Settings) (Provider, bool, error) {
	switch strings.ToLower(strings.TrimSpace(s.Provider)) {
	case "", "gemini":
		if s.GeminiAPIKey == "" {
			return nil, false, nil
		}
		return &GeminiProvider{APIKey: s.GeminiAPIKey, Model: s.GeminiModel}, true, nil
	case "openai":
		if s.OpenAIAPIKey == "" {
			return nil, false, nil
		}
		return &OpenAIProvider{APIKey: s.OpenAIAPIKey, Model: s.OpenAIModel, BaseURL: s.OpenAIBaseURL}, true, nil
	default:
		return nil, false, fmt.Errorf("unknown llm provider %q", s.Provider)
	}
}

func wantsJSON(options map[string]interface{}) bool {
	v, ok := options["json"].(bool)
	return ok && v
}

func modelOption(options map[string]interface{}, fallback string) string {
	if v, ok := options["model"].(string); ok && v != "" {
		return v
	}
	return fallback
}
