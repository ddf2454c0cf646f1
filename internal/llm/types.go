// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Gateway types and interfaces for generative completions

package llm

import (
	"context"
	"errors"
	"time"
)

// ProviderType identifies the completion provider
type ProviderType string

const (
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOpenAI    ProviderType = "openai"
	ProviderOllama    ProviderType = "ollama"
	ProviderHTTP      ProviderType = "http"
	ProviderMock      ProviderType = "mock"
)

// SupportedProviders lists all active provider types
var SupportedProviders = []ProviderType{
	ProviderAnthropic,
	ProviderOpenAI,
	ProviderOllama,
	ProviderHTTP,
	ProviderMock,
}

// Default timeouts
const (
	DefaultTimeout = 120 * time.Second
	MaxTimeout     = 600 * time.Second
)

// Gateway errors
var (
	ErrUnknownProvider = errors.New("unknown provider type")
	ErrMissingEndpoint = errors.New("HTTP provider requires endpoint")
	ErrMissingToken    = errors.New("provider requires API token")
	ErrInvalidJSON     = errors.New("model returned invalid JSON")
	ErrTimeout         = errors.New("completion request timed out")
	ErrRateLimited     = errors.New("provider rate limit hit")
	ErrEmptyResponse   = errors.New("model returned empty response")
)

// Client is the generative completion gateway. Two call shapes only:
// a completion parsed into a structured record, and a streamed text
// completion accumulated into one final string. Streaming is internal
// pipelining; no partial results are exposed to callers.
type Client interface {
	// Name returns the provider name
	Name() string
	// CompleteStructured sends a prompt and parses the response for a
	// top-level JSON object. Parse failures and rate limits return an
	// empty map alongside the error so callers can degrade softly.
	CompleteStructured(ctx context.Context, prompt, system string) (map[string]any, error)
	// CompleteText sends a prompt and returns the accumulated response text.
	CompleteText(ctx context.Context, prompt, system string) (string, error)
}

// ProviderConfig holds configuration for gateway providers
type ProviderConfig struct {
	Type     ProviderType  // anthropic, openai, ollama, http, mock
	Endpoint string        // HTTP endpoint URL (for HTTP/Ollama provider)
	Model    string        // Model name (optional)
	Token    string        // Authentication token
	Timeout  time.Duration // Request timeout
	Verbose  bool          // Enable verbose output
}

// Validate checks if the provider config is valid
func (c *ProviderConfig) Validate() error {
	switch c.Type {
	case ProviderHTTP:
		if c.Endpoint == "" {
			return ErrMissingEndpoint
		}
	case ProviderOpenAI, ProviderAnthropic:
		// Token validation happens in the provider constructor
	case ProviderOllama, ProviderMock:
		// No validation required
	default:
		return ErrUnknownProvider
	}
	return nil
}

// WithDefaults applies default values to the config
func (c *ProviderConfig) WithDefaults() *ProviderConfig {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Timeout > MaxTimeout {
		c.Timeout = MaxTimeout
	}
	return c
}

// MaskToken returns a masked version of the token for logging
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return "[REDACTED]"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
