// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Provider registration - registers all providers with the gateway registry

package provider

import (
	"github.com/prototyp3d/prototyp3d/internal/llm"
)

func init() {
	RegisterProviders()
}

// RegisterProviders registers all built-in providers with the default registry
func RegisterProviders() {
	reg := llm.DefaultRegistry

	// Set mock factory first (needed for fallback)
	reg.SetMockFactory(func(config *llm.ProviderConfig) (llm.Client, error) {
		return llm.NewMockClient(), nil
	})

	reg.Register(llm.ProviderAnthropic, func(config *llm.ProviderConfig) (llm.Client, error) {
		return NewAnthropicClient(config)
	})

	reg.Register(llm.ProviderOpenAI, func(config *llm.ProviderConfig) (llm.Client, error) {
		return NewOpenAIClient(config)
	})

	reg.Register(llm.ProviderOllama, func(config *llm.ProviderConfig) (llm.Client, error) {
		return NewOllamaClient(config)
	})

	reg.Register(llm.ProviderHTTP, func(config *llm.ProviderConfig) (llm.Client, error) {
		return NewHTTPClient(config)
	})
}
