// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Provider registry with factory pattern and graceful fallback

package llm

import (
	"context"
	"fmt"
	"sync"
)

// ClientFactory creates a gateway client from config
type ClientFactory func(config *ProviderConfig) (Client, error)

// Registry manages client factories and handles fallback
type Registry struct {
	mu          sync.RWMutex
	factories   map[ProviderType]ClientFactory
	mockFactory ClientFactory
	verbose     bool
}

// DefaultRegistry is the global provider registry
var DefaultRegistry = NewRegistry()

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[ProviderType]ClientFactory),
	}
}

// SetMockFactory sets the mock client factory for fallback
func (r *Registry) SetMockFactory(factory ClientFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mockFactory = factory
	r.factories[ProviderMock] = factory
}

// Register adds a client factory to the registry
func (r *Registry) Register(providerType ProviderType, factory ClientFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[providerType] = factory
}

// SetVerbose enables verbose output for registry operations
func (r *Registry) SetVerbose(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verbose = v
}

// Get creates a client with graceful fallback to mock
func (r *Registry) Get(config *ProviderConfig) Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if config == nil {
		config = &ProviderConfig{Type: ProviderMock}
	}
	config = config.WithDefaults()

	factory, ok := r.factories[config.Type]
	if !ok {
		if r.verbose {
			fmt.Printf("  [Registry] Unknown provider '%s', using mock\n", config.Type)
		}
		return r.getMockClient(config)
	}

	client, err := factory(config)
	if err != nil {
		if r.verbose {
			fmt.Printf("  [Registry] Failed to create provider '%s': %v, using mock\n", config.Type, err)
		}
		return r.getMockClient(config)
	}

	return client
}

// getMockClient returns a mock client
func (r *Registry) getMockClient(config *ProviderConfig) Client {
	if r.mockFactory == nil {
		return &minimalMockClient{}
	}
	client, err := r.mockFactory(config)
	if err != nil {
		return &minimalMockClient{}
	}
	return client
}

// NewClient creates a gateway client based on configuration, falling back
// to mock when the requested provider cannot be constructed.
func NewClient(config *ProviderConfig) Client {
	DefaultRegistry.SetVerbose(config != nil && config.Verbose)
	return DefaultRegistry.Get(config)
}

// minimalMockClient is a fallback when no mock factory is set
type minimalMockClient struct{}

func (c *minimalMockClient) Name() string { return "minimal-mock" }

func (c *minimalMockClient) CompleteStructured(_ context.Context, _, _ string) (map[string]any, error) {
	return map[string]any{}, nil
}

func (c *minimalMockClient) CompleteText(_ context.Context, _, _ string) (string, error) {
	return "", nil
}
