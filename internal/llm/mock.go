// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Mock gateway client for testing and offline mode

package llm

import (
	"context"
	"sync"
)

// MockClient returns scripted responses for testing. Responses are
// consumed in FIFO order; when the script runs out the fixed defaults
// (or empty values) are returned.
type MockClient struct {
	mu sync.Mutex

	structuredScript []map[string]any
	textScript       []string

	DefaultStructured map[string]any
	DefaultText       string

	// Call records, useful for asserting prompt construction in tests
	StructuredPrompts []string
	TextPrompts       []string

	Err error // when set, every call returns this error
}

// NewMockClient creates a new mock client
func NewMockClient() *MockClient {
	return &MockClient{}
}

// QueueStructured appends a scripted structured response
func (c *MockClient) QueueStructured(data map[string]any) *MockClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.structuredScript = append(c.structuredScript, data)
	return c
}

// QueueText appends a scripted text response
func (c *MockClient) QueueText(text string) *MockClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.textScript = append(c.textScript, text)
	return c
}

// Name returns the provider name
func (c *MockClient) Name() string { return "mock" }

// CompleteStructured returns the next scripted structured response
func (c *MockClient) CompleteStructured(_ context.Context, prompt, _ string) (map[string]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.StructuredPrompts = append(c.StructuredPrompts, prompt)
	if c.Err != nil {
		return map[string]any{}, c.Err
	}
	if len(c.structuredScript) > 0 {
		next := c.structuredScript[0]
		c.structuredScript = c.structuredScript[1:]
		return next, nil
	}
	if c.DefaultStructured != nil {
		return c.DefaultStructured, nil
	}
	return map[string]any{}, nil
}

// CompleteText returns the next scripted text response
func (c *MockClient) CompleteText(_ context.Context, prompt, _ string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.TextPrompts = append(c.TextPrompts, prompt)
	if c.Err != nil {
		return "", c.Err
	}
	if len(c.textScript) > 0 {
		next := c.textScript[0]
		c.textScript = c.textScript[1:]
		return next, nil
	}
	return c.DefaultText, nil
}

// Calls returns how many completion requests the mock has served
func (c *MockClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.StructuredPrompts) + len(c.TextPrompts)
}
