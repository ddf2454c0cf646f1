// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// HTTP provider for custom OpenAI-compatible endpoints

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/prototyp3d/prototyp3d/internal/llm"
)

// HTTPClient calls a custom OpenAI-compatible chat endpoint
type HTTPClient struct {
	config *llm.ProviderConfig
	client *http.Client
}

// NewHTTPClient creates a new custom-endpoint gateway client
func NewHTTPClient(config *llm.ProviderConfig) (*HTTPClient, error) {
	if config.Endpoint == "" {
		return nil, llm.ErrMissingEndpoint
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = llm.DefaultTimeout
	}

	return &HTTPClient{
		config: config,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// Name returns the provider name
func (c *HTTPClient) Name() string { return "http" }

// HTTPRequest is the request body sent to the endpoint
type HTTPRequest struct {
	Model    string        `json:"model,omitempty"`
	Messages []HTTPMessage `json:"messages"`
}

// HTTPMessage represents a chat message
type HTTPMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// HTTPResponse is the expected response shape (OpenAI-compatible)
type HTTPResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	// Some gateways answer with a bare content field instead
	Content string `json:"content,omitempty"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *HTTPClient) call(ctx context.Context, prompt, system string) (string, error) {
	messages := []HTTPMessage{}
	if system != "" {
		messages = append(messages, HTTPMessage{Role: "system", Content: system})
	}
	messages = append(messages, HTTPMessage{Role: "user", Content: prompt})

	jsonBody, err := json.Marshal(HTTPRequest{Model: c.config.Model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, "POST", c.config.Endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return "", llm.ErrTimeout
		}
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("%w: %s", llm.ErrRateLimited, llm.TruncateForError(string(body), 200))
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, llm.TruncateForError(string(body), 200))
	}

	var parsed HTTPResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("endpoint error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) > 0 && parsed.Choices[0].Message.Content != "" {
		return parsed.Choices[0].Message.Content, nil
	}
	if parsed.Content != "" {
		return parsed.Content, nil
	}
	return "", llm.ErrEmptyResponse
}

// CompleteStructured calls the endpoint and extracts the JSON object
func (c *HTTPClient) CompleteStructured(ctx context.Context, prompt, system string) (map[string]any, error) {
	content, err := c.call(ctx, prompt, system)
	if err != nil {
		return map[string]any{}, err
	}

	extraction := llm.ExtractObject(content)
	if extraction.Malformed() {
		return map[string]any{}, extraction.Err
	}
	return extraction.Data, nil
}

// CompleteText calls the endpoint and returns the raw response text
func (c *HTTPClient) CompleteText(ctx context.Context, prompt, system string) (string, error) {
	return c.call(ctx, prompt, system)
}
