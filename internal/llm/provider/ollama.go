// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Ollama provider for local inference (no API key required)

package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/prototyp3d/prototyp3d/internal/llm"
)

const (
	DefaultOllamaEndpoint = "http://localhost:11434/api/chat"
	DefaultOllamaModel    = "llama3.2"
)

// OllamaClient implements the gateway against a local Ollama instance
type OllamaClient struct {
	config *llm.ProviderConfig
	client *http.Client
}

// NewOllamaClient creates a new Ollama gateway client
func NewOllamaClient(config *llm.ProviderConfig) (*OllamaClient, error) {
	config.Endpoint = getOllamaEndpoint(config)

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = llm.DefaultTimeout
	}

	return &OllamaClient{
		config: config,
		client: &http.Client{Timeout: timeout},
	}, nil
}

func getOllamaEndpoint(config *llm.ProviderConfig) string {
	if config.Endpoint != "" {
		return config.Endpoint
	}
	if endpoint := os.Getenv("OLLAMA_HOST"); endpoint != "" {
		if !strings.HasPrefix(endpoint, "http") {
			endpoint = "http://" + endpoint
		}
		return endpoint + "/api/chat"
	}
	return DefaultOllamaEndpoint
}

// Name returns the provider name
func (c *OllamaClient) Name() string { return "ollama" }

// OllamaRequest is the request body for the Ollama chat API
type OllamaRequest struct {
	Model    string          `json:"model"`
	Messages []OllamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

// OllamaMessage represents a chat message
type OllamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OllamaResponse is one response object from the Ollama chat API.
// With streaming enabled the API emits one of these per line.
type OllamaResponse struct {
	Model   string        `json:"model"`
	Message OllamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error,omitempty"`
}

func (c *OllamaClient) model() string {
	if c.config.Model != "" {
		return c.config.Model
	}
	return DefaultOllamaModel
}

func (c *OllamaClient) buildRequest(prompt, system string, stream bool) OllamaRequest {
	messages := []OllamaMessage{}
	if system != "" {
		messages = append(messages, OllamaMessage{Role: "system", Content: system})
	}
	messages = append(messages, OllamaMessage{Role: "user", Content: prompt})

	return OllamaRequest{
		Model:    c.model(),
		Messages: messages,
		Stream:   stream,
	}
}

func (c *OllamaClient) post(ctx context.Context, reqBody OllamaRequest) (*http.Response, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.config.Endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, llm.ErrTimeout
		}
		return nil, fmt.Errorf("request failed (is Ollama running?): %w", err)
	}
	return resp, nil
}

// CompleteStructured requests a non-streamed completion and extracts the
// JSON object from the response content.
func (c *OllamaClient) CompleteStructured(ctx context.Context, prompt, system string) (map[string]any, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	resp, err := c.post(reqCtx, c.buildRequest(prompt, system, false))
	if err != nil {
		return map[string]any{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return map[string]any{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return map[string]any{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, llm.TruncateForError(string(body), 200))
	}

	var ollamaResp OllamaResponse
	if err := json.Unmarshal(body, &ollamaResp); err != nil {
		return map[string]any{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if ollamaResp.Error != "" {
		return map[string]any{}, fmt.Errorf("ollama error: %s", ollamaResp.Error)
	}
	if ollamaResp.Message.Content == "" {
		return map[string]any{}, llm.ErrEmptyResponse
	}

	extraction := llm.ExtractObject(ollamaResp.Message.Content)
	if extraction.Malformed() {
		return map[string]any{}, extraction.Err
	}
	return extraction.Data, nil
}

// CompleteText streams a completion (one JSON object per line) and
// accumulates the message deltas into one final string.
func (c *OllamaClient) CompleteText(ctx context.Context, prompt, system string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	resp, err := c.post(reqCtx, c.buildRequest(prompt, system, true))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, llm.TruncateForError(string(body), 200))
	}

	var sb strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var chunk OllamaResponse
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			return "", fmt.Errorf("failed to parse stream chunk: %w", err)
		}
		if chunk.Error != "" {
			return "", fmt.Errorf("ollama error: %s", chunk.Error)
		}
		sb.WriteString(chunk.Message.Content)
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("stream read failed: %w", err)
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}
