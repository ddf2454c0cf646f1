// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Anthropic provider built on the official SDK

package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/prototyp3d/prototyp3d/internal/llm"
)

const (
	DefaultAnthropicModel     = "claude-sonnet-4-5"
	defaultAnthropicMaxTokens = 8192
)

// AnthropicClient implements the gateway against the Anthropic Messages API
type AnthropicClient struct {
	config *llm.ProviderConfig
	client anthropic.Client
}

// NewAnthropicClient creates a new Anthropic gateway client
func NewAnthropicClient(config *llm.ProviderConfig) (*AnthropicClient, error) {
	token := llm.GetProviderToken(llm.ProviderAnthropic, config.Token)
	if token == "" {
		return nil, fmt.Errorf("%w: set ANTHROPIC_API_KEY or use --llm-token", llm.ErrMissingToken)
	}
	config.Token = token

	return &AnthropicClient{
		config: config,
		client: anthropic.NewClient(option.WithAPIKey(token)),
	}, nil
}

// Name returns the provider name
func (c *AnthropicClient) Name() string { return "anthropic" }

func (c *AnthropicClient) params(prompt, system string) anthropic.MessageNewParams {
	model := c.config.Model
	if model == "" {
		model = DefaultAnthropicModel
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: defaultAnthropicMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	return params
}

// CompleteStructured requests a completion and extracts the JSON object
// from the response text.
func (c *AnthropicClient) CompleteStructured(ctx context.Context, prompt, system string) (map[string]any, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	resp, err := c.client.Messages.New(reqCtx, c.params(prompt, system))
	if err != nil {
		return map[string]any{}, classifyAnthropicError(err)
	}

	content := textContent(resp)
	if content == "" {
		return map[string]any{}, llm.ErrEmptyResponse
	}

	extraction := llm.ExtractObject(content)
	if extraction.Malformed() {
		return map[string]any{}, extraction.Err
	}
	return extraction.Data, nil
}

// CompleteText streams a completion and accumulates the deltas into one
// final string.
func (c *AnthropicClient) CompleteText(ctx context.Context, prompt, system string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	stream := c.client.Messages.NewStreaming(reqCtx, c.params(prompt, system))
	message := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			return "", fmt.Errorf("anthropic stream accumulation failed: %w", err)
		}
	}
	if err := stream.Err(); err != nil {
		return "", classifyAnthropicError(err)
	}

	text := strings.TrimSpace(textContent(&message))
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

// textContent concatenates the text blocks of a message
func textContent(msg *anthropic.Message) string {
	var sb strings.Builder
	for i := range msg.Content {
		block := &msg.Content[i]
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	return sb.String()
}

func classifyAnthropicError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "429") {
		return fmt.Errorf("%w: %v", llm.ErrRateLimited, err)
	}
	if err == context.DeadlineExceeded || strings.Contains(err.Error(), "deadline exceeded") {
		return llm.ErrTimeout
	}
	return err
}
