// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// OpenAI provider built on the go-openai SDK

package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/prototyp3d/prototyp3d/internal/llm"
)

const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIClient implements the gateway against the OpenAI chat API
type OpenAIClient struct {
	config *llm.ProviderConfig
	client *openai.Client
}

// NewOpenAIClient creates a new OpenAI gateway client
func NewOpenAIClient(config *llm.ProviderConfig) (*OpenAIClient, error) {
	token := llm.GetProviderToken(llm.ProviderOpenAI, config.Token)
	if token == "" {
		return nil, fmt.Errorf("%w: set OPENAI_API_KEY or use --llm-token", llm.ErrMissingToken)
	}
	config.Token = token

	clientCfg := openai.DefaultConfig(token)
	if config.Endpoint != "" {
		clientCfg.BaseURL = config.Endpoint
	}

	return &OpenAIClient{
		config: config,
		client: openai.NewClientWithConfig(clientCfg),
	}, nil
}

// Name returns the provider name
func (c *OpenAIClient) Name() string { return "openai" }

func (c *OpenAIClient) model() string {
	if c.config.Model != "" {
		return c.config.Model
	}
	return DefaultOpenAIModel
}

func (c *OpenAIClient) request(prompt, system string) openai.ChatCompletionRequest {
	messages := []openai.ChatCompletionMessage{}
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	return openai.ChatCompletionRequest{
		Model:    c.model(),
		Messages: messages,
	}
}

// CompleteStructured requests a completion and extracts the JSON object
// from the response body. Rate limits and parse failures come back as an
// empty map plus a classified error.
func (c *OpenAIClient) CompleteStructured(ctx context.Context, prompt, system string) (map[string]any, error) {
	content, err := c.complete(ctx, prompt, system)
	if err != nil {
		return map[string]any{}, err
	}

	extraction := llm.ExtractObject(content)
	if extraction.Malformed() {
		return map[string]any{}, extraction.Err
	}
	return extraction.Data, nil
}

func (c *OpenAIClient) complete(ctx context.Context, prompt, system string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
		resp, err := c.client.CreateChatCompletion(reqCtx, c.request(prompt, system))
		cancel()

		if err == nil {
			if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
				return "", llm.ErrEmptyResponse
			}
			return resp.Choices[0].Message.Content, nil
		}

		lastErr = classifyOpenAIError(err)
		if c.config.Verbose {
			fmt.Printf("  [OpenAI] Attempt %d failed: %v\n", attempt, lastErr)
		}
		if !isRetryable(lastErr) {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	return "", fmt.Errorf("OpenAI API failed: %w", lastErr)
}

// CompleteText streams a completion and accumulates the chunks into one
// final string. No partial output is exposed to the caller.
func (c *OpenAIClient) CompleteText(ctx context.Context, prompt, system string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req := c.request(prompt, system)
	req.Stream = true

	stream, err := c.client.CreateChatCompletionStream(reqCtx, req)
	if err != nil {
		return "", fmt.Errorf("OpenAI stream failed: %w", classifyOpenAIError(err))
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("OpenAI stream interrupted: %w", classifyOpenAIError(err))
		}
		if len(chunk.Choices) > 0 {
			sb.WriteString(chunk.Choices[0].Delta.Content)
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 401:
			return fmt.Errorf("HTTP 401: invalid API key - check OPENAI_API_KEY")
		case 403:
			return fmt.Errorf("HTTP 403: access forbidden - %s", apiErr.Message)
		case 429:
			return fmt.Errorf("%w: %s", llm.ErrRateLimited, apiErr.Message)
		default:
			return fmt.Errorf("HTTP %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return llm.ErrTimeout
	}
	return err
}

func isRetryable(err error) bool {
	if errors.Is(err, llm.ErrTimeout) {
		return false
	}
	msg := err.Error()
	return !strings.Contains(msg, "401") && !strings.Contains(msg, "403")
}
