// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Anthropic-backed driving agent: bounded tool-use loop over a sandbox

package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	// DefaultDriverModel drives the validation agent
	DefaultDriverModel = "claude-sonnet-4-5"
	// maxAgentTurns bounds the tool-use loop
	maxAgentTurns = 24

	driverSystemPrompt = `You are an automated QA agent operating inside a disposable Linux sandbox.
You have one tool: bash. Use it to serve the app, fetch pages, inspect console
output, and probe interactive behavior. Work methodically and keep commands
short. When you are done, reply with your findings in plain text.`
)

// AnthropicDriver validates a candidate app by letting a model operate
// the sandbox through a bash tool
type AnthropicDriver struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewAnthropicDriver creates a driving agent backed by the Anthropic API
func NewAnthropicDriver(apiKey, model string) *AnthropicDriver {
	if model == "" {
		model = DefaultDriverModel
	}
	return &AnthropicDriver{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
	}
}

// taskPrompt mirrors the contract the repair loop depends on: the agent
// must end its report with the literal rating token.
func taskPrompt(task Task) string {
	return fmt.Sprintf(`An app contained by %s is in the directory %s. This is an app that should fulfill these requirements: %s
Please run this app on a local host. Check that the features are working as requested and validate that they match the description. Check that functionality such as buttons actually works. Rate how closely the app aligns with the requirements based on your interactions with it from 1 to 10. Return a short summary of any missing requirements or errors and return the rating in the format ***RATING START*** x/10 ***RATING END***.`,
		strings.Join(task.Files, ", "), task.WorkDir, task.Description)
}

func bashTool() anthropic.ToolUnionParam {
	schema := anthropic.ToolInputSchemaParam{
		Type: "object",
		Properties: map[string]any{
			"command": map[string]any{
				"type":        "string",
				"description": "The shell command to execute",
			},
		},
		Required: []string{"command"},
	}
	return anthropic.ToolUnionParamOfTool(schema, "bash")
}

// Drive runs the bounded tool-use loop. Every tool call is surfaced
// through onStep; the final text becomes the report.
func (d *AnthropicDriver) Drive(ctx context.Context, h Handle, task Task, onStep StepFunc) (*Report, error) {
	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(taskPrompt(task))),
	}

	var lastText string

	for turn := 0; turn < maxAgentTurns; turn++ {
		resp, err := d.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     d.model,
			MaxTokens: 4096,
			System:    []anthropic.TextBlockParam{{Text: driverSystemPrompt}},
			Messages:  messages,
			Tools:     []anthropic.ToolUnionParam{bashTool()},
		})
		if err != nil {
			return nil, fmt.Errorf("driving agent request failed: %w", err)
		}

		var toolResults []anthropic.ContentBlockParamUnion
		for i := range resp.Content {
			block := &resp.Content[i]
			switch block.Type {
			case "text":
				text := block.AsText().Text
				lastText = text
				emitStep(onStep, text)
			case "tool_use":
				use := block.AsToolUse()
				output := d.runTool(ctx, h, use.Input)
				emitStep(onStep, "$ "+output.command)
				toolResults = append(toolResults,
					anthropic.NewToolResultBlock(use.ID, output.text, output.isError))
			}
		}

		if len(toolResults) == 0 || resp.StopReason != "tool_use" {
			return &Report{Text: lastText}, nil
		}

		messages = append(messages, resp.ToParam())
		messages = append(messages, anthropic.NewUserMessage(toolResults...))
	}

	slog.Warn("driving agent hit turn cap without finishing", "turns", maxAgentTurns)
	return &Report{Text: lastText}, nil
}

type toolOutput struct {
	command string
	text    string
	isError bool
}

func (d *AnthropicDriver) runTool(ctx context.Context, h Handle, input json.RawMessage) toolOutput {
	var args struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal(input, &args); err != nil || args.Command == "" {
		return toolOutput{command: "<invalid>", text: "invalid bash tool input", isError: true}
	}

	out, err := h.RunCommand(ctx, args.Command)
	if err != nil {
		return toolOutput{command: args.Command, text: err.Error(), isError: true}
	}

	text := out.Stdout
	if out.Stderr != "" {
		text += "\n" + out.Stderr
	}
	if out.ExitCode != 0 {
		text += fmt.Sprintf("\n(exit code %d)", out.ExitCode)
	}
	return toolOutput{command: args.Command, text: strings.TrimSpace(text)}
}

func emitStep(onStep StepFunc, text string) {
	if onStep == nil || text == "" {
		return
	}
	onStep(Step{Text: text})
}
