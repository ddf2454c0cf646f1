// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Work item mutation protocol: read tree, prompt model, apply file updates

package ticket

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prototyp3d/prototyp3d/internal/llm"
	"github.com/prototyp3d/prototyp3d/internal/progress"
	"github.com/prototyp3d/prototyp3d/internal/workspace"
)

// Sentinel dialogues for the degraded, non-fatal outcomes
const (
	DialogueInvalidPath  = "Invalid repository path."
	DialogueNoValidFiles = "No valid files were found."
	DialogueMalformed    = "Model response was not formatted correctly."
	DialogueNoResponse   = "No model response."
	DialogueMissing      = "No internal dialogue provided."
)

// Ticket is one planned, independently applicable unit of change.
// Immutable after creation; identity is positional in the plan.
type Ticket struct {
	Summary     string `json:"summary"`
	Description string `json:"description"`
}

func (t Ticket) String() string {
	return fmt.Sprintf("Ticket(summary=%q)", t.Summary)
}

// FileOutcome records one attempted file write
type FileOutcome struct {
	Path    string `json:"path"`
	Written bool   `json:"written"`
	Reason  string `json:"reason,omitempty"`
}

// Result is the outcome of applying one ticket. Partial application is
// expected and visible through Outcomes rather than a single boolean.
type Result struct {
	Dialogue  string        `json:"internal_dialogue"`
	Outcomes  []FileOutcome `json:"outcomes,omitempty"`
	Malformed bool          `json:"malformed,omitempty"`
}

// WrittenPaths lists the paths that were successfully overwritten
func (r Result) WrittenPaths() []string {
	var paths []string
	for _, o := range r.Outcomes {
		if o.Written {
			paths = append(paths, o.Path)
		}
	}
	return paths
}

// Apply mutates files under repoPath to satisfy this ticket. Every
// failure mode short of unrecoverable I/O degrades to a sentinel result;
// the mutation protocol never aborts the coordinator's run.
func (t Ticket) Apply(ctx context.Context, repoPath, repoSummary string, gw llm.Client, sink progress.Sink) Result {
	if sink == nil {
		sink = progress.Discard
	}

	if info, err := os.Stat(repoPath); err != nil || !info.IsDir() {
		slog.Warn("ticket apply skipped: repository path does not exist", "path", repoPath, "ticket", t.Summary)
		return Result{Dialogue: DialogueInvalidPath}
	}

	sink.Publish(progress.EventNewTicket, "Working on ticket: "+t.Summary, map[string]any{
		"ticket_summary":     t.Summary,
		"ticket_description": t.Description,
	})

	sources, err := workspace.EnumerateSources(repoPath)
	if err != nil || len(sources) == 0 {
		slog.Warn("ticket apply skipped: no recognized source files", "path", repoPath, "ticket", t.Summary)
		return Result{Dialogue: DialogueNoValidFiles}
	}

	prompt := t.buildPrompt(repoSummary, sources)

	raw, err := gw.CompleteText(ctx, prompt, "")
	if err != nil || raw == "" {
		slog.Warn("ticket completion failed", "ticket", t.Summary, "error", err)
		return Result{Dialogue: DialogueNoResponse}
	}

	extraction := llm.ExtractFencedOrWhole(raw)
	if extraction.Malformed() {
		slog.Warn("ticket response malformed", "ticket", t.Summary, "error", extraction.Err)
		return Result{Dialogue: DialogueMalformed, Malformed: true}
	}

	result := Result{Dialogue: DialogueMissing}
	if dialogue, ok := extraction.Data["internal_dialogue"].(string); ok && dialogue != "" {
		result.Dialogue = dialogue
	}

	result.Outcomes = writeUpdatedFiles(extraction.Data)

	sink.Publish(progress.EventTicketCompleted, "Completed ticket: "+t.Summary, map[string]any{
		"internal_dialogue": result.Dialogue,
		"updated_files":     result.WrittenPaths(),
	})

	return result
}

// writeUpdatedFiles overwrites each returned file in full. A failure on
// one file is recorded and the rest still get written.
func writeUpdatedFiles(data map[string]any) []FileOutcome {
	updated, ok := data["updated_files"].(map[string]any)
	if !ok {
		return nil
	}

	outcomes := make([]FileOutcome, 0, len(updated))
	for path, raw := range updated {
		content, ok := raw.(string)
		if !ok {
			outcomes = append(outcomes, FileOutcome{Path: path, Reason: "content is not a string"})
			continue
		}

		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			slog.Warn("failed to create parent directory", "path", path, "error", err)
			outcomes = append(outcomes, FileOutcome{Path: path, Reason: err.Error()})
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			slog.Warn("failed to write updated file", "path", path, "error", err)
			outcomes = append(outcomes, FileOutcome{Path: path, Reason: err.Error()})
			continue
		}
		outcomes = append(outcomes, FileOutcome{Path: path, Written: true})
	}
	return outcomes
}

func (t Ticket) buildPrompt(repoSummary string, sources []workspace.SourceFile) string {
	return fmt.Sprintf(`You are an expert software engineer specializing in modifying and generating Three.js code.
You will modify the given files based on a Jira ticket.

**TASK DETAILS**
- Ticket Summary: %s
- Ticket Description: %s

***REPO SUMMARY***
%s

**FILES TO MODIFY**
%s

### INSTRUCTIONS:
1. Modify the provided files to satisfy the requirements of the Jira ticket.
2. Return your response in **valid JSON format** with the following structure:

`+"```json"+`
{
    "internal_dialogue": "Your thought process on what you changed and why.",
    "updated_files": {
        "file_path": "updated file content as a string"
    }
}
`+"```"+`
Ensure only the updated code is included in "updated_files", and nothing extra.`,
		t.Summary, t.Description, repoSummary, workspace.FormatBlocks(sources))
}
