// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Tests for the ticket mutation protocol

package ticket

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prototyp3d/prototyp3d/internal/llm"
	"github.com/prototyp3d/prototyp3d/internal/progress"
)

func fencedResponse(t *testing.T, dialogue string, files map[string]string) string {
	t.Helper()
	payload := map[string]any{
		"internal_dialogue": dialogue,
		"updated_files":     files,
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return "```json\n" + string(data) + "\n```"
}

func TestApplyInvalidPathSkipsGateway(t *testing.T) {
	gw := llm.NewMockClient()
	tk := Ticket{Summary: "add a cube"}

	result := tk.Apply(context.Background(), filepath.Join(t.TempDir(), "missing"), "", gw, nil)

	assert.Equal(t, DialogueInvalidPath, result.Dialogue)
	assert.Empty(t, result.Outcomes)
	assert.Zero(t, gw.Calls(), "gateway must not be consulted for a missing workspace")
}

func TestApplyNoValidFiles(t *testing.T) {
	repo := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(repo, "notes.txt"), []byte("x"), 0644))

	gw := llm.NewMockClient()
	result := Ticket{Summary: "add a cube"}.Apply(context.Background(), repo, "", gw, nil)

	assert.Equal(t, DialogueNoValidFiles, result.Dialogue)
	assert.Empty(t, result.WrittenPaths())
	assert.Empty(t, gw.TextPrompts)
}

func TestApplyWritesUpdatedFiles(t *testing.T) {
	repo := t.TempDir()
	scriptPath := filepath.Join(repo, "script.js")
	require.NoError(t, os.WriteFile(scriptPath, []byte("// empty"), 0644))

	newPath := filepath.Join(repo, "lib", "cube.js")
	gw := llm.NewMockClient()
	gw.QueueText(fencedResponse(t, "added the cube", map[string]string{
		scriptPath: "const cube = makeCube();",
		newPath:    "export function makeCube() {}",
	}))

	tracker := progress.NewTracker()
	tk := Ticket{Summary: "add a cube", Description: "spinning green cube"}
	result := tk.Apply(context.Background(), repo, "an empty scene", gw, tracker)

	assert.Equal(t, "added the cube", result.Dialogue)
	assert.False(t, result.Malformed)
	assert.ElementsMatch(t, []string{scriptPath, newPath}, result.WrittenPaths())

	data, err := os.ReadFile(scriptPath)
	require.NoError(t, err)
	assert.Equal(t, "const cube = makeCube();", string(data))

	data, err = os.ReadFile(newPath)
	require.NoError(t, err)
	assert.Equal(t, "export function makeCube() {}", string(data))

	// The prompt carries the ticket, the summary and the file contents
	require.Len(t, gw.TextPrompts, 1)
	assert.Contains(t, gw.TextPrompts[0], "spinning green cube")
	assert.Contains(t, gw.TextPrompts[0], "an empty scene")
	assert.Contains(t, gw.TextPrompts[0], "// empty")

	events := tracker.Snapshot(-1)
	require.Len(t, events, 2)
	assert.Equal(t, progress.EventNewTicket, events[0].Type)
	assert.Equal(t, progress.EventTicketCompleted, events[1].Type)
}

func TestApplyMalformedResponse(t *testing.T) {
	repo := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(repo, "index.html"), []byte("<html>"), 0644))

	gw := llm.NewMockClient()
	gw.QueueText("I could not produce JSON, sorry.")

	result := Ticket{Summary: "broken"}.Apply(context.Background(), repo, "", gw, nil)

	assert.True(t, result.Malformed)
	assert.Equal(t, DialogueMalformed, result.Dialogue)
	assert.Empty(t, result.WrittenPaths())
}

func TestApplyEmptyResponse(t *testing.T) {
	repo := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(repo, "index.html"), []byte("<html>"), 0644))

	gw := llm.NewMockClient() // empty script yields ""
	result := Ticket{Summary: "silent"}.Apply(context.Background(), repo, "", gw, nil)

	assert.Equal(t, DialogueNoResponse, result.Dialogue)
}

func TestApplyMissingDialogueFallback(t *testing.T) {
	repo := t.TempDir()
	target := filepath.Join(repo, "index.html")
	require.NoError(t, os.WriteFile(target, []byte("<html>"), 0644))

	gw := llm.NewMockClient()
	gw.QueueText(fencedResponse(t, "", map[string]string{target: "<html><body></body></html>"}))

	result := Ticket{Summary: "quiet"}.Apply(context.Background(), repo, "", gw, nil)

	assert.Equal(t, DialogueMissing, result.Dialogue)
	assert.Equal(t, []string{target}, result.WrittenPaths())
}

func TestApplyPartialWriteFailureDoesNotAbortBatch(t *testing.T) {
	repo := t.TempDir()
	good := filepath.Join(repo, "script.js")
	require.NoError(t, os.WriteFile(good, []byte("//"), 0644))

	// Crafted by hand so one entry carries non-string content
	raw := "```json\n{\"internal_dialogue\": \"mixed bag\", \"updated_files\": {" +
		"\"" + good + "\": \"updated\", \"bad\": 42}}\n```"
	gw := llm.NewMockClient()
	gw.QueueText(raw)

	result := Ticket{Summary: "partial"}.Apply(context.Background(), repo, "", gw, nil)

	assert.Equal(t, []string{good}, result.WrittenPaths())
	require.Len(t, result.Outcomes, 2)
	for _, outcome := range result.Outcomes {
		if outcome.Path == "bad" {
			assert.False(t, outcome.Written)
			assert.NotEmpty(t, outcome.Reason)
		}
	}
}
