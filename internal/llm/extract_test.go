// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Tests for JSON extraction from model output

package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFencedOrWhole_FencedBlock(t *testing.T) {
	raw := "Here is my answer:\n```json\n{\"internal_dialogue\": \"done\", \"updated_files\": {}}\n```\nHope that helps!"

	extraction := ExtractFencedOrWhole(raw)
	require.False(t, extraction.Malformed())
	assert.Equal(t, "done", extraction.Data["internal_dialogue"])
}

func TestExtractFencedOrWhole_WholeBody(t *testing.T) {
	raw := "  {\"summary\": \"a red cube\"}  \n"

	extraction := ExtractFencedOrWhole(raw)
	require.False(t, extraction.Malformed())
	assert.Equal(t, "a red cube", extraction.Data["summary"])
}

func TestExtractFencedOrWhole_BrokenFenceFallsThrough(t *testing.T) {
	// The fenced block is broken but the body outside is not JSON either
	raw := "```json\n{not json}\n```"

	extraction := ExtractFencedOrWhole(raw)
	assert.True(t, extraction.Malformed())
	assert.ErrorIs(t, extraction.Err, ErrInvalidJSON)
	assert.Equal(t, raw, extraction.Raw)
}

func TestExtractObject_TrailingProse(t *testing.T) {
	raw := "Sure! Here you go: {\"tickets\": []} Let me know if you need more."

	extraction := ExtractObject(raw)
	require.False(t, extraction.Malformed())
	_, ok := extraction.Data["tickets"]
	assert.True(t, ok)
}

func TestExtractObject_MarkdownFence(t *testing.T) {
	raw := "```json\n{\"summary\": \"scene with a torus\"}\n```"

	extraction := ExtractObject(raw)
	require.False(t, extraction.Malformed())
	assert.Equal(t, "scene with a torus", extraction.Data["summary"])
}

func TestExtractObject_SingleQuotes(t *testing.T) {
	raw := "{'summary': 'single quoted'}"

	extraction := ExtractObject(raw)
	require.False(t, extraction.Malformed())
	assert.Equal(t, "single quoted", extraction.Data["summary"])
}

func TestExtractObject_SingleQuotesNotRewrittenWhenMixed(t *testing.T) {
	// Double quotes present: the apostrophe must not be rewritten
	raw := `{"summary": "the user's scene"}`

	extraction := ExtractObject(raw)
	require.False(t, extraction.Malformed())
	assert.Equal(t, "the user's scene", extraction.Data["summary"])
}

func TestExtractObject_BracesInsideStrings(t *testing.T) {
	raw := `{"code": "function f() { return {}; }"}`

	extraction := ExtractObject(raw)
	require.False(t, extraction.Malformed())
	assert.Equal(t, "function f() { return {}; }", extraction.Data["code"])
}

func TestExtractObject_NoObject(t *testing.T) {
	extraction := ExtractObject("no json here at all")
	assert.True(t, extraction.Malformed())
	assert.ErrorIs(t, extraction.Err, ErrInvalidJSON)
}

func TestTruncateForError(t *testing.T) {
	assert.Equal(t, "short", TruncateForError("short", 10))
	assert.Equal(t, "abcde...", TruncateForError("abcdefghij", 5))
}
