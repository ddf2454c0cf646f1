// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Tests for workspace lifecycle and source enumeration

package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func makeTemplate(t *testing.T) string {
	t.Helper()
	tmpl := filepath.Join(t.TempDir(), "template")
	writeFile(t, filepath.Join(tmpl, "index.html"), "<html></html>")
	writeFile(t, filepath.Join(tmpl, "script.js"), "// scene")
	writeFile(t, filepath.Join(tmpl, "styling.css"), "body {}")
	return tmpl
}

func TestNewDefaultsNameToUUID(t *testing.T) {
	ws := New("base", "")
	assert.NotEmpty(t, ws.Name)
	assert.Equal(t, filepath.Join("base", ws.Name), ws.Path)

	other := New("base", "")
	assert.NotEqual(t, ws.Name, other.Name)
}

func TestSetupMissingTemplate(t *testing.T) {
	ws := New(t.TempDir(), "proj")

	_, err := ws.Setup(filepath.Join(t.TempDir(), "nope"), RecreateFromTemplate)
	assert.ErrorIs(t, err, ErrTemplateMissing)
	assert.False(t, ws.Exists())
}

func TestSetupCopiesTemplate(t *testing.T) {
	ws := New(t.TempDir(), "proj")

	result, err := ws.Setup(makeTemplate(t), RecreateFromTemplate)
	require.NoError(t, err)
	assert.False(t, result.Reused)
	assert.Equal(t, 3, result.FilesCopied)

	data, err := os.ReadFile(filepath.Join(ws.Path, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(data))
}

func TestSetupRecreateDestroysExisting(t *testing.T) {
	ws := New(t.TempDir(), "proj")
	tmpl := makeTemplate(t)

	_, err := ws.Setup(tmpl, RecreateFromTemplate)
	require.NoError(t, err)
	leftover := filepath.Join(ws.Path, "stale.js")
	writeFile(t, leftover, "old")

	_, err = ws.Setup(tmpl, RecreateFromTemplate)
	require.NoError(t, err)
	_, statErr := os.Stat(leftover)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSetupReuseKeepsExisting(t *testing.T) {
	ws := New(t.TempDir(), "proj")
	tmpl := makeTemplate(t)

	_, err := ws.Setup(tmpl, RecreateFromTemplate)
	require.NoError(t, err)
	kept := filepath.Join(ws.Path, "progress.js")
	writeFile(t, kept, "work in progress")

	result, err := ws.Setup(tmpl, ReuseExisting)
	require.NoError(t, err)
	assert.True(t, result.Reused)

	data, err := os.ReadFile(kept)
	require.NoError(t, err)
	assert.Equal(t, "work in progress", string(data))
}

func TestRemove(t *testing.T) {
	ws := New(t.TempDir(), "proj")
	_, err := ws.Setup(makeTemplate(t), RecreateFromTemplate)
	require.NoError(t, err)

	require.NoError(t, ws.Remove())
	assert.False(t, ws.Exists())
	require.NoError(t, ws.Remove()) // idempotent
}

func TestEnumerateSources(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b", "script.js"), "js")
	writeFile(t, filepath.Join(root, "a.html"), "html")
	writeFile(t, filepath.Join(root, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(root, "style.css"), "css")

	sources, err := EnumerateSources(root)
	require.NoError(t, err)
	require.Len(t, sources, 3)

	// Deterministic order by relative path
	assert.Equal(t, "a.html", sources[0].RelPath)
	assert.Equal(t, "b/script.js", sources[1].RelPath)
	assert.Equal(t, "style.css", sources[2].RelPath)
	assert.Equal(t, "js", sources[1].Content)
}

func TestEnumerateSourcesMissingRoot(t *testing.T) {
	_, err := EnumerateSources(filepath.Join(t.TempDir(), "gone"))
	assert.ErrorIs(t, err, ErrWorkspaceMissing)
}

func TestFormatBlocks(t *testing.T) {
	out := FormatBlocks([]SourceFile{
		{Path: "/x/a.js", Content: "let a = 1;"},
	})
	assert.Contains(t, out, "**FILE PATH:** /x/a.js")
	assert.Contains(t, out, "**CONTENT START**\nlet a = 1;\n**CONTENT END**")
}

func TestIsSourceFile(t *testing.T) {
	assert.True(t, IsSourceFile("Index.HTML"))
	assert.True(t, IsSourceFile("main.py"))
	assert.False(t, IsSourceFile("README.md"))
	assert.False(t, IsSourceFile("archive.tar.gz"))
}
