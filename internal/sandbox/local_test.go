// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Tests for the local sandbox

package sandbox

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLocal(t *testing.T) Handle {
	t.Helper()
	box := NewLocalSandbox()
	box.BaseDir = t.TempDir()

	handle, err := box.Start(context.Background(), time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = handle.Stop() })
	return handle
}

func TestLocalWriteAndRead(t *testing.T) {
	handle := startLocal(t)

	require.NoError(t, handle.WriteFile("index.html", "<html></html>"))
	require.NoError(t, handle.WriteFile("assets/app.js", "let x = 1;"))

	content, err := handle.ReadFile("index.html")
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", content)

	content, err = handle.ReadFile("assets/app.js")
	require.NoError(t, err)
	assert.Equal(t, "let x = 1;", content)
}

func TestLocalRunCommand(t *testing.T) {
	handle := startLocal(t)

	out, err := handle.RunCommand(context.Background(), "echo hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out.Stdout)
	assert.Zero(t, out.ExitCode)
}

func TestLocalNonZeroExitIsNotAnError(t *testing.T) {
	handle := startLocal(t)

	out, err := handle.RunCommand(context.Background(), "exit 3")
	require.NoError(t, err)
	assert.Equal(t, 3, out.ExitCode)
}

func TestLocalSetWorkDir(t *testing.T) {
	handle := startLocal(t)
	require.NoError(t, handle.WriteFile("sub/file.txt", "x"))

	require.NoError(t, handle.SetWorkDir("sub"))
	assert.True(t, strings.HasSuffix(handle.WorkDir(), "sub"))

	out, err := handle.RunCommand(context.Background(), "ls")
	require.NoError(t, err)
	assert.Contains(t, out.Stdout, "file.txt")

	assert.Error(t, handle.SetWorkDir("does-not-exist"))
}

func TestLocalStopReleasesAndIsIdempotent(t *testing.T) {
	box := NewLocalSandbox()
	box.BaseDir = t.TempDir()
	handle, err := box.Start(context.Background(), time.Minute)
	require.NoError(t, err)

	require.NoError(t, handle.WriteFile("f.txt", "x"))
	root := handle.WorkDir()

	require.NoError(t, handle.Stop())
	require.NoError(t, handle.Stop())

	_, statErr := os.Stat(root)
	assert.True(t, os.IsNotExist(statErr))

	assert.ErrorIs(t, handle.WriteFile("g.txt", "y"), ErrStopped)
	_, err = handle.RunCommand(context.Background(), "true")
	assert.ErrorIs(t, err, ErrStopped)
}
