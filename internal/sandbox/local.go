// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Local sandbox: isolated temp directory with shell command execution

package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"
)

// LocalSandbox provisions throwaway directories on the local machine.
// It gives file isolation, not kernel isolation; remote implementations
// satisfy the same interface.
type LocalSandbox struct {
	BaseDir        string        // parent for sandbox roots ("" = os.TempDir)
	CommandTimeout time.Duration // per-command cap
}

// NewLocalSandbox creates a local sandbox provisioner
func NewLocalSandbox() *LocalSandbox {
	return &LocalSandbox{CommandTimeout: DefaultCommandTimeout}
}

// Start provisions a fresh sandbox directory
func (s *LocalSandbox) Start(_ context.Context, timeout time.Duration) (Handle, error) {
	if timeout <= 0 {
		timeout = DefaultLeaseTimeout
	}

	root, err := os.MkdirTemp(s.BaseDir, "p3d-sandbox-")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStartFailed, err)
	}

	cmdTimeout := s.CommandTimeout
	if cmdTimeout <= 0 {
		cmdTimeout = DefaultCommandTimeout
	}

	return &localHandle{
		root:       root,
		workDir:    root,
		cmdTimeout: cmdTimeout,
		expiresAt:  time.Now().Add(timeout),
	}, nil
}

type localHandle struct {
	mu         sync.Mutex
	root       string
	workDir    string
	cmdTimeout time.Duration
	expiresAt  time.Time
	stopped    bool
}

// resolve joins relative paths against the working directory
func (h *localHandle) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(h.workDir, path)
}

func (h *localHandle) checkLease() error {
	if h.stopped {
		return ErrStopped
	}
	if time.Now().After(h.expiresAt) {
		return fmt.Errorf("sandbox lease expired")
	}
	return nil
}

func (h *localHandle) WriteFile(path, content string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkLease(); err != nil {
		return err
	}

	full := h.resolve(path)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("failed to create sandbox directory: %w", err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write sandbox file %s: %w", path, err)
	}
	return nil
}

func (h *localHandle) ReadFile(path string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkLease(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(h.resolve(path))
	if err != nil {
		return "", fmt.Errorf("failed to read sandbox file %s: %w", path, err)
	}
	return string(data), nil
}

func (h *localHandle) RunCommand(ctx context.Context, cmd string) (*Output, error) {
	h.mu.Lock()
	if err := h.checkLease(); err != nil {
		h.mu.Unlock()
		return nil, err
	}
	workDir := h.workDir
	timeout := h.cmdTimeout
	h.mu.Unlock()

	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	command := exec.CommandContext(cmdCtx, "sh", "-c", cmd)
	command.Dir = workDir

	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	err := command.Run()
	output := &Output{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			output.ExitCode = exitErr.ExitCode()
			return output, nil // non-zero exit is an outcome, not an error
		}
		if cmdCtx.Err() == context.DeadlineExceeded {
			return output, fmt.Errorf("command timed out after %v", timeout)
		}
		return output, fmt.Errorf("command failed to run: %w", err)
	}
	return output, nil
}

func (h *localHandle) WorkDir() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.workDir
}

func (h *localHandle) SetWorkDir(dir string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkLease(); err != nil {
		return err
	}

	full := dir
	if !filepath.IsAbs(dir) {
		full = filepath.Join(h.root, dir)
	}
	info, err := os.Stat(full)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("not a directory: %s", dir)
	}
	h.workDir = full
	return nil
}

func (h *localHandle) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return nil
	}
	h.stopped = true
	if err := os.RemoveAll(h.root); err != nil {
		return fmt.Errorf("failed to release sandbox %s: %w", h.root, err)
	}
	return nil
}
