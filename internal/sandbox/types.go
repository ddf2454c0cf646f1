// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Execution sandbox types and interfaces

package sandbox

import (
	"context"
	"errors"
	"time"
)

// Default timeouts
const (
	DefaultLeaseTimeout   = 12 * time.Minute
	DefaultCommandTimeout = 5 * time.Minute
)

// Sandbox errors
var (
	ErrStopped     = errors.New("sandbox already stopped")
	ErrStartFailed = errors.New("failed to start sandbox")
)

// Output is the result of one command inside the sandbox
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Handle is a leased, exclusively owned sandbox instance. Stop must be
// called on every exit path; instances are billed resources.
type Handle interface {
	// WriteFile uploads content at path (relative paths resolve against
	// the working directory)
	WriteFile(path, content string) error
	// ReadFile downloads the file at path
	ReadFile(path string) (string, error)
	// RunCommand executes a shell command and captures its output
	RunCommand(ctx context.Context, cmd string) (*Output, error)
	// WorkDir returns the current working directory
	WorkDir() string
	// SetWorkDir changes the working directory for subsequent commands
	SetWorkDir(dir string) error
	// Stop releases the sandbox. Safe to call more than once.
	Stop() error
}

// Sandbox provisions isolated execution environments
type Sandbox interface {
	Start(ctx context.Context, timeout time.Duration) (Handle, error)
}

// Step is one observable action taken by the driving agent
type Step struct {
	Text string
}

// Report is the agent's free-form account of driving the app
type Report struct {
	Text string
}

// Task describes what the driving agent should validate
type Task struct {
	WorkDir     string   // directory holding the app inside the sandbox
	Files       []string // well-known asset filenames
	Description string   // the requirements to validate against
}

// StepFunc observes agent steps; fire-and-forget, the return value (none)
// is never consumed and a nil func is allowed
type StepFunc func(Step)

// Driver runs an automated agent inside a sandbox and returns its report
type Driver interface {
	Drive(ctx context.Context, h Handle, task Task, onStep StepFunc) (*Report, error)
}
