// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Scripted driver for testing and offline mode

package sandbox

import (
	"context"
	"sync"
)

// MockDriver returns scripted reports in FIFO order. When the script is
// exhausted the last report repeats, so bounded loops always get an
// answer.
type MockDriver struct {
	mu      sync.Mutex
	reports []string
	calls   int
}

// NewMockDriver creates a scripted driver
func NewMockDriver(reports ...string) *MockDriver {
	return &MockDriver{reports: reports}
}

// Drive returns the next scripted report
func (d *MockDriver) Drive(_ context.Context, _ Handle, _ Task, onStep StepFunc) (*Report, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls++
	if len(d.reports) == 0 {
		return &Report{Text: ""}, nil
	}

	idx := d.calls - 1
	if idx >= len(d.reports) {
		idx = len(d.reports) - 1
	}
	text := d.reports[idx]

	emitStep(onStep, text)
	return &Report{Text: text}, nil
}

// Calls returns how many times Drive has run
func (d *MockDriver) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}
