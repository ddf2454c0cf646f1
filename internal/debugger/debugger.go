// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Bounded verify-and-patch cycle over a sandboxed candidate build

package debugger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prototyp3d/prototyp3d/internal/llm"
	"github.com/prototyp3d/prototyp3d/internal/progress"
	"github.com/prototyp3d/prototyp3d/internal/sandbox"
)

// Fixed filenames the candidate is deployed under inside the sandbox
const (
	SandboxHTMLName = "index.html"
	SandboxJSName   = "script.js"
	SandboxCSSName  = "styling.css"
)

// Defaults for the verify/repair cycle
const (
	DefaultThreshold     = 7
	DefaultMaxIterations = 2
)

// ErrNoEntryPoint means the workspace has no markup entry point to
// deploy. Fatal for the repair run, not for the coordinator.
var ErrNoEntryPoint = errors.New("no markup entry point found in workspace")

// Config tunes the repair loop. Threshold and MaxIterations are
// externally configurable, never hardcoded at call sites.
type Config struct {
	Threshold     int           // minimum passing score (0-10)
	MaxIterations int           // patch attempts before giving up
	LeaseTimeout  time.Duration // sandbox lease per run
}

// WithDefaults fills unset fields
func (c Config) WithDefaults() Config {
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.LeaseTimeout <= 0 {
		c.LeaseTimeout = sandbox.DefaultLeaseTimeout
	}
	return c
}

// Result is the outcome of one repair run. A sub-threshold score after
// the iteration cap is a soft failure: surfaced as data, escalation is
// the caller's policy.
type Result struct {
	Score      int    `json:"score"`
	Passed     bool   `json:"passed"`
	Iterations int    `json:"iterations"` // patch cycles performed
	LastReport string `json:"last_report,omitempty"`
}

// Debugger runs the repair loop against a workspace
type Debugger struct {
	gw     llm.Client
	box    sandbox.Sandbox
	driver sandbox.Driver
	sink   progress.Sink
	config Config
}

// New creates a repair loop
func New(gw llm.Client, box sandbox.Sandbox, driver sandbox.Driver, sink progress.Sink, config Config) *Debugger {
	if sink == nil {
		sink = progress.Discard
	}
	return &Debugger{
		gw:     gw,
		box:    box,
		driver: driver,
		sink:   sink,
		config: config.WithDefaults(),
	}
}

// assets are the three on-disk files the loop rewrites
type assets struct {
	htmlPath string
	jsPath   string
	cssPath  string
}

// discoverAssets walks the workspace once and picks the first file per
// role in traversal order. Only the markup entry point is mandatory;
// missing script/style assets are created next to it on first patch.
func discoverAssets(repoPath string) (*assets, error) {
	found := assets{}
	err := filepath.Walk(repoPath, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".html":
			if found.htmlPath == "" {
				found.htmlPath = path
			}
		case ".js":
			if found.jsPath == "" {
				found.jsPath = path
			}
		case ".css":
			if found.cssPath == "" {
				found.cssPath = path
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk workspace: %w", err)
	}

	if found.htmlPath == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoEntryPoint, repoPath)
	}

	entryDir := filepath.Dir(found.htmlPath)
	if found.jsPath == "" {
		found.jsPath = filepath.Join(entryDir, SandboxJSName)
	}
	if found.cssPath == "" {
		found.cssPath = filepath.Join(entryDir, SandboxCSSName)
	}
	return &found, nil
}

// readAsset tolerates a missing file (empty content) so a patch can
// introduce it
func readAsset(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

// Run executes the verify/patch cycle for the given requirements. The
// sandbox is provisioned once and released on every exit path.
func (d *Debugger) Run(ctx context.Context, repoPath, description string) (*Result, error) {
	files, err := discoverAssets(repoPath)
	if err != nil {
		return nil, err
	}

	handle, err := d.box.Start(ctx, d.config.LeaseTimeout)
	if err != nil {
		return nil, fmt.Errorf("sandbox provisioning failed: %w", err)
	}
	defer func() {
		if stopErr := handle.Stop(); stopErr != nil {
			slog.Warn("sandbox release failed", "error", stopErr)
		}
	}()

	result := &Result{}

	for iteration := 0; iteration < d.config.MaxIterations; iteration++ {
		if err := d.sync(ctx, handle, files); err != nil {
			return nil, err
		}

		report, err := d.driver.Drive(ctx, handle, sandbox.Task{
			WorkDir:     handle.WorkDir(),
			Files:       []string{SandboxHTMLName, SandboxJSName, SandboxCSSName},
			Description: description,
		}, func(step sandbox.Step) {
			d.sink.Publish(progress.EventDebug, step.Text, nil)
		})
		if err != nil {
			return nil, fmt.Errorf("driving agent failed: %w", err)
		}

		result.Score = ExtractRating(report.Text)
		result.LastReport = report.Text
		slog.Info("repair loop scored candidate", "score", result.Score, "threshold", d.config.Threshold, "iteration", iteration)

		if result.Score >= d.config.Threshold {
			result.Passed = true
			d.sink.Publish(progress.EventDebug, fmt.Sprintf("Validation passed with score %d/10", result.Score), nil)
			return result, nil
		}

		d.sink.Publish(progress.EventIterate,
			fmt.Sprintf("Score %d/10 below threshold, requesting fix (iteration %d)", result.Score, iteration+1), nil)

		if err := d.patch(ctx, files, report.Text); err != nil {
			slog.Warn("patch generation failed, keeping current candidate", "error", err)
		}
		result.Iterations++
	}

	// Out of iterations: sub-threshold soft failure, candidate left as-is
	return result, nil
}

// sync deploys the three assets into the sandbox under fixed names and
// moves the working directory to the uploaded entry point
func (d *Debugger) sync(ctx context.Context, handle sandbox.Handle, files *assets) error {
	uploads := []struct {
		name    string
		content string
	}{
		{SandboxHTMLName, readAsset(files.htmlPath)},
		{SandboxJSName, readAsset(files.jsPath)},
		{SandboxCSSName, readAsset(files.cssPath)},
	}
	for _, up := range uploads {
		if err := handle.WriteFile(up.name, up.content); err != nil {
			return fmt.Errorf("sandbox sync failed for %s: %w", up.name, err)
		}
	}

	out, err := handle.RunCommand(ctx, "find . -type f -name "+SandboxHTMLName)
	if err != nil {
		return fmt.Errorf("failed to locate entry point in sandbox: %w", err)
	}
	located := strings.TrimSpace(strings.SplitN(out.Stdout, "\n", 2)[0])
	if located != "" {
		if dir := filepath.Dir(located); dir != "." {
			if err := handle.SetWorkDir(dir); err != nil {
				return fmt.Errorf("failed to enter entry point directory: %w", err)
			}
		}
	}
	return nil
}

// patch asks the gateway for revised assets and overwrites the on-disk
// files. A section missing from the response keeps its previous content.
func (d *Debugger) patch(ctx context.Context, files *assets, report string) error {
	htmlCode := readAsset(files.htmlPath)
	jsCode := readAsset(files.jsPath)
	cssCode := readAsset(files.cssPath)

	response, err := d.gw.CompleteText(ctx, buildPatchPrompt(htmlCode, jsCode, cssCode, report), "")
	if err != nil {
		return fmt.Errorf("fix suggestion request failed: %w", err)
	}

	htmlCode = ExtractSection(response, "HTML", htmlCode)
	jsCode = ExtractSection(response, "JS", jsCode)
	cssCode = ExtractSection(response, "CSS", cssCode)

	writes := []struct {
		path    string
		content string
	}{
		{files.htmlPath, htmlCode},
		{files.jsPath, jsCode},
		{files.cssPath, cssCode},
	}
	for _, w := range writes {
		if err := os.WriteFile(w.path, []byte(w.content), 0644); err != nil {
			slog.Warn("failed to write patched asset", "path", w.path, "error", err)
		}
	}
	return nil
}
