// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Project workspace lifecycle

package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// New creates a workspace handle for the given project name. The name
// defaults to a fresh UUID when empty. No directories are created until
// Setup runs.
func New(baseDir, name string) *Workspace {
	if baseDir == "" {
		baseDir = DefaultBaseDir
	}
	if name == "" {
		name = uuid.NewString()
	}

	return &Workspace{
		Name:    name,
		Path:    filepath.Join(baseDir, name),
		BaseDir: baseDir,
	}
}

// Exists checks if the workspace directory exists
func (w *Workspace) Exists() bool {
	info, err := os.Stat(w.Path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// Setup provisions the workspace tree from the template. The template
// must exist (local directory) or be clonable (git URL); absence is a
// fatal precondition failure. Behavior on an already-existing workspace
// is governed by policy.
func (w *Workspace) Setup(templateSource string, policy SetupPolicy) (*SetupResult, error) {
	if templateSource == "" {
		templateSource = DefaultTemplateDir
	}

	if w.Exists() && policy == ReuseExisting {
		return &SetupResult{TemplateSource: templateSource, Reused: true}, nil
	}

	if !isGitURL(templateSource) {
		info, err := os.Stat(templateSource)
		if err != nil || !info.IsDir() {
			return nil, fmt.Errorf("%w: %s", ErrTemplateMissing, templateSource)
		}
	}

	if w.Exists() {
		if err := os.RemoveAll(w.Path); err != nil {
			return nil, fmt.Errorf("failed to remove existing workspace %s: %w", w.Path, err)
		}
	}

	if err := os.MkdirAll(w.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory %s: %w", w.BaseDir, err)
	}

	result, err := provisionTemplate(templateSource, w.Path)
	if err != nil {
		// Do not leave a half-provisioned tree behind
		_ = os.RemoveAll(w.Path)
		return nil, err
	}
	return result, nil
}

// Remove deletes the workspace tree
func (w *Workspace) Remove() error {
	if !w.Exists() {
		return nil
	}
	if err := os.RemoveAll(w.Path); err != nil {
		return fmt.Errorf("failed to remove workspace %s: %w", w.Path, err)
	}
	return nil
}

// String returns a string representation of the workspace
func (w *Workspace) String() string {
	return fmt.Sprintf("Workspace{Name: %s, Path: %s}", w.Name, w.Path)
}
