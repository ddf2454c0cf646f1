// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Source file enumeration and prompt-block formatting

package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// sourceExtensions is the recognized source-text set: markup, script,
// style, plus common general-purpose languages the template may carry.
var sourceExtensions = map[string]bool{
	".html": true,
	".js":   true,
	".ts":   true,
	".css":  true,
	".py":   true,
	".java": true,
	".cpp":  true,
	".cs":   true,
}

// IsSourceFile reports whether the filename has a recognized source extension
func IsSourceFile(name string) bool {
	return sourceExtensions[strings.ToLower(filepath.Ext(name))]
}

// SourceFile is one readable source asset under a workspace
type SourceFile struct {
	Path    string // absolute or workspace-joined path
	RelPath string // path relative to the workspace root
	Content string
}

// EnumerateSources walks the tree at root and reads every file with a
// recognized source extension, in deterministic (sorted) walk order.
// Unreadable files are skipped, not fatal.
func EnumerateSources(root string) ([]SourceFile, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrWorkspaceMissing, root)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrWorkspaceMissing, root)
	}

	var sources []SourceFile
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if info.IsDir() || !IsSourceFile(info.Name()) {
			return nil
		}

		content, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}

		relPath, relErr := filepath.Rel(root, path)
		if relErr != nil {
			relPath = path
		}

		sources = append(sources, SourceFile{
			Path:    path,
			RelPath: filepath.ToSlash(relPath),
			Content: string(content),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(sources, func(i, j int) bool {
		return sources[i].RelPath < sources[j].RelPath
	})
	return sources, nil
}

// FormatBlocks renders source files as labeled, delimited prompt blocks
func FormatBlocks(sources []SourceFile) string {
	blocks := make([]string, 0, len(sources))
	for _, src := range sources {
		blocks = append(blocks, fmt.Sprintf("**FILE PATH:** %s\n**CONTENT START**\n%s\n**CONTENT END**", src.Path, src.Content))
	}
	return strings.Join(blocks, "\n")
}
