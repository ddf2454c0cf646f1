// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Template provisioning: local directory copy or git clone

package workspace

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Default patterns to skip when copying a template tree
var defaultSkipPatterns = []string{
	".git",
	"node_modules",
	"__pycache__",
	".venv",
	"venv",
	"dist",
	"build",
}

// isGitURL reports whether the template source is a remote repository
func isGitURL(source string) bool {
	return strings.HasPrefix(source, "https://") ||
		strings.HasPrefix(source, "http://") ||
		strings.HasPrefix(source, "git@")
}

// provisionTemplate materializes the template at dest
func provisionTemplate(source, dest string) (*SetupResult, error) {
	if isGitURL(source) {
		return cloneTemplate(source, dest)
	}
	return copyTemplate(source, dest)
}

// cloneTemplate shallow-clones a starter repository and strips its git
// metadata so the product tree starts from a clean slate
func cloneTemplate(url, dest string) (*SetupResult, error) {
	_, err := git.PlainClone(dest, false, &git.CloneOptions{
		URL:           url,
		Depth:         1,
		SingleBranch:  true,
		ReferenceName: plumbing.HEAD,
	})
	if err != nil {
		_ = os.RemoveAll(dest)
		return nil, fmt.Errorf("failed to clone template %s: %w", url, err)
	}

	if err := os.RemoveAll(filepath.Join(dest, ".git")); err != nil {
		return nil, fmt.Errorf("failed to strip git metadata: %w", err)
	}

	files, bytes, err := countFiles(dest)
	if err != nil {
		return nil, err
	}

	return &SetupResult{
		TemplateSource: url,
		FilesCopied:    files,
		BytesCopied:    bytes,
	}, nil
}

// copyTemplate copies a local template directory byte-for-byte into dest
func copyTemplate(source, dest string) (*SetupResult, error) {
	srcPath, err := filepath.Abs(source)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve template path: %w", err)
	}

	ignorePatterns := loadGitignore(srcPath)
	ignorePatterns = append(ignorePatterns, defaultSkipPatterns...)

	var filesCopied int
	var bytesCopied int64

	err = filepath.Walk(srcPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(srcPath, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}
		if relPath == "." {
			return os.MkdirAll(dest, info.Mode())
		}

		if shouldSkip(relPath, ignorePatterns) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		destPath := filepath.Join(dest, relPath)

		if info.IsDir() {
			return os.MkdirAll(destPath, info.Mode())
		}

		copied, err := copyFile(path, destPath, info)
		if err != nil {
			return fmt.Errorf("failed to copy %s: %w", relPath, err)
		}
		filesCopied++
		bytesCopied += copied
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to copy template: %w", err)
	}

	return &SetupResult{
		TemplateSource: source,
		FilesCopied:    filesCopied,
		BytesCopied:    bytesCopied,
	}, nil
}

// shouldSkip checks if a path should be skipped based on patterns
func shouldSkip(relPath string, patterns []string) bool {
	relPath = filepath.ToSlash(relPath)

	for _, pattern := range patterns {
		if relPath == pattern {
			return true
		}
		parts := strings.Split(relPath, "/")
		for _, part := range parts {
			if part == pattern {
				return true
			}
		}
		if strings.HasPrefix(relPath, pattern+"/") {
			return true
		}
	}
	return false
}

// loadGitignore loads patterns from a .gitignore file, if present
func loadGitignore(dir string) []string {
	file, err := os.Open(filepath.Join(dir, ".gitignore"))
	if err != nil {
		return nil
	}
	defer file.Close()

	var patterns []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, strings.TrimSuffix(line, "/"))
	}
	return patterns
}

// copyFile copies a single file preserving permissions
func copyFile(src, dst string, info os.FileInfo) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, err
	}

	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return 0, err
	}
	defer out.Close()

	return io.Copy(out, in)
}

// countFiles counts files and total bytes in a directory
func countFiles(root string) (int, int64, error) {
	var files int
	var bytes int64

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files++
			bytes += info.Size()
		}
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count files: %w", err)
	}
	return files, bytes, nil
}
