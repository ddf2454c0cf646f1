// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Workspace types and constants

package workspace

import "errors"

const (
	// DefaultBaseDir is where product workspaces are created
	DefaultBaseDir = "products"
	// DefaultTemplateDir is the well-known starter template location
	DefaultTemplateDir = "templates/scene"
)

// Workspace errors
var (
	ErrTemplateMissing = errors.New("template directory not found")
	ErrWorkspaceMissing = errors.New("workspace directory not found")
)

// SetupPolicy decides what happens when the workspace path already
// exists. The reference behavior is recreate; reuse supports iterating
// on a previously generated product.
type SetupPolicy int

const (
	// RecreateFromTemplate destroys an existing tree and copies the
	// template fresh
	RecreateFromTemplate SetupPolicy = iota
	// ReuseExisting leaves an existing tree untouched
	ReuseExisting
)

func (p SetupPolicy) String() string {
	switch p {
	case ReuseExisting:
		return "reuse"
	default:
		return "recreate"
	}
}

// Workspace is the mutable project tree for one generated prototype
type Workspace struct {
	Name    string // project name, defaults to a UUID
	Path    string // root of the product tree
	BaseDir string // parent directory holding all products
}

// SetupResult reports what template provisioning did
type SetupResult struct {
	TemplateSource string
	Reused         bool
	FilesCopied    int
	BytesCopied    int64
}
