//go:build !cgo

package syntax

import "errors"

// SitterProvider requires cgo to dlopen grammar shared objects; in builds
// without cgo it cannot be constructed and consumers fall back to the
// built-in provider.
type SitterProvider struct{}

// NewSitterProvider always fails when cgo is disabled.
func NewSitterProvider(path string) (*SitterProvider, error) {
	return nil, errors.New("tree-sitter grammar loading requires a cgo-enabled build")
}

func (sp *SitterProvider) Parse(text []byte) (*Tree, error) {
	return nil, errors.New("tree-sitter provider unavailable without cgo")
}

func (sp *SitterProvider) Reparse(old *Tree, text []byte, edit Edit) (*Tree, error) {
	return nil, errors.New("tree-sitter provider unavailable without cgo")
}

// Close releases the underlying tree-sitter tree, if any. Without cgo there
// is never a handle to release.
func (t *Tree) Close() {}
