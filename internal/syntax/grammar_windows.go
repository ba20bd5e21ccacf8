//go:build windows && cgo

package syntax

import (
	"fmt"
	"syscall"
	"unsafe"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

func loadGrammar(path string) (*sitter.Language, error) {
	const symbol = "tree_sitter_openscad"
	dll, err := syscall.LoadDLL(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	proc, err := dll.FindProc(symbol)
	if err != nil {
		return nil, fmt.Errorf("%s has no %s: %w", path, symbol, err)
	}
	ptr, _, _ := proc.Call()
	if ptr == 0 {
		return nil, fmt.Errorf("%s returned a nil language", symbol)
	}
	return sitter.NewLanguage(unsafe.Pointer(ptr)), nil
}
