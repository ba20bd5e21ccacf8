// Package workspace owns the document store, the include graph and the
// symbol index. It is the single writer for all file state; queries read
// through snapshots.
package workspace

import (
	"scadls/internal/lang"
	"scadls/internal/syntax"
)

// FileEntry is the indexed state of one file. Entries are immutable once
// published: every change builds a replacement, so snapshot holders keep a
// consistent view while the store moves on.
type FileEntry struct {
	Path    string
	Version int32
	Text    []byte
	Tree    *syntax.Tree
	Syms    *lang.FileSymbols

	// Open marks editor-owned documents. Closed library files are kept
	// while something still includes them.
	Open bool

	// FromDisk marks entries loaded by include resolution rather than an
	// editor open.
	FromDisk bool
}

// Decls returns the file-scope declarations.
func (e *FileEntry) Decls() []lang.Declaration {
	if e == nil || e.Syms == nil {
		return nil
	}
	if fs := e.Syms.FileScope(); fs != nil {
		return fs.Decls
	}
	return nil
}

// Change is one content change from the editor. A Full change replaces the
// whole document; otherwise the span between Start and End is replaced.
type Change struct {
	Full  bool
	Text  string
	Start syntax.Point
	End   syntax.Point
}
