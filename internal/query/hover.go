package query

import (
	"scadls/internal/core/errors"
	"scadls/internal/lang"
	"scadls/internal/syntax"
	"scadls/internal/workspace"
)

// Hover returns the markdown hover for the symbol at pos, empty when the
// position holds nothing resolvable.
func (e *Engine) Hover(snap *workspace.Snapshot, path string, pos syntax.Point) (string, error) {
	defer observe("hover")()

	entry := snap.Entry(path)
	if entry == nil || entry.Tree == nil {
		return "", errors.Newf(errors.CodeNotFound, "unknown document %s", path)
	}

	leaf := identifierAt(entry, pos)
	if leaf == nil {
		return "", nil
	}

	name := leaf.Content(entry.Text)
	callOnly := callOnlyAt(entry, pos, leaf)
	d := snap.Resolve(path, name, pos, callOnly)
	if d == nil && callOnly {
		d = snap.Resolve(path, name, pos, false)
	}
	if d == nil {
		return "", nil
	}
	return lang.Hover(d), nil
}
