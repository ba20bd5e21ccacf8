package query

import (
	"scadls/internal/core/errors"
	"scadls/internal/syntax"
	"scadls/internal/workspace"
)

// References lists every occurrence of the symbol at pos across indexed
// files, declaration first.
func (e *Engine) References(snap *workspace.Snapshot, path string, pos syntax.Point) ([]workspace.Location, error) {
	defer observe("references")()

	entry := snap.Entry(path)
	if entry == nil || entry.Tree == nil {
		return nil, errors.Newf(errors.CodeNotFound, "unknown document %s", path)
	}

	leaf := identifierAt(entry, pos)
	if leaf == nil {
		return nil, nil
	}
	return snap.References(path, leaf.Content(entry.Text), pos), nil
}
